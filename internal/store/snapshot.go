package store

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"ramentycoon/internal/game"
)

const snapshotVersion = 1

// Header is the first line of a save file, readable without decoding the
// gob body.
type Header struct {
	Version      int       `json:"version"`
	Company      string    `json:"company"`
	Seed         uint64    `json:"seed"`
	Week         int       `json:"week"`
	Clock        string    `json:"clock"`
	MasterDigest string    `json:"master_digest"`
	SavedAt      time.Time `json:"saved_at"`
}

type snapshotV1 struct {
	Header Header
	State  game.State
}

func headerFor(st game.State, savedAt time.Time) Header {
	h := Header{
		Version:      snapshotVersion,
		Seed:         st.Seed,
		Week:         st.Clock.TotalWeeksElapsed,
		Clock:        st.Clock.String(),
		MasterDigest: st.MasterDigest,
		SavedAt:      savedAt.UTC(),
	}
	if st.Player != nil {
		h.Company = st.Player.CompanyName
	}
	return h
}

// WriteSnapshot stores a session as zstd(header line + gob body). The file
// is written next to its final path and renamed into place.
func WriteSnapshot(path string, st game.State, savedAt time.Time) (Header, error) {
	if st.Player == nil {
		return Header{}, errors.New("snapshot without a player")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Header{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return Header{}, err
	}
	defer os.Remove(tmp.Name())

	h, err := EncodeSnapshot(tmp, st, savedAt)
	if err != nil {
		tmp.Close()
		return Header{}, err
	}
	if err := tmp.Close(); err != nil {
		return Header{}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Header{}, fmt.Errorf("replace %s: %w", path, err)
	}
	return h, nil
}

// EncodeSnapshot writes the save format to any stream; the API serves it as
// the export body.
func EncodeSnapshot(w io.Writer, st game.State, savedAt time.Time) (Header, error) {
	if st.Player == nil {
		return Header{}, errors.New("snapshot without a player")
	}
	h := headerFor(st, savedAt)
	return h, encodeSnapshot(w, snapshotV1{Header: h, State: st})
}

func encodeSnapshot(w io.Writer, snap snapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func openSnapshot(path string) (*os.File, *zstd.Decoder, *bufio.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, nil, err
	}
	return f, dec, bufio.NewReaderSize(dec, 256*1024), nil
}

// ReadHeader decodes only the first line of a save file.
func ReadHeader(path string) (Header, error) {
	f, dec, br, err := openSnapshot(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	defer dec.Close()

	line, err := br.ReadBytes('\n')
	if err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return Header{}, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (Header, game.State, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, game.State{}, err
	}
	defer f.Close()
	return DecodeSnapshot(f)
}

func DecodeSnapshot(r io.Reader) (Header, game.State, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Header{}, game.State{}, err
	}
	defer dec.Close()
	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return Header{}, game.State{}, fmt.Errorf("read header: %w", err)
	}
	var snap snapshotV1
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return Header{}, game.State{}, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != snapshotVersion {
		return Header{}, game.State{}, fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	return snap.Header, snap.State, nil
}

// SavePath is where a named game lives inside a save directory.
func SavePath(dir, name string) string {
	return filepath.Join(dir, name+".ramen.zst")
}
