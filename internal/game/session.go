package game

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"ramentycoon/internal/master"
)

const stateVersion = 1

type Options struct {
	Seed        uint64
	CompanyName string
	PoolMode    PoolMode
	Volatility  string
	Logger      *slog.Logger
	Master      *master.Data
}

// Session owns one game world. Every exported method locks it, so a session
// can be shared between HTTP handlers.
type Session struct {
	mu sync.Mutex

	Seed           uint64
	PoolMode       PoolMode
	Clock          Clock
	Player         *Player
	Market         *Market
	Competitors    []*Competitor
	Deals          *DealMarket
	Targets        *TargetMarket
	CXOCandidates  []CXO
	CXORefreshWeek int
	PropertyMarket []*Property

	RNG    *RNG
	Log    *slog.Logger
	Master *master.Data
}

func (o Options) withDefaults() (Options, error) {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Master == nil {
		o.Master = master.Default()
	}
	if o.PoolMode == "" {
		o.PoolMode = PoolGlobal
	}
	if o.PoolMode != PoolGlobal && o.PoolMode != PoolRegional {
		return o, fmt.Errorf("customer pool mode %q: %w", o.PoolMode, ErrInvalidState)
	}
	if strings.TrimSpace(o.CompanyName) == "" {
		o.CompanyName = "Mirai Ramen Holdings"
	}
	return o, nil
}

func NewSession(opts Options) (*Session, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	name, err := validateName(opts.CompanyName)
	if err != nil {
		return nil, err
	}
	d := opts.Master
	g := d.Game
	s := &Session{
		Seed:     opts.Seed,
		PoolMode: opts.PoolMode,
		Clock:    NewClock(g.StartYear, g.StartMonth, g.StartWeek),
		RNG:      NewRNG(opts.Seed),
		Master:   d,
	}
	s.Log = opts.Logger.With("seed", opts.Seed)
	s.Player = newPlayer(d, name, 0)
	s.Market = GenerateMarket(s.RNG, d, g.StartYear, opts.Volatility)
	if s.Competitors, err = generateCompetitors(s.RNG, d, 0); err != nil {
		return nil, err
	}
	s.Deals = newDealMarket(d.Venture)
	s.Deals.Refresh(s.RNG, d.Venture, 0)
	s.Targets = newTargetMarket(d.MA)
	s.Targets.Refresh(s.RNG, d.MA, 0)
	s.CXOCandidates = generateCXOCandidates(s.RNG, d)
	s.PropertyMarket = newPropertyListings(s.RNG, d)
	s.Player.Company.RecordSnapshot(s.Clock, s.Player.TotalDebt(), g.SnapshotHistoryLimit)

	s.Log.Info("session started", "company", name, "companies", len(s.Market.Companies), "competitors", len(s.Competitors))
	return s, nil
}

// State is the whole world as plain data. Export hands out a deep copy.
type State struct {
	Version        int           `json:"version"`
	MasterDigest   string        `json:"master_digest"`
	Seed           uint64        `json:"seed"`
	PoolMode       PoolMode      `json:"pool_mode"`
	Clock          Clock         `json:"clock"`
	Player         *Player       `json:"player"`
	Market         *Market       `json:"market"`
	Competitors    []*Competitor `json:"competitors"`
	Deals          *DealMarket   `json:"deals"`
	Targets        *TargetMarket `json:"targets"`
	CXOCandidates  []CXO         `json:"cxo_candidates"`
	CXORefreshWeek int           `json:"cxo_refresh_week"`
	PropertyMarket []*Property   `json:"property_market"`
	RNG            []byte        `json:"rng"`
}

func (s *Session) Export() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.export()
}

func (s *Session) export() (State, error) {
	rng, err := s.RNG.MarshalBinary()
	if err != nil {
		return State{}, fmt.Errorf("export rng: %w", err)
	}
	digest, err := s.Master.Digest()
	if err != nil {
		return State{}, fmt.Errorf("master digest: %w", err)
	}
	live := State{
		Version:        stateVersion,
		MasterDigest:   digest,
		Seed:           s.Seed,
		PoolMode:       s.PoolMode,
		Clock:          s.Clock,
		Player:         s.Player,
		Market:         s.Market,
		Competitors:    s.Competitors,
		Deals:          s.Deals,
		Targets:        s.Targets,
		CXOCandidates:  s.CXOCandidates,
		CXORefreshWeek: s.CXORefreshWeek,
		PropertyMarket: s.PropertyMarket,
		RNG:            rng,
	}
	return live.Clone()
}

// Clone deep-copies a state through gob.
func (st State) Clone() (State, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return State{}, fmt.Errorf("encode state: %w", err)
	}
	var out State
	if err := gob.NewDecoder(&buf).Decode(&out); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	return out, nil
}

// Restore rebuilds a session that continues exactly where the export left
// off, random stream included.
func Restore(st State, opts Options) (*Session, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	if st.Version != stateVersion {
		return nil, fmt.Errorf("state version %d, want %d: %w", st.Version, stateVersion, ErrInvalidState)
	}
	if st.Player == nil || st.Market == nil {
		return nil, fmt.Errorf("state is missing the player or market: %w", ErrInvalidState)
	}
	if digest, err := opts.Master.Digest(); err == nil && st.MasterDigest != "" && digest != st.MasterDigest {
		opts.Logger.Warn("master data changed since save", "saved", st.MasterDigest, "current", digest)
	}
	rng := NewRNG(st.Seed)
	if err := rng.UnmarshalBinary(st.RNG); err != nil {
		return nil, err
	}
	s := &Session{
		Seed:           st.Seed,
		PoolMode:       st.PoolMode,
		Clock:          st.Clock,
		Player:         st.Player,
		Market:         st.Market,
		Competitors:    st.Competitors,
		Deals:          st.Deals,
		Targets:        st.Targets,
		CXOCandidates:  st.CXOCandidates,
		CXORefreshWeek: st.CXORefreshWeek,
		PropertyMarket: st.PropertyMarket,
		RNG:            rng,
		Master:         opts.Master,
		Log:            opts.Logger.With("seed", st.Seed),
	}
	if s.PoolMode == "" {
		s.PoolMode = PoolGlobal
	}
	s.ensureMaps()
	return s, nil
}

// ensureMaps restores the empty maps gob drops.
func (s *Session) ensureMaps() {
	s.Player.ensureMaps()
	for _, c := range s.Competitors {
		c.Portfolio.ensureMaps()
	}
	if s.Deals == nil {
		s.Deals = newDealMarket(s.Master.Venture)
	}
	if s.Targets == nil {
		s.Targets = newTargetMarket(s.Master.MA)
	}
	s.Market.reindex()
}
