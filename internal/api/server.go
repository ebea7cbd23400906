package api

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ramentycoon/internal/config"
	"ramentycoon/internal/game"
	"ramentycoon/internal/master"
	"ramentycoon/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	maxAdvanceWeeks = 52
	maxImportBytes  = 64 << 20
)

type Server struct {
	cfg      config.APIConfig
	log      *slog.Logger
	master   *master.Data
	history  store.History
	sessions *registry
	mux      *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, data *master.Data, history store.History) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if data == nil {
		data = master.Default()
	}
	if history == nil {
		history = store.Discard{}
	}
	s := &Server{
		cfg:      cfg,
		log:      logger,
		master:   data,
		history:  history,
		sessions: newRegistry(cfg.MaxSessions, cfg.AdvancePerSec, cfg.AdvanceBurst),
		mux:      chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/actions", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"kinds": game.ActionKinds()})
		})
		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleCreateSession)
		r.Post("/sessions/import", s.handleImportSession)

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Use(s.sessionMiddleware)
			r.Delete("/", s.handleDeleteSession)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/stocks", s.handleStocksList)
			r.Get("/stocks/{ticker}", s.handleStockDetail)
			r.Get("/listings", s.handleListings)
			r.Post("/actions", s.handleAction)
			r.Post("/advance", s.handleAdvance)
			r.Get("/export", s.handleExport)
			r.Get("/history", s.handleHistory)
		})
	})
}

func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		e, ok := s.sessions.get(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("session %q not found", id))
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, e)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.list()})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Company    string  `json:"company"`
		Seed       *uint64 `json:"seed"`
		Volatility string  `json:"volatility"`
		PoolMode   string  `json:"pool_mode"`
	}
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.New()
	seed := binary.BigEndian.Uint64(id[:8])
	if in.Seed != nil {
		seed = *in.Seed
	}
	opts := game.Options{
		Seed:        seed,
		CompanyName: in.Company,
		PoolMode:    game.PoolMode(firstNonEmpty(in.PoolMode, s.cfg.PoolMode)),
		Volatility:  firstNonEmpty(in.Volatility, s.cfg.Volatility),
		Logger:      s.log.With("session", id.String()),
		Master:      s.master,
	}
	sess, err := game.NewSession(opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	e, err := s.sessions.add(id.String(), sess)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        e.id,
		"seed":      seed,
		"dashboard": sess.Dashboard(),
	})
}

// handleImportSession accepts a body produced by the export endpoint or a
// local save file.
func (s *Server) handleImportSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	h, st, err := store.DecodeSnapshot(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decode snapshot: %v", err))
		return
	}
	id := uuid.NewString()
	sess, err := game.Restore(st, game.Options{Logger: s.log.With("session", id), Master: s.master})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := s.sessions.add(id, sess); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.log.Info("session imported", "session", id, "company", h.Company, "week", h.Week)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        id,
		"seed":      h.Seed,
		"dashboard": sess.Dashboard(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	s.sessions.remove(e.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, e.game.Dashboard())
}

func (s *Server) handleStocksList(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	sector := strings.TrimSpace(r.URL.Query().Get("sector"))
	writeJSON(w, http.StatusOK, map[string]any{"stocks": e.game.Stocks(sector)})
}

func (s *Server) handleStockDetail(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	weeks, err := queryInt(r, "weeks", 52)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := e.game.Stock(chi.URLParam(r, "ticker"), weeks)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, e.game.Listings())
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if prev, ok := e.reply(key); ok {
		writeJSON(w, prev.status, prev.body)
		return
	}

	var in game.Action
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if e.game.GameOver() {
		writeDomainError(w, game.ErrGameOver)
		return
	}
	result, err := e.game.Apply(in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	body := map[string]any{
		"kind":            in.Kind,
		"result":          result,
		"idempotency_key": idempotencyKey(r),
	}
	e.remember(key, cachedReply{status: http.StatusOK, body: body})
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	var in struct {
		Weeks int `json:"weeks"`
	}
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Weeks == 0 {
		in.Weeks = 1
	}
	if in.Weeks < 0 || in.Weeks > maxAdvanceWeeks {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("weeks must be between 1 and %d", maxAdvanceWeeks))
		return
	}
	if !e.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "advance rate limit exceeded")
		return
	}
	if e.game.GameOver() {
		writeDomainError(w, game.ErrGameOver)
		return
	}

	reports := make([]game.TickReport, 0, in.Weeks)
	for range in.Weeks {
		rep, err := e.game.AdvanceWeek(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		reports = append(reports, rep)
		if rep.QuarterEnd {
			s.recordQuarter(r.Context(), e, rep)
		}
		if rep.GameOver {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reports":   reports,
		"game_over": e.game.GameOver(),
	})
}

func (s *Server) recordQuarter(ctx context.Context, e *sessionEntry, rep game.TickReport) {
	rec := store.QuarterFrom(e.id, rep, e.game.Dashboard(), time.Now())
	if err := s.history.RecordQuarter(ctx, rec); err != nil {
		s.log.Warn("record quarter failed", "session", e.id, "week", rec.Week, "error", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	st, err := e.game.Export()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	now := time.Now()
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", e.id+".ramen.zst"))
	h, err := store.EncodeSnapshot(w, st, now)
	if err != nil {
		// Headers are gone by now; the client sees a truncated body.
		s.log.Error("export failed", "session", e.id, "error", err)
		return
	}
	rec := store.SaveRecord{SessionID: e.id, Path: "export", Company: h.Company, Seed: h.Seed, Week: h.Week, SavedAt: now}
	if err := s.history.RecordSave(r.Context(), rec); err != nil {
		s.log.Warn("record save failed", "session", e.id, "error", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	e, _ := sessionFromContext(r.Context())
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.history.Quarters(r.Context(), e.id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if out == nil {
		out = []store.QuarterRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"quarters": out})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownAction), errors.Is(err, game.ErrInvalidAmount),
		errors.Is(err, game.ErrInvalidTicker):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds), errors.Is(err, game.ErrInsufficientShares),
		errors.Is(err, game.ErrCreditLimit):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInvalidState), errors.Is(err, game.ErrNotEligible),
		errors.Is(err, game.ErrHQRequired), errors.Is(err, game.ErrMarginAccount),
		errors.Is(err, game.ErrOfferRejected), errors.Is(err, game.ErrGameOver):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
