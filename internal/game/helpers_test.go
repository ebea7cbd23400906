package game

import (
	"log/slog"

	"ramentycoon/internal/master"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fixedPrices map[string]float64

func (p fixedPrices) Price(ticker string) (float64, bool) {
	v, ok := p[ticker]
	return v, ok
}

func testSession(t interface{ Fatalf(string, ...any) }, seed uint64) *Session {
	s, err := NewSession(Options{Seed: seed, CompanyName: "Test Ramen", Logger: discardLogger(), Master: master.Default()})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}
