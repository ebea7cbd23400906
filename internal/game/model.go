package game

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	WeeksPerMonth = 4
	MonthsPerYear = 12
	WeeksPerYear  = 52
)

var (
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrInvalidAmount      = errors.New("amount must be > 0")
	ErrInvalidState       = errors.New("invalid state")
	ErrNotFound           = errors.New("not found")
	ErrNotEligible        = errors.New("not eligible")
	ErrOfferRejected      = errors.New("offer rejected")
	ErrHQRequired         = errors.New("headquarters required")
	ErrMarginAccount      = errors.New("margin account required")
	ErrCreditLimit        = errors.New("credit limit exceeded")
	ErrGameOver           = errors.New("game over")
	ErrUnknownAction      = errors.New("unknown action")
	ErrInvalidTicker      = errors.New("invalid ticker")
)

var tickerRE = regexp.MustCompile(`^[0-9A-Z]{1,8}$`)

// ValidateTicker normalises a ticker and checks its shape.
func ValidateTicker(ticker string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerRE.MatchString(t) {
		return "", fmt.Errorf("ticker %q: %w", ticker, ErrInvalidTicker)
	}
	return t, nil
}

func validateName(name string) (string, error) {
	n := strings.Join(strings.Fields(name), " ")
	if n == "" {
		return "", fmt.Errorf("name is required: %w", ErrInvalidState)
	}
	if len(n) > 64 {
		return "", fmt.Errorf("name too long: %w", ErrInvalidState)
	}
	return n, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundTo(v, unit float64) float64 {
	if unit <= 0 {
		return v
	}
	return math.Round(v/unit) * unit
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ActionError reports which action failed; the wrapped error carries the kind.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return e.Action + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error { return e.Err }

func actionErr(action string, err error) error {
	if err == nil {
		return nil
	}
	return &ActionError{Action: action, Err: err}
}
