package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ramentycoon/internal/game"
	"ramentycoon/internal/store"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx answer from the server. Anything else returned by
// the client is a transport failure and worth queueing.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Unreachable reports whether err means the request never got an answer.
func Unreachable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	var netErr net.Error
	var urlErr *url.Error
	return errors.As(err, &netErr) || errors.As(err, &urlErr)
}

type CreateRequest struct {
	Company    string  `json:"company,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`
	Volatility string  `json:"volatility,omitempty"`
	PoolMode   string  `json:"pool_mode,omitempty"`
}

type Created struct {
	ID        string         `json:"id"`
	Seed      uint64         `json:"seed"`
	Dashboard game.Dashboard `json:"dashboard"`
}

type ActionResult struct {
	Kind           string          `json:"kind"`
	Result         json.RawMessage `json:"result"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type AdvanceResult struct {
	Reports  []game.TickReport `json:"reports"`
	GameOver bool              `json:"game_over"`
}

func (c *Client) CreateSession(ctx context.Context, in CreateRequest) (Created, error) {
	var out Created
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/sessions", in, &out, "")
	return out, err
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.jsonRequest(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil, "")
}

func (c *Client) Dashboard(ctx context.Context, id string) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodGet, sessionPath(id, "/dashboard"), nil, &out, "")
	return out, err
}

func (c *Client) Stocks(ctx context.Context, id, sector string) ([]game.StockView, error) {
	path := sessionPath(id, "/stocks")
	if sector != "" {
		path += "?sector=" + url.QueryEscape(sector)
	}
	var out struct {
		Stocks []game.StockView `json:"stocks"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out.Stocks, err
}

func (c *Client) Stock(ctx context.Context, id, ticker string, weeks int) (game.StockDetail, error) {
	var out game.StockDetail
	path := sessionPath(id, "/stocks/"+url.PathEscape(ticker)) + "?weeks=" + strconv.Itoa(weeks)
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out, err
}

func (c *Client) Listings(ctx context.Context, id string) (game.Listings, error) {
	var out game.Listings
	err := c.jsonRequest(ctx, http.MethodGet, sessionPath(id, "/listings"), nil, &out, "")
	return out, err
}

func (c *Client) Apply(ctx context.Context, id string, a game.Action, idem string) (ActionResult, error) {
	var out ActionResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPath(id, "/actions"), a, &out, idem)
	return out, err
}

func (c *Client) Advance(ctx context.Context, id string, weeks int) (AdvanceResult, error) {
	var out AdvanceResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPath(id, "/advance"), map[string]any{"weeks": weeks}, &out, "")
	return out, err
}

func (c *Client) History(ctx context.Context, id string, limit int) ([]store.QuarterRecord, error) {
	var out struct {
		Quarters []store.QuarterRecord `json:"quarters"`
	}
	path := sessionPath(id, "/history") + "?limit=" + strconv.Itoa(limit)
	err := c.jsonRequest(ctx, http.MethodGet, path, nil, &out, "")
	return out.Quarters, err
}

func (c *Client) ActionKinds(ctx context.Context) ([]string, error) {
	var out struct {
		Kinds []string `json:"kinds"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/actions", nil, &out, "")
	return out.Kinds, err
}

// Export streams a session snapshot into w.
func (c *Client) Export(ctx context.Context, id string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+sessionPath(id, "/export"), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

// Import uploads a snapshot and returns the new session.
func (c *Client) Import(ctx context.Context, r io.Reader) (Created, error) {
	var out Created
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/sessions/import", r)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", "application/zstd")
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return out, readAPIError(resp)
	}
	return out, json.NewDecoder(resp.Body).Decode(&out)
}

func sessionPath(id, suffix string) string {
	return "/v1/sessions/" + url.PathEscape(id) + suffix
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func readAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
