package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ramentycoon/internal/api"
	"ramentycoon/internal/config"
	"ramentycoon/internal/game"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := config.APIConfig{Volatility: "normal", PoolMode: "global", AdvancePerSec: 100, AdvanceBurst: 100, MaxSessions: 4}
	srv := httptest.NewServer(api.New(cfg, slog.New(slog.DiscardHandler), nil, nil).Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func openShopAction(region string) game.Action {
	args, _ := json.Marshal(map[string]any{"region": region, "name": "Kanayama", "amount": 10_000_000})
	return game.Action{Kind: "open_shop", Args: args}
}

func TestClientRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	seed := uint64(7)

	created, err := c.CreateSession(ctx, CreateRequest{Company: "Client Ramen", Seed: &seed})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), created.Seed)

	res, err := c.Apply(ctx, created.ID, openShopAction("Nagoya"), "k1")
	require.NoError(t, err)
	assert.Equal(t, "k1", res.IdempotencyKey)
	var shop game.BusinessUnit
	require.NoError(t, json.Unmarshal(res.Result, &shop))
	assert.Equal(t, "Nagoya", shop.Region)

	adv, err := c.Advance(ctx, created.ID, 2)
	require.NoError(t, err)
	require.Len(t, adv.Reports, 2)

	dash, err := c.Dashboard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Client Ramen", dash.Company)
	assert.Equal(t, 2, dash.Clock.TotalWeeksElapsed)

	stocks, err := c.Stocks(ctx, created.ID, "")
	require.NoError(t, err)
	require.NotEmpty(t, stocks)
	detail, err := c.Stock(ctx, created.ID, stocks[0].Ticker, 3)
	require.NoError(t, err)
	assert.Equal(t, stocks[0].Ticker, detail.Ticker)

	listings, err := c.Listings(ctx, created.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, listings.Deals)

	kinds, err := c.ActionKinds(ctx)
	require.NoError(t, err)
	assert.Contains(t, kinds, "open_shop")

	quarters, err := c.History(ctx, created.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, quarters)
}

func TestClientExportImport(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	created, err := c.CreateSession(ctx, CreateRequest{Company: "Carry Ramen"})
	require.NoError(t, err)
	_, err = c.Advance(ctx, created.ID, 3)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Export(ctx, created.ID, &buf))
	imported, err := c.Import(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.NotEqual(t, created.ID, imported.ID)
	assert.Equal(t, created.Seed, imported.Seed)
	assert.Equal(t, 3, imported.Dashboard.Clock.TotalWeeksElapsed)

	require.NoError(t, c.DeleteSession(ctx, created.ID))
	_, err = c.Dashboard(ctx, created.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClientErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	created, err := c.CreateSession(ctx, CreateRequest{})
	require.NoError(t, err)

	_, err = c.Apply(ctx, created.ID, game.Action{Kind: "bake_bread"}, "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "unknown action")
	assert.False(t, Unreachable(err))

	_, err = c.Apply(ctx, created.ID, openShopAction("Atlantis"), "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	offline := NewClient("http://127.0.0.1:1")
	_, err = offline.Dashboard(ctx, created.ID)
	require.Error(t, err)
	assert.True(t, Unreachable(err))
	assert.False(t, Unreachable(nil))
}
