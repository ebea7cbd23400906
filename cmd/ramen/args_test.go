package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildActionPairs(t *testing.T) {
	a, err := buildAction(" Open_Shop ", []string{"region=Tokyo", "name=Shibuya Main", "amount=10000000", "margin=true", "rate=0.5"}, "")
	require.NoError(t, err)
	assert.Equal(t, "open_shop", a.Kind)
	assert.JSONEq(t, `{"region":"Tokyo","name":"Shibuya Main","amount":10000000,"margin":true,"rate":0.5}`, string(a.Args))
}

func TestBuildActionJSON(t *testing.T) {
	a, err := buildAction("take_loan", nil, `{"id":"bank_loan","amount":5000000}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"bank_loan","amount":5000000}`, string(a.Args))

	a, err = buildAction("establish_hq_rented", nil, "")
	require.NoError(t, err)
	assert.Empty(t, a.Args)
}

func TestBuildActionErrors(t *testing.T) {
	_, err := buildAction("", nil, "")
	assert.Error(t, err)
	_, err = buildAction("x", []string{"novalue"}, "")
	assert.Error(t, err)
	_, err = buildAction("x", []string{"a=1"}, `{"a":1}`)
	assert.Error(t, err)
	_, err = buildAction("x", nil, `[1,2]`)
	assert.Error(t, err)
}

func TestFormatYen(t *testing.T) {
	assert.Equal(t, "¥0", formatYen(0))
	assert.Equal(t, "¥999", formatYen(999.4))
	assert.Equal(t, "¥1,000", formatYen(999.5))
	assert.Equal(t, "¥12,345,678", formatYen(12_345_678))
	assert.Equal(t, "-¥1,500", formatYen(-1_500))
}
