package builtin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, def := range All(nil) {
		assert.False(t, seen[def.Name], def.Name)
		seen[def.Name] = true
		assert.NotNil(t, def.Execute, def.Name)
		assert.NotNil(t, def.Parameters, def.Name)
	}
	assert.Len(t, seen, 4)
}

// TTLs track data volatility: crypto quotes go stale fastest, arithmetic
// never does.
func TestTTLOrdering(t *testing.T) {
	crypto := CryptoPrice(nil).TTL
	stock := StockPrice(nil).TTL
	search := WebSearch(nil).TTL
	calc := Calculator().TTL

	assert.Equal(t, 30*time.Second, crypto)
	assert.Equal(t, time.Minute, stock)
	assert.Equal(t, 10*time.Minute, search)
	assert.Equal(t, 24*time.Hour, calc)
	assert.Less(t, crypto, stock)
	assert.Less(t, stock, search)
	assert.Less(t, search, calc)
}

func TestParseSearchResultsAbstractFirst(t *testing.T) {
	body := []byte(`{
		"Heading": "Go (programming language)",
		"AbstractText": "Go is a statically typed language.",
		"AbstractURL": "https://en.wikipedia.org/wiki/Go",
		"RelatedTopics": [
			{"Text": "Golang - the Go website", "FirstURL": "https://go.dev"},
			{"Topics": [{"Text": "Nested entry", "FirstURL": "https://example.test"}]}
		]
	}`)

	results := parseSearchResults(body)
	require.Len(t, results, 3)
	assert.Equal(t, "Go (programming language)", results[0].Title)
	assert.Equal(t, "Go is a statically typed language.", results[0].Snippet)
	assert.Equal(t, "https://go.dev", results[1].URL)
	assert.Equal(t, "Nested entry", results[2].Title)
}

func TestParseSearchResultsCapsAtFive(t *testing.T) {
	body := []byte(`{"RelatedTopics": [
		{"Text": "1", "FirstURL": "u1"},
		{"Text": "2", "FirstURL": "u2"},
		{"Text": "3", "FirstURL": "u3"},
		{"Text": "4", "FirstURL": "u4"},
		{"Text": "5", "FirstURL": "u5"},
		{"Text": "6", "FirstURL": "u6"}
	]}`)

	assert.Len(t, parseSearchResults(body), 5)
}

func TestParseSearchResultsEmptyBody(t *testing.T) {
	assert.Empty(t, parseSearchResults([]byte(`{}`)))
}

func TestCryptoAliasesCoverTickerAndName(t *testing.T) {
	assert.Equal(t, "bitcoin", CryptoAliases["btc"])
	assert.Equal(t, "bitcoin", CryptoAliases["bitcoin"])
	assert.Equal(t, "ethereum", CryptoAliases["eth"])
	_, ok := CryptoAliases["dogwifhat"]
	assert.False(t, ok)
}
