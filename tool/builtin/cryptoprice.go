package builtin

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/tool"
)

const coinGeckoURL = "https://api.coingecko.com/api/v3/simple/price"

// CryptoAliases maps ticker-style symbols and common names to CoinGecko
// coin identifiers. The orchestrator's crypto rule matches against the
// same table, so classification and execution cannot drift apart.
var CryptoAliases = map[string]string{
	"btc":      "bitcoin",
	"bitcoin":  "bitcoin",
	"eth":      "ethereum",
	"ethereum": "ethereum",
	"sol":      "solana",
	"solana":   "solana",
	"doge":     "dogecoin",
	"dogecoin": "dogecoin",
	"ada":      "cardano",
	"cardano":  "cardano",
	"xrp":      "ripple",
	"ripple":   "ripple",
	"ltc":      "litecoin",
	"litecoin": "litecoin",
}

// CryptoQuote is the result of the crypto_price tool.
type CryptoQuote struct {
	Symbol string  `json:"symbol"`
	Coin   string  `json:"coin"`
	Price  float64 `json:"price_usd"`
}

// CryptoPrice fetches a spot price from the CoinGecko simple-price API.
// Crypto moves fast, so this carries the shortest TTL of the builtin set.
func CryptoPrice(hc *httpx.Client) tool.Definition {
	return tool.Must("crypto_price", cryptoRunner(hc),
		tool.Description("Looks up the current USD price of a cryptocurrency."),
		tool.Parameters(tool.ObjectSchema(tool.Property{
			Name:        "symbol",
			Type:        "string",
			Description: "The coin symbol or name, e.g. BTC or ethereum.",
			Required:    true,
		})),
		tool.TTL(30*time.Second),
	)
}

func cryptoRunner(hc *httpx.Client) tool.Executor {
	return func(ctx context.Context, args map[string]any) (any, error) {
		symbol, _ := args["symbol"].(string)
		symbol = strings.ToLower(strings.TrimSpace(symbol))
		coin, ok := CryptoAliases[symbol]
		if !ok {
			return nil, fmt.Errorf("crypto_price: unknown symbol %q", symbol)
		}

		endpoint := coinGeckoURL + "?" + url.Values{
			"ids":           {coin},
			"vs_currencies": {"usd"},
		}.Encode()

		resp, err := hc.Get(ctx, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("crypto_price: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("crypto_price: upstream status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			return nil, fmt.Errorf("crypto_price: read response: %w", err)
		}

		price := gjson.GetBytes(body, coin+".usd")
		if !price.Exists() {
			return nil, fmt.Errorf("crypto_price: no price for %s", coin)
		}

		return CryptoQuote{Symbol: symbol, Coin: coin, Price: price.Float()}, nil
	}
}
