package builtin

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/tool"
)

const stooqURL = "https://stooq.com/q/l/"

// StockQuote is the result of the stock_price tool.
type StockQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Date   string  `json:"date,omitempty"`
}

// StockPrice fetches a delayed quote from the stooq CSV endpoint.
func StockPrice(hc *httpx.Client) tool.Definition {
	return tool.Must("stock_price", stockRunner(hc),
		tool.Description("Looks up the latest price for a stock ticker symbol."),
		tool.Parameters(tool.ObjectSchema(tool.Property{
			Name:        "symbol",
			Type:        "string",
			Description: "The ticker symbol, e.g. AAPL.",
			Required:    true,
		})),
		tool.TTL(time.Minute),
	)
}

func stockRunner(hc *httpx.Client) tool.Executor {
	return func(ctx context.Context, args map[string]any) (any, error) {
		symbol, _ := args["symbol"].(string)
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			return nil, fmt.Errorf("symbol is required")
		}

		endpoint := stooqURL + "?" + url.Values{
			"s": {strings.ToLower(symbol) + ".us"},
			"f": {"sd2t2ohlcv"},
			"h": {""},
			"e": {"csv"},
		}.Encode()

		resp, err := hc.Get(ctx, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("stock_price: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("stock_price: upstream status %d", resp.StatusCode)
		}

		records, err := csv.NewReader(resp.Body).ReadAll()
		if err != nil {
			return nil, fmt.Errorf("stock_price: parse quote: %w", err)
		}
		// header row then one data row: Symbol,Date,Time,Open,High,Low,Close,Volume
		if len(records) < 2 || len(records[1]) < 7 {
			return nil, fmt.Errorf("stock_price: no quote for %s", symbol)
		}

		row := records[1]
		price, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, fmt.Errorf("stock_price: no quote for %s", symbol)
		}

		return StockQuote{Symbol: symbol, Price: price, Date: row[1]}, nil
	}
}
