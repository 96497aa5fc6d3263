package builtin

import (
	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/tool"
)

// All returns the full builtin tool set, with network-backed tools wired
// through the given resilient client.
func All(hc *httpx.Client) []tool.Definition {
	return []tool.Definition{
		Calculator(),
		WebSearch(hc),
		StockPrice(hc),
		CryptoPrice(hc),
	}
}
