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

const duckDuckGoURL = "https://api.duckduckgo.com/"

// SearchResult is one entry returned by the web_search tool.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// WebSearch looks a query up through the DuckDuckGo instant-answer API.
func WebSearch(hc *httpx.Client) tool.Definition {
	return tool.Must("web_search", searchRunner(hc),
		tool.Description("Searches the web and returns a short list of results."),
		tool.Parameters(tool.ObjectSchema(tool.Property{
			Name:        "query",
			Type:        "string",
			Description: "The search query.",
			Required:    true,
		})),
		tool.TTL(10*time.Minute),
	)
}

func searchRunner(hc *httpx.Client) tool.Executor {
	return func(ctx context.Context, args map[string]any) (any, error) {
		query, _ := args["query"].(string)
		if strings.TrimSpace(query) == "" {
			return nil, fmt.Errorf("query is required")
		}

		endpoint := duckDuckGoURL + "?" + url.Values{
			"q":           {query},
			"format":      {"json"},
			"no_redirect": {"1"},
			"no_html":     {"1"},
		}.Encode()

		resp, err := hc.Get(ctx, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("web_search: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != 200 {
			return nil, fmt.Errorf("web_search: upstream status %d", resp.StatusCode)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("web_search: read response: %w", err)
		}
		return parseSearchResults(body), nil
	}
}

func parseSearchResults(body []byte) []SearchResult {
	var results []SearchResult

	if abstract := gjson.GetBytes(body, "AbstractText"); abstract.String() != "" {
		results = append(results, SearchResult{
			Title:   gjson.GetBytes(body, "Heading").String(),
			URL:     gjson.GetBytes(body, "AbstractURL").String(),
			Snippet: abstract.String(),
		})
	}

	gjson.GetBytes(body, "RelatedTopics").ForEach(func(_, topic gjson.Result) bool {
		text := topic.Get("Text").String()
		if text == "" {
			// grouped topics nest one level deeper; take their first entry
			if first := topic.Get("Topics.0"); first.Exists() {
				topic = first
				text = topic.Get("Text").String()
			}
		}
		if text != "" {
			results = append(results, SearchResult{
				Title:   text,
				URL:     topic.Get("FirstURL").String(),
				Snippet: text,
			})
		}
		return len(results) < 5
	})

	return results
}
