package orchestrator

import (
	"regexp"
	"strings"

	"github.com/windmark/prism/tool/builtin"
)

// Rule pairs a tool name with a matcher that extracts the tool's
// arguments from a raw user message. Rules are evaluated in order and the
// first match wins; there is no scoring. The matching is a best-effort
// heuristic — false positives and negatives are expected and tolerated,
// because a wrong or failed tool call degrades into a skipped injection,
// never into a failed conversation.
type Rule struct {
	Tool  string
	Match func(message string) (map[string]any, bool)
}

var (
	arithmeticPattern = regexp.MustCompile(`[\d)]\s*[+\-*/^]\s*[-\d(]`)
	expressionPattern = regexp.MustCompile(`[\d+\-*/^().\s]+`)
	tickerPattern     = regexp.MustCompile(`\b[A-Z]{1,5}\b`)
	wordPattern       = regexp.MustCompile(`[a-zA-Z]+`)
)

var calculatorKeywords = []string{
	"calculate", "compute", "evaluate", "solve", "what is", "what's", "math",
}

var searchKeywords = []string{
	"search", "look up", "google", "find out", "what's the", "what is the",
	"current", "latest", "news", "who is", "tell me about",
}

// codeExclusions keep programming questions away from the web-search
// tool; the model answers those better than an instant-answer API.
var codeExclusions = []string{
	"code", "function", "compile", "debug", "syntax", "program",
	"script", "regex", "exception", "stack trace",
}

var stockKeywords = []string{
	"stock", "share price", "shares", "ticker", "trading at",
}

var cryptoKeywords = []string{
	"crypto", "price", "worth", "coin", "value", "how much",
}

// tickerStopwords are uppercase words that look like tickers but are
// ordinary English.
var tickerStopwords = map[string]bool{
	"I": true, "A": true, "THE": true, "OK": true, "USD": true, "AI": true,
}

// searchBoilerplate tokens are stripped alongside the matched keywords
// when deriving the query.
var searchBoilerplate = []string{
	"please", "can you", "could you", "for me", "tell me",
}

// DefaultRules returns the ordered rule list used when no custom rules
// are supplied: calculator, web search, stock price, crypto price.
func DefaultRules() []Rule {
	return []Rule{
		{Tool: "calculator", Match: matchCalculator},
		{Tool: "web_search", Match: matchWebSearch},
		{Tool: "stock_price", Match: matchStockPrice},
		{Tool: "crypto_price", Match: matchCryptoPrice},
	}
}

func containsAny(lower string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func matchCalculator(message string) (map[string]any, bool) {
	lower := strings.ToLower(message)
	if _, ok := containsAny(lower, calculatorKeywords); !ok {
		return nil, false
	}
	if !arithmeticPattern.MatchString(message) {
		return nil, false
	}

	// the expression is the longest run of arithmetic characters
	var expr string
	for _, candidate := range expressionPattern.FindAllString(message, -1) {
		candidate = strings.TrimSpace(candidate)
		if len(candidate) > len(expr) {
			expr = candidate
		}
	}
	if expr == "" {
		return nil, false
	}
	return map[string]any{"expression": expr}, true
}

func matchWebSearch(message string) (map[string]any, bool) {
	lower := strings.ToLower(message)
	if _, ok := containsAny(lower, searchKeywords); !ok {
		return nil, false
	}
	if _, excluded := containsAny(lower, codeExclusions); excluded {
		return nil, false
	}
	// quote questions often carry search-intent phrasing; yield only when
	// the stock or crypto rule will actually claim the message, so a mere
	// ticker mention stays a search
	if _, quote := matchStockPrice(message); quote {
		return nil, false
	}
	if _, quote := matchCryptoPrice(message); quote {
		return nil, false
	}
	return map[string]any{"query": deriveQuery(message)}, true
}

// deriveQuery strips the matched keywords and boilerplate phrases from
// the message. When stripping leaves fewer than 3 characters the whole
// message is used instead, so a terse query never turns into an empty one.
func deriveQuery(message string) string {
	query := strings.ToLower(message)
	for _, phrase := range append(append([]string{}, searchKeywords...), searchBoilerplate...) {
		query = strings.ReplaceAll(query, phrase, " ")
	}
	query = strings.Trim(query, " ?!.,")
	query = strings.Join(strings.Fields(query), " ")
	if len(query) < 3 {
		return strings.TrimSpace(message)
	}
	return query
}

func matchStockPrice(message string) (map[string]any, bool) {
	lower := strings.ToLower(message)
	if _, ok := containsAny(lower, stockKeywords); !ok {
		return nil, false
	}
	for _, token := range tickerPattern.FindAllString(message, -1) {
		if !tickerStopwords[token] {
			return map[string]any{"symbol": token}, true
		}
	}
	return nil, false
}

func matchCryptoPrice(message string) (map[string]any, bool) {
	lower := strings.ToLower(message)
	if _, ok := containsAny(lower, cryptoKeywords); !ok {
		return nil, false
	}
	for _, word := range wordPattern.FindAllString(lower, -1) {
		if _, known := builtin.CryptoAliases[word]; known {
			return map[string]any{"symbol": word}, true
		}
	}
	return nil, false
}
