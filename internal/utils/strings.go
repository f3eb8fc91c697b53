package utils

import "strings"

// ParseSymbolList parses a comma separated symbol list such as
// "btc-usd, ETH/USD". Symbols are trimmed, upper-cased and use "-" as the
// pair separator. Blank and repeated entries are dropped, first occurrence
// wins. Returns nil when nothing remains.
func ParseSymbolList(s string) []string {
	var (
		result []string
		seen   = make(map[string]struct{})
	)
	for _, field := range strings.Split(s, ",") {
		symbol := NormalizeSymbol(field)
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		result = append(result, symbol)
	}
	return result
}

// NormalizeSymbol returns the canonical form of a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(symbol)), "/", "-")
}
