package utils

// Rough token estimation. Approximates 1 token ~= 4 characters, which is
// close enough for budgeting prompt context across providers.

// CountTokens estimates the number of tokens in the given text.
func CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	// Ensure at least 1 token for any non-empty text
	tokens := len([]rune(text)) / 4
	if tokens == 0 {
		return 1
	}
	return tokens
}

// TruncateToTokenLimit naively truncates text to roughly fit within a token limit.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}

// TailWithinTokens returns the longest suffix of parts whose combined token
// estimate fits in limit. Order is preserved; older (leading) parts are dropped first.
// A limit <= 0 means no limit.
func TailWithinTokens(parts []string, limit int) []string {
	if limit <= 0 {
		return parts
	}
	total := 0
	start := len(parts)
	for i := len(parts) - 1; i >= 0; i-- {
		n := CountTokens(parts[i])
		if total+n > limit {
			break
		}
		total += n
		start = i
	}
	return parts[start:]
}
