package utils

import "strings"

// TruncateForLog folds s onto one line and cuts it to limit runes, marking
// the cut with an ellipsis. Resume and model text is multi-line, which
// breaks console log output.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
