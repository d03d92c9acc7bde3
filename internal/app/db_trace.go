package app

import (
	"regexp"
	"strings"
)

// Polling queries carry JSONB payloads; keep traced statements short so lineup
// blobs never end up inside span attributes.
const maxTracedQueryLen = 400

var queryWhitespacePattern = regexp.MustCompile(`\s+`)

func formatQueryForSpan(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	flattened := queryWhitespacePattern.ReplaceAllString(query, " ")
	if len(flattened) <= maxTracedQueryLen {
		return flattened
	}

	return flattened[:maxTracedQueryLen] + "..."
}
