package model

import "strings"

// PrependServer puts server first in history, removing duplicates and
// keeping at most limit entries.
func PrependServer(history []string, server string, limit int) []string {
	server = strings.TrimSpace(server)
	out := make([]string, 0, len(history)+1)
	if server != "" {
		out = append(out, server)
	}
	for _, s := range history {
		if s == "" || s == server {
			continue
		}
		out = append(out, s)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
