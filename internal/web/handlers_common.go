package web

import (
	"net/http"
	"strconv"
)

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam parses a boolean query parameter with a default value.
// A present parameter without a value counts as true.
func parseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	q := r.URL.Query()
	if !q.Has(name) {
		return defaultVal
	}
	val := q.Get(name)
	if val == "" {
		return true
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
