package request

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ParseLimit extracts the limit query parameter, falling back to
// DefaultLimit for missing or malformed values and capping at MaxLimit.
func ParseLimit(r *http.Request) int {
	limit := DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}
