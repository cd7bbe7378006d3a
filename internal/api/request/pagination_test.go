package request

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", DefaultLimit},
		{"?limit=10", 10},
		{"?limit=0", DefaultLimit},
		{"?limit=-5", DefaultLimit},
		{"?limit=abc", DefaultLimit},
		{"?limit=100000", MaxLimit},
		{"?limit=500", 500},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/provisions"+tt.query, nil)
			assert.Equal(t, tt.want, ParseLimit(r))
		})
	}
}
