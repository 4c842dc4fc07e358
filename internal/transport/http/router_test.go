package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/healthmate-sync/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestRouter_WithoutProviderRejectsProfileRoutes(t *testing.T) {
	h := NewRouter(&config.Config{AllowedOrigins: []string{"*"}}, &Deps{})

	cases := []struct {
		method, target, body string
	}{
		{http.MethodPost, "/v1/reminders", `{"type":"medicine"}`},
		{http.MethodDelete, "/v1/documents/d1", ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body)))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
