package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    int64
		wantErr bool
	}{
		{"valid token", "7.abc123", 7, false},
		{"whitespace trimmed", "  42.sig  ", 42, false},
		{"empty", "", 0, true},
		{"no separator", "7abc", 0, true},
		{"non-numeric id", "seven.sig", 0, true},
		{"zero id", "0.sig", 0, true},
		{"negative id", "-3.sig", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeToken(tt.token)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestViewerMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := ViewerMiddleware(7)(next)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"no header passes through", "", http.StatusNoContent},
		{"matching viewer passes", "Bearer 7.sig", http.StatusNoContent},
		{"malformed header rejected", "NotBearer", http.StatusUnauthorized},
		{"undecodable token rejected", "Bearer garbage", http.StatusUnauthorized},
		{"different user rejected", "Bearer 9.sig", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/notices", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
