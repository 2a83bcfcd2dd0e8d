package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const payloadKey ctxKey = "accessPayload"

// bearerToken mirrors "Bearer <token>" parsing: the second space-separated
// field, whatever the scheme word is.
func bearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func (s *HTTPServer) requireAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.writeError(w, r, common.Unauthorized(map[string]string{"message": "There are no authorization header"}))
			return
		}

		token := bearerToken(header)
		if token == "" {
			s.writeError(w, r, common.Unauthorized(map[string]string{"message": "There are no token in authorization header"}))
			return
		}

		payload, ok := s.codec.Verify(auth.PurposeAccess, token)
		if !ok {
			s.writeError(w, r, common.Unauthorized(map[string]string{"message": "Invalid token"}))
			return
		}

		ctx := context.WithValue(r.Context(), payloadKey, payload)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rejectAuthenticated lets only callers without a valid access token through.
func (s *HTTPServer) rejectAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token != "" {
			if payload, ok := s.codec.Verify(auth.PurposeAccess, token); ok {
				writeJSON(w, http.StatusForbidden, errorBody{
					Message: "User is authorized already",
					Errors:  map[string]any{"user": normalizedOf(payload)},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(started).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func payloadFrom(ctx context.Context) (auth.Payload, bool) {
	p, ok := ctx.Value(payloadKey).(auth.Payload)
	return p, ok
}

func normalizedOf(p auth.Payload) models.NormalizedUser {
	return models.NormalizedUser{ID: p.ID, Name: p.Name, Email: p.Email}
}
