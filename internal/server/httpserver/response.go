package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

type errorBody struct {
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
}

type userMessageBody struct {
	User    models.NormalizedUser `json:"user"`
	Message string                `json:"message"`
}

type sessionBody struct {
	User        models.NormalizedUser `json:"user"`
	AccessToken string                `json:"accessToken"`
}

type registrationBody struct {
	NewUser models.NormalizedUser `json:"newUser"`
	Message string                `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders business failures as-is; anything else is logged and
// hidden behind a generic 500.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, apiErr.Kind.Status(), errorBody{Message: apiErr.Message, Errors: apiErr.Fields})
		return
	}

	s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, messageBody{Message: "Server error"})
}

// writeSession sets the refresh cookie and returns the public session view.
func (s *HTTPServer) writeSession(w http.ResponseWriter, sess *services.Session) {
	s.setRefreshCookie(w, sess)
	writeJSON(w, http.StatusOK, sessionBody{User: sess.User, AccessToken: sess.AccessToken})
}

// decodeBody reads a JSON object into dst. An empty body leaves dst zeroed so
// the engine reports the missing fields.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return common.BadRequest("Invalid request body", nil)
}
