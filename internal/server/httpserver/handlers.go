package httpserver

import (
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type registrationRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	ResetToken      string `json:"resetToken"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type changeNameRequest struct {
	Name string `json:"name"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type emailChangeRequest struct {
	NewEmail string `json:"newEmail"`
	Password string `json:"password"`
}

// pathParam returns the decoded value of a chi route parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Auth API is running"))
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleRegistration(w http.ResponseWriter, r *http.Request) {
	var req registrationRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, registrationBody{
		NewUser: user.Normalize(),
		Message: "Check your email for activation link",
	})
}

func (s *HTTPServer) handleActivate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.users.Activate(r.Context(), pathParam(r, "email"), pathParam(r, "activationToken"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, sess)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, sess)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, err := s.users.Refresh(r.Context(), refreshToken(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSession(w, sess)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	err := s.users.Logout(r.Context(), refreshToken(r))

	s.clearRefreshCookie(w)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if p, ok := payloadFrom(r.Context()); ok {
		s.logger.Debug(r.Context(), "logged out", "user_id", p.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Check your email for reset password link"})
}

func (s *HTTPServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.ResetPassword(r.Context(), req.ResetToken, req.NewPassword, req.ConfirmPassword); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Password changed successfully"})
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, _ := payloadFrom(r.Context())
	writeJSON(w, http.StatusOK, userMessageBody{
		User:    normalizedOf(p),
		Message: "Profile page",
	})
}

func (s *HTTPServer) handleChangeName(w http.ResponseWriter, r *http.Request) {
	var req changeNameRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.ChangeName(r.Context(), refreshToken(r), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userMessageBody{User: user.Normalize(), Message: "Name updated successfully"})
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.users.ChangePassword(r.Context(), refreshToken(r), services.ChangePasswordInput{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userMessageBody{User: user.Normalize(), Message: "Password updated successfully"})
}

func (s *HTTPServer) handleRequestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req emailChangeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.RequestEmailChange(r.Context(), refreshToken(r), req.NewEmail, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Check your new email for activation Link"})
}

func (s *HTTPServer) handleConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.ConfirmEmailChange(r.Context(), pathParam(r, "activationToken"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userMessageBody{User: user.Normalize(), Message: "Email updated successfully"})
}
