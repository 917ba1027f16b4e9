package server

import (
	"net/http"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// handleRegister handles POST /register/.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req registerRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if _, err := s.app.AccountService.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, MessageResponse{Message: "User registered successfully"})
}

// handleLogin handles POST /login/. The body carries email and password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	tokens, err := s.app.AccountService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, tokens)
}

// handleTokenRefresh handles POST /token/refresh/.
func (s *Server) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req refreshRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Refresh == "" {
		WriteJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	access, err := s.app.AccountService.Refresh(r.Context(), req.Refresh)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"access": access})
}
