package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/ecalcano/estore/internal/domain/auth"
	"github.com/ecalcano/estore/internal/domain/cart"
	"github.com/ecalcano/estore/pkg/httpmiddleware"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeToken(w, http.StatusOK, token)
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "name, email, and a password of at least 6 characters are required")
		return
	}

	token, err := h.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeToken(w, http.StatusCreated, token)
}

func writeToken(w http.ResponseWriter, status int, token string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("token", func(e *jx.Encoder) { e.Str(token) })
	})
	writeJSON(w, status, &e)
}

// sessionContext assembles the explicit identity every cart operation takes:
// the session cart token issued by the cookie middleware plus the user id
// from a valid bearer token. An invalid token degrades to anonymous.
func (h *Handler) sessionContext(r *http.Request) cart.SessionContext {
	sess := cart.SessionContext{
		SessionCartID: httpmiddleware.SessionCartFromContext(r.Context()),
	}

	if token := bearerToken(r); token != "" {
		if s, err := h.auth.ParseToken(token); err == nil {
			sess.UserID = s.UserID
		}
	}
	return sess
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	v := r.Header.Get("Authorization")
	if len(v) > len(prefix) && strings.EqualFold(v[:len(prefix)], prefix) {
		return v[len(prefix):]
	}
	return ""
}
