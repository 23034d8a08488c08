package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Handler exposes the account API over plain HTTP. The websocket gateway
// consumes the tokens these routes mint; nothing game-related lives here.
type Handler struct {
	svc Service
}

func NewHTTPHandler(svc Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts the account routes. Method matching is left to the
// mux patterns, so a wrong verb yields 405 without per-handler checks.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/logout", h.logout)
	mux.HandleFunc("GET /api/auth/me", h.whoami)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionReply pairs the account with a token the client passes to /ws.
type sessionReply struct {
	AccountID uint64 `json:"account_id"`
	Token     string `json:"token"`
}

type whoamiReply struct {
	AccountID uint64 `json:"account_id"`
	Username  string `json:"username"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	creds, ok := readCredentials(w, r)
	if !ok {
		return
	}
	accountID, token, err := h.svc.Register(creds.Username, creds.Password)
	if err != nil {
		status := registerStatus(err)
		if status == http.StatusInternalServerError {
			err = errors.New("register failed")
		}
		replyError(w, status, err)
		return
	}
	reply(w, http.StatusCreated, sessionReply{AccountID: accountID, Token: token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	creds, ok := readCredentials(w, r)
	if !ok {
		return
	}
	accountID, token, err := h.svc.Login(creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			replyError(w, http.StatusUnauthorized, err)
		} else {
			replyError(w, http.StatusInternalServerError, errors.New("login failed"))
		}
		return
	}
	reply(w, http.StatusOK, sessionReply{AccountID: accountID, Token: token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r)
	if token == "" {
		replyError(w, http.StatusUnauthorized, errors.New("missing session token"))
		return
	}
	h.svc.Logout(token)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) whoami(w http.ResponseWriter, r *http.Request) {
	accountID, username, ok := h.svc.ResolveSession(tokenFrom(r))
	if !ok {
		replyError(w, http.StatusUnauthorized, errors.New("invalid session token"))
		return
	}
	reply(w, http.StatusOK, whoamiReply{AccountID: accountID, Username: username})
}

func readCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var creds credentials
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&creds); err != nil {
		replyError(w, http.StatusBadRequest, errors.New("malformed request body"))
		return credentials{}, false
	}
	return creds, true
}

func registerStatus(err error) int {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func tokenFrom(r *http.Request) string {
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func replyError(w http.ResponseWriter, status int, err error) {
	reply(w, status, map[string]string{"error": err.Error()})
}
