package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/wrenfield/polarkit/internal/email"
	"github.com/wrenfield/polarkit/internal/store"
)

const SessionCookieName = "polarkit_session"

type AuthHandler struct {
	users       *store.UserStore
	sessions    *store.SessionStore
	magicLinks  *store.MagicLinkStore
	emailClient *email.Client
	logger      *slog.Logger
}

func NewAuthHandler(
	us *store.UserStore,
	ss *store.SessionStore,
	mls *store.MagicLinkStore,
	ec *email.Client,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:       us,
		sessions:    ss,
		magicLinks:  mls,
		emailClient: ec,
		logger:      logger,
	}
}

// HandleLogin mails a single-use login link. The response never reveals
// whether the address was already registered.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	addr := strings.ToLower(strings.TrimSpace(req.Email))
	if addr == "" || !strings.Contains(addr, "@") {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.users.GetByEmail(addr)
	if err != nil {
		h.logger.Error("get user", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to process request")
		return
	}
	if user == nil {
		user, err = h.users.Create(addr, req.Name)
		if err != nil {
			h.logger.Error("create user", "error", err)
			writeError(w, http.StatusInternalServerError, "unable to process request")
			return
		}
	}

	token, err := h.magicLinks.Create(user.ID)
	if err != nil {
		h.logger.Error("create magic link", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to process request")
		return
	}

	if h.emailClient != nil && h.emailClient.Configured() {
		if err := h.emailClient.SendMagicLink(addr, token); err != nil {
			h.logger.Error("send magic link", "error", err)
		}
	} else {
		// Dev fallback when no mail provider is configured.
		h.logger.Info("magic link token generated", "email", addr, "token", token)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// HandleVerify redeems a login link, sets the session cookie, and sends the
// browser home.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "invalid or expired link")
		return
	}

	userID, err := h.magicLinks.Consume(token)
	if err != nil {
		h.logger.Error("consume magic link", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to process request")
		return
	}
	if userID == 0 {
		writeError(w, http.StatusBadRequest, "invalid or expired link")
		return
	}

	sess, err := h.sessions.Create(userID)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to process request")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   90 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout destroys the session and clears the cookie.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		sess, err := h.sessions.GetByToken(cookie.Value)
		if err == nil && sess != nil {
			if err := h.sessions.Delete(sess.ID); err != nil {
				h.logger.Error("delete session", "error", err)
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}
