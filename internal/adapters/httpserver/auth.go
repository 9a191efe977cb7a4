package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// sessionUser is the signed-in identity carried by the session cookie. It is
// read per request and passed explicitly to whatever needs it; there is no
// package-level auth state.
type sessionUser struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Exp     int64  `json:"exp"`
}

const sessionCookie = "fsession"

func (s *Server) writeUserSession(w http.ResponseWriter, u *sessionUser) {
	u.Exp = time.Now().Add(30 * 24 * time.Hour).Unix()
	b, _ := json.Marshal(u)
	h := hmac.New(sha256.New, s.sessionKey)
	h.Write(b)
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	val := sig + "." + base64.RawURLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    val,
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) readUserSession(r *http.Request) *sessionUser {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	parts := strings.SplitN(c.Value, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	sig, _ := base64.RawURLEncoding.DecodeString(parts[0])
	payload, _ := base64.RawURLEncoding.DecodeString(parts[1])
	h := hmac.New(sha256.New, s.sessionKey)
	h.Write(payload)
	if !hmac.Equal(sig, h.Sum(nil)) {
		return nil
	}
	var u sessionUser
	if err := json.Unmarshal(payload, &u); err != nil {
		return nil
	}
	if u.Exp > 0 && time.Now().Unix() > u.Exp {
		return nil
	}
	return &u
}

func (s *Server) clearUserSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}

// prefsOwner keys table preferences: the signed-in email, or a stable
// anonymous cookie id for visitors.
func (s *Server) prefsOwner(w http.ResponseWriter, r *http.Request) string {
	if u := s.readUserSession(r); u != nil {
		return u.Email
	}
	if c, err := r.Cookie("fanon"); err == nil && c.Value != "" {
		return "anon:" + c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: "fanon", Value: id, Path: "/", MaxAge: 60 * 60 * 24 * 365, HttpOnly: true})
	return "anon:" + id
}

func (s *Server) apiMe(w http.ResponseWriter, r *http.Request) {
	u := s.readUserSession(r)
	if u == nil {
		writeJSON(w, 200, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, 200, map[string]any{"authenticated": true, "email": u.Email, "name": u.Name, "picture": u.Picture})
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth not configured", 503)
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: "oauth_state", Value: state, Path: "/", MaxAge: 600, HttpOnly: true})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		http.Error(w, "oauth not configured", 503)
		return
	}
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "state", 400)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "code", 400)
		return
	}
	tok, err := s.oauthCfg.Exchange(r.Context(), code)
	if err != nil {
		log.Warn().Err(err).Msg("oauth exchange failed")
		http.Error(w, "exchange", 502)
		return
	}
	client := s.oauthCfg.Client(r.Context(), tok)
	res, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		http.Error(w, "userinfo", 502)
		return
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil || info.Email == "" {
		http.Error(w, "userinfo", 502)
		return
	}
	s.writeUserSession(w, &sessionUser{Email: info.Email, Name: info.Name, Picture: info.Picture})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearUserSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
