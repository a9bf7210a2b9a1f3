// Package api exposes the try-on flows over HTTP.
package api

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raushankrgupta/fitly-tryon/auth"
	"github.com/raushankrgupta/fitly-tryon/notify"
	"github.com/raushankrgupta/fitly-tryon/tryon"
	"github.com/raushankrgupta/fitly-tryon/utils"
	"github.com/raushankrgupta/fitly-tryon/wardrobe"
)

// Handler holds the services behind the HTTP routes.
type Handler struct {
	Auth     *auth.Service
	TryOn    *tryon.Controller
	Wardrobe *wardrobe.Gateway
	Garments tryon.GarmentFinder
	Hub      *notify.Hub
	// Storage serves locally stored objects under /storage/. Nil when the
	// object store has public URLs of its own.
	Storage   http.Handler
	AssetsDir string
	Ping      func(ctx context.Context) error
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

// pages reachable without a session
var publicPages = map[string]bool{
	"/login.html":  true,
	"/signup.html": true,
}

// NewRouter wires every route.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()
	protected := h.requireSession

	mux.HandleFunc("POST /auth/signup", h.SignupHandler)
	mux.HandleFunc("POST /auth/login", h.LoginHandler)
	mux.HandleFunc("POST /auth/forgot-password", h.ForgotPasswordHandler)
	mux.HandleFunc("POST /auth/reset-password", h.ResetPasswordHandler)
	mux.HandleFunc("GET /auth/google/login", h.GoogleLoginHandler)
	mux.HandleFunc("GET /auth/google/callback", h.GoogleCallbackHandler)
	mux.HandleFunc("POST /auth/logout", protected(h.LogoutHandler))
	mux.HandleFunc("GET /auth/me", protected(h.MeHandler))
	mux.HandleFunc("PUT /auth/user", protected(h.UpdateUserHandler))
	mux.HandleFunc("POST /auth/avatar", protected(h.AvatarHandler))
	mux.HandleFunc("GET /auth/events", protected(h.EventsHandler))

	mux.HandleFunc("GET /tryon/state", protected(h.LoadTryOnHandler))
	mux.HandleFunc("POST /tryon/base", protected(h.BaseImageHandler))
	mux.HandleFunc("POST /tryon/base/default", protected(h.SaveDefaultBaseHandler))
	mux.HandleFunc("POST /tryon/garment", protected(h.GarmentHandler))
	mux.HandleFunc("POST /tryon/combos/{style}", protected(h.ComboHandler))
	mux.HandleFunc("GET /tryon/preview", protected(h.PreviewHandler))
	mux.HandleFunc("GET /tryon/preview.png", protected(h.PreviewImageHandler))
	mux.HandleFunc("POST /tryon/run", protected(h.VirtualTryOnHandler))
	mux.HandleFunc("POST /tryon/token", protected(h.TokenHandler))
	mux.HandleFunc("POST /tryon/recommend", protected(h.RecommendHandler))
	mux.HandleFunc("POST /tryon/save", protected(h.SaveOutfitHandler))
	mux.HandleFunc("PUT /prefs/api-url", protected(h.APIURLHandler))
	mux.HandleFunc("GET /scrape", protected(h.ScrapeHandler))

	mux.HandleFunc("GET /wardrobe", protected(h.GalleryHandler))
	mux.HandleFunc("PATCH /wardrobe/{id}", protected(h.RenameOutfitHandler))
	mux.HandleFunc("DELETE /wardrobe/{id}", protected(h.DeleteOutfitHandler))
	mux.HandleFunc("POST /wardrobe/{id}/retry", protected(h.RetryOutfitHandler))

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthcheck", h.HealthHandler)
	if h.Storage != nil {
		mux.Handle("GET /storage/", http.StripPrefix("/storage/", h.Storage))
	}
	if h.AssetsDir != "" {
		mux.HandleFunc("GET /", h.PageHandler)
	}

	return requestIDMiddleware(utils.MetricsMiddleware(corsMiddleware(mux)))
}

// HealthHandler reports whether the backing store answers.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Ping(ctx); err != nil {
			utils.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PageHandler serves the static pages. HTML pages other than login and
// signup need a live session.
func (h *Handler) PageHandler(w http.ResponseWriter, r *http.Request) {
	p := path.Clean("/" + r.URL.Path)
	if p == "/" {
		p = "/index.html"
	}
	if strings.HasSuffix(p, ".html") && !publicPages[p] {
		if _, err := h.Auth.Authenticate(r.Context(), sessionToken(r)); err != nil {
			http.Redirect(w, r, "/login.html", http.StatusFound)
			return
		}
	}

	file := filepath.Join(h.AssetsDir, filepath.FromSlash(p))
	if info, err := os.Stat(file); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, file)
}
