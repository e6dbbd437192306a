package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"

	"github.com/nzaccagnino/notedeck/internal/db"
	"github.com/nzaccagnino/notedeck/internal/listing"
	"github.com/nzaccagnino/notedeck/internal/notes"
	"github.com/nzaccagnino/notedeck/internal/profile"
	"github.com/nzaccagnino/notedeck/internal/query"
	"github.com/nzaccagnino/notedeck/internal/ratelimit"
)

// MaxUploadSize bounds one multipart upload.
const MaxUploadSize = 32 << 20

type Deps struct {
	DB      *db.DB
	Profile *profile.Store
	Listing *listing.Service
	Notes   *notes.Service
	Hub     *Hub
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
	// TokenHash is a bcrypt hash of the API token. Empty disables auth.
	TokenHash string
}

type Server struct {
	Deps
	router         *chi.Mux
	uploadLimiter  *ratelimit.Limiter
	searchCooldown *ratelimit.Cooldown
	saveCooldown   *ratelimit.Cooldown
}

func New(d Deps) *Server {
	s := &Server{
		Deps:           d,
		router:         chi.NewRouter(),
		uploadLimiter:  ratelimit.NewLimiter(1, time.Second),
		searchCooldown: ratelimit.NewCooldown(d.Profile.SearchCooldown),
		saveCooldown:   ratelimit.NewCooldown(d.Profile.SaveCooldown),
	}
	d.Profile.OnChange(func(key string, value any) {
		s.Hub.Broadcast(Event{Type: EventConfigChanged, Key: key, Value: value})
	})
	s.setupRoutes()
	return s
}

// Close stops background goroutines owned by the server.
func (s *Server) Close() {
	s.uploadLimiter.Stop()
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(hlog.NewHandler(s.Log))
	s.router.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	s.router.Use(hlog.RemoteAddrHandler("ip"))
	s.router.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.healthHandler)
	if s.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.With(s.authMiddleware).Get("/ws", s.Hub.ServeWS)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(s.authMiddleware)

		r.Get("/notes", s.listNotesHandler)
		r.Post("/notes", s.saveNoteHandler)
		r.Get("/notes/{id}", s.getNoteHandler)
		r.Delete("/notes/{id}", s.deleteNoteHandler)
		r.Post("/notes/{id}/visit", s.visitNoteHandler)

		r.Post("/page", s.pageHandler)

		r.Get("/config/{key}", s.getConfigHandler)
		r.Put("/config/{key}", s.setConfigHandler)

		r.Get("/tags", s.listTagsHandler)
		r.Delete("/tags", s.clearTagsHandler)
		r.Post("/tags/generate", s.generateTagsHandler)

		r.With(s.uploadLimiter.Middleware).Post("/upload", s.uploadHandler)
		r.Get("/files/{id}", s.fileHandler)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.TokenHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.URL.Query().Get("token")
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				jsonError(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			token = parts[1]
		}
		if token == "" {
			jsonError(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.TokenHash), []byte(token)); err != nil {
			jsonError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HashToken returns the bcrypt hash to put in server.token_hash.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// writeError maps store and validation errors to a status. Unexpected
// errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var cfgErr *query.ConfigError
	switch {
	case errors.As(err, &cfgErr),
		errors.Is(err, notes.ErrInvalidTitle),
		errors.Is(err, notes.ErrInvalidNoteType):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, db.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
