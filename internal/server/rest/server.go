// Package rest exposes the GeoCrypt HTTP API.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/geocrypt/internal/logging"
	"github.com/dmitrijs2005/geocrypt/internal/server/metrics"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
	"github.com/dmitrijs2005/geocrypt/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// UserService is the account surface the API depends on.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*models.User, string, error)
	Login(ctx context.Context, username, password string) (*models.User, string, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// FileService is the file metadata surface the API depends on.
type FileService interface {
	Upload(ctx context.Context, userID string, in services.UploadInput) (*models.File, error)
	List(ctx context.Context, userID string) ([]*models.File, error)
	Get(ctx context.Context, fileID, userID string) (*models.File, error)
	Delete(ctx context.Context, fileID, userID string) error
}

// AccessGate issues and redeems one-time download codes.
type AccessGate interface {
	RequestCode(ctx context.Context, fileID, userID string) error
	Verify(ctx context.Context, fileID, userID, geohash, code string) (*models.RetrievalCapability, error)
}

// Options configures a Server.
type Options struct {
	Address        string
	SecretKey      string
	AllowedOrigins []string
	// MaxUploadBytes caps an upload request body. Zero disables the cap.
	MaxUploadBytes int64
}

type Server struct {
	address        string
	logger         logging.Logger
	users          UserService
	files          FileService
	gate           AccessGate
	jwtSecret      []byte
	allowedOrigins []string
	maxUpload      int64
	now            func() time.Time
}

func NewServer(opts Options, l logging.Logger, us UserService, fs FileService, gate AccessGate) *Server {
	return &Server{
		address:        opts.Address,
		logger:         l.With("module", "http_server"),
		users:          us,
		files:          fs,
		gate:           gate,
		jwtSecret:      []byte(opts.SecretKey),
		allowedOrigins: opts.AllowedOrigins,
		maxUpload:      opts.MaxUploadBytes,
		now:            time.Now,
	}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(loggerMiddleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.accessTokenMiddleware)

		r.Get("/users/me", s.me)

		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.listFiles)
			r.Post("/upload", s.uploadFile)
			r.Get("/{fileID}", s.getFile)
			r.Delete("/{fileID}", s.deleteFile)
			r.Get("/{fileID}/otp", s.requestCode)
			r.Get("/{fileID}/download", s.download)
		})
	})

	return r
}

// Run serves HTTP on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves HTTP on listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, healthResponse{Status: "healthy", Timestamp: s.now().UTC()})
}
