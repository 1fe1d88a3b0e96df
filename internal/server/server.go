package server

import (
	"context"
	"net/http"

	"github.com/fieldops/gearscan/internal/utils"
	"github.com/fieldops/gearscan/pkg/inference"
	"github.com/fieldops/gearscan/pkg/storage"
)

// Engine is the opaque detection model boundary the server forwards frames
// to. *inference.Client satisfies it, pointing at an upstream model service.
type Engine interface {
	Infer(ctx context.Context, frameDataURL string) ([]inference.RawDetection, error)
}

type Server struct {
	Engine   Engine
	DB       *storage.DB
	Username string
	Password string
}

func New(engine Engine, db *storage.DB, user, pass string) *Server {
	return &Server{
		Engine:   engine,
		DB:       db,
		Username: user,
		Password: pass,
	}
}

// Handler builds the route table. Split from Start so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/scan", s.basicAuth(s.handleScan))
	mux.HandleFunc("GET /api/equipment", s.basicAuth(s.handleEquipment))
	mux.HandleFunc("GET /api/equipment/{label}", s.basicAuth(s.handleEquipmentLookup))

	return mux
}

func (s *Server) Start(addr string) error {
	utils.Log.Infof("Starting scan server on %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
