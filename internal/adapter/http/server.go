package http

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-tracker/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Service is the tracker surface exposed over HTTP.
type Service interface {
	ReadinessChecker
	SearchCatalog(query string) []domain.CityRef
	LoadCities(ctx context.Context) []domain.TrackedCity
	AddByName(ctx context.Context, name string) (domain.TrackedCity, error)
	Remove(ctx context.Context, id int64) error
	LoadPreferences(ctx context.Context) domain.Preferences
	SetPreferences(ctx context.Context, patch domain.PreferencesPatch) (domain.Preferences, error)
	ResetPreferences(ctx context.Context) (domain.Preferences, error)
}

// Server exposes the tracker API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        Service
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the tracker routes and /healthz,
// /readyz, and /metrics.
func NewServer(addr string, svc Service, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /catalog", s.handleCatalog)
	mux.HandleFunc("GET /cities", s.handleListCities)
	mux.HandleFunc("POST /cities", s.handleAddCity)
	mux.HandleFunc("DELETE /cities/{id}", s.handleRemoveCity)
	mux.HandleFunc("GET /preferences", s.handleGetPreferences)
	mux.HandleFunc("PATCH /preferences", s.handlePatchPreferences)
	mux.HandleFunc("POST /preferences/reset", s.handleResetPreferences)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cities := s.svc.SearchCatalog(r.URL.Query().Get("q"))
	if cities == nil {
		cities = []domain.CityRef{}
	}
	writeJSON(w, http.StatusOK, cities)
}

// cityView is a tracked city with its temperature rendered in the preferred unit.
type cityView struct {
	domain.TrackedCity
	Temperature float64 `json:"temperature"`
}

type citiesResponse struct {
	Unit   domain.TemperatureUnit `json:"unit"`
	Cities []cityView             `json:"cities"`
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	unit := s.svc.LoadPreferences(r.Context()).TemperatureUnit
	cities := s.svc.LoadCities(r.Context())

	resp := citiesResponse{Unit: unit, Cities: make([]cityView, len(cities))}
	for i, c := range cities {
		resp.Cities[i] = cityView{TrackedCity: c, Temperature: math.Round(c.Temperature(unit))}
	}
	writeJSON(w, http.StatusOK, resp)
}

type addCityRequest struct {
	Name string `json:"name"`
}

type cityResponse struct {
	City    domain.TrackedCity `json:"city"`
	Warning string             `json:"warning,omitempty"`
}

func (s *Server) handleAddCity(w http.ResponseWriter, r *http.Request) {
	var req addCityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "body must be a JSON object with a non-empty name")
		return
	}

	city, err := s.svc.AddByName(r.Context(), req.Name)
	var fetchErr *domain.FetchError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, cityResponse{City: city})
	case errors.Is(err, domain.ErrPersist):
		writeJSON(w, http.StatusOK, cityResponse{City: city, Warning: err.Error()})
	case errors.Is(err, domain.ErrUnknownCity):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &fetchErr):
		writeError(w, http.StatusBadGateway, fetchErr.Error())
	default:
		s.logger.Error("add city failed", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) handleRemoveCity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	resp := map[string]any{"removed": id}
	if err := s.svc.Remove(r.Context(), id); err != nil {
		if !errors.Is(err, domain.ErrPersist) {
			s.logger.Error("remove city failed", "city_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp["warning"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type preferencesResponse struct {
	Preferences domain.Preferences `json:"preferences"`
	Warning     string             `json:"warning,omitempty"`
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, preferencesResponse{Preferences: s.svc.LoadPreferences(r.Context())})
}

func (s *Server) handlePatchPreferences(w http.ResponseWriter, r *http.Request) {
	var patch domain.PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := s.svc.SetPreferences(r.Context(), patch)
	s.writePreferences(w, p, err)
}

func (s *Server) handleResetPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.ResetPreferences(r.Context())
	s.writePreferences(w, p, err)
}

func (s *Server) writePreferences(w http.ResponseWriter, p domain.Preferences, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, preferencesResponse{Preferences: p})
	case errors.Is(err, domain.ErrInvalidPreference):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPersist):
		writeJSON(w, http.StatusOK, preferencesResponse{Preferences: p, Warning: err.Error()})
	default:
		s.logger.Error("update preferences failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
