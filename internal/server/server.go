package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/moviedb/internal/logging"
	"github.com/Digital-Shane/moviedb/internal/provider"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// statusClientClosedRequest reports a request abandoned by its client.
const statusClientClosedRequest = 499

const headerRequestID = "X-Request-ID"

// Options configures a Server.
type Options struct {
	Registry *provider.Registry

	// Language and Country apply when a request does not set lang or country.
	Language string
	Country  string

	Logger *slog.Logger
}

// Server exposes the provider contract over HTTP.
type Server struct {
	registry *provider.Registry
	language string
	country  string
	logger   *slog.Logger
	router   *mux.Router
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	s := &Server{
		registry: opts.Registry,
		language: opts.Language,
		country:  opts.Country,
		logger:   logging.Component(opts.Logger, "server"),
	}

	r := mux.NewRouter()
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/{kind}/search", s.search).Methods(http.MethodGet)
	api.HandleFunc("/{kind}/{id}/images", s.images).Methods(http.MethodGet)
	api.HandleFunc("/{kind}/{id}/metadata", s.metadata).Methods(http.MethodGet)

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) images(w http.ResponseWriter, r *http.Request) {
	info, ok := s.lookupInfo(w, r)
	if !ok {
		return
	}

	var wantType provider.ImageType
	switch strings.ToLower(r.URL.Query().Get("type")) {
	case "":
	case "primary":
		wantType = provider.ImageTypePrimary
	case "backdrop":
		wantType = provider.ImageTypeBackdrop
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown image type: " + r.URL.Query().Get("type")})
		return
	}

	images := []provider.RemoteImage{}
	for _, p := range s.registry.For(info) {
		found, err := p.FetchImages(r.Context(), info)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		for _, img := range found {
			if wantType == "" || img.Type == wantType {
				images = append(images, img)
			}
		}
	}
	writeJSON(w, http.StatusOK, images)
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	info, ok := s.lookupInfo(w, r)
	if !ok {
		return
	}

	meta, err := provider.FetchMetadataWithDependencies(r.Context(), s.registry, info, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if meta == nil {
		writeJSON(w, http.StatusNotFound, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	kind, ok := provider.ParseKind(strings.ToLower(mux.Vars(r)["kind"]))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown kind: " + mux.Vars(r)["kind"]})
		return
	}

	q := r.URL.Query()
	info := provider.LookupInfo{
		Kind:     kind,
		Name:     strings.TrimSpace(q.Get("q")),
		Language: s.queryOr(q.Get("lang"), s.language),
		Country:  s.queryOr(q.Get("country"), s.country),
	}
	if info.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid year: " + v})
			return
		}
		info.Year = year
	}

	results := []provider.SearchResult{}
	for _, p := range s.registry.For(info) {
		if !p.Capabilities().Searchable {
			continue
		}
		found, err := p.Search(r.Context(), info)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		results = append(results, found...)
	}
	writeJSON(w, http.StatusOK, results)
}

// lookupInfo builds the entity description from path and query parameters,
// writing a 400 response when they are unusable.
func (s *Server) lookupInfo(w http.ResponseWriter, r *http.Request) (provider.LookupInfo, bool) {
	vars := mux.Vars(r)
	kind, ok := provider.ParseKind(strings.ToLower(vars["kind"]))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown kind: " + vars["kind"]})
		return provider.LookupInfo{}, false
	}

	q := r.URL.Query()
	info := provider.LookupByID(kind, vars["id"])
	info.Language = s.queryOr(q.Get("lang"), s.language)
	info.Country = s.queryOr(q.Get("country"), s.country)
	info.Force = q.Get("force") == "true" || q.Get("force") == "1"

	if kind == provider.KindSeason || kind == provider.KindEpisode {
		season, ok := intParam(w, q.Get("season"), "season")
		if !ok {
			return info, false
		}
		info.SeasonNumber = season
	}
	if kind == provider.KindEpisode {
		episode, ok := intParam(w, q.Get("episode"), "episode")
		if !ok {
			return info, false
		}
		info.EpisodeNumber = episode
	}
	return info, true
}

func (s *Server) queryOr(value, fallback string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return fallback
}

func intParam(w http.ResponseWriter, value, name string) (int, bool) {
	if value == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": name + " is required"})
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + name + ": " + value})
		return 0, false
	}
	return n, true
}

// writeError maps pipeline errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.Canceled):
		status = statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, provider.ErrMissingIdentifier):
		status = http.StatusBadRequest
	case provider.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, provider.ErrTransient), errors.Is(err, provider.ErrMalformedResponse):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			logging.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests tags each request with an X-Request-ID and logs its outcome.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
