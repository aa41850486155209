package httpapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"landledger/internal/ledger"
)

var errEncrypted = errors.New("document is encrypted")

// LandReader is the read side of the land registry.
type LandReader interface {
	GetByID(ctx context.Context, id int64) (*ledger.Land, error)
	GetTotal(ctx context.Context) (int64, error)
	GetByOwner(ctx context.Context, owner ledger.Address) ([]int64, error)
	GetOwnerByLand(ctx context.Context, id int64) (ledger.Address, error)
}

// PortionReader is the read side of the portion registry.
type PortionReader interface {
	GetByID(ctx context.Context, id int64) (*ledger.Portion, error)
	GetTotal(ctx context.Context) (int64, error)
	GetByOwner(ctx context.Context, owner ledger.Address) ([]int64, error)
	GetByBuyer(ctx context.Context, buyer ledger.Address) ([]int64, error)
	GetBuyersByPortion(ctx context.Context, id int64) ([]ledger.Address, error)
	GetByLand(ctx context.Context, landID int64) ([]int64, error)
}

// DocumentReader is the read side of the document log.
type DocumentReader interface {
	Entry(ctx context.Context, id int64) (*ledger.DocumentEntry, error)
	Total(ctx context.Context) (int64, error)
	Content(ctx context.Context, id int64, w io.Writer, decryptCtx ledger.DecryptionContext) error
}

// Deps are the collaborators of the query server.
type Deps struct {
	Lands     LandReader
	Portions  PortionReader
	Documents DocumentReader
	Records   map[ledger.RecordKind]ledger.RecordRegistry
	Logger    ledger.Logger
	// Registry receives the HTTP metrics and is served on /metrics.
	Registry *prometheus.Registry
}

// Server exposes the ledger read operations over HTTP.
type Server struct {
	deps    Deps
	metrics *Metrics
}

// New constructs a Server. A nil Registry gets a fresh one.
func New(deps Deps) *Server {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = ledger.NewNopLogger()
	}
	return &Server{deps: deps, metrics: NewMetrics(deps.Registry)}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestID)
	r.Use(s.instrument)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Registry, promhttp.HandlerOpts{}))

	r.Route("/lands", func(r chi.Router) {
		r.Get("/", s.handleLandTotal)
		r.Get("/{id}", s.handleLand)
		r.Get("/{id}/owner", s.handleLandOwner)
		r.Get("/{id}/portions", s.handleLandPortions)
	})
	r.Route("/portions", func(r chi.Router) {
		r.Get("/", s.handlePortionTotal)
		r.Get("/{id}", s.handlePortion)
		r.Get("/{id}/buyers", s.handlePortionBuyers)
	})
	r.Get("/owners/{address}/lands", s.handleIDsByAddress(s.deps.Lands.GetByOwner))
	r.Get("/owners/{address}/portions", s.handleIDsByAddress(s.deps.Portions.GetByOwner))
	r.Get("/buyers/{address}/portions", s.handleIDsByAddress(s.deps.Portions.GetByBuyer))
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.handleDocumentTotal)
		r.Get("/{id}", s.handleDocument)
		r.Get("/{id}/content", s.handleDocumentContent)
	})
	r.Route("/records/{kind}", func(r chi.Router) {
		r.Get("/", s.handleRecordTotal)
		r.Get("/{id}", s.handleRecord)
		r.Get("/{id}/portion", s.handleRecordPortion)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("query server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.deps.Logger.Info("query server stopped")
	return nil
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(route, r.Method, strconv.Itoa(status), time.Since(start))
		s.deps.Logger.Debug("http request",
			"request_id", RequestID(r.Context()),
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// fail logs server-side errors and writes the JSON error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := statusFor(err); status == http.StatusInternalServerError {
		s.deps.Logger.Error("request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeError(w, err)
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: id %q is not a non-negative integer", ledger.ErrInvalidArgument, raw)
	}
	return id, nil
}

func (s *Server) handleLandTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.deps.Lands.GetTotal(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (s *Server) handleLand(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	land, err := s.deps.Lands.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromLand(land))
}

func (s *Server) handleLandOwner(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	owner, err := s.deps.Lands.GetOwnerByLand(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": owner.String()})
}

func (s *Server) handleLandPortions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ids, err := s.deps.Portions.GetByLand(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idsResponse{IDs: nonNil(ids)})
}

func (s *Server) handlePortionTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.deps.Portions.GetTotal(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (s *Server) handlePortion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.deps.Portions.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromPortion(p))
}

func (s *Server) handlePortionBuyers(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	buyers, err := s.deps.Portions.GetBuyersByPortion(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"buyers": addresses(buyers)})
}

func (s *Server) handleIDsByAddress(lookup func(context.Context, ledger.Address) ([]int64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr, err := ledger.ParseAddress(chi.URLParam(r, "address"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ids, err := lookup(r.Context(), addr)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, idsResponse{IDs: nonNil(ids)})
	}
}

func (s *Server) handleDocumentTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.deps.Documents.Total(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := s.deps.Documents.Entry(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromDocument(entry))
}

// handleDocumentContent serves verified plaintext documents. The server never
// holds the private key, so encrypted documents are refused.
func (s *Server) handleDocumentContent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entry, err := s.deps.Documents.Entry(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entry.Encrypted {
		s.fail(w, r, fmt.Errorf("%w: document %d", errEncrypted, id))
		return
	}

	var buf bytes.Buffer
	if err := s.deps.Documents.Content(r.Context(), id, &buf, nil); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Fingerprint", entry.Fingerprint.Hex())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) recordRegistry(r *http.Request) (ledger.RecordRegistry, error) {
	kind, err := ledger.ParseRecordKind(chi.URLParam(r, "kind"))
	if err != nil {
		return nil, err
	}
	registry, ok := s.deps.Records[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no %s registry", ledger.ErrNotFound, kind)
	}
	return registry, nil
}

func (s *Server) handleRecordTotal(w http.ResponseWriter, r *http.Request) {
	registry, err := s.recordRegistry(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	total, err := registry.GetTotal(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: total})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	registry, err := s.recordRegistry(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := registry.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromRecord(rec))
}

// handleRecordPortion resolves a record to the portion it was registered against.
func (s *Server) handleRecordPortion(w http.ResponseWriter, r *http.Request) {
	registry, err := s.recordRegistry(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rec, err := registry.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.deps.Portions.GetByID(r.Context(), rec.PortionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fromPortion(p))
}
