package forge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/locforge/kit"
)

// Handler returns the HTTP API:
//
//	GET    /health
//	POST   /api/infer                 {html, url}
//	POST   /api/analyze               {urls, name?, config?}
//	GET    /api/frameworks
//	POST   /api/frameworks            Project
//	GET    /api/frameworks/{id}
//	PUT    /api/frameworks/{id}       Project
//	DELETE /api/frameworks/{id}
//	GET    /api/frameworks/{id}/files
//	GET    /metrics
func (s *Service) Handler() http.Handler {
	ep := s.endpoints()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(kitContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))

		r.Post("/infer", s.serve(ep.infer, 200, decodeBody[inferRequest](s.cfg.HTTP.MaxBody)))
		r.Post("/analyze", s.serve(ep.analyze, 200, decodeBody[analyzeRequest](s.cfg.HTTP.MaxBody)))

		r.Route("/frameworks", func(r chi.Router) {
			r.Get("/", s.serve(ep.listFrameworks, 200, noBody))
			r.Post("/", s.serve(ep.saveFramework, 201, decodeBody[Project](s.cfg.HTTP.MaxBody)))
			r.Get("/{id}", s.serve(ep.getFramework, 200, idParam))
			r.Put("/{id}", s.serve(ep.updateFramework, 200, func(r *http.Request) (any, error) {
				v, err := decodeBody[Project](s.cfg.HTTP.MaxBody)(r)
				if err != nil {
					return nil, err
				}
				p := v.(*Project)
				p.ID = chi.URLParam(r, "id")
				return p, nil
			}))
			r.Delete("/{id}", s.serve(ep.deleteFramework, 200, idParam))
			r.Get("/{id}/files", s.serve(ep.generate, 200, func(r *http.Request) (any, error) {
				return &generateRequest{ID: chi.URLParam(r, "id")}, nil
			}))
		})
	})
	return r
}

// kitContext tags the request context with the transport and chi's request id.
func kitContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = kit.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type decoder func(*http.Request) (any, error)

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

func decodeBody[T any](limit int64) decoder {
	return func(r *http.Request) (any, error) {
		v := new(T)
		body := http.MaxBytesReader(nil, r.Body, limit)
		if err := json.NewDecoder(body).Decode(v); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return v, nil
	}
}

func noBody(*http.Request) (any, error) { return nil, nil }

func idParam(r *http.Request) (any, error) {
	return &idRequest{ID: chi.URLParam(r, "id")}, nil
}

func (s *Service) serve(e kit.Endpoint, code int, decode decoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		resp, err := e(r.Context(), req)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, code, resp)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, errBadRequest):
		return 400
	case errors.Is(err, ErrNotFound):
		return 404
	case errors.Is(err, ErrConflict):
		return 409
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return 504
	}
	return 500
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// ListenAndServe serves Handler on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Service) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("forge: http listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("forge: http: %w", err)
	case <-ctx.Done():
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("forge: http shutting down")
	return srv.Shutdown(shutCtx)
}
