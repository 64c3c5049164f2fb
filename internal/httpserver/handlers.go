package httpserver

import (
	"context"
	"io"
	"net/http"

	"github.com/ndajr/urlshortener-kv/internal/core"
)

const (
	passwordHeader    = "password"
	oldPasswordHeader = "old_password"
)

// preflight answers CORS preflight and wrong-method requests. It reports
// whether the request was answered.
func (s *Server) preflight(w http.ResponseWriter, r *http.Request) bool {
	switch r.Method {
	case http.MethodGet:
		return false
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet)
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, msgWrongMethod, http.StatusMethodNotAllowed)
	}
	return true
}

func (s *Server) shortenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.preflight(w, r) {
			return
		}

		query := r.URL.Query()
		url := query.Get("url")
		if url == "" {
			s.metrics.Shortened.WithLabelValues(OutcomeRejected).Inc()
			http.Error(w, msgMissingURL, http.StatusBadRequest)
			return
		}

		req := core.ShortenRequest{
			URL:         url,
			Alias:       query.Get("alias"),
			Password:    header(r, passwordHeader),
			OldPassword: header(r, oldPasswordHeader),
		}

		ctx, cancel := s.storeContext(r.Context())
		defer cancel()

		key, err := s.shortener.Shorten(ctx, req)
		if err != nil {
			status, msg := statusFor(err)
			s.metrics.Shortened.WithLabelValues(outcomeFor(status)).Inc()
			s.logger.Warn("shorten request failed", "alias", req.Alias, "status", status, "error", err)
			http.Error(w, msg, status)
			return
		}

		s.metrics.Shortened.WithLabelValues(OutcomeCreated).Inc()
		s.write(w, http.StatusOK, key)
	}
}

func (s *Server) fetchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.preflight(w, r) {
			return
		}
		s.fetch(w, r)
	}
}

func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("s")
	if key == "" {
		http.Error(w, msgMissingKey, http.StatusBadRequest)
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	url, err := s.shortener.Resolve(ctx, key)
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("fetch request failed", "key", key, "status", status, "error", err)
		}
		http.Error(w, msg, status)
		return
	}

	// http.Redirect would rewrite relative targets; the stored URL is sent as is.
	w.Header().Set("Location", url)
	s.write(w, http.StatusFound, url)
}

// rootHandler serves short links of the form /?s=key and sends bare visits
// to the API docs.
func (s *Server) rootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if s.preflight(w, r) {
			return
		}
		if r.URL.Query().Has("s") {
			s.fetch(w, r)
			return
		}
		http.Redirect(w, r, docsURL, http.StatusFound)
	}
}

func (s *Server) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Server) write(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := io.WriteString(w, body); err != nil {
		s.logger.Error("failed to write http response", "error", err)
	}
}

// header returns the first value of the named request header, or nil when the
// header is absent. A present but empty header yields a pointer to "".
func header(r *http.Request, name string) *string {
	values := r.Header.Values(name)
	if len(values) == 0 {
		return nil
	}
	return core.Secret(values[0])
}
