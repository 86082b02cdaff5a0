package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gpxtab/internal/gpx"
	"gpxtab/internal/store"
)

// Importer stores one GPX document. *store.Store implements it.
type Importer interface {
	Import(ctx context.Context, name string, r io.Reader, opts ...gpx.Option) (store.Summary, error)
}

type Options struct {
	MaxUploadBytes int64
	Parser         []gpx.Option
}

type ImportResponse struct {
	ImportID   string             `json:"import_id,omitempty"`
	DocumentID int64              `json:"document_id,omitempty"`
	Name       string             `json:"name"`
	Waypoints  int                `json:"waypoints"`
	Routes     int                `json:"routes"`
	Tracks     int                `json:"tracks"`
	Points     int                `json:"points"`
	Issues     []gpx.IssueSummary `json:"issues"`
	Error      string             `json:"error,omitempty"`
}

func Handler(status *Status, imp Importer, logs *LogBuffer, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/import", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if imp == nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}

		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			name = "upload-" + uuid.NewString()[:8]
		}
		body := http.MaxBytesReader(w, r.Body, opts.MaxUploadBytes)
		sum, err := imp.Import(r.Context(), name, body, opts.Parser...)

		resp := ImportResponse{
			ImportID:   sum.ImportID,
			DocumentID: sum.DocumentID,
			Name:       name,
			Waypoints:  sum.Counts.Waypoints,
			Routes:     sum.Counts.Routes,
			Tracks:     sum.Counts.Tracks,
			Points:     sum.Counts.Points,
			Issues:     sum.Issues.Summary(),
		}
		sum.Issues.LogAll(name)

		if err != nil {
			status.MarkFailure(time.Now().UTC(), err)
			log.Printf("import %s failed: %v", name, err)
			resp.Error = err.Error()
			// Only the records of a committed document count as imported.
			resp.ImportID, resp.DocumentID = "", 0
			writeJSON(w, importErrorCode(err), resp)
			return
		}

		status.MarkImport(time.Now().UTC(), sum.Counts, len(sum.Issues))
		log.Printf("imported %s as document %d: %d waypoints, %d routes, %d tracks, %d points, %d issues",
			name, sum.DocumentID, sum.Counts.Waypoints, sum.Counts.Routes, sum.Counts.Tracks, sum.Counts.Points, len(sum.Issues))
		writeJSON(w, http.StatusOK, resp)
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, status.Snapshot(time.Now().UTC()))
	})

	if logs != nil {
		mux.Handle("/api/logs", logs.Handler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snap := status.Snapshot(time.Now().UTC())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>gpxtab</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>gpxtab</h1>")
		_, _ = fmt.Fprintf(w, "<p>POST a GPX document to <code>/api/import?name=...</code>. See <a href=\"/api/status\">/api/status</a> and <a href=\"/api/logs?format=text\">/api/logs</a>.</p>")
		_, _ = fmt.Fprintf(w, "<pre>documents=%d\nfailures=%d\npoints=%d\nlast_import_utc=%s</pre>",
			snap.Documents, snap.Failures, snap.Points, snap.LastImportUTC,
		)
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

func importErrorCode(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, gpx.ErrStructural):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, gpx.ErrMalformed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func Serve(ctx context.Context, listenAddr string, status *Status, imp Importer, logs *LogBuffer, opts Options) error {
	if status == nil {
		status = NewStatus()
	}

	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(status, imp, logs, opts),
		ReadHeaderTimeout: 5 * time.Second,
		// Uploads of large tracks take a while on slow links.
		ReadTimeout:    2 * time.Minute,
		WriteTimeout:   2 * time.Minute,
		IdleTimeout:    30 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
