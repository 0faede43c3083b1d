package server

import (
	"net/http"
)

// NewMux wires the inpaint, status, health, and optional archive routes.
func NewMux(inpaint *InpaintHandler, results *ArchiveHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/inpaint", inpaint.Handler())
	mux.Handle("/status", inpaint.StatusHandler())
	mux.Handle("/status/stream", inpaint.StatusStreamHandler())
	if results != nil {
		mux.Handle("/results/", withCORS(results.Handler()))
	}
	return mux
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
