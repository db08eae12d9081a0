package api

import (
	"log/slog"
	"net/http"
)

// NewMux assembles the API route table. Method-specific patterns let the mux
// answer 405 for wrong verbs; /metrics and /debug/pprof are mounted by the
// caller because they belong to the deployment surface, not the API.
func NewMux(matches *MatchHandlers, vendors *VendorHandlers, probes *HealthHandlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /match", matches.Match)

	mux.HandleFunc("POST /vendors", vendors.CreateVendor)
	mux.HandleFunc("GET /vendors", vendors.ListVendors)
	mux.HandleFunc("GET /vendors/{id}", vendors.GetVendor)
	mux.HandleFunc("PATCH /vendors/{id}", vendors.UpdateVendor)
	mux.HandleFunc("DELETE /vendors/{id}", vendors.DeleteVendor)

	mux.HandleFunc("GET /health", probes.Health)
	mux.HandleFunc("GET /ready", probes.Ready)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only the exact root path gets the service banner; everything else
		// falling through to this pattern is an unknown route.
		if r.URL.Path != "/" {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"vendormatch-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write root response", "error", err)
		}
	})

	return mux
}
