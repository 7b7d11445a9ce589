// Package router wires the ClauseCop routes and applies the middleware
// chain (RequestID → CORS → Timeout → Metrics).
package router

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/api/handler"
	apimw "github.com/Adithya-Monish-Kumar-K/clausecop/internal/api/middleware"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/middleware"
)

type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Metrics        *metrics.Metrics
	Health         *health.Checker
}

// New builds the API handler.
//
// Route table:
//
//	GET    /health                       → liveness (static)
//	GET    /health/live                  → liveness
//	GET    /health/ready                 → dependency readiness
//	POST   /documents/upload             → store, record and process a PDF
//	GET    /documents                    → recent documents
//	GET    /documents/{id}               → document record
//	GET    /documents/{id}/clauses       → clauses ordered by clause_index
//	POST   /documents/{id}/reprocess     → run the pipeline again
func New(h *handler.Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	if opts.Health != nil {
		mux.HandleFunc("GET /health/live", opts.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", opts.Health.ReadyHandler())
	}

	mux.HandleFunc("POST /documents/upload", h.Upload)
	mux.HandleFunc("GET /documents", h.ListDocuments)
	mux.HandleFunc("GET /documents/{id}", h.GetDocument)
	mux.HandleFunc("GET /documents/{id}/clauses", h.ListClauses)
	mux.HandleFunc("POST /documents/{id}/reprocess", h.Reprocess)

	// request → RequestID → CORS → Timeout → Metrics → mux
	// Metrics sits directly on the mux so it sees the matched pattern.
	var chain http.Handler = pkgmw.Metrics(opts.Metrics)(mux)
	if opts.RequestTimeout > 0 {
		chain = pkgmw.Timeout(opts.RequestTimeout)(chain)
	}
	chain = apimw.CORS(apimw.NewCORSConfig(opts.AllowedOrigins))(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
