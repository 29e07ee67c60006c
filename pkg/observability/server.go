package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/cog/pkg/journal"
	"github.com/prometheus/client_golang/prometheus"
)

// SyncHistory is the source of the /status endpoint
type SyncHistory interface {
	LastSyncs(ctx context.Context) ([]journal.SyncRecord, error)
}

// ProductStatus is one row of the /status response
type ProductStatus struct {
	Product    string    `json:"product"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	Written    int       `json:"written"`
	Unchanged  int       `json:"unchanged"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}

// NewRouter builds the status server routes: /metrics, /healthz, /readyz
// and /status. A nil history serves an empty status list.
func NewRouter(registry *prometheus.Registry, metrics *Metrics, checker *HealthChecker, history SyncHistory) *mux.Router {
	router := mux.NewRouter()
	router.Use(mux.MiddlewareFunc(HTTPMetricsMiddleware(metrics)))

	router.Handle("/metrics", MetricsHandler(registry)).Methods("GET")
	router.HandleFunc("/healthz", checker.Liveness).Methods("GET")
	router.HandleFunc("/readyz", checker.Readiness).Methods("GET")
	router.HandleFunc("/status", statusHandler(history)).Methods("GET")

	return router
}

func statusHandler(history SyncHistory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := []ProductStatus{}
		if history != nil {
			records, err := history.LastSyncs(r.Context())
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			for _, rec := range records {
				statuses = append(statuses, ProductStatus{
					Product:    rec.Product,
					Operation:  rec.Operation,
					Status:     rec.Status,
					Written:    rec.Written,
					Unchanged:  rec.Unchanged,
					Error:      rec.Error,
					FinishedAt: rec.FinishedAt,
					DurationMS: rec.Duration().Milliseconds(),
				})
			}
		}
		writeJSON(w, http.StatusOK, statuses)
	}
}
