package httpApi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/price_alert_bot/config"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestIDHeader = "X-Request-ID"

// SetupRoutes configures all API routes. alertStream serves /alerts/ws and
// may be nil.
func SetupRoutes(handler *Handler, alertStream http.Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger)

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/quotes/{code}", handler.GetQuote).Methods("GET")
	api.HandleFunc("/codes/{code}/validate", handler.ValidateCode).Methods("GET")
	api.HandleFunc("/securities", handler.SearchSecurities).Methods("GET")

	api.HandleFunc("/positions", handler.ListPositions).Methods("GET")
	api.HandleFunc("/positions", handler.CreatePosition).Methods("POST")
	api.HandleFunc("/positions/{id}", handler.GetPosition).Methods("GET")
	api.HandleFunc("/positions/{id}", handler.UpdatePosition).Methods("PUT")
	api.HandleFunc("/positions/{id}", handler.DeletePosition).Methods("DELETE")
	api.HandleFunc("/positions/{id}/targets", handler.GetTargets).Methods("GET")

	api.HandleFunc("/scan", handler.Scan).Methods("POST")
	api.HandleFunc("/analysis", handler.Analysis).Methods("GET")

	api.HandleFunc("/settings", handler.ListSettings).Methods("GET")
	api.HandleFunc("/settings/{key}", handler.GetSetting).Methods("GET")
	api.HandleFunc("/settings/{key}", handler.PutSetting).Methods("PUT")

	if alertStream != nil {
		api.Handle("/alerts/ws", alertStream).Methods("GET")
	}

	return r
}

// requestLogger puts the request id into the context and logs the request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		ctx := utils.WithRequestID(r.Context(), r.Header.Get(requestIDHeader))
		rqID := utils.GetRequestIDFromCtx(ctx)
		w.Header().Set(requestIDHeader, rqID)

		slog.Info("start request", slog.String("rqID", rqID), slog.String("method", r.Method), slog.String("path", r.URL.Path))

		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func NewServer(cfg config.HTTP, router http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
