package httpApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/service"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/gorilla/mux"
)

type PriceAlertService interface {
	ValidateCode(code string) bool
	GetQuote(ctx context.Context, code string) (model.Quote, error)
	SearchSecurities(ctx context.Context, query string) ([]model.Security, error)
	CreatePosition(ctx context.Context, p model.Position) (model.Position, error)
	GetPosition(ctx context.Context, positionID int64) (model.Position, error)
	ListPositions(ctx context.Context) ([]model.Position, error)
	UpdatePosition(ctx context.Context, p model.Position) error
	DeletePosition(ctx context.Context, positionID int64) error
	ResolveScanSettings(ctx context.Context, buyStep, annualRate *float64) (model.ScanSettings, error)
	EvaluatePosition(ctx context.Context, positionID int64, settings model.ScanSettings) (model.Position, model.Evaluation, error)
	ScanPortfolio(ctx context.Context, settings model.ScanSettings) ([]model.AlertEvent, error)
	AnalyzePortfolio(ctx context.Context, settings model.ScanSettings) (model.PortfolioAnalysis, error)
	GetSetting(ctx context.Context, key string) (string, error)
	ListSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// HealthCheck reports one dependency, nil means healthy.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	service PriceAlertService
	checks  map[string]HealthCheck
}

func NewHandler(service PriceAlertService, checks map[string]HealthCheck) *Handler {
	return &Handler{service: service, checks: checks}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	default:
		slog.Error("request failed", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("path", r.URL.Path), slog.String("err", err.Error()))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func positionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad position id", service.ErrInvalidInput)
	}
	return id, nil
}

func optionalFloat(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", service.ErrInvalidInput, name)
	}
	return &v, nil
}

// scanSettings reads the buy_step and annual_rate overrides.
func (h *Handler) scanSettings(r *http.Request) (model.ScanSettings, error) {
	buyStep, err := optionalFloat(r, "buy_step")
	if err != nil {
		return model.ScanSettings{}, err
	}
	annualRate, err := optionalFloat(r, "annual_rate")
	if err != nil {
		return model.ScanSettings{}, err
	}
	return h.service.ResolveScanSettings(r.Context(), buyStep, annualRate)
}

// GetQuote handles GET /quotes/{code}
func (h *Handler) GetQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.GetQuote(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, quote)
}

// ValidateCode handles GET /codes/{code}/validate
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	respondJSON(w, http.StatusOK, map[string]any{"code": code, "valid": h.service.ValidateCode(code)})
}

// SearchSecurities handles GET /securities?q=
func (h *Handler) SearchSecurities(w http.ResponseWriter, r *http.Request) {
	securities, err := h.service.SearchSecurities(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, securities)
}

// ListPositions handles GET /positions
func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.service.ListPositions(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, positions)
}

// CreatePosition handles POST /positions
func (h *Handler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req model.Position
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.ID = 0

	created, err := h.service.CreatePosition(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// GetPosition handles GET /positions/{id}
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.service.GetPosition(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// UpdatePosition handles PUT /positions/{id}
func (h *Handler) UpdatePosition(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req model.Position
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.ID = id

	if err = h.service.UpdatePosition(r.Context(), req); err != nil {
		respondError(w, r, err)
		return
	}

	updated, err := h.service.GetPosition(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeletePosition handles DELETE /positions/{id}
func (h *Handler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err = h.service.DeletePosition(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTargets handles GET /positions/{id}/targets
func (h *Handler) GetTargets(w http.ResponseWriter, r *http.Request) {
	id, err := positionID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	settings, err := h.scanSettings(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	p, ev, err := h.service.EvaluatePosition(r.Context(), id, settings)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"position": p, "evaluation": ev, "settings": settings})
}

// Scan handles POST /scan
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	settings, err := h.scanSettings(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	events, err := h.service.ScanPortfolio(r.Context(), settings)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if events == nil {
		events = []model.AlertEvent{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"alerts": events, "settings": settings})
}

// Analysis handles GET /analysis
func (h *Handler) Analysis(w http.ResponseWriter, r *http.Request) {
	settings, err := h.scanSettings(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	analysis, err := h.service.AnalyzePortfolio(r.Context(), settings)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

// ListSettings handles GET /settings
func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.ListSettings(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, settings)
}

// GetSetting handles GET /settings/{key}
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	value, err := h.service.GetSetting(r.Context(), key)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// PutSetting handles PUT /settings/{key}
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.service.SetSetting(r.Context(), key, req.Value); err != nil {
		respondError(w, r, err)
		return
	}

	value, err := h.service.GetSetting(r.Context(), key)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string, len(h.checks))
	status := "healthy"
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			services[name] = "unhealthy: " + err.Error()
			status = "degraded"
			continue
		}
		services[name] = "healthy"
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}
