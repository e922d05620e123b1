package priceAlertService

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/portfolioScanner"
	"github.com/KotFed0t/price_alert_bot/internal/service"
	"github.com/KotFed0t/price_alert_bot/utils"
)

type QuoteSource interface {
	Fetch(ctx context.Context, code string) model.Quote
	FetchPrice(ctx context.Context, code string) float64
	Validate(code string) bool
}

type SecurityDirectory interface {
	Search(ctx context.Context, query string) []model.Security
}

type Repository interface {
	CreatePosition(ctx context.Context, p model.Position) (positionID int64, err error)
	GetPosition(ctx context.Context, positionID int64) (model.Position, error)
	ListOpenPositions(ctx context.Context) ([]model.Position, error)
	UpdatePosition(ctx context.Context, p model.Position) error
	DeletePosition(ctx context.Context, positionID int64) error
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) (map[string]string, error)
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type Scanner interface {
	EvaluateAll(ctx context.Context, positions []model.Position, settings model.ScanSettings) ([]portfolioScanner.Result, error)
	Scan(ctx context.Context, positions []model.Position, settings model.ScanSettings) ([]model.AlertEvent, error)
}

// Notifier delivers one alert. Title and body come from the event.
type Notifier interface {
	Notify(ctx context.Context, event model.AlertEvent) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, analysis model.PortfolioAnalysis) (fileBytes []byte, fileExtension string, err error)
}

type BackupStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PriceAlertService struct {
	repo      Repository
	quotes    QuoteSource
	directory SecurityDirectory
	scanner   Scanner
	notifier  Notifier
	reports   ReportGenerator
	backup    BackupStorage
	now       func() time.Time
}

// New builds the service. backup may be nil when no backup target is configured.
func New(
	repo Repository,
	quotes QuoteSource,
	directory SecurityDirectory,
	scanner Scanner,
	notifier Notifier,
	reports ReportGenerator,
	backup BackupStorage,
) *PriceAlertService {
	return &PriceAlertService{
		repo:      repo,
		quotes:    quotes,
		directory: directory,
		scanner:   scanner,
		notifier:  notifier,
		reports:   reports,
		backup:    backup,
		now:       time.Now,
	}
}

func (s *PriceAlertService) ValidateCode(code string) bool {
	return s.quotes.Validate(code)
}

// GetQuote never fails for a well-formed code: the quote source falls back
// to synthetic data on its own.
func (s *PriceAlertService) GetQuote(ctx context.Context, code string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.GetQuote"

	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code))
	defer func() {
		slog.Debug("GetQuote finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", code))
	}()

	if !s.quotes.Validate(code) {
		return model.Quote{}, fmt.Errorf("%w: security code %q must be 6 digits", service.ErrInvalidInput, code)
	}

	return s.quotes.Fetch(ctx, code), nil
}

func (s *PriceAlertService) SearchSecurities(ctx context.Context, query string) ([]model.Security, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.SearchSecurities"

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty search query", service.ErrInvalidInput)
	}

	slog.Debug("SearchSecurities start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))

	res := s.directory.Search(ctx, query)

	slog.Debug("SearchSecurities finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("found", len(res)))

	return res, nil
}
