package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/price_alert_bot/data/repository"
	"github.com/KotFed0t/price_alert_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/service"
	"github.com/KotFed0t/price_alert_bot/internal/service/priceAlertService"
	"github.com/KotFed0t/price_alert_bot/utils"
	tele "gopkg.in/telebot.v4"
)

const (
	internalErrMsg = "something went wrong..."
	notFoundMsg    = "not found"
	helpMsg        = `Commands:
/quote CODE - current quote
/validate CODE - check a security code
/search TEXT - find securities
/positions - list positions
/add CODE PRICE QTY [YYYY-MM-DD] [note] - record a purchase
/delete ID - remove a position
/targets ID - sell and buy targets
/scan - check all positions now
/analysis - portfolio overview
/settings - show settings
/set KEY VALUE - change a setting
/report - xlsx report
/stop - stop alerts`
)

type PriceAlertService interface {
	ValidateCode(code string) bool
	GetQuote(ctx context.Context, code string) (model.Quote, error)
	SearchSecurities(ctx context.Context, query string) ([]model.Security, error)
	CreatePosition(ctx context.Context, p model.Position) (model.Position, error)
	ListPositions(ctx context.Context) ([]model.Position, error)
	DeletePosition(ctx context.Context, positionID int64) error
	EvaluatePosition(ctx context.Context, positionID int64, settings model.ScanSettings) (model.Position, model.Evaluation, error)
	GetScanSettings(ctx context.Context) (model.ScanSettings, error)
	ScanPortfolio(ctx context.Context, settings model.ScanSettings) ([]model.AlertEvent, error)
	AnalyzePortfolio(ctx context.Context, settings model.ScanSettings) (model.PortfolioAnalysis, error)
	ListSettings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, key, value string) error
	GenerateReport(ctx context.Context) (fileBytes []byte, filename string, err error)
}

type Subscribers interface {
	Add(ctx context.Context, chatID int64) error
	Remove(ctx context.Context, chatID int64) error
}

type Controller struct {
	service     PriceAlertService
	subscribers Subscribers
}

func NewController(service PriceAlertService, subscribers Subscribers) *Controller {
	return &Controller{
		service:     service,
		subscribers: subscribers,
	}
}

// replyErr maps service errors to user facing text.
func replyErr(ctx context.Context, c tele.Context, op string, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, telebotConverter.ErrBadArgs):
		return c.Send("⚠️ " + err.Error())
	case errors.Is(err, service.ErrNotFound):
		return c.Send(notFoundMsg)
	case errors.Is(err, priceAlertService.ErrBackupDisabled):
		return c.Send("backup is not configured")
	}

	slog.Error("handler failed", slog.String("rqID", utils.GetRequestIDFromCtx(ctx)), slog.String("op", op), slog.String("err", err.Error()))
	return c.Send(internalErrMsg)
}

func (ctrl *Controller) Start(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	err := ctrl.subscribers.Add(ctx, c.Chat().ID)
	if err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		return replyErr(ctx, c, "Controller.Start", err)
	}

	return c.Send("Hello! You are subscribed to price alerts.\n\n" + helpMsg)
}

func (ctrl *Controller) Help(c tele.Context) error {
	return c.Send(helpMsg)
}

func (ctrl *Controller) Stop(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	err := ctrl.subscribers.Remove(ctx, c.Chat().ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return replyErr(ctx, c, "Controller.Stop", err)
	}

	return c.Send("Alerts stopped. Send /start to subscribe again.")
}

func (ctrl *Controller) Quote(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) != 1 {
		return c.Send("usage: /quote CODE")
	}

	quote, err := ctrl.service.GetQuote(ctx, args[0])
	if err != nil {
		return replyErr(ctx, c, "Controller.Quote", err)
	}

	return c.Send(telebotConverter.QuoteResponse(quote))
}

func (ctrl *Controller) Validate(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Send("usage: /validate CODE")
	}

	if ctrl.service.ValidateCode(args[0]) {
		return c.Send(fmt.Sprintf("✅ %s is a valid code", args[0]))
	}
	return c.Send(fmt.Sprintf("❌ %s is not a valid code", args[0]))
}

func (ctrl *Controller) Search(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	securities, err := ctrl.service.SearchSecurities(ctx, c.Message().Payload)
	if err != nil {
		return replyErr(ctx, c, "Controller.Search", err)
	}

	return c.Send(telebotConverter.SecuritiesResponse(securities))
}

func (ctrl *Controller) Positions(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	positions, err := ctrl.service.ListPositions(ctx)
	if err != nil {
		return replyErr(ctx, c, "Controller.Positions", err)
	}

	text, markup := telebotConverter.PositionsResponse(positions)
	return c.Send(text, markup)
}

func (ctrl *Controller) AddPosition(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	p, err := telebotConverter.PositionFromArgs(c.Args())
	if err != nil {
		return c.Send("usage: /add CODE PRICE QTY [YYYY-MM-DD] [note]")
	}

	created, err := ctrl.service.CreatePosition(ctx, p)
	if err != nil {
		return replyErr(ctx, c, "Controller.AddPosition", err)
	}

	return c.Send(fmt.Sprintf("✅ position #%d added: %s (%s) ¥%s x %d",
		created.ID, created.Name, created.Code, created.BuyPrice.StringFixed(2), created.Quantity))
}

func (ctrl *Controller) deletePosition(ctx context.Context, c tele.Context, rawID string) error {
	id, err := telebotConverter.ParseID(rawID)
	if err != nil {
		return replyErr(ctx, c, "Controller.DeletePosition", err)
	}

	if err = ctrl.service.DeletePosition(ctx, id); err != nil {
		return replyErr(ctx, c, "Controller.DeletePosition", err)
	}

	return c.Send(fmt.Sprintf("🗑 position #%d deleted", id))
}

func (ctrl *Controller) DeletePosition(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) != 1 {
		return c.Send("usage: /delete ID")
	}

	return ctrl.deletePosition(ctx, c, args[0])
}

func (ctrl *Controller) targets(ctx context.Context, c tele.Context, rawID string) error {
	id, err := telebotConverter.ParseID(rawID)
	if err != nil {
		return replyErr(ctx, c, "Controller.Targets", err)
	}

	settings, err := ctrl.service.GetScanSettings(ctx)
	if err != nil {
		return replyErr(ctx, c, "Controller.Targets", err)
	}

	p, ev, err := ctrl.service.EvaluatePosition(ctx, id, settings)
	if err != nil {
		return replyErr(ctx, c, "Controller.Targets", err)
	}

	return c.Send(telebotConverter.TargetsResponse(p, ev))
}

func (ctrl *Controller) Targets(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) != 1 {
		return c.Send("usage: /targets ID")
	}

	return ctrl.targets(ctx, c, args[0])
}

func (ctrl *Controller) TargetsCallback(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	_ = c.Respond()
	return ctrl.targets(ctx, c, c.Data())
}

func (ctrl *Controller) DeleteCallback(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	_ = c.Respond()
	return ctrl.deletePosition(ctx, c, c.Data())
}

func (ctrl *Controller) Scan(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	settings, err := ctrl.service.GetScanSettings(ctx)
	if err != nil {
		return replyErr(ctx, c, "Controller.Scan", err)
	}

	events, err := ctrl.service.ScanPortfolio(ctx, settings)
	if err != nil {
		return replyErr(ctx, c, "Controller.Scan", err)
	}

	return c.Send(telebotConverter.ScanResponse(events))
}

func (ctrl *Controller) Analysis(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	settings, err := ctrl.service.GetScanSettings(ctx)
	if err != nil {
		return replyErr(ctx, c, "Controller.Analysis", err)
	}

	analysis, err := ctrl.service.AnalyzePortfolio(ctx, settings)
	if err != nil {
		return replyErr(ctx, c, "Controller.Analysis", err)
	}

	return c.Send(telebotConverter.AnalysisResponse(analysis))
}

func (ctrl *Controller) Settings(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	settings, err := ctrl.service.ListSettings(ctx)
	if err != nil {
		return replyErr(ctx, c, "Controller.Settings", err)
	}

	return c.Send(telebotConverter.SettingsResponse(settings))
}

func (ctrl *Controller) SetSetting(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	args := c.Args()
	if len(args) != 2 {
		return c.Send("usage: /set KEY VALUE\nkeys: " + strings.Join(model.SettingKeys, ", "))
	}

	if err := ctrl.service.SetSetting(ctx, args[0], args[1]); err != nil {
		return replyErr(ctx, c, "Controller.SetSetting", err)
	}

	return c.Send(fmt.Sprintf("✅ %s = %s", args[0], args[1]))
}

func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)

	fileBytes, filename, err := ctrl.service.GenerateReport(ctx)
	if err != nil {
		return replyErr(ctx, c, "Controller.Report", err)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(fileBytes)),
		FileName: filename,
	}
	return c.Send(doc)
}
