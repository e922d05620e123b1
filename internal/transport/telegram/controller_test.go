package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/KotFed0t/price_alert_bot/data/repository"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context

	args      []string
	payload   string
	data      string
	sent      []any
	responded bool
	store     map[string]any
}

func newFakeContext(args ...string) *fakeContext {
	return &fakeContext{args: args, store: map[string]any{}}
}

func (f *fakeContext) Args() []string                          { return f.args }
func (f *fakeContext) Data() string                            { return f.data }
func (f *fakeContext) Text() string                            { return f.payload }
func (f *fakeContext) Chat() *tele.Chat                        { return &tele.Chat{ID: 100} }
func (f *fakeContext) Message() *tele.Message                  { return &tele.Message{Payload: f.payload} }
func (f *fakeContext) Get(key string) interface{}              { return f.store[key] }
func (f *fakeContext) Set(key string, val interface{})         { f.store[key] = val }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error { f.responded = true; return nil }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	text, ok := f.sent[len(f.sent)-1].(string)
	require.True(t, ok)
	return text
}

type fakeService struct {
	PriceAlertService

	quote      model.Quote
	quoteErr   error
	created    model.Position
	deletedID  int64
	deleteErr  error
	setErr     error
	evaluation model.Evaluation
	report     []byte
}

func (f *fakeService) ValidateCode(code string) bool { return code == "600519" }

func (f *fakeService) GetQuote(ctx context.Context, code string) (model.Quote, error) {
	return f.quote, f.quoteErr
}

func (f *fakeService) CreatePosition(ctx context.Context, p model.Position) (model.Position, error) {
	p.ID = 9
	p.Name = "Kweichow Moutai"
	f.created = p
	return p, nil
}

func (f *fakeService) DeletePosition(ctx context.Context, positionID int64) error {
	f.deletedID = positionID
	return f.deleteErr
}

func (f *fakeService) GetScanSettings(ctx context.Context) (model.ScanSettings, error) {
	return model.DefaultScanSettings(), nil
}

func (f *fakeService) EvaluatePosition(ctx context.Context, positionID int64, settings model.ScanSettings) (model.Position, model.Evaluation, error) {
	return model.Position{ID: positionID, Code: "600519", Name: "Kweichow Moutai", BuyPrice: decimal.NewFromInt(10)}, f.evaluation, nil
}

func (f *fakeService) SetSetting(ctx context.Context, key, value string) error {
	return f.setErr
}

func (f *fakeService) GenerateReport(ctx context.Context) ([]byte, string, error) {
	return f.report, "positions_2024-01-01_00-00-00.xlsx", nil
}

type fakeSubscribers struct {
	added   []int64
	addErr  error
	removed []int64
}

func (f *fakeSubscribers) Add(ctx context.Context, chatID int64) error {
	f.added = append(f.added, chatID)
	return f.addErr
}

func (f *fakeSubscribers) Remove(ctx context.Context, chatID int64) error {
	f.removed = append(f.removed, chatID)
	return nil
}

func TestStart_Subscribes(t *testing.T) {
	subs := &fakeSubscribers{addErr: repository.ErrAlreadyExists}
	ctrl := NewController(&fakeService{}, subs)
	c := newFakeContext()

	require.NoError(t, ctrl.Start(c))

	assert.Equal(t, []int64{100}, subs.added)
	assert.Contains(t, c.lastText(t), "subscribed")
}

func TestStop_Unsubscribes(t *testing.T) {
	subs := &fakeSubscribers{}
	ctrl := NewController(&fakeService{}, subs)
	c := newFakeContext()

	require.NoError(t, ctrl.Stop(c))
	assert.Equal(t, []int64{100}, subs.removed)
}

func TestQuote(t *testing.T) {
	svc := &fakeService{quote: model.Quote{Code: "600519", Name: "Kweichow Moutai", Price: 11, PrevClose: 10}}
	ctrl := NewController(svc, &fakeSubscribers{})

	c := newFakeContext("600519")
	require.NoError(t, ctrl.Quote(c))
	assert.Contains(t, c.lastText(t), "¥11.00  +1.00 (+10.00%)")

	c = newFakeContext()
	require.NoError(t, ctrl.Quote(c))
	assert.Equal(t, "usage: /quote CODE", c.lastText(t))
}

func TestQuote_InvalidCode(t *testing.T) {
	svc := &fakeService{quoteErr: fmt.Errorf("%w: code must be 6 digits", service.ErrInvalidInput)}
	ctrl := NewController(svc, &fakeSubscribers{})
	c := newFakeContext("12")

	require.NoError(t, ctrl.Quote(c))
	assert.Contains(t, c.lastText(t), "code must be 6 digits")
}

func TestValidate(t *testing.T) {
	ctrl := NewController(&fakeService{}, &fakeSubscribers{})

	c := newFakeContext("600519")
	require.NoError(t, ctrl.Validate(c))
	assert.Contains(t, c.lastText(t), "✅")

	c = newFakeContext("60051")
	require.NoError(t, ctrl.Validate(c))
	assert.Contains(t, c.lastText(t), "❌")
}

func TestAddPosition(t *testing.T) {
	svc := &fakeService{}
	ctrl := NewController(svc, &fakeSubscribers{})
	c := newFakeContext("600519", "1650.5", "100", "2024-03-01")

	require.NoError(t, ctrl.AddPosition(c))

	assert.Equal(t, 100, svc.created.Quantity)
	assert.Equal(t, "✅ position #9 added: Kweichow Moutai (600519) ¥1650.50 x 100", c.lastText(t))
}

func TestAddPosition_BadArgs(t *testing.T) {
	ctrl := NewController(&fakeService{}, &fakeSubscribers{})
	c := newFakeContext("600519")

	require.NoError(t, ctrl.AddPosition(c))
	assert.Contains(t, c.lastText(t), "usage: /add")
}

func TestDeleteCallback_NotFound(t *testing.T) {
	svc := &fakeService{deleteErr: service.ErrNotFound}
	ctrl := NewController(svc, &fakeSubscribers{})
	c := newFakeContext()
	c.data = "5"

	require.NoError(t, ctrl.DeleteCallback(c))

	assert.True(t, c.responded)
	assert.Equal(t, int64(5), svc.deletedID)
	assert.Equal(t, notFoundMsg, c.lastText(t))
}

func TestTargets(t *testing.T) {
	price := 11.3
	svc := &fakeService{evaluation: model.Evaluation{
		TargetThresholds: model.TargetThresholds{SellTarget: 10.17, BuyTarget: 9.5},
		CurrentPrice:     &price,
		Signal:           model.SignalSell,
	}}
	ctrl := NewController(svc, &fakeSubscribers{})
	c := newFakeContext("#3")

	require.NoError(t, ctrl.Targets(c))

	text := c.lastText(t)
	assert.Contains(t, text, "#3 Kweichow Moutai")
	assert.Contains(t, text, "signal: sell")
}

func TestSetSetting_Errors(t *testing.T) {
	svc := &fakeService{setErr: errors.New("db down")}
	ctrl := NewController(svc, &fakeSubscribers{})

	c := newFakeContext("buy_step_percentage", "0.1")
	require.NoError(t, ctrl.SetSetting(c))
	assert.Equal(t, internalErrMsg, c.lastText(t))

	c = newFakeContext("buy_step_percentage")
	require.NoError(t, ctrl.SetSetting(c))
	assert.Contains(t, c.lastText(t), "keys: buy_step_percentage")
}

func TestReport_SendsDocument(t *testing.T) {
	ctrl := NewController(&fakeService{report: []byte("xlsx")}, &fakeSubscribers{})
	c := newFakeContext()

	require.NoError(t, ctrl.Report(c))

	require.Len(t, c.sent, 1)
	doc, ok := c.sent[0].(*tele.Document)
	require.True(t, ok)
	assert.Equal(t, "positions_2024-01-01_00-00-00.xlsx", doc.FileName)
}
