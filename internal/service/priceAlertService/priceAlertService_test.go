package priceAlertService

import (
	"context"
	"testing"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/metrics"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/notifier"
	"github.com/KotFed0t/price_alert_bot/internal/portfolioScanner"
	"github.com/KotFed0t/price_alert_bot/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testDeps struct {
	repo      *mockRepo
	quotes    *mockQuotes
	directory *mockDirectory
	notifier  *mockNotifier
	reports   *mockReports
	backup    *mockBackup
}

func newTestService(t *testing.T) (*PriceAlertService, *testDeps) {
	t.Helper()

	d := &testDeps{
		repo:      newMockRepo(),
		quotes:    newMockQuotes(),
		directory: &mockDirectory{},
		notifier:  &mockNotifier{},
		reports:   &mockReports{},
		backup:    &mockBackup{},
	}

	s := New(d.repo, d.quotes, d.directory, portfolioScanner.New(d.quotes, 4), d.notifier, d.reports, d.backup)
	s.now = func() time.Time { return testNow }

	return s, d
}

func addPosition(d *testDeps, code string, price float64, qty int, buyTime time.Time) model.Position {
	p := model.Position{
		Code:     code,
		Name:     "name " + code,
		BuyPrice: decimal.NewFromFloat(price),
		BuyTime:  buyTime,
		Quantity: qty,
	}
	id, _ := d.repo.CreatePosition(context.Background(), p)
	p.ID = id
	return p
}

func TestGetQuote(t *testing.T) {
	s, d := newTestService(t)
	d.quotes.prices["600519"] = 1680

	q, err := s.GetQuote(context.Background(), "600519")
	require.NoError(t, err)
	assert.Equal(t, 1680.0, q.Price)

	_, err = s.GetQuote(context.Background(), "60051x")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestValidateCode(t *testing.T) {
	s, d := newTestService(t)

	assert.True(t, s.ValidateCode("000001"))
	assert.False(t, s.ValidateCode("0001"))
	assert.Equal(t, 0, d.quotes.calls)
}

func TestSearchSecurities(t *testing.T) {
	s, d := newTestService(t)

	res, err := s.SearchSecurities(context.Background(), "  茅台 ")
	require.NoError(t, err)
	assert.Len(t, res, 1)
	assert.Equal(t, []string{"茅台"}, d.directory.queries)

	_, err = s.SearchSecurities(context.Background(), "   ")
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestCreatePosition(t *testing.T) {
	s, d := newTestService(t)
	d.quotes.names["000001"] = "平安银行"

	p, err := s.CreatePosition(context.Background(), model.Position{
		Code:     "000001",
		BuyPrice: decimal.RequireFromString("12.5"),
		Quantity: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "平安银行", p.Name)
	assert.Equal(t, testNow, p.BuyTime)

	stored, err := s.GetPosition(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, stored)
}

func TestCreatePosition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		p    model.Position
	}{
		{"bad code", model.Position{Code: "12345", Name: "x", BuyPrice: decimal.NewFromInt(1), Quantity: 1}},
		{"zero price", model.Position{Code: "600000", Name: "x", BuyPrice: decimal.Zero, Quantity: 1}},
		{"negative price", model.Position{Code: "600000", Name: "x", BuyPrice: decimal.NewFromInt(-1), Quantity: 1}},
		{"zero quantity", model.Position{Code: "600000", Name: "x", BuyPrice: decimal.NewFromInt(1), Quantity: 0}},
		{"no name anywhere", model.Position{Code: "600000", BuyPrice: decimal.NewFromInt(1), Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, d := newTestService(t)

			_, err := s.CreatePosition(context.Background(), tt.p)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
			assert.Empty(t, d.repo.positions)
		})
	}
}

func TestPosition_NotFound(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.GetPosition(context.Background(), 404)
	assert.ErrorIs(t, err, service.ErrNotFound)

	err = s.DeletePosition(context.Background(), 404)
	assert.ErrorIs(t, err, service.ErrNotFound)

	err = s.UpdatePosition(context.Background(), model.Position{
		ID: 404, Code: "600000", Name: "x", BuyPrice: decimal.NewFromInt(1), BuyTime: testNow, Quantity: 1,
	})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdateAndDeletePosition(t *testing.T) {
	s, d := newTestService(t)
	p := addPosition(d, "600036", 35, 100, testNow)

	p.Quantity = 300
	require.NoError(t, s.UpdatePosition(context.Background(), p))
	assert.Equal(t, 300, d.repo.positions[p.ID].Quantity)

	require.NoError(t, s.DeletePosition(context.Background(), p.ID))
	assert.Empty(t, d.repo.positions)
}

func TestGetScanSettings(t *testing.T) {
	s, d := newTestService(t)

	settings, err := s.GetScanSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultScanSettings(), settings)

	d.repo.settings[model.SettingBuyStep] = "0.1"
	d.repo.settings[model.SettingAnnualReturnRate] = "not a number"

	settings, err = s.GetScanSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ScanSettings{BuyStep: 0.1, AnnualReturnRate: 0.2}, settings)

	d.repo.settings[model.SettingBuyStep] = "2"
	_, err = s.GetScanSettings(context.Background())
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestResolveScanSettings(t *testing.T) {
	s, d := newTestService(t)
	d.repo.settings[model.SettingAnnualReturnRate] = "0.3"

	step := 0.02
	settings, err := s.ResolveScanSettings(context.Background(), &step, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ScanSettings{BuyStep: 0.02, AnnualReturnRate: 0.3}, settings)

	rate := 11.0
	_, err = s.ResolveScanSettings(context.Background(), &step, &rate)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestSetSetting(t *testing.T) {
	s, d := newTestService(t)

	require.NoError(t, s.SetSetting(context.Background(), model.SettingBuyStep, "0.10"))
	assert.Equal(t, "0.1", d.repo.settings[model.SettingBuyStep])

	require.NoError(t, s.SetSetting(context.Background(), model.SettingNotificationEnabled, "FALSE"))
	assert.Equal(t, "false", d.repo.settings[model.SettingNotificationEnabled])

	assert.ErrorIs(t, s.SetSetting(context.Background(), model.SettingBuyStep, "1"), service.ErrInvalidInput)
	assert.ErrorIs(t, s.SetSetting(context.Background(), model.SettingAnnualReturnRate, "-0.1"), service.ErrInvalidInput)
	assert.ErrorIs(t, s.SetSetting(context.Background(), model.SettingAnnualReturnRate, "abc"), service.ErrInvalidInput)
	assert.ErrorIs(t, s.SetSetting(context.Background(), model.SettingNotificationEnabled, "maybe"), service.ErrInvalidInput)
	assert.ErrorIs(t, s.SetSetting(context.Background(), "theme", "dark"), service.ErrInvalidInput)
}

func TestGetSetting(t *testing.T) {
	s, d := newTestService(t)
	d.repo.settings[model.SettingAnnualReturnRate] = "0.2"

	v, err := s.GetSetting(context.Background(), model.SettingAnnualReturnRate)
	require.NoError(t, err)
	assert.Equal(t, "0.2", v)

	_, err = s.GetSetting(context.Background(), model.SettingBuyStep)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = s.GetSetting(context.Background(), "theme")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdateScanSettings(t *testing.T) {
	s, d := newTestService(t)

	require.NoError(t, s.UpdateScanSettings(context.Background(), model.ScanSettings{BuyStep: 0.08, AnnualReturnRate: 0.15}))
	assert.Equal(t, 1, d.repo.txCalls)
	assert.Equal(t, "0.08", d.repo.settings[model.SettingBuyStep])
	assert.Equal(t, "0.15", d.repo.settings[model.SettingAnnualReturnRate])

	err := s.UpdateScanSettings(context.Background(), model.ScanSettings{BuyStep: 1, AnnualReturnRate: 0.15})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Equal(t, 1, d.repo.txCalls)
}

func TestEvaluateTargets(t *testing.T) {
	s, d := newTestService(t)
	d.quotes.prices["600001"] = 12
	p := addPosition(d, "600001", 10, 100, testNow.AddDate(0, 0, -30))

	ev, err := s.EvaluateTargets(context.Background(), p, model.DefaultScanSettings())
	require.NoError(t, err)

	assert.Equal(t, int64(30), ev.DaysHeld)
	assert.InDelta(t, 10.1667, ev.SellTarget, 1e-4)
	assert.InDelta(t, 9.6583, ev.BuyTarget, 1e-4)
	require.NotNil(t, ev.CurrentPrice)
	assert.Equal(t, 12.0, *ev.CurrentPrice)
	assert.Equal(t, model.SignalSell, ev.Signal)
}

func TestEvaluateTargets_NoPrice(t *testing.T) {
	s, d := newTestService(t)
	p := addPosition(d, "600002", 10, 100, testNow)

	ev, err := s.EvaluateTargets(context.Background(), p, model.DefaultScanSettings())
	require.NoError(t, err)
	assert.Nil(t, ev.CurrentPrice)
	assert.Equal(t, model.SignalNone, ev.Signal)
}

func TestEvaluateTargets_InvalidInput(t *testing.T) {
	s, _ := newTestService(t)

	_, err := s.EvaluateTargets(context.Background(), model.Position{Code: "600001", BuyPrice: decimal.Zero, BuyTime: testNow}, model.DefaultScanSettings())
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = s.EvaluateTargets(context.Background(), model.Position{Code: "600001", BuyPrice: decimal.NewFromInt(10), BuyTime: testNow},
		model.ScanSettings{BuyStep: 1, AnnualReturnRate: 0.2})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestEvaluatePosition_NotFound(t *testing.T) {
	s, _ := newTestService(t)

	_, _, err := s.EvaluatePosition(context.Background(), 1, model.DefaultScanSettings())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestScanPortfolio(t *testing.T) {
	s, d := newTestService(t)
	d.quotes.prices["600001"] = 20
	d.quotes.prices["600002"] = 1
	d.quotes.prices["600003"] = 10
	bought := time.Now().AddDate(0, 0, -10)
	addPosition(d, "600001", 10, 100, bought)
	addPosition(d, "600002", 10, 100, bought)
	addPosition(d, "600003", 10, 100, bought)

	events, err := s.ScanPortfolio(context.Background(), model.DefaultScanSettings())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.SignalSell, events[0].Signal)
	assert.Equal(t, "600001", events[0].Position.Code)
	assert.InDelta(t, 10.1667, events[0].Target, 1e-4)
	assert.Equal(t, model.SignalBuy, events[1].Signal)
	assert.Equal(t, "600002", events[1].Position.Code)
	assert.InDelta(t, 9.6583, events[1].Target, 1e-4)
}

func TestCheckAndNotify(t *testing.T) {
	s, d := newTestService(t)
	d.quotes.prices["600001"] = 20
	d.quotes.prices["600002"] = 1
	bought := time.Now().AddDate(0, 0, -40)
	addPosition(d, "600001", 10, 100, bought)
	addPosition(d, "600002", 10, 100, bought)
	d.notifier.err = errBoom

	require.NoError(t, s.CheckAndNotify(context.Background()))

	require.Len(t, d.notifier.events, 2)
	assert.Equal(t, "🔔 Sell alert", d.notifier.events[0].Title())
	assert.Contains(t, d.notifier.events[0].Message, "name 600001(600001) reached sell target")
	assert.Equal(t, "🔔 Buy alert", d.notifier.events[1].Title())
}

type failingSink struct{}

func (failingSink) Name() string { return "failing" }

func (failingSink) Notify(context.Context, model.AlertEvent) error { return errBoom }

func notificationFailures(t *testing.T) float64 {
	t.Helper()

	ch := make(chan prometheus.Metric, 64)
	metrics.NotificationFailures.Collect(ch)
	close(ch)

	var total float64
	for m := range ch {
		var pb dto.Metric
		require.NoError(t, m.Write(&pb))
		total += pb.GetCounter().GetValue()
	}
	return total
}

func TestCheckAndNotify_CountsEachFailureOnce(t *testing.T) {
	d := &testDeps{
		repo:      newMockRepo(),
		quotes:    newMockQuotes(),
		directory: &mockDirectory{},
		reports:   &mockReports{},
		backup:    &mockBackup{},
	}
	s := New(d.repo, d.quotes, d.directory, portfolioScanner.New(d.quotes, 4), notifier.NewMulti(failingSink{}), d.reports, d.backup)
	s.now = func() time.Time { return testNow }

	d.quotes.prices["600001"] = 20
	d.quotes.prices["600002"] = 1
	bought := time.Now().AddDate(0, 0, -40)
	addPosition(d, "600001", 10, 100, bought)
	addPosition(d, "600002", 10, 100, bought)

	before := notificationFailures(t)
	require.NoError(t, s.CheckAndNotify(context.Background()))
	assert.Equal(t, 2.0, notificationFailures(t)-before)
}

func TestCheckAndNotify_Disabled(t *testing.T) {
	s, d := newTestService(t)
	d.quotes.prices["600001"] = 20
	addPosition(d, "600001", 10, 100, time.Now().AddDate(0, 0, -40))
	d.repo.settings[model.SettingNotificationEnabled] = "false"

	require.NoError(t, s.CheckAndNotify(context.Background()))

	assert.Empty(t, d.notifier.events)
	assert.Equal(t, 0, d.quotes.calls)
}

func TestCheckAndNotify_RepoError(t *testing.T) {
	s, d := newTestService(t)
	d.repo.err = errBoom

	assert.ErrorIs(t, s.CheckAndNotify(context.Background()), errBoom)
}
