package tgbot

import (
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/config"
	"github.com/KotFed0t/price_alert_bot/internal/converter/telebotConverter"
	"github.com/KotFed0t/price_alert_bot/internal/transport/telegram"
	customMW "github.com/KotFed0t/price_alert_bot/internal/transport/telegram/middleware"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type TGBot struct {
	bot *tele.Bot
}

func New(cfg *config.Config) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
		OnError: func(err error, c tele.Context) {
			slog.Error("tgbot handler error", slog.String("err", err.Error()))
		},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b}
}

// Start registers the routes and begins polling. The bot is created before the
// controller because the alert notifier sends through it.
func (b *TGBot) Start(ctrl *telegram.Controller) {
	b.bot.Use(middleware.Recover(), customMW.Logger())

	b.setupRoutes(ctrl)

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

// Send lets the alert notifier push messages through the running bot.
func (b *TGBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	return b.bot.Send(to, what, opts...)
}

func (b *TGBot) setupRoutes(ctrl *telegram.Controller) {
	b.bot.Handle("/start", ctrl.Start)
	b.bot.Handle("/help", ctrl.Help)
	b.bot.Handle("/stop", ctrl.Stop)

	b.bot.Handle("/quote", ctrl.Quote)
	b.bot.Handle("/validate", ctrl.Validate)
	b.bot.Handle("/search", ctrl.Search)

	b.bot.Handle("/positions", ctrl.Positions)
	b.bot.Handle("/add", ctrl.AddPosition)
	b.bot.Handle("/delete", ctrl.DeletePosition)
	b.bot.Handle("/targets", ctrl.Targets)

	b.bot.Handle("/scan", ctrl.Scan)
	b.bot.Handle("/analysis", ctrl.Analysis)
	b.bot.Handle("/report", ctrl.Report)

	b.bot.Handle("/settings", ctrl.Settings)
	b.bot.Handle("/set", ctrl.SetSetting)

	b.bot.Handle(&tele.Btn{Unique: telebotConverter.CallbackTargets}, ctrl.TargetsCallback)
	b.bot.Handle(&tele.Btn{Unique: telebotConverter.CallbackDelete}, ctrl.DeleteCallback)

	b.bot.Handle(tele.OnText, ctrl.Help)
}
