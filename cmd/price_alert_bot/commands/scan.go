package commands

import (
	"encoding/json"

	"github.com/KotFed0t/price_alert_bot/data"
	"github.com/KotFed0t/price_alert_bot/data/repository/postgres"
	"github.com/KotFed0t/price_alert_bot/internal/externalApi/eastmoneyApi"
	"github.com/KotFed0t/price_alert_bot/internal/externalApi/sinaApi"
	"github.com/KotFed0t/price_alert_bot/internal/notifier"
	"github.com/KotFed0t/price_alert_bot/internal/portfolioScanner"
	"github.com/KotFed0t/price_alert_bot/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/price_alert_bot/internal/service/priceAlertService"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan all positions once and print the alerts as JSON",
	Long: `Evaluates every position against its targets and prints the alerts.
Nothing is sent to the alert sinks. Flags override the stored settings.

Example:
  price_alert_bot scan --buy-step 0.08`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanBuyStep    float64
	scanAnnualRate float64
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().Float64Var(&scanBuyStep, "buy-step", 0, "buy step fraction, e.g. 0.05")
	scanCmd.Flags().Float64Var(&scanAnnualRate, "annual-rate", 0, "annual return rate fraction, e.g. 0.2")
}

// scanOverrides returns only the flags that were set explicitly.
func scanOverrides(cmd *cobra.Command) (buyStep, annualRate *float64) {
	if cmd.Flags().Changed("buy-step") {
		v := scanBuyStep
		buyStep = &v
	}
	if cmd.Flags().Changed("annual-rate") {
		v := scanAnnualRate
		annualRate = &v
	}
	return buyStep, annualRate
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx := utils.WithRequestID(cmd.Context(), "")

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	sinaApiClient := sinaApi.New(cfg, sinaApi.NewSyntheticQuoteGenerator(), nil)

	priceAlertSrv := priceAlertService.New(
		postgres.NewPostgres(pgClient),
		sinaApiClient,
		eastmoneyApi.New(cfg),
		portfolioScanner.New(sinaApiClient, cfg.Scan.Concurrency),
		notifier.NewMulti(),
		xslsxGenerator.New(),
		nil,
	)

	buyStep, annualRate := scanOverrides(cmd)
	settings, err := priceAlertSrv.ResolveScanSettings(ctx, buyStep, annualRate)
	if err != nil {
		return err
	}

	events, err := priceAlertSrv.ScanPortfolio(ctx, settings)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"settings": settings, "alerts": events})
}
