package commands

import (
	"encoding/json"
	"fmt"

	"github.com/KotFed0t/price_alert_bot/internal/externalApi/sinaApi"
	"github.com/KotFed0t/price_alert_bot/internal/service"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/spf13/cobra"
)

var quoteCmd = &cobra.Command{
	Use:   "quote CODE",
	Short: "Print the current quote of a six digit security code",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	code := args[0]
	if !sinaApi.ValidCode(code) {
		return fmt.Errorf("%w: %q is not a six digit code", service.ErrInvalidInput, code)
	}

	cfg := loadConfig()
	ctx := utils.WithRequestID(cmd.Context(), "")

	quote := sinaApi.New(cfg, sinaApi.NewSyntheticQuoteGenerator(), nil).Fetch(ctx, code)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(quote)
}
