package main

import (
	"os"

	"github.com/KotFed0t/price_alert_bot/cmd/price_alert_bot/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
