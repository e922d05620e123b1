package model

const (
	SettingBuyStep             = "buy_step_percentage"
	SettingAnnualReturnRate    = "annual_return_rate"
	SettingNotificationEnabled = "notification_enabled"
)

const (
	DefaultBuyStep          = 0.05
	DefaultAnnualReturnRate = 0.20
)

func DefaultScanSettings() ScanSettings {
	return ScanSettings{BuyStep: DefaultBuyStep, AnnualReturnRate: DefaultAnnualReturnRate}
}

// SettingKeys lists the keys accepted by the settings store.
var SettingKeys = []string{SettingBuyStep, SettingAnnualReturnRate, SettingNotificationEnabled}
