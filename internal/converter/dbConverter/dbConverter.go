package dbConverter

import (
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/model/dbModel"
)

func ConvertPosition(dbPosition dbModel.Position) model.Position {
	return model.Position{
		ID:        dbPosition.PositionID,
		Code:      dbPosition.Code,
		Name:      dbPosition.Name,
		BuyPrice:  dbPosition.BuyPrice,
		BuyTime:   dbPosition.BuyTime,
		Quantity:  dbPosition.Quantity,
		Notes:     dbPosition.Notes,
		CreatedAt: dbPosition.DtCreate,
	}
}

func ConvertSettings(dbSettings []dbModel.Setting) map[string]string {
	res := make(map[string]string, len(dbSettings))
	for _, s := range dbSettings {
		res[s.Key] = s.Value
	}
	return res
}
