package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Position struct {
	PositionID int64           `db:"position_id"`
	Code       string          `db:"code"`
	Name       string          `db:"name"`
	BuyPrice   decimal.Decimal `db:"buy_price"`
	BuyTime    time.Time       `db:"buy_time"`
	Quantity   int             `db:"quantity"`
	Notes      string          `db:"notes"`
	DtCreate   time.Time       `db:"dt_create"`
}
