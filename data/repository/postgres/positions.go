package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/data/repository"
	"github.com/KotFed0t/price_alert_bot/internal/converter/dbConverter"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/model/dbModel"
	"github.com/KotFed0t/price_alert_bot/utils"
)

const positionColumns = `position_id, code, name, buy_price, buy_time, quantity, notes, dt_create`

func (r *Postgres) CreatePosition(ctx context.Context, p model.Position) (positionID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CreatePosition"
	query := `
		INSERT INTO positions(code, name, buy_price, buy_time, quantity, notes)
		VALUES($1, $2, $3, $4, $5, $6)
		RETURNING position_id
		`

	slog.Debug("CreatePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", p.Code))
	defer func() {
		if err != nil {
			slog.Error("CreatePosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreatePosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, p.Code, p.Name, p.BuyPrice, p.BuyTime, p.Quantity, p.Notes).Scan(&positionID)
	if err != nil {
		return 0, err
	}

	return positionID, nil
}

func (r *Postgres) GetPosition(ctx context.Context, positionID int64) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPosition"
	query := `SELECT ` + positionColumns + ` FROM positions WHERE position_id = $1`

	slog.Debug("GetPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("GetPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbPosition := dbModel.Position{}
	err = r.txOrDb(ctx).GetContext(ctx, &dbPosition, query, positionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Position{}, repository.ErrNotFound
		}
		return model.Position{}, err
	}

	return dbConverter.ConvertPosition(dbPosition), nil
}

// ListOpenPositions returns every tracked position, oldest purchase first.
func (r *Postgres) ListOpenPositions(ctx context.Context) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListOpenPositions"
	query := `SELECT ` + positionColumns + ` FROM positions ORDER BY buy_time, position_id`

	slog.Debug("ListOpenPositions start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("ListOpenPositions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListOpenPositions completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(positions)))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	positions = make([]model.Position, 0)
	for rows.Next() {
		var dbPosition dbModel.Position
		err = rows.StructScan(&dbPosition)
		if err != nil {
			return nil, err
		}
		positions = append(positions, dbConverter.ConvertPosition(dbPosition))
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}

func (r *Postgres) UpdatePosition(ctx context.Context, p model.Position) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdatePosition"
	query := `
		UPDATE positions
		SET code = $1, name = $2, buy_price = $3, buy_time = $4, quantity = $5, notes = $6
		WHERE position_id = $7
		`

	slog.Debug("UpdatePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", p.ID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("UpdatePosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdatePosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, p.Code, p.Name, p.BuyPrice, p.BuyTime, p.Quantity, p.Notes, p.ID)
	if err != nil {
		return err
	}

	return checkAffected(res)
}

func (r *Postgres) DeletePosition(ctx context.Context, positionID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeletePosition"
	query := `DELETE FROM positions WHERE position_id = $1`

	slog.Debug("DeletePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))
	defer func() {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			slog.Error("DeletePosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, positionID)
	if err != nil {
		return err
	}

	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
