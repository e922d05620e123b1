package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/price_alert_bot/internal/converter/dbConverter"
	"github.com/KotFed0t/price_alert_bot/internal/model/dbModel"
	"github.com/KotFed0t/price_alert_bot/utils"
)

// GetSetting returns ok=false when key is not stored.
func (r *Postgres) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetSetting"
	query := `SELECT value FROM settings WHERE key = $1`

	slog.Debug("GetSetting start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key))
	defer func() {
		if err != nil {
			slog.Error("GetSetting failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetSetting completed", slog.String("rqID", rqID), slog.String("op", op), slog.Bool("found", ok))
		}
	}()

	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	return value, true, nil
}

func (r *Postgres) SetSetting(ctx context.Context, key, value string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SetSetting"
	query := `
		INSERT INTO settings(key, value) VALUES($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
		`

	slog.Debug("SetSetting start", slog.String("rqID", rqID), slog.String("op", op), slog.String("key", key), slog.String("value", value))
	defer func() {
		if err != nil {
			slog.Error("SetSetting failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SetSetting completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, key, value)
	return err
}

func (r *Postgres) ListSettings(ctx context.Context) (settings map[string]string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListSettings"
	query := `SELECT key, value FROM settings ORDER BY key`

	slog.Debug("ListSettings start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("ListSettings failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListSettings completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var dbSettings []dbModel.Setting
	err = r.txOrDb(ctx).SelectContext(ctx, &dbSettings, query)
	if err != nil {
		return nil, err
	}

	return dbConverter.ConvertSettings(dbSettings), nil
}
