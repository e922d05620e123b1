package priceAlertService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/price_alert_bot/data/repository"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/service"
	"github.com/KotFed0t/price_alert_bot/utils"
)

func (s *PriceAlertService) validatePosition(p model.Position) error {
	if !s.quotes.Validate(p.Code) {
		return fmt.Errorf("%w: security code %q must be 6 digits", service.ErrInvalidInput, p.Code)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: empty security name", service.ErrInvalidInput)
	}
	if !p.BuyPrice.IsPositive() {
		return fmt.Errorf("%w: buy price must be positive", service.ErrInvalidInput)
	}
	if p.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", service.ErrInvalidInput)
	}
	return nil
}

// CreatePosition stores a purchase. An empty name is taken from the current
// quote and a zero buy time means now.
func (s *PriceAlertService) CreatePosition(ctx context.Context, p model.Position) (model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.CreatePosition"

	slog.Debug("CreatePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", p.Code))
	defer func() {
		slog.Debug("CreatePosition finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("code", p.Code))
	}()

	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" && s.quotes.Validate(p.Code) {
		p.Name = s.quotes.Fetch(ctx, p.Code).Name
	}
	if p.BuyTime.IsZero() {
		p.BuyTime = s.now()
	}

	if err := s.validatePosition(p); err != nil {
		return model.Position{}, err
	}

	id, err := s.repo.CreatePosition(ctx, p)
	if err != nil {
		slog.Error("got error from repo.CreatePosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	p.ID = id

	return p, nil
}

func (s *PriceAlertService) GetPosition(ctx context.Context, positionID int64) (model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.GetPosition"

	p, err := s.repo.GetPosition(ctx, positionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, fmt.Errorf("%w: position %d", service.ErrNotFound, positionID)
		}
		slog.Error("got error from repo.GetPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	return p, nil
}

func (s *PriceAlertService) ListPositions(ctx context.Context) ([]model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.ListPositions"

	positions, err := s.repo.ListOpenPositions(ctx)
	if err != nil {
		slog.Error("got error from repo.ListOpenPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return positions, nil
}

func (s *PriceAlertService) UpdatePosition(ctx context.Context, p model.Position) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.UpdatePosition"

	slog.Debug("UpdatePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", p.ID))
	defer func() {
		slog.Debug("UpdatePosition finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", p.ID))
	}()

	p.Name = strings.TrimSpace(p.Name)
	if err := s.validatePosition(p); err != nil {
		return err
	}
	if p.BuyTime.IsZero() {
		return fmt.Errorf("%w: buy time is required", service.ErrInvalidInput)
	}

	err := s.repo.UpdatePosition(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: position %d", service.ErrNotFound, p.ID)
		}
		slog.Error("got error from repo.UpdatePosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PriceAlertService) DeletePosition(ctx context.Context, positionID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceAlertService.DeletePosition"

	err := s.repo.DeletePosition(ctx, positionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: position %d", service.ErrNotFound, positionID)
		}
		slog.Error("got error from repo.DeletePosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("position deleted", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("positionID", positionID))

	return nil
}
