package eastmoneyApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/price_alert_bot/config"
	"github.com/KotFed0t/price_alert_bot/internal/externalApi"
	"github.com/KotFed0t/price_alert_bot/internal/model"
	"github.com/KotFed0t/price_alert_bot/internal/model/eastmoneyModel"
	"github.com/KotFed0t/price_alert_bot/utils"
	"github.com/go-resty/resty/v2"
)

const (
	maxResults   = 10
	suggestType  = "14"
	securityType = "股票"
)

var fallbackSecurities = []model.Security{
	{Code: "000001", Name: "平安银行", Market: model.MarketShenzhen, Type: securityType},
	{Code: "000002", Name: "万科A", Market: model.MarketShenzhen, Type: securityType},
	{Code: "600000", Name: "浦发银行", Market: model.MarketShanghai, Type: securityType},
	{Code: "600036", Name: "招商银行", Market: model.MarketShanghai, Type: securityType},
	{Code: "000858", Name: "五粮液", Market: model.MarketShenzhen, Type: securityType},
	{Code: "600519", Name: "贵州茅台", Market: model.MarketShanghai, Type: securityType},
	{Code: "002415", Name: "海康威视", Market: model.MarketShenzhen, Type: securityType},
	{Code: "600276", Name: "恒瑞医药", Market: model.MarketShanghai, Type: securityType},
}

type EastmoneyApi struct {
	client *resty.Client
	token  string
}

func New(cfg *config.Config) *EastmoneyApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.EastmoneyApi.Url).
		SetHeader("User-Agent", cfg.API.SinaApi.UserAgent)
	return &EastmoneyApi{client: client, token: cfg.API.EastmoneyApi.Token}
}

// Search looks securities up by code or name. When the suggest endpoint fails
// or finds nothing, the built-in table is searched instead.
func (a *EastmoneyApi) Search(ctx context.Context, query string) []model.Security {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "EastmoneyApi.Search"

	res, err := a.suggest(ctx, query)
	if err != nil {
		slog.Warn("security search failed, using built-in table", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return SearchFallback(query)
	}

	if len(res) == 0 {
		return SearchFallback(query)
	}

	return res
}

func (a *EastmoneyApi) suggest(ctx context.Context, query string) ([]model.Security, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug("start EastmoneyApi.suggest request", slog.String("rqID", rqID))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(map[string]string{
			"input": query,
			"type":  suggestType,
			"token": a.token,
		}).
		Get("/api/suggest/get")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", externalApi.ErrNetworkFailure, err)
	}

	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: unexpected status %d", externalApi.ErrNetworkFailure, resp.StatusCode())
	}

	suggestResp := eastmoneyModel.SuggestResponse{}
	if err = json.Unmarshal(resp.Body(), &suggestResp); err != nil {
		return nil, fmt.Errorf("%w: %w", externalApi.ErrMalformedFeed, err)
	}

	items := suggestResp.QuotationCodeTable.Data
	res := make([]model.Security, 0, min(len(items), maxResults))
	for _, item := range items {
		if len(res) == maxResults {
			break
		}
		if item.Code == "" || item.Name == "" {
			continue
		}
		res = append(res, model.Security{
			Code:   item.Code,
			Name:   item.Name,
			Market: marketByNum(item.MktNum),
			Type:   item.SecurityTypeName,
		})
	}

	slog.Debug("EastmoneyApi.suggest request complete", slog.String("rqID", rqID), slog.Int("found", len(res)))

	return res, nil
}

func marketByNum(mktNum string) model.Market {
	switch mktNum {
	case "1":
		return model.MarketShanghai
	case "2":
		return model.MarketShenzhen
	default:
		return model.MarketOther
	}
}

// SearchFallback filters the built-in table by substring on code or name.
func SearchFallback(query string) []model.Security {
	res := make([]model.Security, 0)
	for _, s := range fallbackSecurities {
		if len(res) == maxResults {
			break
		}
		if strings.Contains(s.Code, query) || strings.Contains(s.Name, query) {
			res = append(res, s)
		}
	}
	return res
}
