package sinaApi

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KotFed0t/price_alert_bot/internal/externalApi"
	"github.com/KotFed0t/price_alert_bot/internal/model"
)

const (
	priceFieldsMin = 4
	quoteFieldsMin = 10
)

// field positions inside the quoted payload
const (
	fieldName = iota
	fieldOpen
	fieldPrevClose
	fieldPrice
	fieldHigh
	fieldLow
	fieldBid
	fieldAsk
	fieldVolume
	fieldTurnover
)

// VenueCode prepends the routing prefix expected by the feed:
// 6xxxxx goes to Shanghai, 0xxxxx and 3xxxxx to Shenzhen, anything else to Shanghai.
func VenueCode(code string) string {
	switch {
	case strings.HasPrefix(code, "6"):
		return "sh" + code
	case strings.HasPrefix(code, "0"), strings.HasPrefix(code, "3"):
		return "sz" + code
	default:
		return "sh" + code
	}
}

func splitPayload(raw string, minFields int) ([]string, error) {
	start := strings.IndexByte(raw, '"')
	end := strings.LastIndexByte(raw, '"')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no quoted payload", externalApi.ErrMalformedFeed)
	}

	fields := strings.Split(raw[start+1:end], ",")
	if len(fields) < minFields {
		return nil, fmt.Errorf("%w: got %d fields, want at least %d", externalApi.ErrMalformedFeed, len(fields), minFields)
	}

	return fields, nil
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// DecodePrice extracts only the current price. Unlike DecodeQuote an
// unparseable price field is an error here.
func DecodePrice(raw string) (float64, error) {
	fields, err := splitPayload(raw, priceFieldsMin)
	if err != nil {
		return 0, err
	}

	price, err := strconv.ParseFloat(fields[fieldPrice], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad price %q", externalApi.ErrMalformedFeed, fields[fieldPrice])
	}

	if !(price > 0) || math.IsInf(price, 0) || fields[fieldName] == "" {
		return 0, externalApi.ErrEmptyQuote
	}

	return price, nil
}

// DecodeQuote parses one feed line into a quote for code observed at ts.
func DecodeQuote(code, raw string, ts time.Time) (model.Quote, error) {
	fields, err := splitPayload(raw, quoteFieldsMin)
	if err != nil {
		return model.Quote{}, err
	}

	q := model.Quote{
		Code:      code,
		Name:      fields[fieldName],
		Open:      parseFloatOrZero(fields[fieldOpen]),
		PrevClose: parseFloatOrZero(fields[fieldPrevClose]),
		Price:     parseFloatOrZero(fields[fieldPrice]),
		High:      parseFloatOrZero(fields[fieldHigh]),
		Low:       parseFloatOrZero(fields[fieldLow]),
		Volume:    int64(parseFloatOrZero(fields[fieldVolume])),
		Turnover:  int64(parseFloatOrZero(fields[fieldTurnover])),
		Timestamp: ts,
	}

	if !(q.Price > 0) || math.IsInf(q.Price, 0) || q.Name == "" {
		return model.Quote{}, externalApi.ErrEmptyQuote
	}

	return q, nil
}

// EncodeQuote renders q in the feed's line format.
func EncodeQuote(q model.Quote) string {
	ff := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

	fields := []string{
		q.Name,
		ff(q.Open),
		ff(q.PrevClose),
		ff(q.Price),
		ff(q.High),
		ff(q.Low),
		ff(q.Price),
		ff(q.Price),
		strconv.FormatInt(q.Volume, 10),
		strconv.FormatInt(q.Turnover, 10) + ".000",
		q.Timestamp.Format(time.DateOnly),
		q.Timestamp.Format(time.TimeOnly),
	}

	return fmt.Sprintf("var hq_str_%s=\"%s\";\n", VenueCode(q.Code), strings.Join(fields, ","))
}
