package httpclient

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"starknet_portfolio/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultPricePathTemplate is the AVNU impulse price-line endpoint.
const DefaultPricePathTemplate = "/v1/tokens/%s/prices/line"

// pricePoint is one entry of the price line. Value is decoded loosely because
// the feed has been seen to send numbers, numeric strings and nulls.
type pricePoint struct {
	Date  string      `json:"date"`
	Value interface{} `json:"value"`
}

// AVNUClient reads USD price series from the AVNU impulse API.
type AVNUClient struct {
	client       *fasthttp.Client
	baseURL      string
	pathTemplate string
	timeout      time.Duration
	logger       *zap.Logger
}

// NewAVNUClient creates a price feed client. An empty pathTemplate selects
// DefaultPricePathTemplate.
func NewAVNUClient(baseURL, pathTemplate string, timeout time.Duration, logger *zap.Logger) *AVNUClient {
	if pathTemplate == "" {
		pathTemplate = DefaultPricePathTemplate
	}
	return &AVNUClient{
		client:       &fasthttp.Client{Name: "starknet-portfolio"},
		baseURL:      strings.TrimRight(baseURL, "/"),
		pathTemplate: pathTemplate,
		timeout:      timeout,
		logger:       logger.Named("AVNUClient"),
	}
}

// LatestPoint returns the last point of the asset's price line. Any transport
// failure, non-200 status, empty series or unusable value is reported as
// entity.ErrPriceUnavailable.
func (c *AVNUClient) LatestPoint(ctx context.Context, assetAddress string) (float64, time.Time, error) {
	requestURL := c.baseURL + fmt.Sprintf(c.pathTemplate, assetAddress)

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Warn("Price feed request failed", zap.String("url", requestURL), zap.Error(err))
		return 0, time.Time{}, fmt.Errorf("%w: request to %s: %v", entity.ErrPriceUnavailable, requestURL, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Warn("Price feed returned non-200",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", resp.Body()))
		return 0, time.Time{}, fmt.Errorf("%w: %s returned status %d", entity.ErrPriceUnavailable, requestURL, resp.StatusCode())
	}

	var points []pricePoint
	if err := json.Unmarshal(resp.Body(), &points); err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: decode %s: %v", entity.ErrPriceUnavailable, requestURL, err)
	}
	if len(points) == 0 {
		return 0, time.Time{}, fmt.Errorf("%w: empty price series for %s", entity.ErrPriceUnavailable, assetAddress)
	}

	last := points[len(points)-1]
	value, ok := numericValue(last.Value)
	if !ok {
		return 0, time.Time{}, fmt.Errorf("%w: latest point for %s has no numeric value", entity.ErrPriceUnavailable, assetAddress)
	}

	at, err := time.Parse(time.RFC3339, last.Date)
	if err != nil {
		at = time.Time{}
	}
	c.logger.Debug("Fetched price", zap.String("asset", assetAddress), zap.Float64("value", value))
	return value, at, nil
}

func numericValue(v interface{}) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
