package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PeRDy/barrenero-api/internal/entity"
	"github.com/PeRDy/barrenero-api/internal/pkg/retry"
	"github.com/PeRDy/barrenero-api/internal/upstream"
	"github.com/PeRDy/barrenero-api/pkg/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const nanopoolSource = "nanopool"

// NanopoolClient queries the Nanopool account API. Methods issue one HTTP
// call each inside the caller-supplied session scope and translate every
// fault into a failed retry.Result, never an error.
type NanopoolClient struct {
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewNanopoolClient creates a new NanopoolClient.
func NewNanopoolClient(baseURL string, timeout time.Duration, limiter *rate.Limiter, logger *zap.Logger) *NanopoolClient {
	return &NanopoolClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		limiter: limiter,
		logger:  logger.Named("NanopoolClient"),
	}
}

type nanopoolAccountResponse struct {
	Data *struct {
		Balance            float64 `json:"balance"`
		UnconfirmedBalance float64 `json:"unconfirmed_balance"`
		Hashrate           float64 `json:"hashrate"`
		AvgHashrate        struct {
			H1  float64 `json:"h1"`
			H3  float64 `json:"h3"`
			H6  float64 `json:"h6"`
			H12 float64 `json:"h12"`
			H24 float64 `json:"h24"`
		} `json:"avgHashrate"`
		Workers []struct {
			ID       string  `json:"id"`
			Hashrate float64 `json:"hashrate"`
		} `json:"workers"`
	} `json:"data"`
}

// Account fetches the pool account snapshot: balance, hashrate averages and
// per-worker hashrates.
func (c *NanopoolClient) Account(ctx context.Context, session *upstream.Session, account string) retry.Result[entity.PoolAccount] {
	url := fmt.Sprintf("%s/user/%s", c.baseURL, account)

	body, res := doGet[entity.PoolAccount](ctx, c.logger, session, c.limiter, c.timeout, nanopoolSource, url)
	if body == nil {
		return res
	}

	var parsed nanopoolAccountResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return structural[entity.PoolAccount](c.logger, nanopoolSource, url, fmt.Errorf("unmarshal account response: %w", err))
	}
	if parsed.Data == nil {
		return structural[entity.PoolAccount](c.logger, nanopoolSource, url, fmt.Errorf("account response has no data field"))
	}

	acct := entity.PoolAccount{
		Balance: entity.PoolBalance{
			Confirmed:   parsed.Data.Balance,
			Unconfirmed: parsed.Data.UnconfirmedBalance,
		},
		Hashrate: entity.PoolHashrate{
			Current:         parsed.Data.Hashrate,
			OneHour:         parsed.Data.AvgHashrate.H1,
			ThreeHours:      parsed.Data.AvgHashrate.H3,
			SixHours:        parsed.Data.AvgHashrate.H6,
			TwelveHours:     parsed.Data.AvgHashrate.H12,
			TwentyFourHours: parsed.Data.AvgHashrate.H24,
		},
	}
	for _, w := range parsed.Data.Workers {
		acct.Workers = append(acct.Workers, entity.PoolWorker{ID: w.ID, Hashrate: w.Hashrate})
	}

	metrics.ObserveUpstream(nanopoolSource, retry.OutcomeOK.String())
	return retry.OK(&acct)
}

type nanopoolPaymentsResponse struct {
	Data []struct {
		Date      int64   `json:"date"`
		TxHash    string  `json:"txHash"`
		Amount    float64 `json:"amount"`
		Confirmed bool    `json:"confirmed"`
	} `json:"data"`
}

// LastPayment fetches the most recent payment of the account. An empty
// payment list is a structural fault: the caller asked for the last payment
// and there is none to return.
func (c *NanopoolClient) LastPayment(ctx context.Context, session *upstream.Session, account string) retry.Result[entity.Payment] {
	url := fmt.Sprintf("%s/payments/%s", c.baseURL, account)

	body, res := doGet[entity.Payment](ctx, c.logger, session, c.limiter, c.timeout, nanopoolSource, url)
	if body == nil {
		return res
	}

	var parsed nanopoolPaymentsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return structural[entity.Payment](c.logger, nanopoolSource, url, fmt.Errorf("unmarshal payments response: %w", err))
	}
	if len(parsed.Data) == 0 {
		return structural[entity.Payment](c.logger, nanopoolSource, url, fmt.Errorf("payments response has no entries"))
	}

	last := parsed.Data[0]
	payment := entity.Payment{
		Date:      time.Unix(last.Date, 0).UTC(),
		TxHash:    last.TxHash,
		Amount:    last.Amount,
		Confirmed: last.Confirmed,
	}

	metrics.ObserveUpstream(nanopoolSource, retry.OutcomeOK.String())
	return retry.OK(&payment)
}
