package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/PeRDy/barrenero-api/internal/entity"
	"github.com/PeRDy/barrenero-api/internal/pkg/retry"
	"github.com/PeRDy/barrenero-api/internal/upstream"
	"github.com/PeRDy/barrenero-api/pkg/metrics"
)

const etherscanSource = "etherscan"

// etherDecimals is the decimal exponent of wei-denominated values.
const etherDecimals = 18

// EtherscanClient queries the chain explorer API for the ETH/USD price and
// the native-currency transaction list of an account.
type EtherscanClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEtherscanClient creates a new EtherscanClient.
func NewEtherscanClient(baseURL, apiKey string, timeout time.Duration, limiter *rate.Limiter, logger *zap.Logger) *EtherscanClient {
	return &EtherscanClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		limiter: limiter,
		logger:  logger.Named("EtherscanClient"),
	}
}

type etherscanPriceResponse struct {
	Result *struct {
		EthUSD string `json:"ethusd"`
	} `json:"result"`
}

// EthPrice fetches the current ETH/USD rate.
func (c *EtherscanClient) EthPrice(ctx context.Context, session *upstream.Session) retry.Result[entity.PriceQuote] {
	url := fmt.Sprintf("%s?module=stats&action=ethprice&apikey=%s", c.baseURL, c.apiKey)

	body, res := doGet[entity.PriceQuote](ctx, c.logger, session, c.limiter, c.timeout, etherscanSource, url)
	if body == nil {
		return res
	}

	var parsed etherscanPriceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return structural[entity.PriceQuote](c.logger, etherscanSource, url, fmt.Errorf("unmarshal price response: %w", err))
	}
	if parsed.Result == nil || parsed.Result.EthUSD == "" {
		return structural[entity.PriceQuote](c.logger, etherscanSource, url, fmt.Errorf("price response has no ethusd field"))
	}

	ethUSD, err := strconv.ParseFloat(parsed.Result.EthUSD, 64)
	if err != nil {
		return structural[entity.PriceQuote](c.logger, etherscanSource, url, fmt.Errorf("parse ethusd %q: %w", parsed.Result.EthUSD, err))
	}

	quote := entity.PriceQuote{Pair: "ETH/USD", Rate: ethUSD}
	metrics.ObserveUpstream(etherscanSource, retry.OutcomeOK.String())
	return retry.OK(&quote)
}

type etherscanTxListResponse struct {
	Result []struct {
		Hash            string `json:"hash"`
		ContractAddress string `json:"contractAddress"`
		From            string `json:"from"`
		To              string `json:"to"`
		Value           string `json:"value"`
		TimeStamp       string `json:"timeStamp"`
	} `json:"result"`
}

// Transactions fetches the native-currency transfers of the account, newest
// first, normalized to the common Transaction shape with values scaled from
// wei to ether. An empty list is a valid result: the account simply has no
// transactions.
func (c *EtherscanClient) Transactions(ctx context.Context, session *upstream.Session, account string) retry.Result[[]entity.Transaction] {
	url := fmt.Sprintf("%s?module=account&action=txlist&address=%s&sort=desc&apikey=%s", c.baseURL, account, c.apiKey)

	body, res := doGet[[]entity.Transaction](ctx, c.logger, session, c.limiter, c.timeout, etherscanSource, url)
	if body == nil {
		return res
	}

	var parsed etherscanTxListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return structural[[]entity.Transaction](c.logger, etherscanSource, url, fmt.Errorf("unmarshal txlist response: %w", err))
	}
	if parsed.Result == nil {
		return structural[[]entity.Transaction](c.logger, etherscanSource, url, fmt.Errorf("txlist response has no result field"))
	}

	transactions := make([]entity.Transaction, 0, len(parsed.Result))
	for _, t := range parsed.Result {
		wei, err := decimal.NewFromString(t.Value)
		if err != nil {
			return structural[[]entity.Transaction](c.logger, etherscanSource, url, fmt.Errorf("parse transaction value %q: %w", t.Value, err))
		}
		ts, err := strconv.ParseInt(t.TimeStamp, 10, 64)
		if err != nil {
			return structural[[]entity.Transaction](c.logger, etherscanSource, url, fmt.Errorf("parse transaction timestamp %q: %w", t.TimeStamp, err))
		}

		transactions = append(transactions, entity.Transaction{
			Token:           entity.TokenRef{Name: "Ether", Symbol: "ETH"},
			Hash:            t.Hash,
			ContractAddress: t.ContractAddress,
			Source:          t.From,
			Destination:     t.To,
			Value:           wei.Shift(-etherDecimals).InexactFloat64(),
			Timestamp:       time.Unix(ts, 0).UTC(),
		})
	}

	metrics.ObserveUpstream(etherscanSource, retry.OutcomeOK.String())
	return retry.OK(&transactions)
}
