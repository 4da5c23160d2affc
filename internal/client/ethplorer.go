package client

import (
	"context"
	"fmt"
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

const ethplorerSource = "ethplorer"

// EthplorerClient queries the token ledger API: address token balances,
// token-contract operations and native transfers.
type EthplorerClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEthplorerClient creates a new EthplorerClient.
func NewEthplorerClient(baseURL, apiKey string, timeout time.Duration, limiter *rate.Limiter, logger *zap.Logger) *EthplorerClient {
	return &EthplorerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		limiter: limiter,
		logger:  logger.Named("EthplorerClient"),
	}
}

// tokenPrice is the ledger's price field: an object when a price is known,
// the literal false when it is not.
type tokenPrice struct {
	Known bool
	Rate  float64
}

func (p *tokenPrice) UnmarshalJSON(b []byte) error {
	var parsed struct {
		Rate float64 `json:"rate"`
	}
	if err := json.Unmarshal(b, &parsed); err != nil {
		// The literal false: no price known.
		return nil
	}
	p.Known = true
	p.Rate = parsed.Rate
	return nil
}

// tokenInfo is the ledger's token descriptor. Decimals arrives as either a
// number or a string, which decimal.Decimal accepts both of.
type tokenInfo struct {
	Name     string           `json:"name"`
	Symbol   string           `json:"symbol"`
	Decimals *decimal.Decimal `json:"decimals"`
	Price    tokenPrice       `json:"price"`
}

// decimalsExponent returns the declared decimal exponent. A missing exponent
// is an error, never a default of zero: scaling an integer base-unit balance
// without it would fabricate a wrong balance.
func (t tokenInfo) decimalsExponent() (int32, error) {
	if t.Decimals == nil {
		return 0, fmt.Errorf("token %q has no decimals field", t.Symbol)
	}
	return int32(t.Decimals.IntPart()), nil
}

type addressInfoResponse struct {
	ETH *struct {
		Balance float64 `json:"balance"`
	} `json:"ETH"`
	Tokens []struct {
		TokenInfo tokenInfo       `json:"tokenInfo"`
		Balance   decimal.Decimal `json:"balance"`
	} `json:"tokens"`
}

// AddressInfo fetches the ether balance and the token balances of the
// account. Token balances are stored upstream in integer base units and are
// scaled here by each token's declared decimal exponent; a token without the
// exponent is dropped with a diagnostic instead of poisoning the whole
// result. Symbol collisions resolve last-write-wins in response order, an
// accepted limitation.
func (c *EthplorerClient) AddressInfo(ctx context.Context, session *upstream.Session, account string) retry.Result[entity.AddressInfo] {
	url := fmt.Sprintf("%s/getAddressInfo/%s?apiKey=%s", c.baseURL, account, c.apiKey)

	body, res := doGet[entity.AddressInfo](ctx, c.logger, session, c.limiter, c.timeout, ethplorerSource, url)
	if body == nil {
		return res
	}

	var parsed addressInfoResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return structural[entity.AddressInfo](c.logger, ethplorerSource, url, fmt.Errorf("unmarshal address info: %w", err))
	}
	if parsed.ETH == nil {
		return structural[entity.AddressInfo](c.logger, ethplorerSource, url, fmt.Errorf("address info has no ETH field"))
	}

	info := entity.AddressInfo{
		ETHBalance: parsed.ETH.Balance,
		Tokens:     make(map[string]entity.TokenBalance, len(parsed.Tokens)),
	}
	for _, t := range parsed.Tokens {
		exponent, err := t.TokenInfo.decimalsExponent()
		if err != nil {
			c.logger.Warn("Dropping token with undeclared decimals",
				zap.String("account", account),
				zap.String("symbol", t.TokenInfo.Symbol),
				zap.Error(err))
			continue
		}

		balance := entity.TokenBalance{
			Name:    t.TokenInfo.Name,
			Symbol:  t.TokenInfo.Symbol,
			Balance: t.Balance.Shift(-exponent).InexactFloat64(),
		}
		if t.TokenInfo.Price.Known {
			price := t.TokenInfo.Price.Rate
			usd := balance.Balance * price
			balance.PriceUSD = &price
			balance.BalanceUSD = &usd
		}
		info.Tokens[balance.Symbol] = balance
	}

	metrics.ObserveUpstream(ethplorerSource, retry.OutcomeOK.String())
	return retry.OK(&info)
}

type addressHistoryResponse struct {
	Operations []struct {
		Timestamp       int64           `json:"timestamp"`
		TransactionHash string          `json:"transactionHash"`
		From            string          `json:"from"`
		To              string          `json:"to"`
		Value           decimal.Decimal `json:"value"`
		TokenInfo       tokenInfo       `json:"tokenInfo"`
	} `json:"operations"`
}

// TokenOperations fetches the token-contract operations of the account,
// normalized to the common Transaction shape with values scaled by each
// token's decimal exponent.
func (c *EthplorerClient) TokenOperations(ctx context.Context, session *upstream.Session, account string) retry.Result[[]entity.Transaction] {
	url := fmt.Sprintf("%s/getAddressHistory/%s?apiKey=%s", c.baseURL, account, c.apiKey)

	body, res := doGet[[]entity.Transaction](ctx, c.logger, session, c.limiter, c.timeout, ethplorerSource, url)
	if body == nil {
		return res
	}

	var parsed addressHistoryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return structural[[]entity.Transaction](c.logger, ethplorerSource, url, fmt.Errorf("unmarshal address history: %w", err))
	}
	if parsed.Operations == nil {
		return structural[[]entity.Transaction](c.logger, ethplorerSource, url, fmt.Errorf("address history has no operations field"))
	}

	transactions := make([]entity.Transaction, 0, len(parsed.Operations))
	for _, op := range parsed.Operations {
		exponent, err := op.TokenInfo.decimalsExponent()
		if err != nil {
			c.logger.Warn("Dropping operation with undeclared token decimals",
				zap.String("account", account),
				zap.String("hash", op.TransactionHash),
				zap.Error(err))
			continue
		}

		transactions = append(transactions, entity.Transaction{
			Token:       entity.TokenRef{Name: op.TokenInfo.Name, Symbol: op.TokenInfo.Symbol},
			Hash:        op.TransactionHash,
			Source:      op.From,
			Destination: op.To,
			Value:       op.Value.Shift(-exponent).InexactFloat64(),
			Timestamp:   time.Unix(op.Timestamp, 0).UTC(),
		})
	}

	metrics.ObserveUpstream(ethplorerSource, retry.OutcomeOK.String())
	return retry.OK(&transactions)
}

type addressTransactionsResponse []struct {
	Timestamp int64   `json:"timestamp"`
	Hash      string  `json:"hash"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Value     float64 `json:"value"`
}

// Transactions fetches the native transfers of the account as seen by the
// ledger. The wallet aggregator prefers the chain explorer for this list and
// uses the ledger as its fallback source.
func (c *EthplorerClient) Transactions(ctx context.Context, session *upstream.Session, account string) retry.Result[[]entity.Transaction] {
	url := fmt.Sprintf("%s/getAddressTransactions/%s?apiKey=%s", c.baseURL, account, c.apiKey)

	body, res := doGet[[]entity.Transaction](ctx, c.logger, session, c.limiter, c.timeout, ethplorerSource, url)
	if body == nil {
		return res
	}

	var parsed addressTransactionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return structural[[]entity.Transaction](c.logger, ethplorerSource, url, fmt.Errorf("unmarshal address transactions: %w", err))
	}

	transactions := make([]entity.Transaction, 0, len(parsed))
	for _, t := range parsed {
		transactions = append(transactions, entity.Transaction{
			Token:       entity.TokenRef{Name: "Ether", Symbol: "ETH"},
			Hash:        t.Hash,
			Source:      t.From,
			Destination: t.To,
			Value:       t.Value,
			Timestamp:   time.Unix(t.Timestamp, 0).UTC(),
		})
	}

	metrics.ObserveUpstream(ethplorerSource, retry.OutcomeOK.String())
	return retry.OK(&transactions)
}
