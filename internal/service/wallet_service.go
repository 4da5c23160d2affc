package service

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PeRDy/barrenero-api/internal/entity"
	"github.com/PeRDy/barrenero-api/internal/pkg/retry"
	"github.com/PeRDy/barrenero-api/internal/port"
	"github.com/PeRDy/barrenero-api/internal/upstream"
)

const ethPriceCacheKey = "ethusd"

// WalletService aggregates the wallet view: token balances with USD
// valuations plus one merged transaction history built from two independent
// providers. Any of the three inputs may degrade to absent without
// invalidating the others.
type WalletService struct {
	explorer   port.ExplorerClient
	ledger     port.LedgerClient
	account    string
	maxRetries int
	priceCache *cache.Cache
	logger     *zap.Logger
}

// NewWalletService creates a new WalletService. priceTTL bounds how long an
// ETH/USD quote is reused across requests.
func NewWalletService(
	explorer port.ExplorerClient,
	ledger port.LedgerClient,
	account string,
	maxRetries int,
	priceTTL time.Duration,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		explorer:   explorer,
		ledger:     ledger,
		account:    account,
		maxRetries: maxRetries,
		priceCache: cache.New(priceTTL, 10*time.Minute),
		logger:     logger.Named("WalletService"),
	}
}

// Wallet builds the aggregated wallet view for the account. Token info,
// native transfers and token operations are fetched concurrently under one
// session scope, each independently retried; the merge is deterministic
// given the same set of returned values regardless of completion order.
func (s *WalletService) Wallet(ctx context.Context, account string) *entity.Wallet {
	if account == "" {
		account = s.account
	}

	session := upstream.NewSession()
	defer session.Close()

	var (
		info      *entity.AddressInfo
		price     *entity.PriceQuote
		nativeTxs *[]entity.Transaction
		tokenOps  *[]entity.Transaction
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		info = retry.Retryable[entity.AddressInfo]{MaxAttempts: s.maxRetries, Logger: s.logger}.
			Do(egCtx, "ethplorer_address_info", func(ctx context.Context) retry.Result[entity.AddressInfo] {
				return s.ledger.AddressInfo(ctx, session, account)
			})
		return nil
	})
	eg.Go(func() error {
		price = s.ethPrice(egCtx, session)
		return nil
	})
	eg.Go(func() error {
		nativeTxs = retry.Retryable[[]entity.Transaction]{MaxAttempts: s.maxRetries, Logger: s.logger}.
			Do(egCtx, "etherscan_txlist", func(ctx context.Context) retry.Result[[]entity.Transaction] {
				return s.explorer.Transactions(ctx, session, account)
			})
		if nativeTxs == nil {
			// The explorer is exhausted; the ledger keeps the native
			// transfer history usable.
			nativeTxs = retry.Retryable[[]entity.Transaction]{MaxAttempts: s.maxRetries, Logger: s.logger}.
				Do(egCtx, "ethplorer_transactions", func(ctx context.Context) retry.Result[[]entity.Transaction] {
					return s.ledger.Transactions(ctx, session, account)
				})
		}
		return nil
	})
	eg.Go(func() error {
		tokenOps = retry.Retryable[[]entity.Transaction]{MaxAttempts: s.maxRetries, Logger: s.logger}.
			Do(egCtx, "ethplorer_token_operations", func(ctx context.Context) retry.Result[[]entity.Transaction] {
				return s.ledger.TokenOperations(ctx, session, account)
			})
		return nil
	})
	_ = eg.Wait()

	wallet := &entity.Wallet{
		Tokens:       s.buildTokens(info, price),
		Transactions: MergeTransactions(deref(nativeTxs), deref(tokenOps)),
	}

	s.logger.Debug("Aggregated wallet",
		zap.String("account", account),
		zap.Bool("tokens_present", wallet.Tokens != nil),
		zap.Int("transaction_count", len(wallet.Transactions)))
	return wallet
}

// ethPrice returns the ETH/USD quote, serving it from the TTL cache when a
// recent one exists.
func (s *WalletService) ethPrice(ctx context.Context, session *upstream.Session) *entity.PriceQuote {
	if cached, found := s.priceCache.Get(ethPriceCacheKey); found {
		if quote, ok := cached.(*entity.PriceQuote); ok {
			return quote
		}
	}

	quote := retry.Retryable[entity.PriceQuote]{MaxAttempts: s.maxRetries, Logger: s.logger}.
		Do(ctx, "etherscan_ethprice", func(ctx context.Context) retry.Result[entity.PriceQuote] {
			return s.explorer.EthPrice(ctx, session)
		})
	if quote != nil {
		s.priceCache.Set(ethPriceCacheKey, quote, cache.DefaultExpiration)
	}
	return quote
}

// buildTokens completes the ledger token map with the Ether pseudo-token.
// Without address info there is nothing to report; without a price the ETH
// entry carries a balance but no USD fields. Symbol collisions in the ledger
// data resolve last-write-wins, an accepted limitation.
func (s *WalletService) buildTokens(info *entity.AddressInfo, price *entity.PriceQuote) map[string]entity.TokenBalance {
	if info == nil {
		return nil
	}

	tokens := make(map[string]entity.TokenBalance, len(info.Tokens)+1)
	for symbol, balance := range info.Tokens {
		tokens[symbol] = balance
	}

	eth := entity.TokenBalance{
		Name:    "Ether",
		Symbol:  "ETH",
		Balance: info.ETHBalance,
	}
	if price != nil {
		rate := price.Rate
		usd := info.ETHBalance * rate
		eth.PriceUSD = &rate
		eth.BalanceUSD = &usd
	}
	tokens["ETH"] = eth

	return tokens
}

// MergeTransactions merges the native transfer list and the token operation
// list into one sequence ordered by timestamp descending. The merge key is
// domain data, never arrival order; on equal timestamps native transfers
// precede token operations.
func MergeTransactions(native, operations []entity.Transaction) []entity.Transaction {
	merged := make([]entity.Transaction, 0, len(native)+len(operations))
	merged = append(merged, native...)
	merged = append(merged, operations...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})
	return merged
}

func deref(txs *[]entity.Transaction) []entity.Transaction {
	if txs == nil {
		return nil
	}
	return *txs
}
