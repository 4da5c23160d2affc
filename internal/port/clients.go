// Package port declares the collaborator interfaces the aggregation services
// depend on, so upstream fetchers stay swappable in tests.
package port

import (
	"context"

	"github.com/PeRDy/barrenero-api/internal/entity"
	"github.com/PeRDy/barrenero-api/internal/pkg/retry"
	"github.com/PeRDy/barrenero-api/internal/upstream"
)

// PoolClient fetches mining pool account data.
type PoolClient interface {
	Account(ctx context.Context, session *upstream.Session, account string) retry.Result[entity.PoolAccount]
	LastPayment(ctx context.Context, session *upstream.Session, account string) retry.Result[entity.Payment]
}

// ExplorerClient fetches chain explorer data.
type ExplorerClient interface {
	EthPrice(ctx context.Context, session *upstream.Session) retry.Result[entity.PriceQuote]
	Transactions(ctx context.Context, session *upstream.Session, account string) retry.Result[[]entity.Transaction]
}

// LedgerClient fetches token ledger data.
type LedgerClient interface {
	AddressInfo(ctx context.Context, session *upstream.Session, account string) retry.Result[entity.AddressInfo]
	TokenOperations(ctx context.Context, session *upstream.Session, account string) retry.Result[[]entity.Transaction]
	Transactions(ctx context.Context, session *upstream.Session, account string) retry.Result[[]entity.Transaction]
}
