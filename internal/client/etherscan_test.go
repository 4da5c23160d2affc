package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PeRDy/barrenero-api/internal/pkg/retry"
)

func TestEtherscanClient_EthPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "stats", r.URL.Query().Get("module"))
		assert.Equal(t, "ethprice", r.URL.Query().Get("action"))
		fmt.Fprint(w, `{"status": "1", "result": {"ethbtc": "0.052", "ethusd": "3123.45"}}`)
	}))
	defer srv.Close()

	c := NewEtherscanClient(srv.URL, "token", time.Second, nil, zap.NewNop())
	res := c.EthPrice(context.Background(), newTestSession(t))

	require.Equal(t, retry.OutcomeOK, res.Outcome)
	require.NotNil(t, res.Value)
	assert.Equal(t, "ETH/USD", res.Value.Pair)
	assert.Equal(t, 3123.45, res.Value.Rate)
}

func TestEtherscanClient_EthPriceMalformedRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "1", "result": {"ethusd": "not a number"}}`)
	}))
	defer srv.Close()

	c := NewEtherscanClient(srv.URL, "token", time.Second, nil, zap.NewNop())
	res := c.EthPrice(context.Background(), newTestSession(t))

	assert.Equal(t, retry.OutcomeStructural, res.Outcome)
	assert.Nil(t, res.Value)
}

func TestEtherscanClient_Transactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "txlist", r.URL.Query().Get("action"))
		assert.Equal(t, testAccount, r.URL.Query().Get("address"))
		fmt.Fprint(w, `{
			"status": "1",
			"result": [
				{
					"hash": "0xaaa",
					"contractAddress": "",
					"from": "0xsource",
					"to": "`+testAccount+`",
					"value": "1500000000000000000",
					"timeStamp": "1756296000"
				}
			]
		}`)
	}))
	defer srv.Close()

	c := NewEtherscanClient(srv.URL, "token", time.Second, nil, zap.NewNop())
	res := c.Transactions(context.Background(), newTestSession(t), testAccount)

	require.Equal(t, retry.OutcomeOK, res.Outcome)
	require.NotNil(t, res.Value)
	txs := *res.Value
	require.Len(t, txs, 1)
	assert.Equal(t, "ETH", txs[0].Token.Symbol)
	assert.Equal(t, "0xaaa", txs[0].Hash)
	assert.Equal(t, 1.5, txs[0].Value)
	assert.Equal(t, time.Unix(1756296000, 0).UTC(), txs[0].Timestamp)
}

// An account with no transactions is a real answer, not a failure.
func TestEtherscanClient_TransactionsEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "0", "result": []}`)
	}))
	defer srv.Close()

	c := NewEtherscanClient(srv.URL, "token", time.Second, nil, zap.NewNop())
	res := c.Transactions(context.Background(), newTestSession(t), testAccount)

	require.Equal(t, retry.OutcomeOK, res.Outcome)
	require.NotNil(t, res.Value)
	assert.Empty(t, *res.Value)
}

func TestEtherscanClient_TransactionsMissingResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "0", "message": "NOTOK"}`)
	}))
	defer srv.Close()

	c := NewEtherscanClient(srv.URL, "token", time.Second, nil, zap.NewNop())
	res := c.Transactions(context.Background(), newTestSession(t), testAccount)

	assert.Equal(t, retry.OutcomeStructural, res.Outcome)
	assert.Nil(t, res.Value)
}
