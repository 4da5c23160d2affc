package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/PeRDy/barrenero-api/internal/entity"
	"github.com/PeRDy/barrenero-api/internal/pkg/retry"
	"github.com/PeRDy/barrenero-api/internal/telemetry"
	"github.com/PeRDy/barrenero-api/internal/upstream"
)

// fakePoolClient replays a scripted sequence of results per operation, one
// entry per attempt, and counts the attempts it served.
type fakePoolClient struct {
	accountResults []retry.Result[entity.PoolAccount]
	paymentResults []retry.Result[entity.Payment]
	accountCalls   int
	paymentCalls   int
}

func (f *fakePoolClient) Account(ctx context.Context, session *upstream.Session, account string) retry.Result[entity.PoolAccount] {
	f.accountCalls++
	if f.accountCalls > len(f.accountResults) {
		return retry.Transient[entity.PoolAccount](errors.New("script exhausted"))
	}
	return f.accountResults[f.accountCalls-1]
}

func (f *fakePoolClient) LastPayment(ctx context.Context, session *upstream.Session, account string) retry.Result[entity.Payment] {
	f.paymentCalls++
	if f.paymentCalls > len(f.paymentResults) {
		return retry.Transient[entity.Payment](errors.New("script exhausted"))
	}
	return f.paymentResults[f.paymentCalls-1]
}

func writeTelemetryLog(t *testing.T, timestamps []time.Time, reading float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "values.log")
	content := ""
	for _, ts := range timestamps {
		content += fmt.Sprintf(`{"timestamp":%q,"value":{"0":%g}}`, ts.UTC().Format(telemetry.TimestampLayout), reading) + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func freshDetector(t *testing.T) *telemetry.Detector {
	now := time.Now()
	path := writeTelemetryLog(t, []time.Time{
		now.Add(-90 * time.Second),
		now.Add(-60 * time.Second),
		now.Add(-30 * time.Second),
	}, 30.5)
	return telemetry.NewDetector(path, 10, 300*time.Second, zap.NewNop())
}

func missingDetector(t *testing.T) *telemetry.Detector {
	return telemetry.NewDetector(filepath.Join(t.TempDir(), "missing.log"), 10, 300*time.Second, zap.NewNop())
}

func poolAccountWithWorker(worker string, hashrate float64) retry.Result[entity.PoolAccount] {
	account := entity.PoolAccount{
		Balance:  entity.PoolBalance{Confirmed: 0.28},
		Hashrate: entity.PoolHashrate{Current: hashrate},
		Workers:  []entity.PoolWorker{{ID: worker, Hashrate: hashrate}},
	}
	return retry.OK(&account)
}

// TestMinerService_EtherStatusDegradedPool: the pool account endpoint is down
// for all three attempts while the payment endpoint recovers on its
// second attempt. The view is served with the account section absent, the
// payment present, and the active flag decided by local telemetry alone.
func TestMinerService_EtherStatusDegradedPool(t *testing.T) {
	payment := entity.Payment{Date: time.Now().UTC(), TxHash: "0xabc", Amount: 0.21, Confirmed: true}
	pool := &fakePoolClient{
		accountResults: []retry.Result[entity.PoolAccount]{
			retry.Transient[entity.PoolAccount](errors.New("timeout")),
			retry.Transient[entity.PoolAccount](errors.New("timeout")),
			retry.Transient[entity.PoolAccount](errors.New("timeout")),
		},
		paymentResults: []retry.Result[entity.Payment]{
			retry.Transient[entity.Payment](errors.New("timeout")),
			retry.OK(&payment),
		},
	}

	s := NewMinerService(pool, freshDetector(t), "0xdefault", "worker1", 3, zap.NewNop())
	status := s.EtherStatus(context.Background(), "")

	assert.Equal(t, 3, pool.accountCalls)
	assert.Equal(t, 2, pool.paymentCalls)

	require.NotNil(t, status.Active)
	assert.True(t, *status.Active)
	require.Len(t, status.Hashrate, 1)
	assert.InDelta(t, 30.5, status.Hashrate[0].Hashrate, 1e-9)

	require.NotNil(t, status.Nanopool)
	assert.Nil(t, status.Nanopool.Balance)
	assert.Nil(t, status.Nanopool.Hashrate)
	require.NotNil(t, status.Nanopool.LastPayment)
	assert.Equal(t, "0xabc", status.Nanopool.LastPayment.TxHash)
}

// TestMinerService_EtherStatusWorkerGate: local telemetry says active but the
// pool reports zero hashrate for the configured worker, so the combined flag
// is false.
func TestMinerService_EtherStatusWorkerGate(t *testing.T) {
	pool := &fakePoolClient{
		accountResults: []retry.Result[entity.PoolAccount]{poolAccountWithWorker("worker1", 0)},
		paymentResults: []retry.Result[entity.Payment]{retry.Structural[entity.Payment](errors.New("no payments"))},
	}

	s := NewMinerService(pool, freshDetector(t), "0xdefault", "worker1", 3, zap.NewNop())
	status := s.EtherStatus(context.Background(), "")

	require.NotNil(t, status.Active)
	assert.False(t, *status.Active)
	require.NotNil(t, status.Nanopool)
	require.NotNil(t, status.Nanopool.Balance)
	assert.Equal(t, 0.28, status.Nanopool.Balance.Confirmed)
}

// TestMinerService_EtherStatusActiveWorker: local liveness plus a mining
// worker on the pool side.
func TestMinerService_EtherStatusActiveWorker(t *testing.T) {
	pool := &fakePoolClient{
		accountResults: []retry.Result[entity.PoolAccount]{poolAccountWithWorker("worker1", 60.0)},
		paymentResults: []retry.Result[entity.Payment]{retry.Structural[entity.Payment](errors.New("no payments"))},
	}

	s := NewMinerService(pool, freshDetector(t), "0xdefault", "worker1", 3, zap.NewNop())
	status := s.EtherStatus(context.Background(), "")

	require.NotNil(t, status.Active)
	assert.True(t, *status.Active)
}

// TestMinerService_EtherStatusUnknownLocal: an unreadable telemetry log keeps
// the active flag unknown regardless of pool data.
func TestMinerService_EtherStatusUnknownLocal(t *testing.T) {
	pool := &fakePoolClient{
		accountResults: []retry.Result[entity.PoolAccount]{poolAccountWithWorker("worker1", 60.0)},
		paymentResults: []retry.Result[entity.Payment]{retry.Structural[entity.Payment](errors.New("no payments"))},
	}

	s := NewMinerService(pool, missingDetector(t), "0xdefault", "worker1", 3, zap.NewNop())
	status := s.EtherStatus(context.Background(), "")

	assert.Nil(t, status.Active)
	assert.Nil(t, status.Hashrate)
	require.NotNil(t, status.Nanopool)
}

// TestMinerService_NanopoolInfoAllDown: both pool endpoints exhausted still
// yields an empty section, not a failure.
func TestMinerService_NanopoolInfoAllDown(t *testing.T) {
	pool := &fakePoolClient{}

	s := NewMinerService(pool, freshDetector(t), "0xdefault", "worker1", 2, zap.NewNop())
	info := s.NanopoolInfo(context.Background(), "")

	require.NotNil(t, info)
	assert.Nil(t, info.Balance)
	assert.Nil(t, info.LastPayment)
	assert.Equal(t, 2, pool.accountCalls)
	assert.Equal(t, 2, pool.paymentCalls)
}

func TestMinerService_LocalStatus(t *testing.T) {
	s := NewMinerService(&fakePoolClient{}, freshDetector(t), "0xdefault", "worker1", 3, zap.NewNop())
	status := s.LocalStatus()

	assert.Equal(t, "active", status.Status)
	require.Len(t, status.Hashrate, 1)
}
