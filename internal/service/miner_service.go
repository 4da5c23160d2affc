package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PeRDy/barrenero-api/internal/entity"
	"github.com/PeRDy/barrenero-api/internal/pkg/retry"
	"github.com/PeRDy/barrenero-api/internal/port"
	"github.com/PeRDy/barrenero-api/internal/telemetry"
	"github.com/PeRDy/barrenero-api/internal/upstream"
)

// MinerService aggregates local miner telemetry with the mining pool
// account. Every upstream call degrades to an absent field; the service
// never fails an aggregate because a source is down.
type MinerService struct {
	pool       port.PoolClient
	detector   *telemetry.Detector
	account    string
	workerName string
	maxRetries int
	logger     *zap.Logger
}

// NewMinerService creates a new MinerService.
func NewMinerService(
	pool port.PoolClient,
	detector *telemetry.Detector,
	account string,
	workerName string,
	maxRetries int,
	logger *zap.Logger,
) *MinerService {
	return &MinerService{
		pool:       pool,
		detector:   detector,
		account:    account,
		workerName: workerName,
		maxRetries: maxRetries,
		logger:     logger.Named("MinerService"),
	}
}

// EtherStatus builds the aggregated mining view for the account: local
// liveness and per-card hashrate, the pool account snapshot and the last
// payment, all fetched concurrently under one session scope. The overall
// active flag is the local verdict, further constrained by the configured
// worker's pool hashrate when pool data is present; pool unavailability
// alone never turns the verdict unknown.
func (s *MinerService) EtherStatus(ctx context.Context, account string) *entity.EtherStatus {
	if account == "" {
		account = s.account
	}

	session := upstream.NewSession()
	defer session.Close()

	var (
		verdict     telemetry.Verdict
		hashrate    []entity.DeviceHashrate
		poolAccount *entity.PoolAccount
		payment     *entity.Payment
	)

	// Fan-out: each branch writes only its own slot, merged after the
	// barrier.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		verdict = s.detector.Status()
		hashrate = s.detector.Hashrate()
		return nil
	})
	eg.Go(func() error {
		poolAccount = retry.Retryable[entity.PoolAccount]{MaxAttempts: s.maxRetries, Logger: s.logger}.
			Do(egCtx, "nanopool_account", func(ctx context.Context) retry.Result[entity.PoolAccount] {
				return s.pool.Account(ctx, session, account)
			})
		return nil
	})
	eg.Go(func() error {
		payment = retry.Retryable[entity.Payment]{MaxAttempts: s.maxRetries, Logger: s.logger}.
			Do(egCtx, "nanopool_payment", func(ctx context.Context) retry.Result[entity.Payment] {
				return s.pool.LastPayment(ctx, session, account)
			})
		return nil
	})
	_ = eg.Wait()

	status := &entity.EtherStatus{
		Active:   s.combineActive(verdict, poolAccount),
		Hashrate: hashrate,
		Nanopool: mergeNanopool(poolAccount, payment),
	}

	s.logger.Debug("Aggregated ether status",
		zap.String("account", account),
		zap.String("local_status", verdict.String()),
		zap.Bool("pool_account_present", poolAccount != nil),
		zap.Bool("payment_present", payment != nil))
	return status
}

// NanopoolInfo fetches the pool account and last payment concurrently,
// without touching local telemetry.
func (s *MinerService) NanopoolInfo(ctx context.Context, account string) *entity.NanopoolInfo {
	if account == "" {
		account = s.account
	}

	session := upstream.NewSession()
	defer session.Close()

	var (
		poolAccount *entity.PoolAccount
		payment     *entity.Payment
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		poolAccount = retry.Retryable[entity.PoolAccount]{MaxAttempts: s.maxRetries, Logger: s.logger}.
			Do(egCtx, "nanopool_account", func(ctx context.Context) retry.Result[entity.PoolAccount] {
				return s.pool.Account(ctx, session, account)
			})
		return nil
	})
	eg.Go(func() error {
		payment = retry.Retryable[entity.Payment]{MaxAttempts: s.maxRetries, Logger: s.logger}.
			Do(egCtx, "nanopool_payment", func(ctx context.Context) retry.Result[entity.Payment] {
				return s.pool.LastPayment(ctx, session, account)
			})
		return nil
	})
	_ = eg.Wait()

	info := mergeNanopool(poolAccount, payment)
	if info == nil {
		info = &entity.NanopoolInfo{}
	}
	return info
}

// LocalStatus reads the telemetry log only: tri-state liveness verdict plus
// per-card hashrate, no network involved.
func (s *MinerService) LocalStatus() *entity.MinerStatus {
	return &entity.MinerStatus{
		Status:   s.detector.Status().String(),
		Hashrate: s.detector.Hashrate(),
	}
}

// combineActive derives the overall active flag: the local verdict alone
// when pool data is absent, otherwise local liveness AND a positive pool
// hashrate for the configured worker. An unknown local verdict stays
// unknown.
func (s *MinerService) combineActive(verdict telemetry.Verdict, account *entity.PoolAccount) *bool {
	active := verdict.Bool()
	if active == nil || account == nil {
		return active
	}
	combined := *active && account.WorkerHashrate(s.workerName) > 0
	return &combined
}

// mergeNanopool merges the two independently fetched pool results. Either
// side may be absent; both absent yields no pool section at all.
func mergeNanopool(account *entity.PoolAccount, payment *entity.Payment) *entity.NanopoolInfo {
	if account == nil && payment == nil {
		return nil
	}

	info := &entity.NanopoolInfo{LastPayment: payment}
	if account != nil {
		info.Balance = &account.Balance
		info.Hashrate = &account.Hashrate
		info.Workers = account.Workers
	}
	return info
}
