package entity

import "time"

// PoolBalance holds the confirmed and unconfirmed account balance reported by
// the mining pool.
type PoolBalance struct {
	Confirmed   float64 `json:"confirmed"`
	Unconfirmed float64 `json:"unconfirmed"`
}

// PoolHashrate holds the current and averaged hashrates reported by the
// mining pool.
type PoolHashrate struct {
	Current         float64 `json:"current"`
	OneHour         float64 `json:"one_hour"`
	ThreeHours      float64 `json:"three_hours"`
	SixHours        float64 `json:"six_hours"`
	TwelveHours     float64 `json:"twelve_hours"`
	TwentyFourHours float64 `json:"twenty_four_hours"`
}

// PoolWorker is a single worker entry of the pool account.
type PoolWorker struct {
	ID       string  `json:"id"`
	Hashrate float64 `json:"hashrate"`
}

// PoolAccount is the normalized result of one pool account query.
type PoolAccount struct {
	Balance  PoolBalance  `json:"balance"`
	Hashrate PoolHashrate `json:"hashrate"`
	Workers  []PoolWorker `json:"workers"`
}

// WorkerHashrate returns the hashrate of the worker with the given id, or 0
// if the account has no such worker.
func (a *PoolAccount) WorkerHashrate(id string) float64 {
	for _, w := range a.Workers {
		if w.ID == id {
			return w.Hashrate
		}
	}
	return 0
}

// Payment is the last payment issued by the pool for the account.
type Payment struct {
	Date      time.Time `json:"date"`
	TxHash    string    `json:"tx_hash"`
	Amount    float64   `json:"amount"`
	Confirmed bool      `json:"confirmed"`
}

// NanopoolInfo merges the independently fetched pool account snapshot and the
// last payment. Any subset of fields may be absent after upstream failures.
type NanopoolInfo struct {
	Balance     *PoolBalance  `json:"balance,omitempty"`
	Hashrate    *PoolHashrate `json:"hashrate,omitempty"`
	Workers     []PoolWorker  `json:"workers,omitempty"`
	LastPayment *Payment      `json:"last_payment,omitempty"`
}

// DeviceHashrate is the averaged local hashrate of one graphic card, computed
// from the miner telemetry log.
type DeviceHashrate struct {
	GraphicCard int     `json:"graphic_card"`
	Hashrate    float64 `json:"hashrate"`
}

// EtherStatus is the aggregated mining view: local liveness combined with the
// pool account. Active is nil when the local status cannot be determined.
type EtherStatus struct {
	Active   *bool            `json:"active"`
	Hashrate []DeviceHashrate `json:"hashrate"`
	Nanopool *NanopoolInfo    `json:"nanopool,omitempty"`
}

// MinerStatus is the local-only miner view: tri-state status plus per-card
// hashrate, both derived from the telemetry log without any network call.
type MinerStatus struct {
	Status   string           `json:"status"`
	Hashrate []DeviceHashrate `json:"hashrate"`
}
