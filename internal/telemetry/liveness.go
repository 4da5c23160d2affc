package telemetry

import (
	"time"

	"go.uber.org/zap"

	"github.com/PeRDy/barrenero-api/internal/entity"
)

// Verdict is the tri-state miner liveness result. Unknown means the status
// could not be determined (unreadable or unparseable log), which is distinct
// from a determined Inactive.
type Verdict int

const (
	VerdictUnknown Verdict = iota
	VerdictActive
	VerdictInactive
)

// String returns the wire representation of the verdict.
func (v Verdict) String() string {
	switch v {
	case VerdictActive:
		return "active"
	case VerdictInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Bool maps the verdict onto the nullable boolean used by the aggregated
// mining view: nil for Unknown.
func (v Verdict) Bool() *bool {
	switch v {
	case VerdictActive:
		b := true
		return &b
	case VerdictInactive:
		b := false
		return &b
	default:
		return nil
	}
}

// Detector evaluates miner liveness and per-device hashrate over a bounded
// window of the most recent telemetry samples. Each evaluation reads the log
// tail once and discards the window afterwards.
type Detector struct {
	path          string
	window        int
	idleThreshold time.Duration
	logger        *zap.Logger

	// now is the evaluation clock, replaceable in tests.
	now func() time.Time
}

// NewDetector creates a Detector over the telemetry log at path.
func NewDetector(path string, window int, idleThreshold time.Duration, logger *zap.Logger) *Detector {
	if window <= 0 {
		window = 10
	}
	return &Detector{
		path:          path,
		window:        window,
		idleThreshold: idleThreshold,
		logger:        logger.Named("LivenessDetector"),
		now:           time.Now,
	}
}

// Status infers the miner liveness verdict. The miner is active iff every
// gap between consecutive sample timestamps, including the gap to the
// current instant, is below the idle threshold. An empty log means the miner
// was never observed and is Inactive; a log that cannot be read or parsed
// yields Unknown.
func (d *Detector) Status() Verdict {
	samples, err := TailSamples(d.path, d.window)
	if err != nil {
		d.logger.Error("Cannot check miner status", zap.String("path", d.path), zap.Error(err))
		return VerdictUnknown
	}

	if len(samples) == 0 {
		return VerdictInactive
	}

	// The current instant acts as a sentinel sample, so a recent-looking log
	// that simply stopped is still stale.
	timestamps := make([]time.Time, 0, len(samples)+1)
	for _, s := range samples {
		timestamps = append(timestamps, s.Timestamp)
	}
	timestamps = append(timestamps, d.now().UTC())

	for i := 1; i < len(timestamps); i++ {
		if timestamps[i].Sub(timestamps[i-1]) >= d.idleThreshold {
			return VerdictInactive
		}
	}
	return VerdictActive
}

// Hashrate averages the most recent readings per device. The computation is
// all-or-nothing: an unreadable log or a ragged window (device count changing
// between samples) yields nil rather than a partial result.
func (d *Detector) Hashrate() []entity.DeviceHashrate {
	samples, err := TailSamples(d.path, d.window)
	if err != nil {
		d.logger.Error("Cannot compute miner hashrate", zap.String("path", d.path), zap.Error(err))
		return nil
	}
	if len(samples) == 0 {
		return nil
	}

	devices := len(samples[0].Values)
	sums := make([]float64, devices)
	for _, s := range samples {
		readings := s.Readings()
		if len(readings) != devices {
			d.logger.Warn("Ragged telemetry window, discarding hashrate",
				zap.Int("expected_devices", devices),
				zap.Int("got_devices", len(readings)))
			return nil
		}
		for i, r := range readings {
			sums[i] += r
		}
	}

	hashrate := make([]entity.DeviceHashrate, devices)
	for i, sum := range sums {
		hashrate[i] = entity.DeviceHashrate{
			GraphicCard: i,
			Hashrate:    sum / float64(len(samples)),
		}
	}
	return hashrate
}
