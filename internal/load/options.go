package load

import (
	"fmt"
	"time"
)

// BatchMode selects the transaction scope of a run.
type BatchMode string

const (
	// PerRecord commits every business key transition and every fact append
	// on its own, so one failure never blocks unrelated keys.
	PerRecord BatchMode = "per_record"
	// AllOrNothing applies the whole run in one transaction; any failure
	// rolls back everything.
	AllOrNothing BatchMode = "all_or_nothing"
)

const (
	defaultWorkerCount     = 8
	defaultMaxAttempts     = 3
	defaultInitialInterval = 50 * time.Millisecond
	defaultMaxInterval     = 2 * time.Second
)

// RetryPolicy bounds retries of storage failures.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Options controls an Orchestrator.
type Options struct {
	BatchMode   BatchMode
	FailFast    bool
	WorkerCount int
	NullSafe    bool
	Retry       RetryPolicy
}

// DefaultOptions returns per-record mode with null-safe change detection.
func DefaultOptions() Options {
	return Options{
		BatchMode:   PerRecord,
		WorkerCount: defaultWorkerCount,
		NullSafe:    true,
		Retry: RetryPolicy{
			MaxAttempts:     defaultMaxAttempts,
			InitialInterval: defaultInitialInterval,
			MaxInterval:     defaultMaxInterval,
		},
	}
}

// ParseBatchMode accepts the configured mode name; empty means per_record.
func ParseBatchMode(s string) (BatchMode, error) {
	switch BatchMode(s) {
	case "", PerRecord:
		return PerRecord, nil
	case AllOrNothing:
		return AllOrNothing, nil
	}
	return "", fmt.Errorf("unknown batch mode %q (want %s or %s)", s, PerRecord, AllOrNothing)
}

func (o Options) normalized() Options {
	n := o
	if n.BatchMode == "" {
		n.BatchMode = PerRecord
	}
	if n.WorkerCount <= 0 {
		n.WorkerCount = defaultWorkerCount
	}
	if n.Retry.MaxAttempts <= 0 {
		n.Retry.MaxAttempts = defaultMaxAttempts
	}
	if n.Retry.InitialInterval <= 0 {
		n.Retry.InitialInterval = defaultInitialInterval
	}
	if n.Retry.MaxInterval <= 0 {
		n.Retry.MaxInterval = defaultMaxInterval
	}
	return n
}
