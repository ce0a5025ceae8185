package load

import (
	"context"
	"errors"
	"testing"
	"time"

	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBatchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    BatchMode
		wantErr bool
	}{
		{"", PerRecord, false},
		{"per_record", PerRecord, false},
		{"all_or_nothing", AllOrNothing, false},
		{"batch", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBatchMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptions_Normalized(t *testing.T) {
	n := Options{}.normalized()
	assert.Equal(t, PerRecord, n.BatchMode)
	assert.Equal(t, defaultWorkerCount, n.WorkerCount)
	assert.Equal(t, defaultMaxAttempts, n.Retry.MaxAttempts)
	assert.Equal(t, defaultInitialInterval, n.Retry.InitialInterval)
	assert.Equal(t, defaultMaxInterval, n.Retry.MaxInterval)
}

func TestWithRetry(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 4, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

	t.Run("storage errors are retried", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), policy, func() error {
			calls++
			if calls < 3 {
				return dserr.Storage("commit", errors.New("reset"))
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("attempts are bounded", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), policy, func() error {
			calls++
			return dserr.Storage("commit", errors.New("reset"))
		})
		assert.ErrorIs(t, err, dserr.ErrStorage)
		assert.Equal(t, 4, calls)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		err := withRetry(context.Background(), policy, func() error {
			calls++
			return &dserr.ValidationError{Entity: "customer", Message: "bad"}
		})
		assert.ErrorIs(t, err, dserr.ErrValidation)
		assert.Equal(t, 1, calls)
	})
}
