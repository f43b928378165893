// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) RetryConfig {
	return RetryConfig{
		MaxRetries:      retries,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesWhileBusy(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	err := RetryWithBackoff(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("failed to begin transaction: database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetryWithBackoff_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), fastConfig(5), func(ctx context.Context) error {
		calls++
		return errors.New("UNIQUE constraint failed: run.id")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	busy := NewTransientError("busy", nil)
	err := RetryWithBackoff(context.Background(), fastConfig(2), func(ctx context.Context) error {
		calls++
		return busy
	})
	assert.Equal(t, busy, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialInterval = time.Hour
	cfg.MaxInterval = time.Hour

	calls := 0
	err := RetryWithBackoff(ctx, cfg, func(ctx context.Context) error {
		calls++
		cancel()
		return NewTransientError("busy", nil)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"locked", errors.New("database is locked"), ErrorTypeTransient, true},
		{"wrapped busy", fmt.Errorf("commit: %w", errors.New("SQLITE_BUSY")), ErrorTypeTransient, true},
		{"constraint", errors.New("FOREIGN KEY constraint failed"), ErrorTypePermanent, false},
		{"cancelled", fmt.Errorf("query: %w", context.Canceled), ErrorTypeCancelled, false},
		{"other", errors.New("disk I/O error"), ErrorTypeUnknown, false},
		{"preclassified", fmt.Errorf("outer: %w", NewPermanentError("no", nil)), ErrorTypePermanent, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifyError(tt.err)
			assert.Equal(t, tt.wantType, c.Type)
			assert.Equal(t, tt.retryable, c.IsRetryable())
		})
	}
	assert.Nil(t, ClassifyError(nil))
	assert.Equal(t, "Transient", ErrorTypeTransient.String())
}
