package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRetryWithBackoff(t *testing.T) {
	fastRetries(t)
	tests := []struct {
		name     string
		errs     []error
		wantErr  bool
		wantCall int
	}{
		{"success", []error{nil}, false, 1},
		{"rate limit then success", []error{&RateLimitError{}, nil}, false, 2},
		{"server error then success", []error{&APIError{StatusCode: 503}, nil}, false, 2},
		{"auth not retried", []error{&AuthError{Message: "x"}}, true, 1},
		{"client error not retried", []error{&APIError{StatusCode: 400}}, true, 1},
		{"plain error not retried", []error{errors.New("boom")}, true, 1},
		{"exhausted", []error{&RateLimitError{}, &RateLimitError{}, &RateLimitError{}}, true, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retryWithBackoff(context.Background(), zap.NewNop(), 2, func() error {
				e := tt.errs[min(calls, len(tt.errs)-1)]
				calls++
				return e
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCall {
				t.Errorf("calls = %d, want %d", calls, tt.wantCall)
			}
		})
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	orig := backoffBase
	backoffBase = time.Hour
	t.Cleanup(func() { backoffBase = orig })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryWithBackoff(ctx, zap.NewNop(), 3, func() error { return &RateLimitError{} })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryWithBackoff_LogsAttempts(t *testing.T) {
	fastRetries(t)
	core, logs := observer.New(zapcore.WarnLevel)
	calls := 0
	_ = retryWithBackoff(context.Background(), zap.New(core), 3, func() error {
		calls++
		if calls < 3 {
			return &RateLimitError{}
		}
		return nil
	})
	if n := logs.FilterMessage("retrying completion request").Len(); n != 2 {
		t.Errorf("retry logs = %d, want 2", n)
	}
}

func TestErrorHelpers_Wrapped(t *testing.T) {
	auth := fmt.Errorf("completion: %w", &AuthError{Message: "bad key"})
	if !IsAuthError(auth) {
		t.Error("IsAuthError should see through wrapping")
	}
	rl := fmt.Errorf("completion: %w", &RateLimitError{})
	if !IsRateLimit(rl) {
		t.Error("IsRateLimit should see through wrapping")
	}
	if IsAuthError(rl) || IsRateLimit(auth) {
		t.Error("helpers matched the wrong type")
	}
}
