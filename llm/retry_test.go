package llm

import (
	"context"
	"testing"
	"time"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		BaseDelay:         0.001,
		MaxDelay:          0.01,
		BackoffMultiplier: 2.0,
	}
}

func TestRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(2), func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestRetryRecoversFromRetryableError(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastPolicy(2), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &ServerError{ProviderError: ProviderError{
				SDKError: SDKError{Message: "500"}, Retryable: true,
			}}
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" || calls != 3 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestRetryStopsOnTerminalError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(context.Context) (string, error) {
		calls++
		return "", &AuthenticationError{}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("terminal error retried %d times", calls-1)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(2), func(context.Context) (string, error) {
		calls++
		return "", &RateLimitError{ProviderError: ProviderError{Retryable: true}}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls (initial + 2 retries), got %d", calls)
	}
}

func TestRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := fastPolicy(2)
	policy.BaseDelay = 10 // force the select to see the cancelled context
	_, err := Retry(ctx, policy, func(context.Context) (string, error) {
		return "", &ServerError{ProviderError: ProviderError{Retryable: true}}
	})
	if _, ok := err.(*AbortError); !ok {
		t.Fatalf("expected AbortError, got %T: %v", err, err)
	}
}

func TestDelayBackoff(t *testing.T) {
	p := RetryPolicy{BaseDelay: 1, MaxDelay: 4, BackoffMultiplier: 2}
	if d := p.Delay(0); d != time.Second {
		t.Errorf("attempt 0: got %v", d)
	}
	if d := p.Delay(1); d != 2*time.Second {
		t.Errorf("attempt 1: got %v", d)
	}
	// Capped at MaxDelay.
	if d := p.Delay(5); d != 4*time.Second {
		t.Errorf("attempt 5: got %v", d)
	}
}

func TestDelayJitterBounds(t *testing.T) {
	p := RetryPolicy{BaseDelay: 2, MaxDelay: 60, BackoffMultiplier: 2, Jitter: true}
	for i := 0; i < 100; i++ {
		d := p.Delay(0)
		if d < time.Second || d >= 3*time.Second {
			t.Fatalf("jittered delay out of [1s, 3s): %v", d)
		}
	}
}
