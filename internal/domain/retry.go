package domain

import "time"

type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// RetryBudget counts attempts against a bound and derives the delay that
// precedes the next attempt. Values are immutable; Next returns a new budget.
type RetryBudget struct {
	Attempts    int
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Kind        BackoffKind
}

func NewRetryBudget(kind BackoffKind, maxAttempts int, baseDelay time.Duration) RetryBudget {
	return RetryBudget{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Kind:        kind,
	}
}

func (b RetryBudget) WithMaxDelay(maxDelay time.Duration) RetryBudget {
	b.MaxDelay = maxDelay
	return b
}

func (b RetryBudget) Next() RetryBudget {
	b.Attempts++
	return b
}

func (b RetryBudget) Reset() RetryBudget {
	b.Attempts = 0
	return b
}

func (b RetryBudget) Exhausted() bool {
	return b.MaxAttempts > 0 && b.Attempts >= b.MaxAttempts
}

func (b RetryBudget) Remaining() int {
	if b.MaxAttempts <= 0 {
		return 0
	}
	if b.Attempts >= b.MaxAttempts {
		return 0
	}
	return b.MaxAttempts - b.Attempts
}

// Delay is the wait after the current attempt count of failures: fixed waits
// BaseDelay, linear waits BaseDelay*attempts, exponential doubles from BaseDelay.
func (b RetryBudget) Delay() time.Duration {
	if b.BaseDelay <= 0 {
		return 0
	}

	n := b.Attempts
	if n < 1 {
		n = 1
	}

	var delay time.Duration
	switch b.Kind {
	case BackoffLinear:
		delay = b.BaseDelay * time.Duration(n)
	case BackoffExponential:
		delay = b.BaseDelay
		for i := 1; i < n; i++ {
			delay *= 2
			if b.MaxDelay > 0 && delay >= b.MaxDelay {
				break
			}
		}
	default:
		delay = b.BaseDelay
	}

	if b.MaxDelay > 0 && delay > b.MaxDelay {
		return b.MaxDelay
	}
	return delay
}
