package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryBudgetDelays(t *testing.T) {
	tests := []struct {
		name     string
		budget   RetryBudget
		attempts int
		want     time.Duration
	}{
		{name: "fixed", budget: NewRetryBudget(BackoffFixed, 3, 2*time.Second), attempts: 3, want: 2 * time.Second},
		{name: "linear", budget: NewRetryBudget(BackoffLinear, 3, 10*time.Second), attempts: 2, want: 20 * time.Second},
		{name: "exponential first", budget: NewRetryBudget(BackoffExponential, 5, time.Second), attempts: 1, want: time.Second},
		{name: "exponential fourth", budget: NewRetryBudget(BackoffExponential, 5, time.Second), attempts: 4, want: 8 * time.Second},
		{name: "capped", budget: NewRetryBudget(BackoffExponential, 10, time.Second).WithMaxDelay(30 * time.Second), attempts: 9, want: 30 * time.Second},
		{name: "before first attempt", budget: NewRetryBudget(BackoffLinear, 3, time.Second), attempts: 0, want: time.Second},
		{name: "no base", budget: NewRetryBudget(BackoffFixed, 3, 0), attempts: 1, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			budget := tc.budget
			for i := 0; i < tc.attempts; i++ {
				budget = budget.Next()
			}
			assert.Equal(t, tc.want, budget.Delay())
		})
	}
}

func TestRetryBudgetExhaustionIsImmutable(t *testing.T) {
	start := NewRetryBudget(BackoffFixed, 2, time.Second)

	first := start.Next()
	second := first.Next()

	assert.Equal(t, 0, start.Attempts)
	assert.False(t, first.Exhausted())
	assert.Equal(t, 1, first.Remaining())
	assert.True(t, second.Exhausted())
	assert.Equal(t, 0, second.Remaining())
	assert.False(t, second.Reset().Exhausted())

	unbounded := NewRetryBudget(BackoffFixed, 0, time.Second).Next().Next()
	assert.False(t, unbounded.Exhausted())
}

func TestAdDescriptorValidate(t *testing.T) {
	ad := AdDescriptor{Beacons: map[BeaconKind]string{
		BeaconRender: "https://a/render",
		BeaconShow:   "https://a/show",
		BeaconReward: "https://a/reward",
	}}
	require.NoError(t, ad.Validate())

	delete(ad.Beacons, BeaconReward)
	ad.Beacons[BeaconShow] = "  "
	err := ad.Validate()
	require.ErrorIs(t, err, ErrMissingBeacon)
	require.ErrorIs(t, err, ErrProtocol)
	assert.Contains(t, err.Error(), "show, reward")

	assert.Equal(t, "Unknown", AdDescriptor{}.DisplayTitle())
}

func TestConnectErrorClassification(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	dial := &ConnectError{Kind: ConnectDial, Endpoint: "a.example", Err: cause}
	unauthorized := &ConnectError{Kind: ConnectUnauthorized, Endpoint: "a.example"}
	timeout := fmt.Errorf("connect: %w", &ConnectError{Kind: ConnectTimeout, Endpoint: "a.example"})

	assert.ErrorIs(t, dial, ErrTransport)
	assert.ErrorIs(t, dial, cause)
	assert.NotErrorIs(t, dial, ErrUnauthorized)
	assert.True(t, IsRetryable(dial))
	assert.False(t, dial.Terminal())

	assert.ErrorIs(t, unauthorized, ErrUnauthorized)
	assert.False(t, IsRetryable(unauthorized))
	assert.True(t, unauthorized.Terminal())

	assert.ErrorIs(t, timeout, ErrTimeout)
	assert.True(t, IsRetryable(timeout))

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrMissingBeacon))
	assert.Equal(t, "connect a.example: unauthorized", unauthorized.Error())
}

func TestPlayerUpdateDecoding(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		want     PlayerUpdate
		hasTotal bool
	}{
		{name: "integer", payload: `{"firstname":"Ana","totalPoint":150}`, want: PlayerUpdate{FirstName: "Ana", TotalPoint: 150, HasTotal: true}},
		{name: "float", payload: `{"firstname":"Ana","totalPoint":150.75}`, want: PlayerUpdate{FirstName: "Ana", TotalPoint: 150, HasTotal: true}},
		{name: "missing total", payload: `{"firstname":"Ana"}`, want: PlayerUpdate{FirstName: "Ana"}},
		{name: "null total", payload: `{"totalPoint":null}`, want: PlayerUpdate{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got PlayerUpdate
			require.NoError(t, json.Unmarshal([]byte(tc.payload), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRewardClaimResolve(t *testing.T) {
	deadline := time.Date(2026, 1, 1, 0, 0, 15, 0, time.UTC)
	claim := NewRewardClaim(1, "rewardAds10000", deadline)

	resolved := claim.Resolve(ClaimConfirmed, 150)

	assert.Equal(t, ClaimPending, claim.Outcome)
	assert.True(t, resolved.Confirmed())
	assert.Equal(t, int64(150), resolved.Points)
	assert.Equal(t, deadline, resolved.Deadline)
}

func TestConnectionStateString(t *testing.T) {
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "probing", StateProbing.String())
	assert.Equal(t, "unknown", ConnectionState(42).String())
}
