package domain

import (
	"encoding/json"
	"math"
	"time"
)

type ClaimOutcome string

const (
	ClaimPending   ClaimOutcome = "pending"
	ClaimConfirmed ClaimOutcome = "confirmed"
	ClaimTimedOut  ClaimOutcome = "timed_out"
	ClaimFailed    ClaimOutcome = "failed"
)

type RewardClaim struct {
	Attempt  int
	Code     string
	Deadline time.Time
	Outcome  ClaimOutcome
	Points   int64
}

func NewRewardClaim(attempt int, code string, deadline time.Time) RewardClaim {
	return RewardClaim{
		Attempt:  attempt,
		Code:     code,
		Deadline: deadline,
		Outcome:  ClaimPending,
	}
}

// Resolve returns a copy of the claim carrying the final outcome.
func (c RewardClaim) Resolve(outcome ClaimOutcome, points int64) RewardClaim {
	c.Outcome = outcome
	c.Points = points
	return c
}

func (c RewardClaim) Confirmed() bool {
	return c.Outcome == ClaimConfirmed
}

// PlayerUpdate is the payload of the server's "update" event. HasTotal is
// false when the payload carried no point total.
type PlayerUpdate struct {
	FirstName  string
	TotalPoint int64
	HasTotal   bool
}

func (u *PlayerUpdate) UnmarshalJSON(data []byte) error {
	var raw struct {
		FirstName  string       `json:"firstname"`
		TotalPoint *json.Number `json:"totalPoint"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	u.FirstName = raw.FirstName
	u.TotalPoint = 0
	u.HasTotal = false
	if raw.TotalPoint == nil {
		return nil
	}

	if total, err := raw.TotalPoint.Int64(); err == nil {
		u.TotalPoint = total
		u.HasTotal = true
		return nil
	}
	total, err := raw.TotalPoint.Float64()
	if err != nil {
		return err
	}
	u.TotalPoint = int64(math.Floor(total))
	u.HasTotal = true
	return nil
}
