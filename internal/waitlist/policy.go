package waitlist

import (
	"time"

	"hostel-allocation-backend/config"
)

// MaxScore caps every priority score.
const MaxScore = 100

// Policy computes priority scores.
type Policy struct {
	Base            int
	SeniorThreshold int
	SeniorBonus     int
}

// PolicyFrom builds a Policy from the waitlist configuration.
func PolicyFrom(cfg config.WaitlistConfig) Policy {
	p := Policy{Base: cfg.BaseScore, SeniorBonus: cfg.SeniorBonus}
	if cfg.SeniorThreshold != nil {
		p.SeniorThreshold = *cfg.SeniorThreshold
	}
	return p
}

// Score returns min(100, base + floor(days waited / 7) + seniority bonus).
// A zero base falls back to the policy base.
func (p Policy) Score(base int, waitingSince, now time.Time, seniority int) int {
	if base <= 0 {
		base = p.Base
	}
	score := base
	if waited := now.Sub(waitingSince); waited > 0 {
		score += int(waited / (7 * 24 * time.Hour))
	}
	if seniority >= p.SeniorThreshold {
		score += p.SeniorBonus
	}
	if score > MaxScore {
		return MaxScore
	}
	if score < 0 {
		return 0
	}
	return score
}

// Raise returns the recomputed score, never lower than current.
func (p Policy) Raise(current, base int, waitingSince, now time.Time, seniority int) int {
	if next := p.Score(base, waitingSince, now, seniority); next > current {
		return next
	}
	return current
}
