// Package risk scores withdrawal requests for reviewer attention.
// Scores are advisory; nothing here blocks a request.
package risk

import (
	"fmt"
	"time"
)

const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

const (
	FactorHighFlaggedRatio     = "high_flagged_ratio"
	FactorModerateFlaggedRatio = "moderate_flagged_ratio"
	FactorNewAccount           = "new_account"
	FactorFirstWithdrawal      = "first_withdrawal"
	FactorLargeAmount          = "large_amount"
)

const (
	pointsHighFlaggedRatio     = 40
	pointsModerateFlaggedRatio = 20
	pointsNewAccount           = 30
	pointsFirstWithdrawal      = 10
	pointsLargeAmount          = 15

	newAccountDays   = 30
	largeAmountCents = 1000
	highLevelScore   = 60
	mediumLevelScore = 30
)

// Input is everything the scorer looks at.
type Input struct {
	TotalReferrals           int64
	FlaggedReferrals         int64
	AccountCreatedAt         time.Time
	PastCompletedWithdrawals int64
	AmountCents              int64
}

type Factor struct {
	Code   string `json:"code"`
	Points int    `json:"points"`
	Detail string `json:"detail"`
}

type Assessment struct {
	RiskScore    int       `json:"risk_score"`
	RiskLevel    string    `json:"risk_level"`
	RiskFactors  []Factor  `json:"risk_factors"`
	FlaggedRatio float64   `json:"flagged_ratio"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}

// Score is deterministic for a given input and clock.
func Score(in Input, now time.Time) Assessment {
	a := Assessment{RiskFactors: []Factor{}, AnalyzedAt: now.UTC()}
	add := func(code string, points int, detail string) {
		a.RiskScore += points
		a.RiskFactors = append(a.RiskFactors, Factor{Code: code, Points: points, Detail: detail})
	}

	// Ratio thresholds compare as integers: flagged/total > 3/10 <=> 10*flagged > 3*total.
	if in.TotalReferrals > 0 {
		a.FlaggedRatio = float64(in.FlaggedReferrals) / float64(in.TotalReferrals)
		switch {
		case 10*in.FlaggedReferrals > 3*in.TotalReferrals:
			add(FactorHighFlaggedRatio, pointsHighFlaggedRatio,
				fmt.Sprintf("%d of %d referrals flagged", in.FlaggedReferrals, in.TotalReferrals))
		case 10*in.FlaggedReferrals > in.TotalReferrals:
			add(FactorModerateFlaggedRatio, pointsModerateFlaggedRatio,
				fmt.Sprintf("%d of %d referrals flagged", in.FlaggedReferrals, in.TotalReferrals))
		}
	}

	if days := AccountAgeDays(in.AccountCreatedAt, now); days < newAccountDays {
		add(FactorNewAccount, pointsNewAccount, fmt.Sprintf("account is %d days old", days))
	}
	if in.PastCompletedWithdrawals == 0 {
		add(FactorFirstWithdrawal, pointsFirstWithdrawal, "no completed withdrawals")
	}
	if in.AmountCents > largeAmountCents {
		add(FactorLargeAmount, pointsLargeAmount, fmt.Sprintf("amount %d cents", in.AmountCents))
	}

	a.RiskLevel = Level(a.RiskScore)
	return a
}

func Level(score int) string {
	switch {
	case score >= highLevelScore:
		return LevelHigh
	case score >= mediumLevelScore:
		return LevelMedium
	default:
		return LevelLow
	}
}

// AccountAgeDays counts whole days; a zero creation time counts as a new account.
func AccountAgeDays(createdAt, now time.Time) int {
	if createdAt.IsZero() || now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt) / (24 * time.Hour))
}
