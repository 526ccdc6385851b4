// Package floors converts raw referral and consumption counts into spendable value.
//
// A floor is one qualifying referral, twenty floors make a building, and
// buildings convert to cents at the program's buildings-per-dollar rate.
// Everything here is pure arithmetic; callers fetch the counts.
package floors

import "github.com/shopspring/decimal"

const FloorsPerBuilding = 20

var (
	hundred     = decimal.NewFromInt(100)
	perBuilding = decimal.NewFromInt(FloorsPerBuilding)
)

// Counts are the raw facts read from the referrals and consumption tables.
type Counts struct {
	Current     int64 // referrals with status completed or flagged_fraud
	Flagged     int64 // referrals with status flagged_fraud
	ConsumedRaw int64 // unclamped sum of consumption ledger entries
}

// Account is the derived floor state of one user.
type Account struct {
	CurrentFloors      int64 `json:"current_floors"`
	FlaggedFloors      int64 `json:"flagged_floors"`
	HealthyFloors      int64 `json:"healthy_floors"`
	FloorsConsumed     int64 `json:"floors_consumed"`
	AvailableFloors    int64 `json:"available_floors"`
	CompletedBuildings int64 `json:"completed_buildings"`
}

// NewAccount derives the floor account. Consumption is clamped to the floors
// ever built, so over-consumption in the ledger never drives values negative.
func NewAccount(c Counts) Account {
	current := max(c.Current, 0)
	flagged := max(c.Flagged, 0)
	consumed := min(max(c.ConsumedRaw, 0), current)
	healthy := max(current-flagged, 0)
	available := max(healthy-consumed, 0)
	return Account{
		CurrentFloors:      current,
		FlaggedFloors:      flagged,
		HealthyFloors:      healthy,
		FloorsConsumed:     consumed,
		AvailableFloors:    available,
		CompletedBuildings: available / FloorsPerBuilding,
	}
}

// FloorsToNextBuilding is how many more available floors complete the next building.
func (a Account) FloorsToNextBuilding() int64 {
	return FloorsPerBuilding - a.AvailableFloors%FloorsPerBuilding
}

// Balance is an Account priced under a buildings-per-dollar rate, net of holds.
type Balance struct {
	Account
	GrossBalanceCents     int64 `json:"gross_balance_cents"`
	PendingHoldCents      int64 `json:"pending_hold_cents"`
	AvailableBalanceCents int64 `json:"available_balance_cents"`
}

func NewBalance(a Account, buildingsPerDollar decimal.Decimal, pendingHoldCents int64) Balance {
	gross := GrossCents(a.CompletedBuildings, buildingsPerDollar)
	hold := max(pendingHoldCents, 0)
	return Balance{
		Account:               a,
		GrossBalanceCents:     gross,
		PendingHoldCents:      hold,
		AvailableBalanceCents: max(gross-hold, 0),
	}
}

// GrossCents is floor(buildings / buildingsPerDollar * 100). A non-positive
// rate prices everything at zero.
func GrossCents(buildings int64, buildingsPerDollar decimal.Decimal) int64 {
	if buildings <= 0 || !buildingsPerDollar.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(buildings).Mul(hundred).Div(buildingsPerDollar).Floor().IntPart()
}

// FloorsForAmount is ceil(amountDollars * buildingsPerDollar * 20): the floors a
// payout of amountCents consumes. Rounding up never lets a payout consume a
// fractional floor.
func FloorsForAmount(amountCents int64, buildingsPerDollar decimal.Decimal) int64 {
	if amountCents <= 0 || !buildingsPerDollar.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(amountCents).
		Div(hundred).
		Mul(buildingsPerDollar).
		Mul(perBuilding).
		Ceil().
		IntPart()
}

// FormatDollars renders cents as "$1.00".
func FormatDollars(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}
