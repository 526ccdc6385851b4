package service

import (
	"context"

	"ambassador-ledger/internal/models"
	"ambassador-ledger/internal/repository"
	"ambassador-ledger/pkg/floors"

	"gorm.io/gorm"
)

// Repos bundles the repositories a ledger operation touches so a whole set
// can be rebound to one transaction.
type Repos struct {
	Users         *repository.UserRepository
	Referrals     *repository.ReferralRepository
	Wallets       *repository.WalletRepository
	Withdrawals   *repository.WithdrawalRepository
	Consumptions  *repository.ConsumptionRepository
	Settings      *repository.SettingRepository
	Notifications *repository.NotificationRepository
}

func NewRepos(db *gorm.DB) Repos {
	return Repos{
		Users:         repository.NewUserRepository(db),
		Referrals:     repository.NewReferralRepository(db),
		Wallets:       repository.NewWalletRepository(db),
		Withdrawals:   repository.NewWithdrawalRepository(db),
		Consumptions:  repository.NewConsumptionRepository(db),
		Settings:      repository.NewSettingRepository(db),
		Notifications: repository.NewNotificationRepository(db),
	}
}

func (r Repos) WithTx(tx *gorm.DB) Repos {
	return Repos{
		Users:         r.Users.WithTx(tx),
		Referrals:     r.Referrals.WithTx(tx),
		Wallets:       r.Wallets.WithTx(tx),
		Withdrawals:   r.Withdrawals.WithTx(tx),
		Consumptions:  r.Consumptions.WithTx(tx),
		Settings:      r.Settings.WithTx(tx),
		Notifications: r.Notifications.WithTx(tx),
	}
}

// Actor is the authenticated caller of an admin operation.
type Actor struct {
	ID   uint
	Role string
}

// ledgerState is one consistent read of everything a balance depends on.
type ledgerState struct {
	referrals repository.ReferralCounts
	balance   floors.Balance
}

func loadProgram(ctx context.Context, r Repos) (models.ProgramSettings, error) {
	row, err := r.Settings.Get(ctx)
	if err != nil {
		return models.ProgramSettings{}, err
	}
	return row.Program(), nil
}

// loadState reads referral, consumption and hold facts and derives the balance
// under ps. It never writes.
func loadState(ctx context.Context, r Repos, userID uint, ps models.ProgramSettings) (ledgerState, error) {
	counts, err := r.Referrals.CountByReferrer(ctx, userID)
	if err != nil {
		return ledgerState{}, err
	}
	consumed, err := r.Consumptions.SumFloors(ctx, userID)
	if err != nil {
		return ledgerState{}, err
	}
	hold, err := r.Withdrawals.SumOpenHolds(ctx, userID)
	if err != nil {
		return ledgerState{}, err
	}
	account := floors.NewAccount(floors.Counts{
		Current:     counts.CurrentFloors,
		Flagged:     counts.FlaggedFloors,
		ConsumedRaw: consumed,
	})
	return ledgerState{
		referrals: counts,
		balance:   floors.NewBalance(account, ps.BuildingsPerDollar, hold),
	}, nil
}

// syncWalletCache writes the derived figures into the wallet row.
func syncWalletCache(ctx context.Context, r Repos, w *models.AmbassadorWallet, b floors.Balance) (bool, error) {
	earned := b.GrossBalanceCents + w.TotalWithdrawnCents
	changed, err := r.Wallets.SyncCache(ctx, w.UserID, b.AvailableBalanceCents, b.CompletedBuildings, earned)
	if err != nil {
		return false, err
	}
	w.BalanceCents = b.AvailableBalanceCents
	w.TotalBuildingsCompleted = b.CompletedBuildings
	w.TotalEarnedCents = earned
	return changed, nil
}
