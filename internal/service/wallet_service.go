package service

import (
	"context"
	"fmt"
	"time"

	"ambassador-ledger/internal/models"
	"ambassador-ledger/pkg/floors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const recentTransactionsLimit = 10

// WalletService answers balance questions. Every read recomputes from raw
// referral, consumption and withdrawal facts.
type WalletService struct {
	repos Repos
	log   *zap.Logger
	now   func() time.Time
}

func NewWalletService(repos Repos, log *zap.Logger) *WalletService {
	return &WalletService{repos: repos, log: log, now: time.Now}
}

// BalanceResult is a balance together with the settings it was priced under.
type BalanceResult struct {
	floors.Balance
	Settings models.ProgramSettings `json:"settings"`
}

// ComputeBalance derives the user's balance without writing anything.
// Two calls with no intervening writes return identical results.
func (s *WalletService) ComputeBalance(ctx context.Context, userID uint) (BalanceResult, error) {
	ps, err := loadProgram(ctx, s.repos)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("load settings: %w", err)
	}
	st, err := loadState(ctx, s.repos, userID, ps)
	if err != nil {
		return BalanceResult{}, fmt.Errorf("compute balance: %w", err)
	}
	return BalanceResult{Balance: st.balance, Settings: ps}, nil
}

// WalletSnapshot is the full wallet view returned to the ambassador.
type WalletSnapshot struct {
	Wallet               models.AmbassadorWallet    `json:"wallet"`
	Balance              floors.Balance             `json:"balance"`
	FloorsToNextBuilding int64                      `json:"floors_to_next_building"`
	Settings             models.ProgramSettings     `json:"settings"`
	RecentTransactions   []models.WalletTransaction `json:"recent_transactions"`
	PendingWithdrawal    *models.WithdrawalRequest  `json:"pending_withdrawal"`
}

// GetWallet recomputes the balance, heals the cached wallet row if it drifted,
// and assembles the snapshot.
func (s *WalletService) GetWallet(ctx context.Context, userID uint) (*WalletSnapshot, error) {
	ps, err := loadProgram(ctx, s.repos)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	w, err := s.repos.Wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	st, err := loadState(ctx, s.repos, userID, ps)
	if err != nil {
		return nil, fmt.Errorf("compute balance: %w", err)
	}
	healed, err := syncWalletCache(ctx, s.repos, w, st.balance)
	if err != nil {
		return nil, fmt.Errorf("sync wallet cache: %w", err)
	}
	if healed {
		s.log.Debug("wallet cache refreshed",
			zap.Uint("user_id", userID),
			zap.Int64("balance_cents", st.balance.AvailableBalanceCents),
			zap.Int64("buildings", st.balance.CompletedBuildings),
		)
	}

	snap := &WalletSnapshot{
		Wallet:               *w,
		Balance:              st.balance,
		FloorsToNextBuilding: st.balance.FloorsToNextBuilding(),
		Settings:             ps,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.repos.Wallets.ListTransactions(gctx, userID, recentTransactionsLimit)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.RecentTransactions = txs
		return nil
	})
	g.Go(func() error {
		open, err := s.repos.Withdrawals.GetOpenByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("load pending withdrawal: %w", err)
		}
		snap.PendingWithdrawal = open
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// Floors returns the floor breakdown without pricing it.
func (s *WalletService) Floors(ctx context.Context, userID uint) (floors.Account, error) {
	res, err := s.ComputeBalance(ctx, userID)
	if err != nil {
		return floors.Account{}, err
	}
	return res.Account, nil
}

// AcceptTerms records the first acceptance of the ambassador terms.
func (s *WalletService) AcceptTerms(ctx context.Context, userID uint) (*models.AmbassadorWallet, error) {
	w, err := s.repos.Wallets.AcceptTerms(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("accept terms: %w", err)
	}
	return w, nil
}
