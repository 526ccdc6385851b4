package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"ambassador-ledger/internal/database"
	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/events"
	"ambassador-ledger/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx           context.Context
	db            *gorm.DB
	repos         Repos
	wallets       *WalletService
	withdrawals   *WithdrawalService
	consumptions  *ConsumptionService
	settings      *SettingsService
	notifications *NotificationService
	pub           *recordingPublisher
	seq           uint
}

// newFixture opens a fresh in-memory database with financial rewards enabled
// at the default rate.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), database.Options())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedSettings(db))

	log := zap.NewNop()
	repos := NewRepos(db)
	notifier := NewNotificationService(repos)
	pub := &recordingPublisher{}
	consumptions := NewConsumptionService(db, repos, notifier, log)
	f := &fixture{
		ctx:           context.Background(),
		db:            db,
		repos:         repos,
		wallets:       NewWalletService(repos, log),
		withdrawals:   NewWithdrawalService(db, repos, notifier, consumptions, pub, log),
		consumptions:  consumptions,
		settings:      NewSettingsService(repos, log),
		notifications: notifier,
		pub:           pub,
	}
	clock := func() time.Time { return testNow }
	f.wallets.now = clock
	f.withdrawals.now = clock
	f.consumptions.now = clock

	f.configure(t, SettingsUpdate{FinancialRewardsEnabled: ptr(true)})
	return f
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) configure(t *testing.T, u SettingsUpdate) {
	t.Helper()
	_, err := f.settings.Update(f.ctx, Actor{ID: 1, Role: domain.RoleSuperAdmin}, u)
	require.NoError(t, err)
}

func (f *fixture) setRate(t *testing.T, buildingsPerDollar int64, minCents int64) {
	t.Helper()
	f.configure(t, SettingsUpdate{
		BuildingsPerDollar: ptr(decimal.NewFromInt(buildingsPerDollar)),
		MinWithdrawalCents: ptr(minCents),
	})
}

func (f *fixture) user(t *testing.T, role string, age time.Duration) models.User {
	t.Helper()
	f.seq++
	u := models.User{
		Email:     fmt.Sprintf("user%d@example.com", f.seq),
		Name:      fmt.Sprintf("User %d", f.seq),
		Role:      role,
		CreatedAt: testNow.Add(-age),
	}
	require.NoError(t, f.repos.Users.Create(f.ctx, &u))
	return u
}

func (f *fixture) ambassador(t *testing.T) models.User {
	return f.user(t, domain.RoleUser, 365*24*time.Hour)
}

func (f *fixture) referrals(t *testing.T, referrerID uint, status string, n int) []models.Referral {
	t.Helper()
	list := make([]models.Referral, 0, n)
	for i := 0; i < n; i++ {
		f.seq++
		list = append(list, models.Referral{ReferrerID: referrerID, ReferredID: 100000 + f.seq, Status: status})
	}
	if n > 0 {
		require.NoError(t, f.db.CreateInBatches(&list, 100).Error)
	}
	return list
}

func (f *fixture) balance(t *testing.T, userID uint) BalanceResult {
	t.Helper()
	b, err := f.wallets.ComputeBalance(f.ctx, userID)
	require.NoError(t, err)
	return b
}

func (f *fixture) wallet(t *testing.T, userID uint) models.AmbassadorWallet {
	t.Helper()
	w, err := f.repos.Wallets.GetByUserID(f.ctx, userID)
	require.NoError(t, err)
	return *w
}

func (f *fixture) request(t *testing.T, userID uint, amountCents int64) *models.WithdrawalRequest {
	t.Helper()
	req, err := f.withdrawals.Create(f.ctx, CreateWithdrawalInput{
		UserID:         userID,
		AmountCents:    amountCents,
		PaymentMethod:  "paypal",
		PaymentDetails: "amb@example.com",
	})
	require.NoError(t, err)
	return req
}

func (f *fixture) notificationTypes(t *testing.T, userID uint) []string {
	t.Helper()
	list, err := f.notifications.List(f.ctx, userID, 50, 0)
	require.NoError(t, err)
	out := make([]string, 0, len(list))
	for _, n := range list {
		out = append(out, n.Type)
	}
	return out
}
