package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/events"
	"ambassador-ledger/internal/models"
	"ambassador-ledger/pkg/risk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type admins struct {
	ambassador models.User
	finance    models.User
	super      models.User
}

func (f *fixture) admins(t *testing.T) admins {
	return admins{
		ambassador: f.user(t, domain.RoleAmbassadorAdmin, 400*24*time.Hour),
		finance:    f.user(t, domain.RoleFinanceAdmin, 400*24*time.Hour),
		super:      f.user(t, domain.RoleSuperAdmin, 400*24*time.Hour),
	}
}

func actor(u models.User) Actor { return Actor{ID: u.ID, Role: u.Role} }

func TestWithdrawalEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, 5, 50)
	a := f.admins(t)
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 60)

	b := f.balance(t, u.ID)
	assert.Equal(t, int64(60), b.AvailableFloors)
	assert.Equal(t, int64(3), b.CompletedBuildings)
	assert.Equal(t, int64(60), b.GrossBalanceCents)
	assert.Equal(t, int64(0), b.PendingHoldCents)
	assert.Equal(t, int64(60), b.AvailableBalanceCents)

	req := f.request(t, u.ID, 50)
	assert.Equal(t, domain.WithdrawalStatusPending, req.Status)

	b = f.balance(t, u.ID)
	assert.Equal(t, int64(50), b.PendingHoldCents)
	assert.Equal(t, int64(10), b.AvailableBalanceCents)

	_, err := f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "approve", "looks legitimate")
	require.NoError(t, err)
	done, err := f.withdrawals.Complete(f.ctx, actor(a.finance), req.ID, "PP-123", "sent")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusCompleted, done.Status)
	assert.Equal(t, "PP-123", done.PaymentReference)
	assert.Nil(t, done.OpenSlot)

	list, total, err := f.consumptions.ListByUser(f.ctx, u.ID, 1, 20)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, int64(50), list[0].FloorsConsumed)
	assert.Equal(t, domain.RewardTypeFinancialWithdrawal, list[0].RewardType)
	require.NotNil(t, list[0].RequestID)
	assert.Equal(t, req.ID, *list[0].RequestID)
	assert.Equal(t, a.finance.ID, list[0].AdminID)

	b = f.balance(t, u.ID)
	assert.Equal(t, int64(10), b.AvailableFloors)
	assert.Equal(t, int64(0), b.CompletedBuildings)
	assert.Equal(t, int64(0), b.PendingHoldCents)

	w := f.wallet(t, u.ID)
	assert.Equal(t, int64(50), w.TotalWithdrawnCents)
	assert.Equal(t, int64(0), w.BalanceCents)
	assert.Equal(t, int64(50), w.TotalEarnedCents)

	assert.Equal(t, []string{events.TypeCreated, events.TypeApproved, events.TypeCompleted}, f.pub.types())
}

func TestWithdrawalHold(t *testing.T) {
	f := newFixture(t)
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 200)

	before := f.balance(t, u.ID)
	require.Equal(t, int64(200), before.AvailableBalanceCents)

	req := f.request(t, u.ID, 150)

	after := f.balance(t, u.ID)
	assert.Equal(t, before.GrossBalanceCents, after.GrossBalanceCents)
	assert.Equal(t, int64(150), after.PendingHoldCents)
	assert.Equal(t, before.AvailableBalanceCents-150, after.AvailableBalanceCents)

	assert.Equal(t, int64(50), f.wallet(t, u.ID).BalanceCents)

	txs, err := f.repos.Wallets.ListTransactions(f.ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.WalletTxWithdrawalHold, txs[0].Type)
	assert.Equal(t, int64(-150), txs[0].AmountCents)
	assert.Equal(t, int64(50), txs[0].BalanceAfterCents)
	require.NotNil(t, txs[0].RelatedRequestID)
	assert.Equal(t, req.ID, *txs[0].RelatedRequestID)
}

func TestWithdrawalRejectRefundsNominalAmount(t *testing.T) {
	t.Run("should restore the balance held before the request", func(t *testing.T) {
		f := newFixture(t)
		a := f.admins(t)
		u := f.ambassador(t)
		f.referrals(t, u.ID, domain.ReferralStatusCompleted, 200)

		req := f.request(t, u.ID, 150)
		out, err := f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "reject", "referrals look synthetic")
		require.NoError(t, err)
		assert.Equal(t, domain.WithdrawalStatusRejected, out.Status)
		assert.Equal(t, "referrals look synthetic", out.AmbassadorAdminNotes)
		require.NotNil(t, out.AmbassadorReviewedBy)
		assert.Equal(t, a.ambassador.ID, *out.AmbassadorReviewedBy)

		assert.Equal(t, int64(200), f.balance(t, u.ID).AvailableBalanceCents)
		assert.Equal(t, int64(200), f.wallet(t, u.ID).BalanceCents)
		assert.Contains(t, f.notificationTypes(t, u.ID), domain.NotifWithdrawalRejected)
	})

	t.Run("should refund the nominal amount after referral facts drift", func(t *testing.T) {
		f := newFixture(t)
		a := f.admins(t)
		u := f.ambassador(t)
		refs := f.referrals(t, u.ID, domain.ReferralStatusCompleted, 200)

		req := f.request(t, u.ID, 150)
		for _, r := range refs[:40] {
			require.NoError(t, f.repos.Referrals.UpdateStatus(f.ctx, r.ID, domain.ReferralStatusFlaggedFraud))
		}
		_, err := f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "reject", "")
		require.NoError(t, err)

		assert.Equal(t, int64(200), f.wallet(t, u.ID).BalanceCents)
		txs, err := f.repos.Wallets.ListTransactions(f.ctx, u.ID, 10)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		refund := txs[0]
		if refund.Type != domain.WalletTxWithdrawalRefund {
			refund = txs[1]
		}
		assert.Equal(t, domain.WalletTxWithdrawalRefund, refund.Type)
		assert.Equal(t, int64(150), refund.AmountCents)
		assert.Equal(t, int64(200), refund.BalanceAfterCents)
		assert.Equal(t, a.ambassador.ID, refund.CreatedBy)

		// the derived balance follows the new facts
		assert.Equal(t, int64(160), f.balance(t, u.ID).AvailableBalanceCents)
	})
}

func TestWithdrawalSingleOpenRequest(t *testing.T) {
	f := newFixture(t)
	a := f.admins(t)
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 400)

	req := f.request(t, u.ID, 100)

	_, err := f.withdrawals.Create(f.ctx, CreateWithdrawalInput{UserID: u.ID, AmountCents: 100, PaymentMethod: "venmo"})
	assert.ErrorIs(t, err, ErrDuplicatePendingRequest)

	_, err = f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "approve", "")
	require.NoError(t, err)
	_, err = f.withdrawals.Create(f.ctx, CreateWithdrawalInput{UserID: u.ID, AmountCents: 100, PaymentMethod: "venmo"})
	assert.ErrorIs(t, err, ErrDuplicatePendingRequest)

	_, err = f.withdrawals.Complete(f.ctx, actor(a.finance), req.ID, "V-1", "")
	require.NoError(t, err)
	next, err := f.withdrawals.Create(f.ctx, CreateWithdrawalInput{UserID: u.ID, AmountCents: 100, PaymentMethod: "venmo"})
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusPending, next.Status)
}

func TestWithdrawalConcurrentCreate(t *testing.T) {
	f := newFixture(t)
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 400)

	const attempts = 5
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.withdrawals.Create(f.ctx, CreateWithdrawalInput{UserID: u.ID, AmountCents: 100, PaymentMethod: "zelle"})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicatePendingRequest)
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, int64(100), f.balance(t, u.ID).PendingHoldCents)
}

func TestWithdrawalCreateGuards(t *testing.T) {
	f := newFixture(t)
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 200)

	create := func(amount int64, method string) error {
		_, err := f.withdrawals.Create(f.ctx, CreateWithdrawalInput{UserID: u.ID, AmountCents: amount, PaymentMethod: method})
		return err
	}

	t.Run("should reject non-positive amounts", func(t *testing.T) {
		assert.ErrorIs(t, create(0, "paypal"), ErrInvalidAmount)
		assert.ErrorIs(t, create(-5, "paypal"), ErrInvalidAmount)
	})

	t.Run("should reject unknown payment methods", func(t *testing.T) {
		assert.ErrorIs(t, create(100, "bitcoin"), ErrInvalidPaymentMethod)
	})

	t.Run("should accept payment methods case-insensitively", func(t *testing.T) {
		req, err := f.withdrawals.Create(f.ctx, CreateWithdrawalInput{UserID: u.ID, AmountCents: 100, PaymentMethod: " Bank_Transfer "})
		require.NoError(t, err)
		assert.Equal(t, "bank_transfer", req.PaymentMethod)
		_, err = f.withdrawals.Review(f.ctx, Actor{ID: 999, Role: domain.RoleAmbassadorAdmin}, req.ID, "reject", "")
		require.NoError(t, err)
	})

	t.Run("should enforce the minimum with a readable message", func(t *testing.T) {
		err := create(99, "paypal")
		assert.ErrorIs(t, err, ErrBelowMinimumWithdrawal)
		assert.Equal(t, "Minimum withdrawal is $1.00", err.Error())
	})

	t.Run("should refuse more than the available balance", func(t *testing.T) {
		err := create(201, "paypal")
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		var se *Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, KindBusinessRule, se.Kind)
		assert.Equal(t, "Insufficient balance: $2.00 available", se.Message)
	})

	t.Run("should refuse when financial rewards are disabled", func(t *testing.T) {
		f.configure(t, SettingsUpdate{FinancialRewardsEnabled: ptr(false)})
		defer f.configure(t, SettingsUpdate{FinancialRewardsEnabled: ptr(true)})
		assert.ErrorIs(t, create(100, "paypal"), ErrRewardsDisabled)
	})

	t.Run("should require accepted terms when configured", func(t *testing.T) {
		f.configure(t, SettingsUpdate{RequireTermsAcceptance: ptr(true)})
		defer f.configure(t, SettingsUpdate{RequireTermsAcceptance: ptr(false)})
		assert.ErrorIs(t, create(100, "paypal"), ErrTermsNotAccepted)

		_, err := f.wallets.AcceptTerms(f.ctx, u.ID)
		require.NoError(t, err)
		assert.NoError(t, create(100, "paypal"))
	})

	t.Run("should leave no trace of refused requests", func(t *testing.T) {
		var n int64
		require.NoError(t, f.db.Model(&models.WithdrawalRequest{}).Where("status = ?", domain.WithdrawalStatusPending).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})
}

func TestWithdrawalRiskAssessment(t *testing.T) {
	f := newFixture(t)
	f.setRate(t, 1, 100)
	u := f.user(t, domain.RoleUser, 5*24*time.Hour)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 300)

	req := f.request(t, u.ID, 1500)
	assert.Equal(t, 55, req.RiskScore)
	assert.Equal(t, risk.LevelMedium, req.RiskLevel)

	stored, err := f.repos.Withdrawals.GetByID(f.ctx, req.ID)
	require.NoError(t, err)
	var a risk.Assessment
	require.NoError(t, json.Unmarshal(stored.RiskNotes, &a))
	assert.Equal(t, 55, a.RiskScore)
	codes := make([]string, 0, len(a.RiskFactors))
	for _, factor := range a.RiskFactors {
		codes = append(codes, factor.Code)
	}
	assert.Equal(t, []string{risk.FactorNewAccount, risk.FactorFirstWithdrawal, risk.FactorLargeAmount}, codes)
	assert.True(t, a.AnalyzedAt.Equal(testNow))
}

func TestWithdrawalTransitions(t *testing.T) {
	f := newFixture(t)
	a := f.admins(t)
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 400)
	req := f.request(t, u.ID, 100)

	t.Run("should validate the review action", func(t *testing.T) {
		_, err := f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "escalate", "")
		assert.ErrorIs(t, err, ErrInvalidAction)
	})

	t.Run("should forbid review by non ambassador admins", func(t *testing.T) {
		_, err := f.withdrawals.Review(f.ctx, actor(u), req.ID, "approve", "")
		assert.ErrorIs(t, err, ErrForbidden)
		_, err = f.withdrawals.Review(f.ctx, actor(a.finance), req.ID, "approve", "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("should report unknown requests", func(t *testing.T) {
		_, err := f.withdrawals.Review(f.ctx, actor(a.ambassador), 9999, "approve", "")
		assert.ErrorIs(t, err, ErrRequestNotFound)
		_, err = f.withdrawals.Complete(f.ctx, actor(a.finance), 9999, "X", "")
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})

	t.Run("should refuse completion before approval", func(t *testing.T) {
		_, err := f.withdrawals.Complete(f.ctx, actor(a.finance), req.ID, "X", "")
		assert.ErrorIs(t, err, ErrInvalidStateForAction)
	})

	t.Run("should approve exactly once", func(t *testing.T) {
		out, err := f.withdrawals.Review(f.ctx, actor(a.super), req.ID, "approve", "ok")
		require.NoError(t, err)
		assert.Equal(t, domain.WithdrawalStatusFinanceReview, out.Status)

		_, err = f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "approve", "")
		assert.ErrorIs(t, err, ErrInvalidStateForAction)
		_, err = f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "reject", "")
		assert.ErrorIs(t, err, ErrInvalidStateForAction)
	})

	t.Run("should require a payment reference", func(t *testing.T) {
		_, err := f.withdrawals.Complete(f.ctx, actor(a.finance), req.ID, "  ", "")
		assert.ErrorIs(t, err, ErrPaymentReferenceRequired)
	})

	t.Run("should forbid completion outside finance roles", func(t *testing.T) {
		_, err := f.withdrawals.Complete(f.ctx, actor(a.ambassador), req.ID, "X", "")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("should not let the reviewer also pay out", func(t *testing.T) {
		_, err := f.withdrawals.Complete(f.ctx, actor(a.super), req.ID, "X", "")
		assert.ErrorIs(t, err, ErrSameReviewer)
	})

	t.Run("should complete exactly once", func(t *testing.T) {
		_, err := f.withdrawals.Complete(f.ctx, actor(a.finance), req.ID, "BT-9", "wired")
		require.NoError(t, err)
		_, err = f.withdrawals.Complete(f.ctx, actor(a.finance), req.ID, "BT-9", "wired")
		assert.ErrorIs(t, err, ErrInvalidStateForAction)

		var n int64
		require.NoError(t, f.db.Model(&models.Consumption{}).Where("request_id = ?", req.ID).Count(&n).Error)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, int64(100), f.wallet(t, u.ID).TotalWithdrawnCents)
	})
}

func TestWithdrawalConcurrentReview(t *testing.T) {
	f := newFixture(t)
	a := f.admins(t)
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 400)
	req := f.request(t, u.ID, 100)

	const attempts = 2
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "approve", "")
		}(i)
	}
	wg.Wait()

	approved := 0
	for _, err := range errs {
		if err == nil {
			approved++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidStateForAction)
	}
	assert.Equal(t, 1, approved)

	reviews := 0
	for _, typ := range f.notificationTypes(t, a.finance.ID) {
		if typ == domain.NotifWithdrawalReview {
			reviews++
		}
	}
	assert.Equal(t, 1, reviews)
	assert.Equal(t, []string{events.TypeCreated, events.TypeApproved}, f.pub.types())
}

func TestWithdrawalNotifications(t *testing.T) {
	f := newFixture(t)
	a := f.admins(t)
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 400)

	req := f.request(t, u.ID, 100)
	assert.Contains(t, f.notificationTypes(t, a.ambassador.ID), domain.NotifWithdrawalRequested)
	assert.Contains(t, f.notificationTypes(t, a.super.ID), domain.NotifWithdrawalRequested)
	assert.Empty(t, f.notificationTypes(t, a.finance.ID))

	_, err := f.withdrawals.Review(f.ctx, actor(a.ambassador), req.ID, "approve", "")
	require.NoError(t, err)
	assert.Equal(t, []string{domain.NotifWithdrawalReview}, f.notificationTypes(t, a.finance.ID))
	assert.Contains(t, f.notificationTypes(t, a.super.ID), domain.NotifWithdrawalReview)
	assert.Equal(t, []string{domain.NotifWithdrawalApproved}, f.notificationTypes(t, u.ID))

	_, err = f.withdrawals.Complete(f.ctx, actor(a.finance), req.ID, "PP-77", "")
	require.NoError(t, err)
	list, err := f.notifications.List(f.ctx, u.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	var completed *models.Notification
	for i := range list {
		if list[i].Type == domain.NotifWithdrawalCompleted {
			completed = &list[i]
		}
	}
	require.NotNil(t, completed)
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(completed.Data, &data))
	assert.Equal(t, "PP-77", data["payment_reference"])
	assert.Contains(t, completed.Body, "PP-77")
}

func TestWithdrawalPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("nats: connection closed")
	u := f.ambassador(t)
	f.referrals(t, u.ID, domain.ReferralStatusCompleted, 200)

	req, err := f.withdrawals.Create(f.ctx, CreateWithdrawalInput{UserID: u.ID, AmountCents: 100, PaymentMethod: "cashapp"})
	require.NoError(t, err)
	assert.NotZero(t, req.ID)
	assert.Equal(t, []string{events.TypeCreated}, f.pub.types())
}

func TestWithdrawalAdminViews(t *testing.T) {
	f := newFixture(t)
	a := f.admins(t)
	u1 := f.ambassador(t)
	u2 := f.ambassador(t)
	f.referrals(t, u1.ID, domain.ReferralStatusCompleted, 200)
	f.referrals(t, u2.ID, domain.ReferralStatusCompleted, 200)
	r1 := f.request(t, u1.ID, 100)
	r2 := f.request(t, u2.ID, 150)
	_, err := f.withdrawals.Review(f.ctx, actor(a.ambassador), r2.ID, "approve", "")
	require.NoError(t, err)

	t.Run("should filter by status", func(t *testing.T) {
		list, total, err := f.withdrawals.AdminList(f.ctx, domain.WithdrawalStatusPending, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, r1.ID, list[0].ID)
		require.NotNil(t, list[0].User)
		assert.Equal(t, u1.Email, list[0].User.Email)
		require.NotNil(t, list[0].Wallet)
		assert.Equal(t, int64(100), list[0].Wallet.BalanceCents)
	})

	t.Run("should list everything newest first without a filter", func(t *testing.T) {
		list, total, err := f.withdrawals.AdminList(f.ctx, "", 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, list, 2)
		assert.Equal(t, r2.ID, list[0].ID)
	})

	t.Run("should reject unknown status filters", func(t *testing.T) {
		_, _, err := f.withdrawals.AdminList(f.ctx, "paid", 1, 20)
		assert.ErrorIs(t, err, ErrInvalidStatusFilter)
	})

	t.Run("should include the live balance in the detail", func(t *testing.T) {
		v, err := f.withdrawals.AdminGet(f.ctx, r2.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.WithdrawalStatusFinanceReview, v.Status)
		require.NotNil(t, v.Balance)
		assert.Equal(t, int64(150), v.Balance.PendingHoldCents)
		assert.Equal(t, int64(50), v.Balance.AvailableBalanceCents)

		_, err = f.withdrawals.AdminGet(f.ctx, 9999)
		assert.ErrorIs(t, err, ErrRequestNotFound)
	})

	t.Run("should page a user's own history", func(t *testing.T) {
		list, total, err := f.withdrawals.ListMine(f.ctx, u1.ID, 1, 20)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, list, 1)
		assert.Equal(t, r1.ID, list[0].ID)
	})
}
