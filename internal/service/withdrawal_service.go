package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"ambassador-ledger/internal/database"
	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/events"
	"ambassador-ledger/internal/models"
	"ambassador-ledger/pkg/floors"
	"ambassador-ledger/pkg/risk"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WithdrawalService drives a withdrawal request through
// pending -> finance_review -> completed, or pending -> rejected.
//
// Each operation checks its guards and applies all of its writes inside one
// transaction. Row locks are always taken wallet first, then request, so
// creation and transitions for the same user cannot deadlock.
type WithdrawalService struct {
	db           *gorm.DB
	repos        Repos
	notifier     *NotificationService
	consumptions *ConsumptionService
	publisher    events.Publisher
	log       *zap.Logger
	now       func() time.Time
}

func NewWithdrawalService(db *gorm.DB, repos Repos, notifier *NotificationService, consumptions *ConsumptionService, publisher events.Publisher, log *zap.Logger) *WithdrawalService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &WithdrawalService{
		db:           db,
		repos:        repos,
		notifier:     notifier,
		consumptions: consumptions,
		publisher:    publisher,
		log:          log,
		now:          time.Now,
	}
}

type CreateWithdrawalInput struct {
	UserID         uint
	AmountCents    int64
	PaymentMethod  string
	PaymentDetails string
}

// Create places a hold for the requested amount. The risk assessment is
// attached for reviewers and never blocks the request.
func (s *WithdrawalService) Create(ctx context.Context, in CreateWithdrawalInput) (*models.WithdrawalRequest, error) {
	if in.AmountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if !slices.Contains(domain.PaymentMethods, method) {
		return nil, ErrInvalidPaymentMethod.withMessage("Payment method must be one of: %s", strings.Join(domain.PaymentMethods, ", "))
	}

	var req *models.WithdrawalRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		wallet, err := r.Wallets.LockForUser(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		ps, err := loadProgram(ctx, r)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		if !ps.FinancialRewardsEnabled {
			return ErrRewardsDisabled
		}
		if in.AmountCents < ps.MinWithdrawalCents {
			return belowMinimum(ps.MinWithdrawalCents)
		}
		if ps.RequireTermsAcceptance && wallet.TermsAcceptedAt == nil {
			return ErrTermsNotAccepted
		}
		open, err := r.Withdrawals.GetOpenByUser(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("check open requests: %w", err)
		}
		if open != nil {
			return ErrDuplicatePendingRequest
		}
		st, err := loadState(ctx, r, in.UserID, ps)
		if err != nil {
			return fmt.Errorf("compute balance: %w", err)
		}
		if st.balance.AvailableBalanceCents < in.AmountCents {
			return insufficientBalance(st.balance.AvailableBalanceCents)
		}
		assessment, err := s.assess(ctx, r, in.UserID, in.AmountCents, st)
		if err != nil {
			return fmt.Errorf("score risk: %w", err)
		}
		notes, err := json.Marshal(assessment)
		if err != nil {
			return err
		}

		slot := in.UserID
		req = &models.WithdrawalRequest{
			UserID:         in.UserID,
			AmountCents:    in.AmountCents,
			PaymentMethod:  method,
			PaymentDetails: strings.TrimSpace(in.PaymentDetails),
			Status:         domain.WithdrawalStatusPending,
			OpenSlot:       &slot,
			RiskScore:      assessment.RiskScore,
			RiskLevel:      assessment.RiskLevel,
			RiskNotes:      notes,
		}
		if err := r.Withdrawals.Create(ctx, req); err != nil {
			if database.IsDuplicateKey(err) {
				return ErrDuplicatePendingRequest
			}
			return fmt.Errorf("create request: %w", err)
		}

		after := st.balance.AvailableBalanceCents - in.AmountCents
		if err := r.Wallets.RecordTransaction(ctx, &models.WalletTransaction{
			UserID:            in.UserID,
			Type:              domain.WalletTxWithdrawalHold,
			AmountCents:       -in.AmountCents,
			BalanceAfterCents: after,
			Description:       fmt.Sprintf("Withdrawal request #%d via %s", req.ID, method),
			RelatedRequestID:  &req.ID,
			CreatedBy:         in.UserID,
		}); err != nil {
			return fmt.Errorf("record hold: %w", err)
		}
		if err := r.Wallets.SetBalance(ctx, in.UserID, after); err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		return s.notifier.withRepos(r).NotifyWithdrawalRequested(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal requested",
		zap.Uint("request_id", req.ID),
		zap.Uint("user_id", req.UserID),
		zap.Int64("amount_cents", req.AmountCents),
		zap.Int("risk_score", req.RiskScore),
		zap.String("risk_level", req.RiskLevel),
	)
	s.publish(ctx, events.TypeCreated, req, in.UserID)
	return req, nil
}

func (s *WithdrawalService) assess(ctx context.Context, r Repos, userID uint, amountCents int64, st ledgerState) (risk.Assessment, error) {
	var createdAt time.Time
	u, err := r.Users.GetByID(ctx, userID)
	switch {
	case err == nil:
		createdAt = u.CreatedAt
	case errors.Is(err, gorm.ErrRecordNotFound):
		// unknown account age scores as a new account
	default:
		return risk.Assessment{}, err
	}
	past, err := r.Withdrawals.CountCompleted(ctx, userID)
	if err != nil {
		return risk.Assessment{}, err
	}
	return risk.Score(risk.Input{
		TotalReferrals:           st.referrals.TotalReferrals,
		FlaggedReferrals:         st.referrals.FlaggedFloors,
		AccountCreatedAt:         createdAt,
		PastCompletedWithdrawals: past,
		AmountCents:              amountCents,
	}, s.now()), nil
}

// requestOwner resolves the user a request belongs to. It runs before the
// transaction opens so the wallet lock can be the transaction's first statement.
func (s *WithdrawalService) requestOwner(ctx context.Context, id uint) (uint, error) {
	req, err := s.repos.Withdrawals.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrRequestNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load request: %w", err)
	}
	return req.UserID, nil
}

// lockRequest locks the owner's wallet and then the request row.
func (s *WithdrawalService) lockRequest(ctx context.Context, r Repos, userID, id uint) (*models.WithdrawalRequest, *models.AmbassadorWallet, error) {
	wallet, err := r.Wallets.LockForUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("lock wallet: %w", err)
	}
	req, err := r.Withdrawals.GetByIDForUpdate(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lock request: %w", err)
	}
	return req, wallet, nil
}

// Review is the ambassador-admin step: approve moves the request to finance
// review, reject releases the hold and refunds exactly the requested amount.
func (s *WithdrawalService) Review(ctx context.Context, actor Actor, requestID uint, action, notes string) (*models.WithdrawalRequest, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != domain.ReviewActionApprove && action != domain.ReviewActionReject {
		return nil, ErrInvalidAction
	}
	if !domain.HasRole(actor.Role, domain.AmbassadorReviewRoles) {
		return nil, ErrForbidden
	}
	owner, err := s.requestOwner(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var out *models.WithdrawalRequest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		notifier := s.notifier.withRepos(r)
		req, wallet, err := s.lockRequest(ctx, r, owner, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.WithdrawalStatusPending {
			return invalidState(req.Status)
		}

		updates := map[string]interface{}{
			"ambassador_admin_notes": strings.TrimSpace(notes),
			"ambassador_reviewed_by": actor.ID,
			"ambassador_reviewed_at": s.now().UTC(),
		}
		if action == domain.ReviewActionApprove {
			updates["status"] = domain.WithdrawalStatusFinanceReview
		} else {
			updates["status"] = domain.WithdrawalStatusRejected
			updates["open_slot"] = nil
		}
		ok, err := r.Withdrawals.Transition(ctx, req.ID, domain.WithdrawalStatusPending, updates)
		if err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if !ok {
			return ErrInvalidStateForAction
		}
		if out, err = r.Withdrawals.GetByID(ctx, req.ID); err != nil {
			return fmt.Errorf("reload request: %w", err)
		}

		if action == domain.ReviewActionApprove {
			if err := notifier.NotifyFinanceReview(ctx, out); err != nil {
				return err
			}
			return notifier.NotifyApproved(ctx, out)
		}

		// The refund is the nominal amount, independent of how the derived
		// balance moved since the hold.
		if err := r.Wallets.CreditBalance(ctx, wallet.UserID, out.AmountCents); err != nil {
			return fmt.Errorf("credit wallet: %w", err)
		}
		if err := r.Wallets.RecordTransaction(ctx, &models.WalletTransaction{
			UserID:            out.UserID,
			Type:              domain.WalletTxWithdrawalRefund,
			AmountCents:       out.AmountCents,
			BalanceAfterCents: wallet.BalanceCents + out.AmountCents,
			Description:       fmt.Sprintf("Refund for rejected withdrawal #%d", out.ID),
			RelatedRequestID:  &out.ID,
			CreatedBy:         actor.ID,
		}); err != nil {
			return fmt.Errorf("record refund: %w", err)
		}
		return notifier.NotifyRejected(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	eventType := events.TypeApproved
	if out.Status == domain.WithdrawalStatusRejected {
		eventType = events.TypeRejected
	}
	s.log.Info("withdrawal reviewed",
		zap.Uint("request_id", out.ID),
		zap.Uint("admin_id", actor.ID),
		zap.String("status", out.Status),
	)
	s.publish(ctx, eventType, out, actor.ID)
	return out, nil
}

// Complete is the finance step: it records the payout, consumes the floors the
// amount is worth and releases the hold.
func (s *WithdrawalService) Complete(ctx context.Context, actor Actor, requestID uint, paymentReference, notes string) (*models.WithdrawalRequest, error) {
	ref := strings.TrimSpace(paymentReference)
	if ref == "" {
		return nil, ErrPaymentReferenceRequired
	}
	if !domain.HasRole(actor.Role, domain.FinanceRoles) {
		return nil, ErrForbidden
	}
	owner, err := s.requestOwner(ctx, requestID)
	if err != nil {
		return nil, err
	}

	var out *models.WithdrawalRequest
	var consumed int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.repos.WithTx(tx)
		req, wallet, err := s.lockRequest(ctx, r, owner, requestID)
		if err != nil {
			return err
		}
		if req.Status != domain.WithdrawalStatusFinanceReview {
			return invalidState(req.Status)
		}
		if req.AmbassadorReviewedBy != nil && *req.AmbassadorReviewedBy == actor.ID {
			return ErrSameReviewer
		}
		ps, err := loadProgram(ctx, r)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}

		now := s.now().UTC()
		ok, err := r.Withdrawals.Transition(ctx, req.ID, domain.WithdrawalStatusFinanceReview, map[string]interface{}{
			"status":              domain.WithdrawalStatusCompleted,
			"open_slot":           nil,
			"finance_notes":       strings.TrimSpace(notes),
			"finance_reviewed_by": actor.ID,
			"finance_reviewed_at": now,
			"payment_reference":   ref,
		})
		if err != nil {
			return fmt.Errorf("update request: %w", err)
		}
		if !ok {
			return ErrInvalidStateForAction
		}

		consumed = floors.FloorsForAmount(req.AmountCents, ps.BuildingsPerDollar)
		ledgerNotes := fmt.Sprintf("Withdrawal #%d paid, reference %s", req.ID, ref)
		if n := strings.TrimSpace(notes); n != "" {
			ledgerNotes += ": " + n
		}
		if _, err := s.consumptions.withRepos(r).RecordConsumption(ctx, ConsumptionInput{
			UserID:     req.UserID,
			RewardType: domain.RewardTypeFinancialWithdrawal,
			Floors:     consumed,
			AdminID:    actor.ID,
			Notes:      ledgerNotes,
			RequestID:  &req.ID,
			ConsumedAt: now,
		}); err != nil {
			return err
		}
		if err := r.Wallets.AddWithdrawn(ctx, req.UserID, req.AmountCents); err != nil {
			return fmt.Errorf("update wallet: %w", err)
		}
		wallet.TotalWithdrawnCents += req.AmountCents

		st, err := loadState(ctx, r, req.UserID, ps)
		if err != nil {
			return fmt.Errorf("compute balance: %w", err)
		}
		if _, err := syncWalletCache(ctx, r, wallet, st.balance); err != nil {
			return fmt.Errorf("sync wallet cache: %w", err)
		}
		if out, err = r.Withdrawals.GetByID(ctx, req.ID); err != nil {
			return fmt.Errorf("reload request: %w", err)
		}
		return s.notifier.withRepos(r).NotifyCompleted(ctx, out)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("withdrawal completed",
		zap.Uint("request_id", out.ID),
		zap.Uint("admin_id", actor.ID),
		zap.Int64("amount_cents", out.AmountCents),
		zap.Int64("floors_consumed", consumed),
		zap.String("payment_reference", out.PaymentReference),
	)
	s.publish(ctx, events.TypeCompleted, out, actor.ID)
	return out, nil
}

func (s *WithdrawalService) publish(ctx context.Context, eventType string, w *models.WithdrawalRequest, actorID uint) {
	e := events.New(eventType, w.ID, w.UserID, w.AmountCents, w.Status, actorID, s.now())
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("publish withdrawal event failed",
			zap.String("type", eventType),
			zap.Uint("request_id", w.ID),
			zap.Error(err),
		)
	}
}

// UserSummary is the requester context shown to admins.
type UserSummary struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type AdminRequestView struct {
	models.WithdrawalRequest
	User    *UserSummary             `json:"user"`
	Wallet  *models.AmbassadorWallet `json:"wallet"`
	Balance *floors.Balance          `json:"live_balance,omitempty"`
}

var statusFilters = []string{
	domain.WithdrawalStatusPending,
	domain.WithdrawalStatusFinanceReview,
	domain.WithdrawalStatusCompleted,
	domain.WithdrawalStatusRejected,
}

// AdminList pages through requests with requester and wallet context.
func (s *WithdrawalService) AdminList(ctx context.Context, status string, page, limit int) ([]AdminRequestView, int64, error) {
	status = strings.TrimSpace(status)
	if status != "" && !slices.Contains(statusFilters, status) {
		return nil, 0, ErrInvalidStatusFilter
	}
	list, total, err := s.repos.Withdrawals.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	ids := make([]uint, 0, len(list))
	for _, w := range list {
		ids = append(ids, w.UserID)
	}
	users, err := s.repos.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load users: %w", err)
	}
	wallets, err := s.repos.Wallets.GetByUserIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("load wallets: %w", err)
	}
	out := make([]AdminRequestView, 0, len(list))
	for _, w := range list {
		v := AdminRequestView{WithdrawalRequest: w}
		if u, ok := users[w.UserID]; ok {
			v.User = summarize(u)
		}
		if wl, ok := wallets[w.UserID]; ok {
			v.Wallet = &wl
		}
		out = append(out, v)
	}
	return out, total, nil
}

// AdminGet returns one request with the requester's live balance.
func (s *WithdrawalService) AdminGet(ctx context.Context, id uint) (*AdminRequestView, error) {
	w, err := s.repos.Withdrawals.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load request: %w", err)
	}
	v := &AdminRequestView{WithdrawalRequest: *w}
	if u, err := s.repos.Users.GetByID(ctx, w.UserID); err == nil {
		v.User = summarize(*u)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if wl, err := s.repos.Wallets.GetByUserID(ctx, w.UserID); err == nil {
		v.Wallet = wl
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	ps, err := loadProgram(ctx, s.repos)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	st, err := loadState(ctx, s.repos, w.UserID, ps)
	if err != nil {
		return nil, fmt.Errorf("compute balance: %w", err)
	}
	v.Balance = &st.balance
	return v, nil
}

func (s *WithdrawalService) ListMine(ctx context.Context, userID uint, page, limit int) ([]models.WithdrawalRequest, int64, error) {
	return s.repos.Withdrawals.ListByUser(ctx, userID, page, limit)
}

func summarize(u models.User) *UserSummary {
	return &UserSummary{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}
