package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ambassador-ledger/internal/domain"
	"ambassador-ledger/internal/models"
	"ambassador-ledger/pkg/floors"

	"gorm.io/gorm"
)

// NotificationService inserts in-app notifications. Delivery beyond the
// notifications table belongs to other services. Ledger operations bind it to
// their transaction so a notification commits with the transition it describes.
type NotificationService struct {
	repos Repos
}

func NewNotificationService(repos Repos) *NotificationService {
	return &NotificationService{repos: repos}
}

func (s *NotificationService) withRepos(r Repos) *NotificationService {
	return &NotificationService{repos: r}
}

func (s *NotificationService) Notify(ctx context.Context, userID uint, notifType, title, body string, data map[string]interface{}) error {
	n, err := buildNotification(userID, notifType, title, body, data)
	if err != nil {
		return err
	}
	return s.repos.Notifications.Create(ctx, &n)
}

// NotifyRoles sends the same notification to every user holding one of roles.
func (s *NotificationService) NotifyRoles(ctx context.Context, roles []string, notifType, title, body string, data map[string]interface{}) error {
	ids, err := s.repos.Users.ListIDsByRoles(ctx, roles)
	if err != nil {
		return err
	}
	list := make([]models.Notification, 0, len(ids))
	for _, id := range ids {
		n, err := buildNotification(id, notifType, title, body, data)
		if err != nil {
			return err
		}
		list = append(list, n)
	}
	return s.repos.Notifications.CreateBatch(ctx, list)
}

func buildNotification(userID uint, notifType, title, body string, data map[string]interface{}) (models.Notification, error) {
	n := models.Notification{UserID: userID, Type: notifType, Title: title, Body: body}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return n, err
		}
		n.Data = b
	}
	return n, nil
}

func requestData(w *models.WithdrawalRequest) map[string]interface{} {
	return map[string]interface{}{
		"request_id":     w.ID,
		"user_id":        w.UserID,
		"amount_cents":   w.AmountCents,
		"payment_method": w.PaymentMethod,
		"status":         w.Status,
	}
}

// NotifyWithdrawalRequested tells ambassador admins a request awaits review.
func (s *NotificationService) NotifyWithdrawalRequested(ctx context.Context, w *models.WithdrawalRequest) error {
	data := requestData(w)
	data["risk_score"] = w.RiskScore
	data["risk_level"] = w.RiskLevel
	return s.NotifyRoles(ctx, domain.AmbassadorReviewRoles, domain.NotifWithdrawalRequested,
		"New ambassador withdrawal",
		fmt.Sprintf("User #%d requested %s via %s (risk: %s)", w.UserID, floors.FormatDollars(w.AmountCents), w.PaymentMethod, w.RiskLevel),
		data)
}

// NotifyFinanceReview tells finance admins an approved request needs payout.
func (s *NotificationService) NotifyFinanceReview(ctx context.Context, w *models.WithdrawalRequest) error {
	return s.NotifyRoles(ctx, domain.FinanceRoles, domain.NotifWithdrawalReview,
		"Withdrawal ready for payout",
		fmt.Sprintf("Withdrawal #%d for %s was approved and needs payment", w.ID, floors.FormatDollars(w.AmountCents)),
		requestData(w))
}

func (s *NotificationService) NotifyApproved(ctx context.Context, w *models.WithdrawalRequest) error {
	return s.Notify(ctx, w.UserID, domain.NotifWithdrawalApproved,
		"Withdrawal approved",
		fmt.Sprintf("Your withdrawal of %s was approved and is being processed", floors.FormatDollars(w.AmountCents)),
		requestData(w))
}

func (s *NotificationService) NotifyRejected(ctx context.Context, w *models.WithdrawalRequest) error {
	body := fmt.Sprintf("Your withdrawal of %s was not approved and the amount is back in your wallet", floors.FormatDollars(w.AmountCents))
	if w.AmbassadorAdminNotes != "" {
		body += ": " + w.AmbassadorAdminNotes
	}
	return s.Notify(ctx, w.UserID, domain.NotifWithdrawalRejected, "Withdrawal rejected", body, requestData(w))
}

func (s *NotificationService) NotifyCompleted(ctx context.Context, w *models.WithdrawalRequest) error {
	data := requestData(w)
	data["payment_reference"] = w.PaymentReference
	return s.Notify(ctx, w.UserID, domain.NotifWithdrawalCompleted,
		"Withdrawal paid",
		fmt.Sprintf("Your withdrawal of %s has been paid (reference %s)", floors.FormatDollars(w.AmountCents), w.PaymentReference),
		data)
}

func (s *NotificationService) NotifyRedeemed(ctx context.Context, c *models.Consumption) error {
	return s.Notify(ctx, c.UserID, domain.NotifRewardRedeemed,
		"Reward redeemed",
		fmt.Sprintf("%d floors were redeemed for %s", c.FloorsConsumed, c.RewardType),
		map[string]interface{}{"consumption_id": c.ID, "floors_consumed": c.FloorsConsumed, "reward_type": c.RewardType})
}

func (s *NotificationService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Notification, error) {
	return s.repos.Notifications.ListByUserID(ctx, userID, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	err := s.repos.Notifications.MarkRead(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
