package domain

import "slices"

const (
	RoleUser            = "user"
	RoleAmbassadorAdmin = "ambassador_admin"
	RoleFinanceAdmin    = "finance_admin"
	RoleSuperAdmin      = "super_admin"
)

// AmbassadorReviewRoles may approve or reject a pending withdrawal.
var AmbassadorReviewRoles = []string{RoleAmbassadorAdmin, RoleSuperAdmin}

// FinanceRoles may complete a withdrawal under finance review.
var FinanceRoles = []string{RoleFinanceAdmin, RoleSuperAdmin}

// AdminRoles may read the back-office listings.
var AdminRoles = []string{RoleAmbassadorAdmin, RoleFinanceAdmin, RoleSuperAdmin}

func HasRole(role string, allowed []string) bool {
	return slices.Contains(allowed, role)
}

const (
	ReferralStatusPending      = "pending"
	ReferralStatusCompleted    = "completed"
	ReferralStatusFlaggedFraud = "flagged_fraud"
)

const (
	WithdrawalStatusPending       = "pending"
	WithdrawalStatusFinanceReview = "finance_review"
	WithdrawalStatusCompleted     = "completed"
	WithdrawalStatusRejected      = "rejected"
)

// TerminalWithdrawalStatuses never transition again.
var TerminalWithdrawalStatuses = []string{WithdrawalStatusCompleted, WithdrawalStatusRejected}

const (
	ReviewActionApprove = "approve"
	ReviewActionReject  = "reject"
)

const (
	WalletTxWithdrawalHold   = "withdrawal_hold"
	WalletTxWithdrawalRefund = "withdrawal_refund"
)

const (
	RewardTypeFinancialWithdrawal = "financial_withdrawal"
)

var PaymentMethods = []string{"paypal", "bank_transfer", "venmo", "zelle", "cashapp", "gift_card"}

const (
	NotifWithdrawalRequested = "AMBASSADOR_WITHDRAWAL_REQUESTED"
	NotifWithdrawalApproved  = "AMBASSADOR_WITHDRAWAL_APPROVED"
	NotifWithdrawalReview    = "AMBASSADOR_WITHDRAWAL_FINANCE_REVIEW"
	NotifWithdrawalRejected  = "AMBASSADOR_WITHDRAWAL_REJECTED"
	NotifWithdrawalCompleted = "AMBASSADOR_WITHDRAWAL_COMPLETED"
	NotifRewardRedeemed      = "AMBASSADOR_REWARD_REDEEMED"
)
