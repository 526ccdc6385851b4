package service

import (
	"fmt"

	"ambassador-ledger/pkg/floors"
)

// Kind classifies an Error for callers deciding how to surface it.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindBusinessRule
	KindStateConflict
	KindNotFound
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindBusinessRule:
		return "business_rule_violation"
	case KindStateConflict:
		return "state_conflict"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is a rejected operation. Every Error is returned before any write
// commits. errors.Is matches on Code, so a sentinel matches any message variant.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) withMessage(format string, args ...interface{}) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidAmount            = &Error{KindValidation, "invalid_amount", "Amount must be a positive number of cents"}
	ErrInvalidPaymentMethod     = &Error{KindValidation, "invalid_payment_method", "Unsupported payment method"}
	ErrInvalidAction            = &Error{KindValidation, "invalid_action", "Action must be approve or reject"}
	ErrPaymentReferenceRequired = &Error{KindValidation, "payment_reference_required", "A payment reference is required to complete a withdrawal"}
	ErrInvalidFloors            = &Error{KindValidation, "invalid_floors", "Floors to redeem must be positive"}
	ErrInvalidRewardType        = &Error{KindValidation, "invalid_reward_type", "A reward type is required"}
	ErrInvalidSettings          = &Error{KindValidation, "invalid_settings", "Invalid program settings"}
	ErrInvalidStatusFilter      = &Error{KindValidation, "invalid_status_filter", "Unknown withdrawal status filter"}

	ErrRewardsDisabled         = &Error{KindBusinessRule, "rewards_disabled", "Financial rewards are not currently available"}
	ErrBelowMinimumWithdrawal  = &Error{KindBusinessRule, "below_minimum_withdrawal", "Amount is below the minimum withdrawal"}
	ErrInsufficientBalance     = &Error{KindBusinessRule, "insufficient_balance", "Insufficient balance"}
	ErrInsufficientFloors      = &Error{KindBusinessRule, "insufficient_floors", "Not enough available floors"}
	ErrDuplicatePendingRequest = &Error{KindBusinessRule, "duplicate_pending_request", "You already have a request under review"}
	ErrTermsNotAccepted        = &Error{KindBusinessRule, "terms_not_accepted", "Please accept the ambassador terms before withdrawing"}

	ErrInvalidStateForAction = &Error{KindStateConflict, "invalid_state_for_action", "This request can no longer be changed"}

	ErrRequestNotFound      = &Error{KindNotFound, "request_not_found", "Withdrawal request not found"}
	ErrNotificationNotFound = &Error{KindNotFound, "notification_not_found", "Notification not found"}

	ErrForbidden    = &Error{KindForbidden, "forbidden", "You do not have permission for this action"}
	ErrSameReviewer = &Error{KindForbidden, "same_reviewer", "The ambassador reviewer cannot also complete the payout"}
)

func belowMinimum(minCents int64) error {
	return ErrBelowMinimumWithdrawal.withMessage("Minimum withdrawal is %s", floors.FormatDollars(minCents))
}

func insufficientBalance(availableCents int64) error {
	return ErrInsufficientBalance.withMessage("Insufficient balance: %s available", floors.FormatDollars(availableCents))
}

func insufficientFloors(available int64) error {
	return ErrInsufficientFloors.withMessage("Only %d floors are available", available)
}

func invalidState(status string) error {
	return ErrInvalidStateForAction.withMessage("Request is %s and cannot take this action", status)
}
