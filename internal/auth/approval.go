package auth

import (
	"context"
	"errors"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

const (
	CodeAccountPending     = "ACCOUNT_PENDING"
	CodeAccountRejected    = "ACCOUNT_REJECTED"
	CodeAccountNotApproved = "ACCOUNT_NOT_APPROVED"
	CodeVendorNotApproved  = "VENDOR_NOT_APPROVED"
	CodeAlreadyApproved    = "ALREADY_APPROVED"
	CodeAlreadyRejected    = "ALREADY_REJECTED"
)

const (
	defaultUserRejection   = "Account rejected by administrator."
	defaultVendorRejection = "Vendor account rejected by administrator."
)

// LoginRefusedError turns away correct credentials for an account that is
// not approved. Message is safe to show to the caller.
type LoginRefusedError struct {
	Code    string
	Message string
}

func (e *LoginRefusedError) Error() string { return e.Message }

// DecisionError reports an approval decision that is already in effect.
type DecisionError struct {
	Code    string
	Message string
}

func (e *DecisionError) Error() string { return e.Message }

func checkApproved(user *models.User, vendor *models.Vendor) error {
	if user.Role == models.RoleAdmin {
		return nil
	}

	switch user.ApprovalStatus {
	case models.ApprovalApproved:
	case models.ApprovalPending:
		return &LoginRefusedError{
			Code:    CodeAccountPending,
			Message: "Your account is pending approval. Please wait for administrator approval before logging in.",
		}
	case models.ApprovalRejected:
		message := "Your account has been rejected."
		if user.RejectionReason != nil && *user.RejectionReason != "" {
			message += " Reason: " + *user.RejectionReason
		}
		return &LoginRefusedError{Code: CodeAccountRejected, Message: message}
	default:
		return &LoginRefusedError{
			Code:    CodeAccountNotApproved,
			Message: "Your account is not approved. Please contact administrator.",
		}
	}

	if user.Role == models.RoleVendor && (vendor == nil || !vendor.IsApproved()) {
		return &LoginRefusedError{
			Code:    CodeVendorNotApproved,
			Message: "Your vendor account is not approved. Please wait for administrator approval.",
		}
	}
	return nil
}

// ApproveUser approves the account and, for vendor users, their vendor row.
func (s *Service) ApproveUser(ctx context.Context, actor Principal, userID int64) (*Account, error) {
	if err := Authorize(actor, CapApproveAccounts); err != nil {
		return nil, err
	}

	account := &Account{}
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		user, err := store.LockUser(ctx, uow, userID)
		if err != nil {
			return err
		}
		if user.IsApproved() {
			return &DecisionError{Code: CodeAlreadyApproved, Message: "User is already approved."}
		}

		account.User, err = store.ApproveUser(ctx, uow, userID, actor.UserID)
		if err != nil {
			return err
		}
		if user.Role != models.RoleVendor {
			return nil
		}

		account.Vendor, err = setUserVendorStatus(ctx, uow, userID, models.ApprovalApproved)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// RejectUser rejects the account with reason, or a default one when empty,
// and rejects the vendor row of vendor users.
func (s *Service) RejectUser(ctx context.Context, actor Principal, userID int64, reason string) (*Account, error) {
	if err := Authorize(actor, CapApproveAccounts); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = defaultUserRejection
	}

	account := &Account{}
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		user, err := store.LockUser(ctx, uow, userID)
		if err != nil {
			return err
		}
		if user.ApprovalStatus == models.ApprovalRejected {
			return &DecisionError{Code: CodeAlreadyRejected, Message: "User is already rejected."}
		}

		account.User, err = store.RejectUser(ctx, uow, userID, reason)
		if err != nil {
			return err
		}
		if user.Role != models.RoleVendor {
			return nil
		}

		account.Vendor, err = setUserVendorStatus(ctx, uow, userID, models.ApprovalRejected)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func setUserVendorStatus(ctx context.Context, uow *database.UnitOfWork, userID int64, status string) (*models.Vendor, error) {
	vendor, err := store.GetVendorByUserID(ctx, uow, userID)
	if errors.Is(err, database.ErrVendorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return store.SetVendorStatus(ctx, uow, vendor.ID, status)
}

// lockVendorAccount locks the owning user before the vendor, the same order
// the user decisions take.
func lockVendorAccount(ctx context.Context, uow *database.UnitOfWork, vendorID int64) (*models.Vendor, error) {
	vendor, err := store.GetVendor(ctx, uow, vendorID)
	if err != nil {
		return nil, err
	}
	if _, err := store.LockUser(ctx, uow, vendor.UserID); err != nil {
		return nil, err
	}
	return store.LockVendor(ctx, uow, vendorID)
}

// ApproveVendor approves the vendor and the user that owns it.
func (s *Service) ApproveVendor(ctx context.Context, actor Principal, vendorID int64) (*Account, error) {
	if err := Authorize(actor, CapApproveAccounts); err != nil {
		return nil, err
	}

	account := &Account{}
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		vendor, err := lockVendorAccount(ctx, uow, vendorID)
		if err != nil {
			return err
		}
		if vendor.IsApproved() {
			return &DecisionError{Code: CodeAlreadyApproved, Message: "Vendor is already approved."}
		}

		account.Vendor, err = store.SetVendorStatus(ctx, uow, vendorID, models.ApprovalApproved)
		if err != nil {
			return err
		}
		account.User, err = store.ApproveUser(ctx, uow, vendor.UserID, actor.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// RejectVendor rejects the vendor and the user that owns it.
func (s *Service) RejectVendor(ctx context.Context, actor Principal, vendorID int64, reason string) (*Account, error) {
	if err := Authorize(actor, CapApproveAccounts); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = defaultVendorRejection
	}

	account := &Account{}
	err := database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		vendor, err := lockVendorAccount(ctx, uow, vendorID)
		if err != nil {
			return err
		}
		if vendor.Status == models.ApprovalRejected {
			return &DecisionError{Code: CodeAlreadyRejected, Message: "Vendor is already rejected."}
		}

		account.Vendor, err = store.SetVendorStatus(ctx, uow, vendorID, models.ApprovalRejected)
		if err != nil {
			return err
		}
		account.User, err = store.RejectUser(ctx, uow, vendor.UserID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *Service) ListVendors(ctx context.Context, actor Principal, filter store.VendorFilter, page, perPage int) (*store.OffsetPage, error) {
	if err := Authorize(actor, CapApproveAccounts); err != nil {
		return nil, err
	}
	if perPage <= 0 {
		perPage = 15
	}
	return store.ListVendors(ctx, s.db, filter, max(page, 1), min(perPage, 100))
}
