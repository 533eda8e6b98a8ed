package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
	"github.com/safar/go-marketplace/internal/store"
)

type RegisterRequest struct {
	Name       string
	Email      string
	Password   string
	Role       models.Role
	VendorName string
}

// Account is a user together with its vendor row, if it has one.
type Account struct {
	User   *models.User   `json:"user"`
	Vendor *models.Vendor `json:"vendor,omitempty"`
}

type Session struct {
	User      *models.User   `json:"user"`
	Vendor    *models.Vendor `json:"vendor,omitempty"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Service registers accounts and exchanges credentials for tokens.
type Service struct {
	db     *sql.DB
	tokens *TokenIssuer
}

func NewService(db *sql.DB, tokens *TokenIssuer) *Service {
	return &Service{db: db, tokens: tokens}
}

// Register creates a customer or vendor account awaiting approval. Admins
// are never created through registration. Vendor accounts get their pending
// vendor row in the same unit of work. No token is issued until an admin
// approves the account and the user logs in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}
	if req.Role != models.RoleCustomer && req.Role != models.RoleVendor {
		return nil, ErrForbidden
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var (
		user   *models.User
		vendor *models.Vendor
	)
	err = database.WithTransaction(ctx, s.db, database.DefaultTxOptions(), func(uow *database.UnitOfWork) error {
		var err error
		user, err = store.CreateUser(ctx, uow, strings.ToLower(req.Email), req.Name, hash, req.Role, models.ApprovalPending)
		if err != nil {
			return err
		}

		if req.Role == models.RoleVendor {
			name := req.VendorName
			if name == "" {
				name = req.Name
			}
			vendor, err = store.CreateVendor(ctx, uow, user.ID, name, models.ApprovalPending)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Account{User: user, Vendor: vendor}, nil
}

// Login checks the password, then refuses accounts that are not approved.
// Admins are exempt from approval. Vendors also need an approved vendor row.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := store.GetUserByEmail(ctx, s.db, strings.ToLower(email))
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	var vendor *models.Vendor
	if user.Role == models.RoleVendor {
		vendor, err = store.GetVendorByUserID(ctx, s.db, user.ID)
		if err != nil && !errors.Is(err, database.ErrVendorNotFound) {
			return nil, err
		}
	}

	if err := checkApproved(user, vendor); err != nil {
		return nil, err
	}

	return s.session(user, vendor)
}

func (s *Service) session(user *models.User, vendor *models.Vendor) (*Session, error) {
	var vendorID *int64
	if vendor != nil {
		vendorID = &vendor.ID
	}

	token, expiresAt, err := s.tokens.Issue(user, vendorID)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &Session{User: user, Vendor: vendor, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) ListUsers(ctx context.Context, actor Principal, filter store.UserFilter, page, perPage int) (*store.OffsetPage, error) {
	if err := Authorize(actor, CapManageUsers); err != nil {
		return nil, err
	}
	if perPage <= 0 {
		perPage = 15
	}
	return store.ListUsers(ctx, s.db, filter, max(page, 1), min(perPage, 100))
}
