package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/go-marketplace/internal/database"
	"github.com/safar/go-marketplace/internal/models"
)

const userColumns = `id, email, name, password_hash, role, approval_status, approved_at, approved_by, rejection_reason, created_at, updated_at, version`

func scanUser(row rowScanner, user *models.User) error {
	var (
		approvedAt sql.NullTime
		approvedBy sql.NullInt64
		reason     sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.ApprovalStatus,
		&approvedAt,
		&approvedBy,
		&reason,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.Version,
	)
	if err != nil {
		return err
	}

	user.ApprovedAt = nil
	if approvedAt.Valid {
		user.ApprovedAt = &approvedAt.Time
	}
	user.ApprovedBy = nullInt64Ptr(approvedBy)
	user.RejectionReason = nil
	if reason.Valid {
		user.RejectionReason = &reason.String
	}
	return nil
}

// CreateUser inserts a user in the given approval state. Approved users get
// approved_at stamped on insert.
func CreateUser(ctx context.Context, q database.Querier, email, name, passwordHash string, role models.Role, approval string) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (email, name, password_hash, role, approval_status, approved_at, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, CASE WHEN $6 THEN NOW() END, NOW(), NOW(), 1)
		RETURNING ` + userColumns

	err := scanUser(q.QueryRowContext(ctx, query, email, name, passwordHash, role, approval, approval == models.ApprovalApproved), user)
	if err != nil {
		if database.IsUniqueViolation(err, "users_email_unique") {
			return nil, database.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, q database.Querier, id int64) (*models.User, error) {
	user := &models.User{}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	if err := scanUser(q.QueryRowContext(ctx, query, id), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return user, nil
}

// LockUser reads the user FOR UPDATE so approval decisions on one account
// serialize.
func LockUser(ctx context.Context, uow *database.UnitOfWork, id int64) (*models.User, error) {
	user := &models.User{}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	if err := scanUser(uow.QueryRowContext(ctx, query, id), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user %d: %w", id, err)
	}

	return user, nil
}

func GetUserByEmail(ctx context.Context, q database.Querier, email string) (*models.User, error) {
	user := &models.User{}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	if err := scanUser(q.QueryRowContext(ctx, query, email), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

// ApproveUser marks the user approved by approverID and clears any earlier
// rejection reason.
func ApproveUser(ctx context.Context, q database.Querier, id, approverID int64) (*models.User, error) {
	user := &models.User{}

	query := `
		UPDATE users
		SET approval_status  = 'approved',
		    approved_at      = NOW(),
		    approved_by      = $2,
		    rejection_reason = NULL,
		    version          = version + 1,
		    updated_at       = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	if err := scanUser(q.QueryRowContext(ctx, query, id, approverID), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("approve user: %w", err)
	}

	return user, nil
}

func RejectUser(ctx context.Context, q database.Querier, id int64, reason string) (*models.User, error) {
	user := &models.User{}

	query := `
		UPDATE users
		SET approval_status  = 'rejected',
		    rejection_reason = $2,
		    version          = version + 1,
		    updated_at       = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	if err := scanUser(q.QueryRowContext(ctx, query, id, reason), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("reject user: %w", err)
	}

	return user, nil
}

type UserFilter struct {
	ApprovalStatus string
	Role           models.Role
}

func ListUsers(ctx context.Context, q database.Querier, filter UserFilter, page, pageSize int) (*OffsetPage, error) {
	var conditions []string
	var args []any

	if filter.ApprovalStatus != "" {
		args = append(args, filter.ApprovalStatus)
		conditions = append(conditions, fmt.Sprintf("approval_status = $%d", len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	args = append(args, pageSize, offsetFor(page, pageSize))
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, userColumns, where, len(args)-1, len(args))

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(users, total, page, pageSize), nil
}
