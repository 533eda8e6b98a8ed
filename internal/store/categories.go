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

const categoryColumns = `id, name, slug, parent_id, is_active, created_at, updated_at`

func scanCategory(row rowScanner, category *models.Category) error {
	var parentID sql.NullInt64
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&parentID,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		return err
	}
	category.ParentID = nullInt64Ptr(parentID)
	return nil
}

func CreateCategory(ctx context.Context, q database.Querier, name, slug string, parentID *int64) (*models.Category, error) {
	if parentID != nil {
		if _, err := GetCategory(ctx, q, *parentID); err != nil {
			return nil, err
		}
	}

	category := &models.Category{}

	query := `
		INSERT INTO categories (name, slug, parent_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING ` + categoryColumns

	err := scanCategory(q.QueryRowContext(ctx, query, name, slug, parentID), category)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, database.ErrDuplicateSlug
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func GetCategory(ctx context.Context, q database.Querier, id int64) (*models.Category, error) {
	category := &models.Category{}

	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	if err := scanCategory(q.QueryRowContext(ctx, query, id), category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	return category, nil
}

// ListCategories returns the children of parentID, or the top-level
// categories when parentID is nil.
func ListCategories(ctx context.Context, q database.Querier, parentID *int64) ([]models.Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE parent_id IS NOT DISTINCT FROM $1
		ORDER BY name, id`

	rows, err := q.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var category models.Category
		if err := scanCategory(rows, &category); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

func IsLeafCategory(ctx context.Context, q database.Querier, id int64) (bool, error) {
	var hasChildren bool
	err := q.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM categories WHERE parent_id = $1)",
		id).Scan(&hasChildren)
	if err != nil {
		return false, fmt.Errorf("check category children: %w", err)
	}
	return !hasChildren, nil
}

// CategoryAncestors walks the parent chain and returns it root first.
func CategoryAncestors(ctx context.Context, q database.Querier, id int64) ([]models.Category, error) {
	category, err := GetCategory(ctx, q, id)
	if err != nil {
		return nil, err
	}

	var chain []models.Category
	seen := map[int64]bool{category.ID: true}
	for parentID := category.ParentID; parentID != nil; {
		if seen[*parentID] {
			return nil, fmt.Errorf("category %d: cycle in parent chain", id)
		}
		seen[*parentID] = true

		parent, err := GetCategory(ctx, q, *parentID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, *parent)
		parentID = parent.ParentID
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// CategoryDescendants returns every category below id in breadth-first order.
func CategoryDescendants(ctx context.Context, q database.Querier, id int64) ([]models.Category, error) {
	var descendants []models.Category

	queue := []int64{id}
	seen := map[int64]bool{id: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := ListCategories(ctx, q, &current)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			descendants = append(descendants, child)
			queue = append(queue, child.ID)
		}
	}

	return descendants, nil
}

// CategoryPath renders the category with its ancestors, e.g. "Eyewear > Men > Aviator".
func CategoryPath(ctx context.Context, q database.Querier, id int64, separator string) (string, error) {
	category, err := GetCategory(ctx, q, id)
	if err != nil {
		return "", err
	}
	ancestors, err := CategoryAncestors(ctx, q, id)
	if err != nil {
		return "", err
	}

	names := make([]string, 0, len(ancestors)+1)
	for _, a := range ancestors {
		names = append(names, a.Name)
	}
	names = append(names, category.Name)
	return strings.Join(names, separator), nil
}

// DeleteCategory refuses to delete categories that still have children.
func DeleteCategory(ctx context.Context, q database.Querier, id int64) error {
	leaf, err := IsLeafCategory(ctx, q, id)
	if err != nil {
		return err
	}
	if !leaf {
		return database.ErrCategoryHasChildren
	}

	result, err := q.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCategoryNotFound
	}

	return nil
}

func nullInt64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
