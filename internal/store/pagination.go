package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/safar/go-marketplace/internal/database"
)

type rowScanner interface {
	Scan(dest ...any) error
}

type CursorPage struct {
	Items      interface{} `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

type OffsetPage struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

func offsetFor(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}

func newOffsetPage(items interface{}, total int64, page, pageSize int) *OffsetPage {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

type OrderCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

func EncodeCursor(cursor OrderCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// IsZero reports whether the cursor points at the first page.
func (c OrderCursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.ID == 0
}

// DecodeCursor returns the zero cursor for an empty string and
// ErrInvalidCursor for anything it cannot read back.
func DecodeCursor(encoded string) (OrderCursor, error) {
	var cursor OrderCursor
	if encoded == "" {
		return cursor, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return OrderCursor{}, database.ErrInvalidCursor
	}
	if err := json.Unmarshal(data, &cursor); err != nil || cursor.IsZero() {
		return OrderCursor{}, database.ErrInvalidCursor
	}
	return cursor, nil
}
