// Package cursor provides opaque pagination token encoding/decoding.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Cursor represents the internal state of a pagination cursor. It records the
// keyset position of the last row returned so the next page resumes after it.
type Cursor struct {
	// CreatedAtMillis is the created_at position in Unix milliseconds.
	CreatedAtMillis int64 `json:"ca"`
	// Priority is the priority position. Only meaningful for priority ordering.
	Priority int `json:"pri,omitempty"`
	// ID breaks ties between rows sharing a position.
	ID string `json:"id"`
	// FilterHash ensures tokens are invalidated if the filter changes.
	FilterHash string `json:"filter_hash,omitempty"`
	// OrderHash ensures tokens are invalidated if the order_by changes.
	OrderHash string `json:"order_hash,omitempty"`
}

// New builds a cursor positioned after the given row under the given filter
// and order.
func New(createdAtMillis int64, priority int, id string, filter, orderBy string) Cursor {
	return Cursor{
		CreatedAtMillis: createdAtMillis,
		Priority:        priority,
		ID:              id,
		FilterHash:      HashFilter(filter),
		OrderHash:       HashFilter(orderBy),
	}
}

// Encode encodes a cursor to an opaque base64 string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque base64 string to a cursor.
// Returns an error if the token is invalid or malformed.
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, fmt.Errorf("empty token")
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode base64: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}

	if c.ID == "" {
		return Cursor{}, fmt.Errorf("cursor is missing a row position")
	}

	return c, nil
}

// HashFilter computes a short hash of the filter string for cursor validation.
// Returns empty string for empty filter.
func HashFilter(filter string) string {
	if filter == "" {
		return ""
	}
	h := sha256.Sum256([]byte(filter))
	return hex.EncodeToString(h[:8])
}

// ValidateFilterHash checks if the cursor's filter hash matches the current filter.
// Returns an error if the filter has changed since the cursor was created.
func ValidateFilterHash(c Cursor, currentFilter string) error {
	currentHash := HashFilter(currentFilter)
	if c.FilterHash != currentHash {
		return fmt.Errorf("filter changed since cursor was created")
	}
	return nil
}

// ValidateOrderHash checks if the cursor's order hash matches the current order_by.
// Returns an error if the order_by has changed since the cursor was created.
func ValidateOrderHash(c Cursor, currentOrderBy string) error {
	currentHash := HashFilter(currentOrderBy)
	if c.OrderHash != currentHash {
		return fmt.Errorf("order_by changed since cursor was created")
	}
	return nil
}
