package orders

import (
	"strings"

	"github.com/google/uuid"
)

const orderNumberPrefix = "ORD-"

// NewOrderNumber returns a customer-facing order reference: the prefix plus
// the first eight hex characters of a fresh UUID, uppercased. Uniqueness is
// enforced by the database index; callers retry on collision.
func NewOrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return orderNumberPrefix + strings.ToUpper(raw[:8])
}
