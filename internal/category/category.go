package category

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// SubscriptionName is the expense category subscription payments are booked under.
const SubscriptionName = "Subscription"

var ErrNotFound = apperror.NotFound("category")

// Category groups transactions of one type. Names are unique per type.
type Category struct {
	ID        uuid.UUID
	Name      string
	Type      transaction.Type
	CreatedAt time.Time
}

func validate(name string, t transaction.Type) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperror.Validation("category name is required")
	}

	if !t.Valid() {
		return "", apperror.Validation("unknown category type %q", t)
	}

	return name, nil
}
