package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/subscription"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type subscriptionRepo struct {
	s *Store
}

func copySubscription(sub subscription.Subscription) *subscription.Subscription {
	sub.WalletID = cloneID(sub.WalletID)
	return &sub
}

func (r *subscriptionRepo) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	return r.s.write(func(d *data) error {
		now := r.s.now()
		sub.ID = uuid.New()
		sub.CreatedAt = now
		sub.UpdatedAt = now
		d.subscriptions[sub.ID] = *copySubscription(*sub)

		return nil
	})
}

func (r *subscriptionRepo) GetSubscription(_ context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	var (
		sub subscription.Subscription
		ok  bool
	)

	r.s.read(func(d *data) { sub, ok = d.subscriptions[id] })

	if !ok {
		return nil, subscription.ErrNotFound
	}

	return copySubscription(sub), nil
}

func (r *subscriptionRepo) ListSubscriptions(_ context.Context, activeOnly bool) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription

	r.s.read(func(d *data) {
		for _, sub := range d.subscriptions {
			if !activeOnly || sub.IsActive {
				subs = append(subs, copySubscription(sub))
			}
		}
	})

	slices.SortFunc(subs, func(a, b *subscription.Subscription) int {
		if c := a.NextDueDate.Compare(b.NextDueDate); c != 0 {
			return c
		}

		return strings.Compare(a.ServiceName, b.ServiceName)
	})

	return subs, nil
}

func (r *subscriptionRepo) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	return r.s.write(func(d *data) error {
		stored, ok := d.subscriptions[sub.ID]
		if !ok {
			return subscription.ErrNotFound
		}

		stored.ServiceName = sub.ServiceName
		stored.Amount = sub.Amount
		stored.Period = sub.Period
		stored.PaymentMethod = sub.PaymentMethod
		stored.WalletID = cloneID(sub.WalletID)
		stored.Note = sub.Note
		stored.IsActive = sub.IsActive
		stored.UpdatedAt = r.s.now()
		d.subscriptions[sub.ID] = stored

		sub.UpdatedAt = stored.UpdatedAt

		return nil
	})
}

func (r *subscriptionRepo) DeleteSubscription(_ context.Context, id uuid.UUID) error {
	return r.s.write(func(d *data) error {
		if _, ok := d.subscriptions[id]; !ok {
			return subscription.ErrNotFound
		}

		delete(d.subscriptions, id)

		return nil
	})
}

func (r *subscriptionRepo) Begin(_ context.Context) (subscription.Tx, error) {
	return &subscriptionUnit{ledgerUnit: &ledgerUnit{unit: r.s.begin()}}, nil
}

type subscriptionUnit struct {
	*ledgerUnit
}

func (u *subscriptionUnit) LockSubscription(_ context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	sub, ok := u.d.subscriptions[id]
	if !ok {
		return nil, subscription.ErrNotFound
	}

	return copySubscription(sub), nil
}

func (u *subscriptionUnit) AdvanceDueDate(_ context.Context, id uuid.UUID, next time.Time) error {
	sub, ok := u.d.subscriptions[id]
	if !ok {
		return subscription.ErrNotFound
	}

	if !next.After(sub.NextDueDate) {
		return fmt.Errorf("due date of subscription %s did not move forward", id)
	}

	sub.NextDueDate = next
	sub.UpdatedAt = u.s.now()
	u.d.subscriptions[id] = sub

	return nil
}

func (u *subscriptionUnit) EnsureCategory(_ context.Context, name string, t transaction.Type) (uuid.UUID, error) {
	return ensureCategory(u.s, u.d, name, t).ID, nil
}
