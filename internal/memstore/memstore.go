// Package memstore is an in-memory implementation of every repository,
// with the same unit-of-work semantics as the Postgres stores. Units are
// serialized by a store-wide lock held from Begin until Commit or Rollback
// and work on a staged copy that replaces the live data on Commit.
package memstore

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/rule"
	"github.com/MrJamesThe3rd/tally/internal/subscription"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

var errUnitDone = errors.New("unit of work already finished")

type Store struct {
	writer sync.Mutex // held by the active unit
	mu     sync.RWMutex
	data   *data
	now    func() time.Time
}

func New() *Store {
	return &Store{
		data: &data{
			wallets:       make(map[uuid.UUID]wallet.Wallet),
			categories:    make(map[uuid.UUID]category.Category),
			transactions:  make(map[uuid.UUID]transaction.Transaction),
			subscriptions: make(map[uuid.UUID]subscription.Subscription),
			rules:         make(map[uuid.UUID]rule.Rule),
		},
		now: time.Now,
	}
}

type data struct {
	wallets       map[uuid.UUID]wallet.Wallet
	categories    map[uuid.UUID]category.Category
	transactions  map[uuid.UUID]transaction.Transaction
	subscriptions map[uuid.UUID]subscription.Subscription
	rules         map[uuid.UUID]rule.Rule
}

// clone copies the maps. Values are stored by value and pointer fields are
// never written through, so a shallow copy is enough.
func (d *data) clone() *data {
	return &data{
		wallets:       maps.Clone(d.wallets),
		categories:    maps.Clone(d.categories),
		transactions:  maps.Clone(d.transactions),
		subscriptions: maps.Clone(d.subscriptions),
		rules:         maps.Clone(d.rules),
	}
}

type unit struct {
	s    *Store
	d    *data
	done bool
}

func (s *Store) begin() *unit {
	s.writer.Lock()

	s.mu.RLock()
	staged := s.data.clone()
	s.mu.RUnlock()

	return &unit{s: s, d: staged}
}

func (u *unit) Commit() error {
	if u.done {
		return errUnitDone
	}

	u.s.mu.Lock()
	u.s.data = u.d
	u.s.mu.Unlock()

	u.done = true
	u.s.writer.Unlock()

	return nil
}

// Rollback discards the staged changes. Calling it after Commit is a no-op.
func (u *unit) Rollback() error {
	if u.done {
		return nil
	}

	u.done = true
	u.s.writer.Unlock()

	return nil
}

// write runs fn as a single-statement unit.
func (s *Store) write(fn func(d *data) error) error {
	u := s.begin()
	defer u.Rollback()

	if err := fn(u.d); err != nil {
		return err
	}

	return u.Commit()
}

func (s *Store) read(fn func(d *data)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fn(s.data)
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}

	c := *id

	return &c
}

func (s *Store) Transactions() transaction.Repository { return &ledgerRepo{s: s} }

func (s *Store) Wallets() wallet.Repository { return &walletRepo{s: s} }

func (s *Store) Categories() category.Repository { return &categoryRepo{s: s} }

func (s *Store) Subscriptions() subscription.Repository { return &subscriptionRepo{s: s} }

func (s *Store) Rules() rule.Repository { return &ruleRepo{s: s} }
