package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transaction
type Repository interface {
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ListTransactions(ctx context.Context, filter Filter) ([]*Transaction, error)
	SetCleared(ctx context.Context, id uuid.UUID, cleared bool) error

	Begin(ctx context.Context) (Tx, error)
}

// Tx is one atomic unit of work against the ledger store. Nothing written
// through it is visible to others until Commit.
type Tx interface {
	// LockWallet reads the wallet balance and holds the wallet until the
	// unit ends. It returns a not-found error for unknown wallets.
	LockWallet(ctx context.Context, id uuid.UUID) (*WalletBalance, error)
	SetWalletBalance(ctx context.Context, id uuid.UUID, balance, initial decimal.Decimal) error
	WalletTransactions(ctx context.Context, walletID uuid.UUID) ([]*Transaction, error)

	CategoryExists(ctx context.Context, id uuid.UUID) (bool, error)

	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	LockTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// CounterpartOf returns the id of the transaction that links to id, if any.
	CounterpartOf(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
	InsertTransaction(ctx context.Context, tx *Transaction) error
	UpdateTransaction(ctx context.Context, tx *Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create records a transaction and moves its wallet balance accordingly.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	utx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, apperror.Store("begin create", err)
	}
	defer utx.Rollback()

	tx, _, err := s.post(ctx, utx, params)
	if err != nil {
		return nil, apperror.Store("create transaction", err)
	}

	if err := utx.Commit(); err != nil {
		return nil, apperror.Store("commit create", err)
	}

	return tx, nil
}

// Post records a transaction inside a unit of work owned by the caller and
// returns the wallet balance after it. The caller commits.
func (s *Service) Post(ctx context.Context, utx Tx, params CreateParams) (*Transaction, decimal.Decimal, error) {
	if err := params.Validate(); err != nil {
		return nil, decimal.Zero, err
	}

	return s.post(ctx, utx, params)
}

func (s *Service) post(ctx context.Context, utx Tx, params CreateParams) (*Transaction, decimal.Decimal, error) {
	tx := &Transaction{
		Type:                 params.Type,
		Amount:               params.Amount,
		Date:                 params.Date,
		Note:                 params.Note,
		CategoryID:           params.CategoryID,
		WalletID:             params.WalletID,
		Cleared:              params.Cleared,
		IsReturn:             params.IsReturn,
		RelatedTransactionID: params.RelatedTransactionID,
	}

	balances, err := rebalance(ctx, utx, []uuid.UUID{tx.WalletID}, func() error {
		if err := checkCategory(ctx, utx, tx.CategoryID); err != nil {
			return err
		}

		if err := checkRelated(ctx, utx, nil, tx.RelatedTransactionID); err != nil {
			return err
		}

		if err := utx.InsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	return tx, balances[tx.WalletID], nil
}

// Update replaces a transaction. When the wallet changes, both the old and
// the new wallet are rebalanced in the same unit.
func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	utx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, apperror.Store("begin update", err)
	}
	defer utx.Rollback()

	tx, err := utx.LockTransaction(ctx, id)
	if err != nil {
		return nil, apperror.Store("load transaction", err)
	}

	_, err = rebalance(ctx, utx, []uuid.UUID{tx.WalletID, params.WalletID}, func() error {
		if err := checkCategory(ctx, utx, params.CategoryID); err != nil {
			return err
		}

		if err := checkRelated(ctx, utx, &tx.ID, params.RelatedTransactionID); err != nil {
			return err
		}

		tx.Type = params.Type
		tx.Amount = params.Amount
		tx.Date = params.Date
		tx.Note = params.Note
		tx.CategoryID = params.CategoryID
		tx.WalletID = params.WalletID
		tx.Cleared = params.Cleared
		tx.IsReturn = params.IsReturn
		tx.RelatedTransactionID = params.RelatedTransactionID

		if err := utx.UpdateTransaction(ctx, tx); err != nil {
			return fmt.Errorf("updating transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, apperror.Store("update transaction", err)
	}

	if err := utx.Commit(); err != nil {
		return nil, apperror.Store("commit update", err)
	}

	return tx, nil
}

// Delete removes a transaction and takes its effect off the wallet balance.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	utx, err := s.repo.Begin(ctx)
	if err != nil {
		return apperror.Store("begin delete", err)
	}
	defer utx.Rollback()

	tx, err := utx.LockTransaction(ctx, id)
	if err != nil {
		return apperror.Store("load transaction", err)
	}

	_, err = rebalance(ctx, utx, []uuid.UUID{tx.WalletID}, func() error {
		if err := utx.DeleteTransaction(ctx, id); err != nil {
			return fmt.Errorf("deleting transaction: %w", err)
		}

		return nil
	})
	if err != nil {
		return apperror.Store("delete transaction", err)
	}

	if err := utx.Commit(); err != nil {
		return apperror.Store("commit delete", err)
	}

	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, apperror.Store("get transaction", err)
	}

	return tx, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Transaction, error) {
	txs, err := s.repo.ListTransactions(ctx, filter)
	if err != nil {
		return nil, apperror.Store("list transactions", err)
	}

	return txs, nil
}

// SetCleared flips the reconciliation marker. It never touches balances.
func (s *Service) SetCleared(ctx context.Context, id uuid.UUID, cleared bool) error {
	return apperror.Store("set cleared", s.repo.SetCleared(ctx, id, cleared))
}

type ImportResult struct {
	Imported  []*Transaction
	New       []CreateParams
	Conflicts []Conflict
	Balance   decimal.Decimal
}

type Conflict struct {
	Incoming CreateParams
	Existing *Transaction
}

// ImportBatch records statement lines into one wallet. If any line looks
// like an existing transaction (same date, amount, type and note) nothing is
// written and the conflicts are returned for review.
func (s *Service) ImportBatch(ctx context.Context, walletID uuid.UUID, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	params = withWallet(walletID, params)
	if err := validateAll(params); err != nil {
		return nil, err
	}

	utx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, apperror.Store("begin import", err)
	}
	defer utx.Rollback()

	if _, err := utx.LockWallet(ctx, walletID); err != nil {
		return nil, apperror.Store("lock wallet", err)
	}

	existing, err := utx.WalletTransactions(ctx, walletID)
	if err != nil {
		return nil, apperror.Store("find duplicates", err)
	}

	newParams, conflicts := splitDuplicates(params, existing)
	if len(conflicts) > 0 {
		return &ImportResult{New: newParams, Conflicts: conflicts}, nil
	}

	txs, balance, err := s.insertBatch(ctx, utx, walletID, newParams)
	if err != nil {
		return nil, apperror.Store("import transactions", err)
	}

	if err := utx.Commit(); err != nil {
		return nil, apperror.Store("commit import", err)
	}

	return &ImportResult{Imported: txs, Balance: balance}, nil
}

// CreateBatch records lines without duplicate detection, e.g. after the user
// confirmed an import with conflicts.
func (s *Service) CreateBatch(ctx context.Context, walletID uuid.UUID, params []CreateParams) ([]*Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	params = withWallet(walletID, params)
	if err := validateAll(params); err != nil {
		return nil, err
	}

	utx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, apperror.Store("begin import", err)
	}
	defer utx.Rollback()

	txs, _, err := s.insertBatch(ctx, utx, walletID, params)
	if err != nil {
		return nil, apperror.Store("create transactions", err)
	}

	if err := utx.Commit(); err != nil {
		return nil, apperror.Store("commit import", err)
	}

	return txs, nil
}

func (s *Service) insertBatch(ctx context.Context, utx Tx, walletID uuid.UUID, params []CreateParams) ([]*Transaction, decimal.Decimal, error) {
	txs := paramsToTransactions(params)

	balances, err := rebalance(ctx, utx, []uuid.UUID{walletID}, func() error {
		checked := make(map[uuid.UUID]bool)

		for _, tx := range txs {
			if !checked[tx.CategoryID] {
				if err := checkCategory(ctx, utx, tx.CategoryID); err != nil {
					return err
				}

				checked[tx.CategoryID] = true
			}

			if err := utx.InsertTransaction(ctx, tx); err != nil {
				return fmt.Errorf("inserting transaction: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	return txs, balances[walletID], nil
}

func checkCategory(ctx context.Context, utx Tx, id uuid.UUID) error {
	ok, err := utx.CategoryExists(ctx, id)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}

	if !ok {
		return apperror.NotFound("category")
	}

	return nil
}

// checkRelated enforces the return/refund link: one counterpart per
// transaction and no chains. self is nil for a transaction being created.
func checkRelated(ctx context.Context, utx Tx, self, related *uuid.UUID) error {
	if related == nil {
		return nil
	}

	if self != nil && *self == *related {
		return apperror.Validation("a transaction cannot be related to itself")
	}

	target, err := utx.GetTransaction(ctx, *related)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			return apperror.NotFound("related transaction")
		}

		return fmt.Errorf("loading related transaction: %w", err)
	}

	if target.RelatedTransactionID != nil {
		return apperror.Validation("related transaction is itself linked to another transaction")
	}

	counterpart, err := utx.CounterpartOf(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("checking counterpart: %w", err)
	}

	if counterpart != nil && (self == nil || *counterpart != *self) {
		return apperror.Conflict("related transaction already has a counterpart")
	}

	if self != nil {
		linkedToSelf, err := utx.CounterpartOf(ctx, *self)
		if err != nil {
			return fmt.Errorf("checking counterpart: %w", err)
		}

		if linkedToSelf != nil {
			return apperror.Validation("transaction is already the counterpart of another transaction")
		}
	}

	return nil
}

type dupKey struct {
	Date   string
	Amount string
	Type   Type
	Note   string
}

func keyOf(date time.Time, amount decimal.Decimal, t Type, note string) dupKey {
	return dupKey{
		Date:   date.Format(time.DateOnly),
		Amount: amount.StringFixed(2),
		Type:   t,
		Note:   note,
	}
}

func splitDuplicates(params []CreateParams, existing []*Transaction) ([]CreateParams, []Conflict) {
	lookup := make(map[dupKey]*Transaction, len(existing))
	for _, tx := range existing {
		lookup[keyOf(tx.Date, tx.Amount, tx.Type, tx.Note)] = tx
	}

	var newParams []CreateParams

	var conflicts []Conflict

	for _, p := range params {
		existing, found := lookup[keyOf(p.Date, p.Amount, p.Type, p.Note)]
		if found {
			conflicts = append(conflicts, Conflict{Incoming: p, Existing: existing})
			continue
		}

		newParams = append(newParams, p)
	}

	return newParams, conflicts
}

func withWallet(walletID uuid.UUID, params []CreateParams) []CreateParams {
	out := make([]CreateParams, len(params))
	for i, p := range params {
		p.WalletID = walletID
		out[i] = p
	}

	return out
}

func validateAll(params []CreateParams) error {
	for i, p := range params {
		if err := p.Validate(); err != nil {
			return apperror.Validation("line %d: %v", i+1, err)
		}
	}

	return nil
}

func paramsToTransactions(params []CreateParams) []*Transaction {
	txs := make([]*Transaction, len(params))
	for i, p := range params {
		txs[i] = &Transaction{
			Type:                 p.Type,
			Amount:               p.Amount,
			Date:                 p.Date,
			Note:                 p.Note,
			CategoryID:           p.CategoryID,
			WalletID:             p.WalletID,
			Cleared:              p.Cleared,
			IsReturn:             p.IsReturn,
			RelatedTransactionID: p.RelatedTransactionID,
		}
	}

	return txs
}
