package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=wallet
type Repository interface {
	CreateWallet(ctx context.Context, w *Wallet) error
	GetWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)
	ListWallets(ctx context.Context) ([]*Wallet, error)
	UpdateWallet(ctx context.Context, w *Wallet) error

	Begin(ctx context.Context) (Tx, error)
}

// Tx is a unit of work that holds wallet rows locked until it ends.
type Tx interface {
	LockWallet(ctx context.Context, id uuid.UUID) (*Wallet, error)
	WalletTransactions(ctx context.Context, walletID uuid.UUID) ([]*transaction.Transaction, error)
	SetBalance(ctx context.Context, id uuid.UUID, balance, initial decimal.Decimal) error
	DeleteWalletTransactions(ctx context.Context, walletID uuid.UUID) error
	DeleteWallet(ctx context.Context, id uuid.UUID) error

	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create opens a wallet. The starting balance becomes its explicit baseline.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Wallet, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	w := &Wallet{
		Name:           params.Name,
		Type:           params.Type,
		Currency:       params.Currency,
		Balance:        params.InitialBalance,
		InitialBalance: decimal.NewNullDecimal(params.InitialBalance),
	}

	if err := s.repo.CreateWallet(ctx, w); err != nil {
		return nil, apperror.Store("create wallet", err)
	}

	return w, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	w, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, apperror.Store("get wallet", err)
	}

	return w, nil
}

func (s *Service) List(ctx context.Context) ([]*Wallet, error) {
	wallets, err := s.repo.ListWallets(ctx)
	if err != nil {
		return nil, apperror.Store("list wallets", err)
	}

	return wallets, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Wallet, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	w, err := s.repo.GetWallet(ctx, id)
	if err != nil {
		return nil, apperror.Store("get wallet", err)
	}

	w.Name = params.Name
	w.Type = params.Type
	w.Currency = params.Currency

	if err := s.repo.UpdateWallet(ctx, w); err != nil {
		return nil, apperror.Store("update wallet", err)
	}

	return w, nil
}

// AdjustBalance sets the wallet balance to target by moving its baseline, so
// the ledger stays untouched and later recomputes keep the adjustment.
func (s *Service) AdjustBalance(ctx context.Context, id uuid.UUID, target decimal.Decimal) (*Wallet, error) {
	if !target.Equal(target.Round(2)) {
		return nil, apperror.Validation("balance must have at most two decimal places")
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, apperror.Store("begin adjust", err)
	}
	defer tx.Rollback()

	w, err := tx.LockWallet(ctx, id)
	if err != nil {
		return nil, apperror.Store("lock wallet", err)
	}

	txs, err := tx.WalletTransactions(ctx, id)
	if err != nil {
		return nil, apperror.Store("read ledger", err)
	}

	initial := target.Sub(transaction.Net(txs))
	if err := tx.SetBalance(ctx, id, target, initial); err != nil {
		return nil, apperror.Store("set balance", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Store("commit adjust", err)
	}

	w.Balance = target
	w.InitialBalance = decimal.NewNullDecimal(initial)

	return w, nil
}

// Delete removes a wallet together with its transactions.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return apperror.Store("begin delete", err)
	}
	defer tx.Rollback()

	if _, err := tx.LockWallet(ctx, id); err != nil {
		return apperror.Store("lock wallet", err)
	}

	if err := tx.DeleteWalletTransactions(ctx, id); err != nil {
		return apperror.Store("delete wallet transactions", fmt.Errorf("wallet %s: %w", id, err))
	}

	if err := tx.DeleteWallet(ctx, id); err != nil {
		return apperror.Store("delete wallet", err)
	}

	if err := tx.Commit(); err != nil {
		return apperror.Store("commit delete", err)
	}

	return nil
}
