// Package audit compares every wallet's stored balance with the balance its
// ledger implies and optionally repairs the drift.
package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

// Result is the audit outcome of one wallet.
type Result struct {
	WalletID      uuid.UUID
	WalletName    string
	Currency      string
	StoredBalance decimal.Decimal
	LedgerNet     decimal.Decimal
	Baseline      decimal.Decimal
	Expected      decimal.Decimal
	// Difference is stored minus expected.
	Difference decimal.Decimal
	Totals     transaction.Totals
	// BaselineInferred is set for wallets without a recorded initial
	// balance. Their baseline is derived from the stored balance, so they
	// can never show a difference.
	BaselineInferred bool
	Discrepancy      bool
	Fixed            bool
}

type Report struct {
	Results       []Result
	Discrepancies int
	Fixed         int
	Tolerance     decimal.Decimal
}

type Service struct {
	wallets   wallet.Repository
	tolerance decimal.Decimal
}

// NewService builds an auditor that ignores differences up to tolerance.
func NewService(wallets wallet.Repository, tolerance decimal.Decimal) *Service {
	return &Service{wallets: wallets, tolerance: tolerance.Abs()}
}

// Run audits every wallet, each in its own locked unit. With fix set,
// drifting balances are rewritten to the expected value.
func (s *Service) Run(ctx context.Context, fix bool) (*Report, error) {
	wallets, err := s.wallets.ListWallets(ctx)
	if err != nil {
		return nil, apperror.Store("list wallets", err)
	}

	report := &Report{
		Results:   make([]Result, 0, len(wallets)),
		Tolerance: s.tolerance,
	}

	for _, w := range wallets {
		res, err := s.auditWallet(ctx, w.ID, fix)
		if errors.Is(err, apperror.ErrNotFound) {
			// deleted since it was listed
			continue
		}

		if err != nil {
			return nil, err
		}

		if res.Discrepancy {
			report.Discrepancies++
		}

		if res.Fixed {
			report.Fixed++
		}

		report.Results = append(report.Results, *res)
	}

	return report, nil
}

func (s *Service) auditWallet(ctx context.Context, id uuid.UUID, fix bool) (*Result, error) {
	tx, err := s.wallets.Begin(ctx)
	if err != nil {
		return nil, apperror.Store("begin audit", err)
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

	res := evaluate(w, txs, s.tolerance)

	if !res.Discrepancy || !fix {
		return res, nil
	}

	if err := tx.SetBalance(ctx, id, res.Expected, res.Baseline); err != nil {
		return nil, apperror.Store("fix balance", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperror.Store("commit fix", err)
	}

	res.Fixed = true

	return res, nil
}

func evaluate(w *wallet.Wallet, txs []*transaction.Transaction, tolerance decimal.Decimal) *Result {
	net := transaction.Net(txs)

	res := &Result{
		WalletID:      w.ID,
		WalletName:    w.Name,
		Currency:      w.Currency,
		StoredBalance: w.Balance,
		LedgerNet:     net,
		Totals:        transaction.Summarize(txs),
	}

	if w.InitialBalance.Valid {
		res.Baseline = w.InitialBalance.Decimal
	} else {
		res.Baseline = w.Balance.Sub(net)
		res.BaselineInferred = true
	}

	res.Expected = res.Baseline.Add(net)
	res.Difference = w.Balance.Sub(res.Expected)
	res.Discrepancy = res.Difference.Abs().GreaterThan(tolerance)

	return res
}
