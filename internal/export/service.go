// Package export renders ledger entries for use outside the app: a CSV
// sheet, a plain-text summary, or both zipped together.
package export

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
	"github.com/MrJamesThe3rd/tally/internal/wallet"
)

// Row is one exported transaction with its wallet and category resolved.
type Row struct {
	Transaction  *transaction.Transaction
	WalletName   string
	Currency     string
	CategoryName string
}

var csvHeader = []string{"date", "type", "amount", "signed_amount", "currency", "wallet", "category", "cleared", "note"}

type Service struct {
	ledger     *transaction.Service
	wallets    *wallet.Service
	categories *category.Service
}

func NewService(ledger *transaction.Service, wallets *wallet.Service, categories *category.Service) *Service {
	return &Service{
		ledger:     ledger,
		wallets:    wallets,
		categories: categories,
	}
}

// Export lists the transactions matching filter with names resolved.
// Entries of deleted categories keep an empty category name.
func (s *Service) Export(ctx context.Context, filter transaction.Filter) ([]Row, error) {
	txs, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}

	wallets, err := s.wallets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}

	categories, err := s.categories.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	walletByID := make(map[uuid.UUID]*wallet.Wallet, len(wallets))
	for _, w := range wallets {
		walletByID[w.ID] = w
	}

	categoryNames := make(map[uuid.UUID]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	rows := make([]Row, 0, len(txs))

	for _, tx := range txs {
		row := Row{Transaction: tx, CategoryName: categoryNames[tx.CategoryID]}

		if w, ok := walletByID[tx.WalletID]; ok {
			row.WalletName, row.Currency = w.Name, w.Currency
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// WriteCSV writes rows as a CSV sheet with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for _, row := range rows {
		tx := row.Transaction

		record := []string{
			tx.Date.Format(time.DateOnly),
			string(tx.Type),
			tx.Amount.StringFixed(2),
			tx.SignedAmount().StringFixed(2),
			row.Currency,
			row.WalletName,
			row.CategoryName,
			strconv.FormatBool(tx.Cleared),
			tx.Note,
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing transaction %s: %w", tx.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// Summary renders one line per row followed by the net per currency.
func Summary(rows []Row) string {
	var (
		sb    strings.Builder
		nets  = map[string]decimal.Decimal{}
		order []string
	)

	for _, row := range rows {
		tx := row.Transaction

		sign := "-"
		if tx.Type == transaction.TypeIncome {
			sign = "+"
		}

		category := row.CategoryName
		if category == "" {
			category = "(none)"
		}

		fmt.Fprintf(&sb, "* %s | %s | %s%s %s | %s\n",
			tx.Date.Format(time.DateOnly), tx.Note, sign, tx.Amount.StringFixed(2), row.Currency, category)

		if _, ok := nets[row.Currency]; !ok {
			order = append(order, row.Currency)
		}

		nets[row.Currency] = nets[row.Currency].Add(tx.SignedAmount())
	}

	for _, cur := range order {
		fmt.Fprintf(&sb, "Net %s: %s\n", cur, wallet.FormatAmount(nets[cur], cur))
	}

	return sb.String()
}

// WriteArchive zips the CSV sheet and the summary.
func WriteArchive(w io.Writer, rows []Row) error {
	zw := zip.NewWriter(w)

	sheet, err := zw.Create("transactions.csv")
	if err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	if err := WriteCSV(sheet, rows); err != nil {
		return err
	}

	summary, err := zw.Create("summary.txt")
	if err != nil {
		return fmt.Errorf("creating summary: %w", err)
	}

	if _, err := io.WriteString(summary, Summary(rows)); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}

	return zw.Close()
}
