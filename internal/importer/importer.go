package importer

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Bank string

const (
	BankCGD Bank = "cgd"
)

// Parser turns a bank export into statement lines. Lines carry the raw bank
// description as their note.
type Parser interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}

// Categorizer assigns categories to statement lines it recognises.
type Categorizer interface {
	Apply(ctx context.Context, params []transaction.CreateParams) ([]transaction.CreateParams, error)
}

// Target says where imported lines go. Category is used for lines no rule
// recognises.
type Target struct {
	WalletID   uuid.UUID
	CategoryID uuid.UUID
}
