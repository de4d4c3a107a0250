package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Response struct {
	ID                   uuid.UUID        `json:"id"`
	Type                 transaction.Type `json:"type"`
	Amount               decimal.Decimal  `json:"amount"`
	Date                 time.Time        `json:"date"`
	Note                 string           `json:"note"`
	CategoryID           uuid.UUID        `json:"category_id"`
	WalletID             uuid.UUID        `json:"wallet_id"`
	Cleared              bool             `json:"cleared"`
	IsReturn             bool             `json:"is_return"`
	RelatedTransactionID *uuid.UUID       `json:"related_transaction_id,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func ToResponse(tx *transaction.Transaction) Response {
	return Response{
		ID:                   tx.ID,
		Type:                 tx.Type,
		Amount:               tx.Amount,
		Date:                 tx.Date,
		Note:                 tx.Note,
		CategoryID:           tx.CategoryID,
		WalletID:             tx.WalletID,
		Cleared:              tx.Cleared,
		IsReturn:             tx.IsReturn,
		RelatedTransactionID: tx.RelatedTransactionID,
		CreatedAt:            tx.CreatedAt,
		UpdatedAt:            tx.UpdatedAt,
	}
}

func ToResponseList(txs []*transaction.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}

// ParamsDTO is the wire form of a transaction to create or replace. Dates
// are plain YYYY-MM-DD strings or RFC 3339 timestamps.
type ParamsDTO struct {
	Type                 transaction.Type `json:"type"`
	Amount               decimal.Decimal  `json:"amount"`
	Date                 Date             `json:"date"`
	Note                 string           `json:"note"`
	CategoryID           uuid.UUID        `json:"category_id"`
	WalletID             uuid.UUID        `json:"wallet_id"`
	Cleared              bool             `json:"cleared"`
	IsReturn             bool             `json:"is_return"`
	RelatedTransactionID *uuid.UUID       `json:"related_transaction_id,omitempty"`
}

func (p ParamsDTO) Params() transaction.CreateParams {
	return transaction.CreateParams{
		Type:                 p.Type,
		Amount:               p.Amount,
		Date:                 time.Time(p.Date),
		Note:                 p.Note,
		CategoryID:           p.CategoryID,
		WalletID:             p.WalletID,
		Cleared:              p.Cleared,
		IsReturn:             p.IsReturn,
		RelatedTransactionID: p.RelatedTransactionID,
	}
}

func ToParamsDTO(p transaction.CreateParams) ParamsDTO {
	return ParamsDTO{
		Type:                 p.Type,
		Amount:               p.Amount,
		Date:                 Date(p.Date),
		Note:                 p.Note,
		CategoryID:           p.CategoryID,
		WalletID:             p.WalletID,
		Cleared:              p.Cleared,
		IsReturn:             p.IsReturn,
		RelatedTransactionID: p.RelatedTransactionID,
	}
}

// Date accepts either a calendar date or a full timestamp and always
// renders as a calendar date.
type Date time.Time

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}

	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errInvalidDate
	}

	t, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}

	*d = Date(t)

	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).Format(time.DateOnly) + `"`), nil
}
