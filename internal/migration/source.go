package migration

import (
	"strings"

	"bankledger/internal/catalog"
)

// Kind tags a legacy source variant.
type Kind string

const (
	KindTransferIn  Kind = "transfer_in"
	KindTransferOut Kind = "transfer_out"
	KindPix         Kind = "pix"
)

// Transaction types written to the unified table.
const (
	TypeTransferIn  = "transfer_in"
	TypeTransferOut = "transfer_out"
	TypePixIn       = "pix_in"
	TypePixOut      = "pix_out"
)

// Source describes where one legacy table keeps each unified field. The three
// legacy tables differ only in these names, so one migration routine serves
// all of them.
type Source struct {
	Kind  Kind
	Table string

	// Type is the fixed transaction_type for the source. Empty when the type
	// comes from DirectionField.
	Type string

	AmountField    string
	RequestedField string
	CompletedField string

	// DirectionField holds "in" or "out" for pix rows.
	DirectionField string
}

// DefaultSources returns the three legacy sources in migration order.
func DefaultSources() []Source {
	return []Source{
		{
			Kind:           KindTransferIn,
			Table:          catalog.TransferIns,
			Type:           TypeTransferIn,
			AmountField:    "amount",
			RequestedField: "transaction_requested_at",
			CompletedField: "transaction_completed_at",
		},
		{
			Kind:           KindTransferOut,
			Table:          catalog.TransferOuts,
			Type:           TypeTransferOut,
			AmountField:    "amount",
			RequestedField: "transaction_requested_at",
			CompletedField: "transaction_completed_at",
		},
		{
			Kind:           KindPix,
			Table:          catalog.PixMovements,
			AmountField:    "pix_amount",
			RequestedField: "pix_requested_at",
			CompletedField: "pix_completed_at",
			DirectionField: "in_or_out",
		},
	}
}

// readShape is the projection read from the legacy table, in the order
// migrateRow expects: id, account_id, amount, requested, completed, status
// and, for pix, direction.
func (s Source) readShape() catalog.TableShape {
	cols := []string{"id", "account_id", s.AmountField, s.RequestedField, s.CompletedField, "status"}
	if s.DirectionField != "" {
		cols = append(cols, s.DirectionField)
	}
	return catalog.TableShape{Name: s.Table, Columns: cols}
}

// transactionType returns the unified type for a row. The bool is false when a
// pix direction is neither "in" nor "out"; such rows keep a NULL type.
func (s Source) transactionType(direction any) (string, bool) {
	if s.DirectionField == "" {
		return s.Type, s.Type != ""
	}
	d, ok := text(direction)
	if !ok {
		return "", false
	}
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "in":
		return TypePixIn, true
	case "out":
		return TypePixOut, true
	default:
		return "", false
	}
}
