package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrSlotTaken       = errors.New("slot is already reserved")
	ErrSlotNotReserved = errors.New("slot is not reserved")
)

// Ledger tracks which (provider, date, time) slots are currently reserved.
// Reserve must behave as a single conditional insert: under concurrent calls
// for the same slot exactly one caller wins, the rest get ErrSlotTaken.
type Ledger interface {
	Reserve(ctx context.Context, providerID uuid.UUID, slotDate, slotTime string) error
	Release(ctx context.Context, providerID uuid.UUID, slotDate, slotTime string) error
}

func slotKey(providerID uuid.UUID, slotDate, slotTime string) string {
	return fmt.Sprintf("slot:%s:%s:%s", providerID, slotDate, slotTime)
}
