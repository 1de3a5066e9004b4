package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryLedger is a mutex-guarded in-process ledger used by tests and
// single-node deployments. Semantics match RedisLedger.
type MemoryLedger struct {
	mu    sync.Mutex
	slots map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{slots: make(map[string]struct{})}
}

func (l *MemoryLedger) Reserve(ctx context.Context, providerID uuid.UUID, slotDate, slotTime string) error {
	key := slotKey(providerID, slotDate, slotTime)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.slots[key]; taken {
		return ErrSlotTaken
	}
	l.slots[key] = struct{}{}
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, providerID uuid.UUID, slotDate, slotTime string) error {
	key := slotKey(providerID, slotDate, slotTime)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.slots[key]; !ok {
		return ErrSlotNotReserved
	}
	delete(l.slots, key)
	return nil
}
