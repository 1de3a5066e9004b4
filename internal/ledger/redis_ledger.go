package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLedger keeps the reservation set in Redis, one key per slot.
// SETNX is the atomic insert-if-absent, so two bookers racing for the
// same slot can never both observe it as free.
type RedisLedger struct {
	client *redis.Client
}

func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client}
}

func (l *RedisLedger) Reserve(ctx context.Context, providerID uuid.UUID, slotDate, slotTime string) error {
	key := slotKey(providerID, slotDate, slotTime)

	// No TTL: a reservation holds until the appointment is cancelled.
	ok, err := l.client.SetNX(ctx, key, "1", 0).Result()
	if err != nil {
		return fmt.Errorf("reserve slot %s: %w", key, err)
	}
	if !ok {
		return ErrSlotTaken
	}
	return nil
}

func (l *RedisLedger) Release(ctx context.Context, providerID uuid.UUID, slotDate, slotTime string) error {
	key := slotKey(providerID, slotDate, slotTime)

	n, err := l.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("release slot %s: %w", key, err)
	}
	if n == 0 {
		return ErrSlotNotReserved
	}
	return nil
}
