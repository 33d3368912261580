package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingPrefix   = "pending:"
	completedPrefix = "completed:"
)

// abandonScript deletes the key only while it still holds the caller's claim.
var abandonScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLedger stores one key per transaction: "pending:<claim>" with a TTL
// while a worker owns it, "completed:<order id>" afterwards.
type RedisLedger struct {
	client       *redis.Client
	pendingTTL   time.Duration
	completedTTL time.Duration
}

// NewRedisLedger returns a ledger on client. completedTTL of zero keeps
// completed records forever.
func NewRedisLedger(client *redis.Client, pendingTTL, completedTTL time.Duration) *RedisLedger {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &RedisLedger{
		client:       client,
		pendingTTL:   pendingTTL,
		completedTTL: completedTTL,
	}
}

func (r *RedisLedger) Get(ctx context.Context, transactionID string) (*Record, error) {
	val, err := r.client.Get(ctx, ledgerKey(transactionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return decodeRecord(transactionID, val), nil
}

func (r *RedisLedger) Begin(ctx context.Context, transactionID string) (*Record, error) {
	claim := newClaim()
	ok, err := r.client.SetNX(ctx, ledgerKey(transactionID), pendingPrefix+claim, r.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return &Record{TransactionID: transactionID, Status: StatusPending, Claim: claim, UpdatedAt: time.Now()}, nil
	}

	rec, err := r.Get(ctx, transactionID)
	if errors.Is(err, ErrNotFound) {
		// claim expired between SETNX and GET
		return r.Begin(ctx, transactionID)
	}
	if err != nil {
		return nil, err
	}
	if rec.IsCompleted() {
		return rec, ErrAlreadyCompleted
	}
	return rec, ErrInProgress
}

func (r *RedisLedger) Complete(ctx context.Context, transactionID, orderID string) error {
	if err := r.client.Set(ctx, ledgerKey(transactionID), completedPrefix+orderID, r.completedTTL).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisLedger) Abandon(ctx context.Context, transactionID, claim string) error {
	err := abandonScript.Run(ctx, r.client, []string{ledgerKey(transactionID)}, pendingPrefix+claim).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis abandon failed: %w", err)
	}
	return nil
}

func (r *RedisLedger) Close() error {
	return r.client.Close()
}

func decodeRecord(transactionID, val string) *Record {
	if orderID, ok := strings.CutPrefix(val, completedPrefix); ok {
		return &Record{TransactionID: transactionID, Status: StatusCompleted, OrderID: orderID}
	}
	claim, _ := strings.CutPrefix(val, pendingPrefix)
	return &Record{TransactionID: transactionID, Status: StatusPending, Claim: claim}
}

func ledgerKey(transactionID string) string {
	return fmt.Sprintf("relay:tx:%s", transactionID)
}
