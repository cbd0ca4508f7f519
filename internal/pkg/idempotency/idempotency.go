// Package idempotency deduplicates retried mutating requests that carry a
// client-supplied key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/RulesService/internal/pkg/apperrors"
	"github.com/ManuelReschke/RulesService/internal/pkg/cache"
	"github.com/ManuelReschke/RulesService/internal/pkg/utils"
)

// Behaviour when a key is presented again with a different request.
const (
	ModeReexecute = "reexecute"
	ModeReject    = "reject"
)

const (
	keyPrefix  = "idempotency:"
	hashLength = 32
)

// Record is what is kept per client key.
type Record struct {
	RequestHash string          `json:"request_hash"`
	Status      int             `json:"status"`
	Body        json.RawMessage `json:"body"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Guard checks and stores idempotency records in a cache store. Store
// outages are logged and treated as "no record".
type Guard struct {
	store cache.Store
	ttl   time.Duration
	mode  string
	now   func() time.Time
}

func NewGuard(store cache.Store, ttl time.Duration, mode string) *Guard {
	if mode != ModeReject {
		mode = ModeReexecute
	}
	return &Guard{store: store, ttl: ttl, mode: mode, now: time.Now}
}

// RequestHash identifies an operation and its payload: sha256 over
// "op:canonical-json", first 32 hex characters.
func RequestHash(op string, payload any) (string, error) {
	data, err := utils.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(append([]byte(op+":"), data...))
	return hex.EncodeToString(sum[:])[:hashLength], nil
}

// Check returns the stored record for clientKey when it was produced by the
// same op and payload. A record for a different request is logged; in
// reject mode it is a Conflict error, otherwise it is ignored.
func (g *Guard) Check(ctx context.Context, clientKey, op string, payload any) (*Record, error) {
	if clientKey == "" {
		return nil, nil
	}
	hash, err := RequestHash(op, payload)
	if err != nil {
		return nil, err
	}

	data, err := g.store.Get(ctx, keyPrefix+clientKey)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warnf("idempotency lookup for key %s failed: %v", clientKey, err)
		}
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warnf("idempotency record for key %s is unreadable: %v", clientKey, err)
		return nil, nil
	}

	if rec.RequestHash != hash {
		log.Warnf("idempotency key %s reused for a different request (%s)", clientKey, op)
		if g.mode == ModeReject {
			return nil, apperrors.Conflict("idempotency key %s was used for a different request", clientKey)
		}
		return nil, nil
	}
	log.Infof("idempotency hit for key %s (%s)", clientKey, op)
	return &rec, nil
}

// Store records the result of a successful request under clientKey.
func (g *Guard) Store(ctx context.Context, clientKey, op string, payload any, status int, body []byte) {
	if clientKey == "" {
		return
	}
	hash, err := RequestHash(op, payload)
	if err != nil {
		log.Errorf("idempotency hash for key %s failed: %v", clientKey, err)
		return
	}
	data, err := json.Marshal(Record{
		RequestHash: hash,
		Status:      status,
		Body:        body,
		CreatedAt:   g.now().UTC(),
	})
	if err != nil {
		log.Errorf("idempotency record for key %s failed to encode: %v", clientKey, err)
		return
	}
	if err := g.store.Set(ctx, keyPrefix+clientKey, data, g.ttl); err != nil {
		log.Warnf("idempotency store for key %s failed: %v", clientKey, err)
	}
}

// Handler performs the mutation and returns the status and response body.
type Handler func() (status int, body any, err error)

// Do runs fn at most once per (clientKey, op, payload) within the TTL. It
// returns the record to send and whether it was replayed. Failed calls are
// not recorded, so a retry after an error runs fn again.
func (g *Guard) Do(ctx context.Context, clientKey, op string, payload any, fn Handler) (*Record, bool, error) {
	prev, err := g.Check(ctx, clientKey, op, payload)
	if err != nil {
		return nil, false, err
	}
	if prev != nil {
		return prev, true, nil
	}

	status, body, err := fn()
	if err != nil {
		return nil, false, err
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("encode response: %w", err)
	}
	g.Store(ctx, clientKey, op, payload, status, encoded)
	return &Record{Status: status, Body: encoded}, false, nil
}
