package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/sklepio/storefront-backend/pkg/errors"
	"github.com/sklepio/storefront-backend/pkg/redis"
)

// ErrDraftNotFound signals no checkout is in progress for the session.
var ErrDraftNotFound = errors.New("checkout draft not found")

// DraftStore persists checkout drafts keyed by session.
type DraftStore interface {
	Load(ctx context.Context, sessionID string) (*Draft, error)
	Save(ctx context.Context, draft *Draft) error
	Delete(ctx context.Context, sessionID string) error
}

// SelectionStore reads the set of cart line ids the customer ticked for
// checkout. The cart UI owns the set; the checkout only reads and clears it.
type SelectionStore interface {
	SelectedItemIDs(ctx context.Context, sessionID string) ([]uuid.UUID, error)
	Clear(ctx context.Context, sessionID string) error
}

// SubmitLock guards against double order submission from the same session.
type SubmitLock interface {
	Acquire(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string) error
}

type redisStore struct {
	client   *redis.Client
	draftTTL time.Duration
	lockTTL  time.Duration
}

// NewRedisStore builds the Redis-backed draft store, selection reader and
// submit lock in one value.
func NewRedisStore(client *redis.Client, draftTTL, lockTTL time.Duration) (*redisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if draftTTL <= 0 {
		draftTTL = 24 * time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &redisStore{client: client, draftTTL: draftTTL, lockTTL: lockTTL}, nil
}

func (s *redisStore) Load(ctx context.Context, sessionID string) (*Draft, error) {
	raw, err := s.client.Get(ctx, s.client.DraftKey(sessionID))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load checkout draft")
	}
	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode checkout draft")
	}
	return &draft, nil
}

func (s *redisStore) Save(ctx context.Context, draft *Draft) error {
	if draft == nil || draft.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeInternal, "draft requires a session id")
	}
	raw, err := json.Marshal(draft)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout draft")
	}
	if err := s.client.Set(ctx, s.client.DraftKey(draft.SessionID), raw, s.draftTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store checkout draft")
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.client.DraftKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete checkout draft")
	}
	return nil
}

// SelectedItemIDs parses the persisted selection set. Members that are not
// uuids are stale junk from older cart versions and are skipped.
func (s *redisStore) SelectedItemIDs(ctx context.Context, sessionID string) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, s.client.SelectionKey(sessionID))
	if err != nil && !errors.Is(err, redis.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart selection")
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *redisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.client.SelectionKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart selection")
	}
	return nil
}

func (s *redisStore) Acquire(ctx context.Context, sessionID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.client.SubmitLockKey(sessionID), "1", s.lockTTL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquire submit lock")
	}
	return ok, nil
}

func (s *redisStore) Release(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.client.SubmitLockKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release submit lock")
	}
	return nil
}
