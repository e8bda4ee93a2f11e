package store

import (
	"context"
	"encoding/json"
	"fmt"

	"opencrvs/internal/kv"
	"opencrvs/internal/verification/models"
)

// KeyPrefix prefixes every stored verification code.
const KeyPrefix = "verification_"

// Key returns the storage key for nonce.
func Key(nonce string) string {
	return KeyPrefix + nonce
}

// CodeStore keeps issued codes in the shared key-value backend.
//
// Error Contract:
// - Get returns sentinel.ErrNotFound (wrapped) for an unknown nonce
// - Delete of an unknown nonce succeeds
type CodeStore struct {
	kv kv.Store
}

func New(store kv.Store) *CodeStore {
	return &CodeStore{kv: store}
}

func (s *CodeStore) Put(ctx context.Context, nonce string, record models.CodeRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding verification code: %w", err)
	}
	if err := s.kv.Set(ctx, Key(nonce), string(raw)); err != nil {
		return fmt.Errorf("storing verification code: %w", err)
	}
	return nil
}

func (s *CodeStore) Get(ctx context.Context, nonce string) (models.CodeRecord, error) {
	raw, err := s.kv.Get(ctx, Key(nonce))
	if err != nil {
		return models.CodeRecord{}, fmt.Errorf("loading verification code: %w", err)
	}
	var record models.CodeRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return models.CodeRecord{}, fmt.Errorf("decoding verification code: %w", err)
	}
	return record, nil
}

func (s *CodeStore) Delete(ctx context.Context, nonce string) error {
	if err := s.kv.Del(ctx, Key(nonce)); err != nil {
		return fmt.Errorf("deleting verification code: %w", err)
	}
	return nil
}
