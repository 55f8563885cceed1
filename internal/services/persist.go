package services

import (
	"context"
	"encoding/json"
	"fmt"

	"relief/internal/core"
	"relief/internal/store"
)

// persist replaces the stored collection under key with v.
// Any failure is reported as a *core.StoreError with Op "set".
func persist(ctx context.Context, s store.Store, key string, shared bool, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return &core.StoreError{Op: "set", Key: key, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := s.Set(ctx, key, string(body), shared); err != nil {
		return &core.StoreError{Op: "set", Key: key, Err: err}
	}
	return nil
}

// fetch reads and decodes a collection. found is false when the key is absent.
func fetch[T any](ctx context.Context, s store.Store, key string, shared bool) (out T, found bool, err error) {
	raw, found, err := s.Get(ctx, key, shared)
	if err != nil {
		return out, false, &core.StoreError{Op: "get", Key: key, Err: err}
	}
	if !found {
		return out, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, false, &core.StoreError{Op: "get", Key: key, Err: fmt.Errorf("decode: %w", err)}
	}
	return out, true, nil
}
