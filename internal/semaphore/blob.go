package semaphore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob"
)

// KeyPrefix scopes marker objects inside a shared bucket.
const KeyPrefix = "semaphores/"

// BlobStore keeps markers as objects in a blob.Store. Each Set is a single
// replacing Put.
type BlobStore struct {
	store blob.Store
}

// NewBlobStore wraps store.
func NewBlobStore(store blob.Store) *BlobStore { return &BlobStore{store: store} }

// Key returns the object key for runID.
func (s *BlobStore) Key(runID string) string { return KeyPrefix + runID + Extension }

// Set writes the marker object.
func (s *BlobStore) Set(ctx context.Context, runID string, state State) error {
	if err := checkWrite(runID, state); err != nil {
		return err
	}
	_, err := s.store.Put(ctx, s.Key(runID), bytes.NewReader(encode(state)), blob.PutOptions{
		ContentType: "text/plain",
		Metadata:    map[string]string{"run": runID},
		Replace:     true,
	})
	if err != nil {
		return fmt.Errorf("semaphore: put %s: %w", runID, err)
	}
	return nil
}

// Get reads the marker object.
func (s *BlobStore) Get(ctx context.Context, runID string) (State, bool, error) {
	if err := ValidateRunID(runID); err != nil {
		return "", false, err
	}
	_, rc, err := s.store.Get(ctx, s.Key(runID))
	if errors.Is(err, blob.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("semaphore: get %s: %w", runID, err)
	}
	defer func() { _ = rc.Close() }()
	b, err := io.ReadAll(io.LimitReader(rc, 64))
	if err != nil {
		return "", false, fmt.Errorf("semaphore: read %s: %w", runID, err)
	}
	state, err := decode(b)
	if err != nil {
		return "", false, err
	}
	return state, true, nil
}
