package nakama

import (
	"context"
	"encoding/json"
	"fmt"

	"navalwar/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// storageAPI is the part of runtime.NakamaModule the snapshot store needs.
type storageAPI interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
}

// NakamaSnapshotStore keeps match records as system-owned storage objects.
type NakamaSnapshotStore struct {
	nk storageAPI
}

// NewNakamaSnapshotStore creates a new snapshot store adapter.
func NewNakamaSnapshotStore(nk storageAPI) *NakamaSnapshotStore {
	return &NakamaSnapshotStore{nk: nk}
}

// Save overwrites the record of matchID. Clients can neither read nor write it.
func (s *NakamaSnapshotStore) Save(ctx context.Context, matchID string, data []byte) error {
	return s.write(ctx, StorageCollectionMatches, matchID, string(data))
}

// Load returns the record of matchID or ports.ErrSnapshotNotFound.
func (s *NakamaSnapshotStore) Load(ctx context.Context, matchID string) ([]byte, error) {
	value, err := s.read(ctx, StorageCollectionMatches, matchID)
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// SaveSeats stores which user holds each seat of matchID, so a resumed match keeps its players.
func (s *NakamaSnapshotStore) SaveSeats(ctx context.Context, matchID string, seats [2]string) error {
	data, err := json.Marshal(seats)
	if err != nil {
		return fmt.Errorf("failed to marshal seats: %w", err)
	}
	return s.write(ctx, StorageCollectionSeats, matchID, string(data))
}

// LoadSeats returns the seats of matchID or ports.ErrSnapshotNotFound.
func (s *NakamaSnapshotStore) LoadSeats(ctx context.Context, matchID string) ([2]string, error) {
	var seats [2]string
	value, err := s.read(ctx, StorageCollectionSeats, matchID)
	if err != nil {
		return seats, err
	}
	if err := json.Unmarshal([]byte(value), &seats); err != nil {
		return seats, fmt.Errorf("failed to unmarshal seats of %s: %w", matchID, err)
	}
	return seats, nil
}

func (s *NakamaSnapshotStore) write(ctx context.Context, collection, matchID, value string) error {
	if matchID == "" {
		return fmt.Errorf("matchID is required")
	}
	writes := []*runtime.StorageWrite{
		{
			Collection:      collection,
			Key:             matchID,
			Value:           value,
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}
	if _, err := s.nk.StorageWrite(ctx, writes); err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", collection, matchID, err)
	}
	return nil
}

func (s *NakamaSnapshotStore) read(ctx context.Context, collection, matchID string) (string, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: collection, Key: matchID},
	})
	if err != nil {
		return "", fmt.Errorf("failed to read %s/%s: %w", collection, matchID, err)
	}
	if len(objects) == 0 {
		return "", ports.ErrSnapshotNotFound
	}
	return objects[0].GetValue(), nil
}

var _ ports.SnapshotStore = (*NakamaSnapshotStore)(nil)
