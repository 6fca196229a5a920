package repository

import (
	"context"
	"encoding/json"
)

func PutRaw(ctx context.Context, s *MemoryStore, ownerID, key string, raw json.RawMessage) error {
	return s.put(ctx, ownerID, key, raw)
}

func RecordCount(s *MemoryStore, ownerID string) int {
	return s.count(ownerID)
}
