package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/tmoana/uvwatch/internal/domain/exposure"
)

// ValkeyStore persists session state using a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "session"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Get(ctx context.Context, sessionID string) (exposure.SessionState, bool, error) {
	if sessionID == "" {
		return exposure.SessionState{}, false, nil
	}
	cmd := s.client.B().Get().Key(s.key(sessionID)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return exposure.SessionState{}, false, nil
		}
		return exposure.SessionState{}, false, err
	}
	var state exposure.SessionState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return exposure.SessionState{}, false, err
	}
	return state, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, sessionID string, state exposure.SessionState, ttl time.Duration) error {
	if sessionID == "" {
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(sessionID)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.client.Do(ctx, s.client.B().Del().Key(s.key(sessionID)).Build()).Error()
}

func (s *ValkeyStore) key(sessionID string) string {
	return fmt.Sprintf("%s:%s", s.prefix, sessionID)
}

var _ Store = (*ValkeyStore)(nil)
