package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"teamboard-cli/internal/model"
)

const (
	KeySessionID = "session_id"
	KeyUser      = "user"
)

// State is what a logged-in client persists between runs.
type State struct {
	SessionID string
	User      *model.User
}

func (s State) Complete() bool {
	return strings.TrimSpace(s.SessionID) != "" && s.User != nil && s.User.ID != 0
}

// LoadState reads the persisted session. A corrupt user record is an error;
// missing keys are not.
func (s *Store) LoadState(ctx context.Context) (State, error) {
	var st State
	sid, ok, err := s.Get(ctx, KeySessionID)
	if err != nil {
		return State{}, err
	}
	if ok {
		st.SessionID = sid
	}
	raw, ok, err := s.Get(ctx, KeyUser)
	if err != nil {
		return State{}, err
	}
	if ok && strings.TrimSpace(raw) != "" {
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return State{}, fmt.Errorf("stored user is not valid json: %w", err)
		}
		st.User = &u
	}
	return st, nil
}

func (s *Store) SaveSessionID(ctx context.Context, id string) error {
	return s.Set(ctx, KeySessionID, id)
}

func (s *Store) SaveUser(ctx context.Context, u model.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.Set(ctx, KeyUser, string(b))
}

// ClearState removes both session keys.
func (s *Store) ClearState(ctx context.Context) error {
	if err := s.Remove(ctx, KeySessionID); err != nil {
		return err
	}
	return s.Remove(ctx, KeyUser)
}
