package settings

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/state"
)

// Kind is the resource_state kind used for the local settings mirror.
const Kind = "button"

// Pusher sends a settings record to the host for persistence.
type Pusher interface {
	SetSettings(ctx context.Context, id string, settings any) error
}

// HostStore keeps the latest settings of each button in memory, pushes every
// save to the host and mirrors it into SQLite so a restarted plugin still
// knows the last state before the host replays settings.
type HostStore struct {
	cache  *MemoryStore
	mirror *state.TypedStore[ButtonState]
	host   Pusher
}

// NewHostStore creates a HostStore. mirror may be nil.
func NewHostStore(host Pusher, mirror *state.TypedStore[ButtonState]) *HostStore {
	return &HostStore{
		cache:  NewMemoryStore(),
		mirror: mirror,
		host:   host,
	}
}

// Load returns the cached state, falling back to the SQLite mirror.
func (s *HostStore) Load(ctx context.Context, id string) (ButtonState, error) {
	if st, ok := s.cache.Lookup(id); ok {
		return st, nil
	}
	if s.mirror == nil {
		return ButtonState{}, nil
	}

	st, version, err := s.mirror.Get(id)
	if err != nil {
		return ButtonState{}, fmt.Errorf("failed to load mirrored settings: %w", err)
	}
	if version > 0 {
		_ = s.cache.Save(ctx, id, st)
	}
	return st, nil
}

// Save updates the cache, mirrors to SQLite and pushes to the host. A mirror
// failure is logged; a host failure is returned.
func (s *HostStore) Save(ctx context.Context, id string, st ButtonState) error {
	_ = s.cache.Save(ctx, id, st)

	if s.mirror != nil {
		if err := s.mirror.Set(id, st); err != nil {
			log.Warn().Err(err).Str("button", id).Str("kind", s.mirror.Kind()).Msg("Failed to mirror settings")
		}
	}

	if err := s.host.SetSettings(ctx, id, st); err != nil {
		return fmt.Errorf("failed to push settings to host: %w", err)
	}
	return nil
}

// Remember records settings delivered by the host without pushing them back.
// The host copy replaces whatever was cached or mirrored.
func (s *HostStore) Remember(id string, st ButtonState) {
	_ = s.cache.Save(context.Background(), id, st)
	if s.mirror != nil {
		if err := s.mirror.Set(id, st); err != nil {
			log.Warn().Err(err).Str("button", id).Str("kind", s.mirror.Kind()).Msg("Failed to mirror settings")
		}
	}
}

// Forget drops the cached copy of a button that left the canvas. The mirror
// keeps it until the button reappears or is cleared.
func (s *HostStore) Forget(id string) {
	s.cache.Delete(id)
}
