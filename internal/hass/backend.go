package hass

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/color"
)

// ErrNoURL is returned when a button has no Home Assistant URL configured.
var ErrNoURL = errors.New("home assistant url is not configured")

// Backend sends colors to Home Assistant. Each button may point at its own
// instance, so one Client is kept per (url, token) pair.
type Backend struct {
	httpClient   *http.Client
	rateLimitRPS float64

	mu      sync.Mutex
	clients map[clientKey]*Client
}

type clientKey struct {
	url   string
	token string
}

// NewBackend creates a Backend sharing httpClient across instances.
func NewBackend(httpClient *http.Client, rateLimitRPS float64) *Backend {
	return &Backend{
		httpClient:   httpClient,
		rateLimitRPS: rateLimitRPS,
		clients:      make(map[clientKey]*Client),
	}
}

// Name identifies the backend in logs and the ledger.
func (b *Backend) Name() string {
	return "homeassistant"
}

// TurnOn sends one light.turn_on request.
func (b *Backend) TurnOn(ctx context.Context, url, token, entityID string, rgb color.RGB) error {
	if url == "" {
		return &DispatchError{EntityID: entityID, Err: ErrNoURL}
	}
	return b.client(url, token).TurnOn(ctx, entityID, rgb)
}

func (b *Backend) client(url, token string) *Client {
	key := clientKey{url: url, token: token}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.clients[key]
	if !ok {
		c = NewClient(url, token, b.httpClient, b.rateLimitRPS)
		b.clients[key] = c
		log.Debug().Str("url", c.BaseURL()).Msg("Created Home Assistant client")
	}
	return c
}

// Close closes idle connections of all clients.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.clients {
		c.Close()
	}
}
