package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/pricing"
)

// ErrNotFound is returned when a session id is unknown or already closed.
var ErrNotFound = errors.New("session: not found")

// DefaultTTL is how long an idle session survives before the sweeper
// reclaims it.
const DefaultTTL = 4 * time.Hour

// Session is one open register transaction: a cart plus bookkeeping.
// Access to the cart goes through Registry.WithCart, which serializes it.
type Session struct {
	ID       uuid.UUID
	OpenedAt time.Time

	mu         sync.Mutex
	lastActive time.Time
	cart       *cart.Cart
}

// Info is the wire representation of a session.
type Info struct {
	ID         uuid.UUID       `json:"id"`
	OpenedAt   time.Time       `json:"openedAt"`
	LastActive time.Time       `json:"lastActive"`
	Items      []cart.LineItem `json:"items"`
	Subtotal   pricing.Money   `json:"subtotal"`
}

// Registry holds open sessions in memory. Carts never outlive the process;
// finalized sales are the durable record.
type Registry struct {
	TTL      time.Duration
	Defaults cart.Defaults
	Now      func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func NewRegistry(ttl time.Duration, defaults cart.Defaults) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		TTL:      ttl,
		Defaults: defaults,
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (r *Registry) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Open creates a new session with an empty cart.
func (r *Registry) Open() Info {
	now := r.now()
	s := &Session{
		ID:         uuid.New(),
		OpenedAt:   now,
		lastActive: now,
		cart:       cart.New(r.Defaults),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return Info{ID: s.ID, OpenedAt: now, LastActive: now, Items: []cart.LineItem{}}
}

func (r *Registry) lookup(id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Get returns a snapshot of the session and its cart contents.
func (r *Registry) Get(id uuid.UUID) (Info, error) {
	s, err := r.lookup(id)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:         s.ID,
		OpenedAt:   s.OpenedAt,
		LastActive: s.lastActive,
		Items:      s.cart.Items(),
		Subtotal:   s.cart.Subtotal(),
	}, nil
}

// Close removes the session. Its cart is discarded.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// WithCart runs fn with exclusive access to the session's cart and bumps the
// session's activity clock. It implements checkout.CartSource.
func (r *Registry) WithCart(ctx context.Context, id uuid.UUID, fn func(*cart.Cart) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := r.lookup(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = r.now()
	return fn(s.cart)
}

// Sweep drops sessions idle past the TTL and reports how many were removed.
// Run it periodically from the process main loop.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.TTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		stale := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if stale {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports how many sessions are open.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
