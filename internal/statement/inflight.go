package statement

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ErrAlreadyProcessing is returned when a locator is already being processed
var ErrAlreadyProcessing = errors.New("document is already being processed")

// Locker hands out per-locator processing locks
type Locker interface {
	// Acquire claims key. The returned func releases it.
	Acquire(key string) (func(), error)
}

// InFlight tracks locators being processed. Entries expire after ttl so a
// crashed request cannot hold a locator forever.
type InFlight struct {
	mu      sync.Mutex
	entries *cache.Cache
}

// NewInFlight creates an InFlight whose markers expire after ttl
func NewInFlight(ttl time.Duration) *InFlight {
	return &InFlight{entries: cache.New(ttl, 2*ttl)}
}

// Acquire marks key as in flight. The release func only clears the marker
// this call placed; once it has expired and been claimed again, releasing
// is a no-op.
func (f *InFlight) Acquire(key string) (func(), error) {
	token := uuid.NewString()

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.entries.Add(key, token, cache.DefaultExpiration); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyProcessing, key)
	}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if held, ok := f.entries.Get(key); ok && held == token {
			f.entries.Delete(key)
		}
	}, nil
}
