// Package geo acquires the position attached to new tasks.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
)

// ErrUnavailable is returned when no position source is configured.
var ErrUnavailable = errors.New("location unavailable")

// Position is a single fix.
type Position struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}

// Options controls a single-shot position request.
type Options struct {
	HighAccuracy bool
	// Timeout bounds the whole request. Zero means no limit.
	Timeout time.Duration
	// MaximumAge is how old a cached fix may be and still be returned.
	MaximumAge time.Duration
}

// DefaultOptions are used when creating tasks.
var DefaultOptions = Options{
	HighAccuracy: true,
	Timeout:      15 * time.Second,
	MaximumAge:   10 * time.Second,
}

// Provider returns the current position.
type Provider interface {
	CurrentPosition(ctx context.Context, highAccuracy bool) (Position, error)
}

// Locate performs one position request with opts applied.
func Locate(ctx context.Context, p Provider, opts Options) (Position, error) {
	if c, ok := p.(*Cache); ok {
		if pos, ok := c.fresh(opts.MaximumAge); ok {
			return pos, nil
		}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	pos, err := p.CurrentPosition(ctx, opts.HighAccuracy)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Position{}, fmt.Errorf("location request timed out after %s", opts.Timeout)
		}
		return Position{}, err
	}
	return pos, nil
}

// Fixed always reports the same coordinates.
type Fixed struct {
	Latitude  float64
	Longitude float64
	Now       func() time.Time
}

// CurrentPosition implements Provider.
func (f Fixed) CurrentPosition(ctx context.Context, highAccuracy bool) (Position, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	return Position{Latitude: f.Latitude, Longitude: f.Longitude, Timestamp: now()}, nil
}

// Unavailable always fails.
type Unavailable struct{}

// CurrentPosition implements Provider.
func (Unavailable) CurrentPosition(ctx context.Context, highAccuracy bool) (Position, error) {
	return Position{}, ErrUnavailable
}

// HTTPLookup asks an IP geolocation endpoint for {"latitude": .., "longitude": ..}.
// IP lookups are coarse whatever highAccuracy says.
type HTTPLookup struct {
	URL    string
	Client *http.Client
}

// CurrentPosition implements Provider.
func (h HTTPLookup) CurrentPosition(ctx context.Context, highAccuracy bool) (Position, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return Position{}, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return Position{}, fmt.Errorf("location lookup: %w", err)
	}
	defer res.Body.Close()
	if err := googleapi.CheckResponse(res); err != nil {
		return Position{}, fmt.Errorf("location lookup: %w", err)
	}

	var body struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return Position{}, fmt.Errorf("location lookup: invalid response: %w", err)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return Position{}, errors.New("location lookup: response has no coordinates")
	}
	return Position{Latitude: *body.Latitude, Longitude: *body.Longitude, Timestamp: time.Now()}, nil
}

// Cache remembers the last fix of an underlying provider so Locate can honour MaximumAge.
type Cache struct {
	Provider Provider
	Now      func() time.Time

	mu   sync.Mutex
	last Position
	ok   bool
}

// NewCache wraps p.
func NewCache(p Provider) *Cache {
	return &Cache{Provider: p, Now: time.Now}
}

// CurrentPosition implements Provider and records the result.
func (c *Cache) CurrentPosition(ctx context.Context, highAccuracy bool) (Position, error) {
	pos, err := c.Provider.CurrentPosition(ctx, highAccuracy)
	if err != nil {
		return Position{}, err
	}
	if pos.Timestamp.IsZero() {
		pos.Timestamp = c.Now()
	}
	c.mu.Lock()
	c.last, c.ok = pos, true
	c.mu.Unlock()
	return pos, nil
}

func (c *Cache) fresh(maxAge time.Duration) (Position, bool) {
	if maxAge <= 0 {
		return Position{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ok || c.Now().Sub(c.last.Timestamp) > maxAge {
		return Position{}, false
	}
	return c.last, true
}
