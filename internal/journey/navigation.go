package journey

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	pendingKey       = "detour:pending"
	payloadKeyPrefix = "detour:payload:"

	// DefaultScratchTTL bounds how long an unconsumed request or payload lives.
	DefaultScratchTTL = time.Minute
)

// DraftKind names what a detour payload prefills.
type DraftKind string

const (
	DraftCoordination        DraftKind = "coordination"
	DraftFounderSlots        DraftKind = "founder-slots"
	DraftAssessmentFollowup  DraftKind = "assessment-followup"
	DraftFounderThanks       DraftKind = "founder-thanks"
	DraftChampion            DraftKind = "champion"
	DraftForwardAvailability DraftKind = "forward-availability"
	DraftSynthesis           DraftKind = "synthesis"
)

// Draft is the payload a detour target consumes on mount.
type Draft struct {
	Kind    DraftKind
	To      string
	Subject string
	Body    string
	Review  int
	Points  []string
}

// Request is a navigation request waiting for the next evaluation.
type Request struct {
	ID     string
	Target Screen
	Return Screen
	Kind   DraftKind
	At     time.Time
}

// Channel is the out-of-band navigation side channel. Requests and payloads
// live in TTL scratch storage; the journey promotes a taken request into
// Signals.Detour, so the router never reads scratch directly.
type Channel struct {
	mu      sync.Mutex
	scratch *cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewChannel constructs a channel whose scratch entries expire after ttl.
// No janitor goroutine runs; expired entries are invisible on read and
// dropped on Flush.
func NewChannel(ttl time.Duration, logger *zap.Logger) *Channel {
	if ttl <= 0 {
		ttl = DefaultScratchTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		scratch: cache.New(ttl, 0),
		ttl:     ttl,
		logger:  logger,
	}
}

// RequestDetour asks the next evaluation to show target prefilled with
// payload, returning to ret once target completes.
func (c *Channel) RequestDetour(target Screen, payload Draft, ret Screen) (string, error) {
	if target == "" {
		return "", fmt.Errorf("journey: detour target is required")
	}
	if !ret.IsTab() {
		return "", fmt.Errorf("%w: %q", ErrNotReturnable, ret)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.scratch.Get(pendingKey); ok {
		req := existing.(Request)
		return "", fmt.Errorf("%w: %s to %s", ErrDetourPending, req.ID, req.Target)
	}
	req := Request{
		ID:     uuid.NewString(),
		Target: target,
		Return: ret,
		Kind:   payload.Kind,
		At:     time.Now().UTC(),
	}
	payload.Points = cloneStrings(payload.Points)
	c.scratch.Set(pendingKey, req, cache.DefaultExpiration)
	c.scratch.Set(payloadKeyPrefix+req.ID, payload, cache.DefaultExpiration)
	c.logger.Debug("journey: detour requested",
		zap.String("id", req.ID),
		zap.String("target", string(target)),
		zap.String("return", string(ret)),
	)
	return req.ID, nil
}

// Take removes and returns the pending request, if any.
func (c *Channel) Take() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.scratch.Get(pendingKey)
	if !ok {
		return Request{}, false
	}
	c.scratch.Delete(pendingKey)
	return item.(Request), true
}

// Pending reports whether a request is waiting to be taken.
func (c *Channel) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.scratch.Get(pendingKey)
	return ok
}

// ConsumePayload returns the payload for request id exactly once.
func (c *Channel) ConsumePayload(id string) (Draft, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := payloadKeyPrefix + id
	item, ok := c.scratch.Get(key)
	if !ok {
		return Draft{}, false
	}
	c.scratch.Delete(key)
	return item.(Draft), true
}

// Discard drops a payload that will never be consumed.
func (c *Channel) Discard(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scratch.Delete(payloadKeyPrefix + id)
}

// Len counts live scratch entries.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scratch.DeleteExpired()
	return c.scratch.ItemCount()
}

// Flush clears all scratch entries.
func (c *Channel) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scratch.Flush()
}
