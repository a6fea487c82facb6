package crud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ActionDelete = "delete"
	ActionBlock  = "block"
	ActionReject = "reject"
	ActionStop   = "stop"
)

// Action is a destructive call held back until the user confirms it.
type Action struct {
	Kind     string
	Resource string
	TargetID string
	Label    string
	Run      func(ctx context.Context) error
}

func (a Action) Prompt() string {
	target := a.Label
	if target == "" {
		target = a.TargetID
	}
	switch a.Kind {
	case ActionStop:
		return fmt.Sprintf("Stop %s %q permanently? Voting cannot be resumed.", a.Resource, target)
	case ActionBlock:
		return fmt.Sprintf("Block %s %q?", a.Resource, target)
	case ActionReject:
		return fmt.Sprintf("Reject %s %q?", a.Resource, target)
	default:
		return fmt.Sprintf("Delete %s %q? This cannot be undone.", a.Resource, target)
	}
}

type Pending struct {
	ID        string    `json:"confirmation_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	TargetID  string    `json:"target_id"`
	Prompt    string    `json:"prompt"`
	ExpiresAt time.Time `json:"expires_at"`
}

type pendingEntry struct {
	owner   string
	action  Action
	view    Pending
	running bool
}

// Confirmations holds requested destructive actions per session. Only Confirm
// runs them; a failed run stays pending.
type Confirmations struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	pending map[string]*pendingEntry
}

func NewConfirmations(ttl time.Duration, now func() time.Time) *Confirmations {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Confirmations{ttl: ttl, now: now, pending: make(map[string]*pendingEntry)}
}

func (c *Confirmations) Request(owner string, action Action) Pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked()

	view := Pending{
		ID:        uuid.NewString(),
		Action:    action.Kind,
		Resource:  action.Resource,
		TargetID:  action.TargetID,
		Prompt:    action.Prompt(),
		ExpiresAt: c.now().Add(c.ttl),
	}
	c.pending[view.ID] = &pendingEntry{owner: owner, action: action, view: view}
	return view
}

func (c *Confirmations) lookupLocked(owner, id string) (*pendingEntry, bool) {
	entry, ok := c.pending[id]
	if !ok || entry.owner != owner {
		return nil, false
	}
	if !c.now().Before(entry.view.ExpiresAt) {
		delete(c.pending, id)
		return nil, false
	}
	return entry, true
}

// Confirm runs the held action. On error the confirmation is kept so the user
// can retry or cancel.
func (c *Confirmations) Confirm(ctx context.Context, owner, id string) (Pending, error) {
	c.mu.Lock()
	entry, ok := c.lookupLocked(owner, id)
	if !ok {
		c.mu.Unlock()
		return Pending{}, ErrConfirmationNotFound
	}
	if entry.running {
		c.mu.Unlock()
		return Pending{}, ErrInFlight
	}
	entry.running = true
	c.mu.Unlock()

	err := entry.action.Run(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	entry.running = false
	if err != nil {
		return entry.view, err
	}
	delete(c.pending, id)
	return entry.view, nil
}

func (c *Confirmations) Cancel(owner, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lookupLocked(owner, id)
	if !ok || entry.running {
		return false
	}
	delete(c.pending, id)
	return true
}

func (c *Confirmations) Get(owner, id string) (Pending, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lookupLocked(owner, id)
	if !ok {
		return Pending{}, false
	}
	return entry.view, true
}

// DropOwner forgets every confirmation of a session, used on logout.
func (c *Confirmations) DropOwner(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, entry := range c.pending {
		if entry.owner == owner && !entry.running {
			delete(c.pending, id)
		}
	}
}

func (c *Confirmations) sweepLocked() {
	now := c.now()
	for id, entry := range c.pending {
		if !entry.running && !now.Before(entry.view.ExpiresAt) {
			delete(c.pending, id)
		}
	}
}
