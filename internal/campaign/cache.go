package campaign

import (
	"context"
	"log/slog"
	"sync"

	"campaignkit/internal/model"
)

// Result is what cache mutations hand back to presentation code: a plain
// success flag plus the message to surface on failure.
type Result struct {
	Success bool
	Error   string
}

func okResult() Result { return Result{Success: true} }

func failResult(err error) Result { return Result{Error: err.Error()} }

// Cache holds the ordered campaign list backing the UI, kept consistent
// with the repository under a confirm-then-apply policy: a mutation touches
// the cache only after the repository confirmed it, so the cache never
// diverges from the last confirmed server state. Mutations are applied in
// the order their results arrive; an update or delete for an entity no
// longer present is a no-op.
type Cache struct {
	repo Repository
	log  *slog.Logger

	mu       sync.Mutex
	items    []model.Campaign
	loading  bool
	loadErr  string
	observer func()
}

func NewCache(repo Repository, log *slog.Logger) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{repo: repo, log: log, loading: true}
}

// HandleAuthChange reacts to the authenticated user changing: a user
// (including a new identity) triggers a wholesale refetch, no user clears
// the cache.
func (c *Cache) HandleAuthChange(ctx context.Context, user *model.AuthUser) {
	if user == nil {
		c.Clear()
		return
	}
	if err := c.Refresh(ctx); err != nil {
		c.log.Warn("campaign refetch after auth change failed", "error", err)
	}
}

// Refresh performs a full fetch and replaces the cache wholesale. No
// incremental merge happens at startup.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	c.changed()

	campaigns, err := c.repo.GetAll(ctx)

	c.mu.Lock()
	c.loading = false
	if err != nil {
		c.loadErr = err.Error()
		c.items = nil
	} else {
		c.loadErr = ""
		c.items = campaigns
	}
	c.mu.Unlock()
	c.changed()

	return err
}

// Clear empties the cache without touching the repository.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items = nil
	c.loading = false
	c.loadErr = ""
	c.mu.Unlock()
	c.changed()
}

// List returns a copy of the cached campaigns in display order.
func (c *Cache) List() []model.Campaign {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Campaign, len(c.items))
	copy(out, c.items)
	return out
}

// Loading reports whether a wholesale fetch is in flight.
func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LoadError returns the message of the last failed wholesale fetch, empty
// when the last fetch succeeded.
func (c *Cache) LoadError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

// Get returns the cached campaign with the given id.
func (c *Cache) Get(id string) (model.Campaign, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			return c.items[i], true
		}
	}
	return model.Campaign{}, false
}

// Create asks the repository to create the campaign and, only on confirmed
// success, prepends the returned entity. No refetch happens.
func (c *Cache) Create(ctx context.Context, draft model.CampaignDraft) Result {
	created, err := c.repo.Create(ctx, draft)
	if err != nil {
		return failResult(err)
	}

	c.mu.Lock()
	c.items = append([]model.Campaign{*created}, c.items...)
	c.mu.Unlock()
	c.changed()
	return okResult()
}

// Update applies the confirmed entity in place, preserving order. A
// confirmation arriving for an id already removed is a no-op.
func (c *Cache) Update(ctx context.Context, id string, patch model.CampaignPatch) Result {
	updated, err := c.repo.Update(ctx, id, patch)
	if err != nil {
		return failResult(err)
	}

	c.replace(id, *updated)
	return okResult()
}

// Delete removes the entity with the matching id once the repository
// confirmed the deletion.
func (c *Cache) Delete(ctx context.Context, id string) Result {
	if err := c.repo.Delete(ctx, id); err != nil {
		return failResult(err)
	}

	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.changed()
	return okResult()
}

// UpdateStatus is Update restricted to the status field.
func (c *Cache) UpdateStatus(ctx context.Context, id string, status model.CampaignStatus) Result {
	updated, err := c.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return failResult(err)
	}

	c.replace(id, *updated)
	return okResult()
}

// ToggleStatus advances the campaign through the toggle table: draft to
// active, active to paused, paused to active. The terminal completed state
// does not toggle; the call succeeds without touching anything.
func (c *Cache) ToggleStatus(ctx context.Context, id string) Result {
	current, found := c.Get(id)
	if !found {
		return failResult(model.NewError(model.ErrorValidation, "campaign not found in cache"))
	}

	next, ok := model.NextStatus(current.Status)
	if !ok {
		return okResult()
	}
	return c.UpdateStatus(ctx, id, next)
}

// Observe registers a single listener invoked after every cache change.
func (c *Cache) Observe(fn func()) {
	c.mu.Lock()
	c.observer = fn
	c.mu.Unlock()
}

func (c *Cache) replace(id string, updated model.Campaign) {
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i] = updated
			break
		}
	}
	c.mu.Unlock()
	c.changed()
}

func (c *Cache) changed() {
	c.mu.Lock()
	fn := c.observer
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
