package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a vendor does not exist or was deleted.
	ErrNotFound = errors.New("vendor not found")

	// ErrDuplicateName is returned when another vendor already uses the name.
	ErrDuplicateName = errors.New("vendor name already in use")
)

// Filter narrows List results. Zero values mean no constraint; City is
// compared case-insensitively after trimming.
type Filter struct {
	Category  Category
	Status    Status
	City      string
	Available *bool
	Limit     int
}

// Repository defines the directory data operations. Snapshot order is part of
// the contract: implementations must return vendors in creation order so that
// ranking ties stay deterministic.
type Repository interface {
	// Insert stores a new vendor, assigning an ID if none is set.
	Insert(ctx context.Context, v *Vendor) error

	// Update replaces an existing vendor's mutable fields.
	Update(ctx context.Context, v *Vendor) error

	// Delete soft-deletes a vendor by ID.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a vendor by its ID.
	GetByID(ctx context.Context, id string) (*Vendor, error)

	// List retrieves vendors matching the filter, in creation order.
	List(ctx context.Context, f Filter) ([]Vendor, error)

	// Snapshot retrieves the full directory in creation order.
	Snapshot(ctx context.Context) ([]Vendor, error)

	// ExistsByName reports whether a vendor other than excludeID uses the
	// name (trimmed, case-insensitive).
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
}

func matchesFilter(v *Vendor, f Filter) bool {
	if f.Category != "" && v.Category != f.Category {
		return false
	}
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.City != "" && !strings.EqualFold(strings.TrimSpace(v.City), strings.TrimSpace(f.City)) {
		return false
	}
	if f.Available != nil && v.Available != *f.Available {
		return false
	}
	return true
}

func namesEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and for running the API without a database.
type InMemoryRepository struct {
	mu      sync.RWMutex
	vendors map[string]*Vendor
	order   []string
}

// NewInMemoryRepository creates a new in-memory vendor repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		vendors: make(map[string]*Vendor),
	}
}

// Insert stores a new vendor, assigning an ID if none is set.
func (r *InMemoryRepository) Insert(ctx context.Context, v *Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		if namesEqual(r.vendors[id].Name, v.Name) {
			return ErrDuplicateName
		}
	}

	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt = &now
	v.UpdatedAt = &now

	r.vendors[v.ID] = v.Clone()
	r.order = append(r.order, v.ID)
	return nil
}

// Update replaces an existing vendor's mutable fields.
func (r *InMemoryRepository) Update(ctx context.Context, v *Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.vendors[v.ID]
	if !ok {
		return ErrNotFound
	}
	for _, id := range r.order {
		if id != v.ID && namesEqual(r.vendors[id].Name, v.Name) {
			return ErrDuplicateName
		}
	}

	now := time.Now().UTC()
	v.CreatedAt = existing.CreatedAt
	v.UpdatedAt = &now

	r.vendors[v.ID] = v.Clone()
	return nil
}

// Delete removes a vendor by ID.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vendors[id]; !ok {
		return ErrNotFound
	}
	delete(r.vendors, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetByID retrieves a vendor by its ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vendors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return v.Clone(), nil
}

// List retrieves vendors matching the filter, in creation order.
func (r *InMemoryRepository) List(ctx context.Context, f Filter) ([]Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Vendor, 0, len(r.order))
	for _, id := range r.order {
		v := r.vendors[id]
		if !matchesFilter(v, f) {
			continue
		}
		out = append(out, *v.Clone())
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// Snapshot retrieves the full directory in creation order.
func (r *InMemoryRepository) Snapshot(ctx context.Context) ([]Vendor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Vendor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.vendors[id].Clone())
	}
	return out, nil
}

// ExistsByName reports whether a vendor other than excludeID uses the name.
func (r *InMemoryRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if id != excludeID && namesEqual(r.vendors[id].Name, name) {
			return true, nil
		}
	}
	return false, nil
}
