// Package directory provides the vendor directory: service-provider records,
// validation, and storage. The match engine consumes read-only snapshots of
// this directory and never mutates it.
package directory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/utsavhq/vendormatch/internal/validate"
)

// Category identifies the kind of service a vendor provides. The set is
// closed; ranking logic switches exhaustively over these values.
type Category string

const (
	CategoryDecor           Category = "Decor"
	CategoryCatering        Category = "Catering"
	CategoryVenue           Category = "Venue"
	CategoryPhotography     Category = "Photography"
	CategoryVideography     Category = "Videography"
	CategoryDJSound         Category = "DJ/Sound"
	CategoryMakeup          Category = "Makeup"
	CategoryMehndi          Category = "Mehndi"
	CategoryTransport       Category = "Transport"
	CategoryLighting        Category = "Lighting"
	CategoryFlorist         Category = "Florist"
	CategoryInvitationPrint Category = "Invitation/Print"
	CategoryHotel           Category = "Hotel"
	CategorySecurity        Category = "Security"
	CategoryOther           Category = "Other"
)

// Categories returns all valid categories in display order.
func Categories() []Category {
	return []Category{
		CategoryDecor,
		CategoryCatering,
		CategoryVenue,
		CategoryPhotography,
		CategoryVideography,
		CategoryDJSound,
		CategoryMakeup,
		CategoryMehndi,
		CategoryTransport,
		CategoryLighting,
		CategoryFlorist,
		CategoryInvitationPrint,
		CategoryHotel,
		CategorySecurity,
		CategoryOther,
	}
}

// ParseCategory maps a wire string to a Category. The second return value
// reports whether the string named a known category.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if c.Valid() {
		return c, true
	}
	return "", false
}

// Valid reports whether c is one of the closed category values.
func (c Category) Valid() bool {
	switch c {
	case CategoryDecor, CategoryCatering, CategoryVenue, CategoryPhotography,
		CategoryVideography, CategoryDJSound, CategoryMakeup, CategoryMehndi,
		CategoryTransport, CategoryLighting, CategoryFlorist,
		CategoryInvitationPrint, CategoryHotel, CategorySecurity, CategoryOther:
		return true
	}
	return false
}

// Status is a vendor's standing in the directory. Blacklisted vendors remain
// in the directory for record keeping but are never recommended.
type Status string

const (
	StatusActive      Status = "Active"
	StatusPreferred   Status = "Preferred"
	StatusOnHold      Status = "OnHold"
	StatusBlacklisted Status = "Blacklisted"
)

// ParseStatus maps a wire string to a Status.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	if st.Valid() {
		return st, true
	}
	return "", false
}

// Valid reports whether s is one of the closed status values.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPreferred, StatusOnHold, StatusBlacklisted:
		return true
	}
	return false
}

// Vendor is a service-provider record. ID is assigned at creation and
// immutable; timestamps are owned by the directory, not by callers.
type Vendor struct {
	ID        string     `json:"id" cbor:"id"`
	Name      string     `json:"name" cbor:"name"`
	Category  Category   `json:"category" cbor:"category"`
	City      string     `json:"city,omitempty" cbor:"city,omitempty"`
	PriceMin  *float64   `json:"price_min,omitempty" cbor:"price_min,omitempty"`
	PriceMax  *float64   `json:"price_max,omitempty" cbor:"price_max,omitempty"`
	Rating    float64    `json:"rating" cbor:"rating"`
	Status    Status     `json:"status" cbor:"status"`
	Available bool       `json:"available" cbor:"available"`
	Tags      []string   `json:"tags,omitempty" cbor:"tags,omitempty"`
	Notes     string     `json:"notes,omitempty" cbor:"notes,omitempty"`
	Phone     string     `json:"phone,omitempty" cbor:"phone,omitempty"`
	Email     string     `json:"email,omitempty" cbor:"email,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty" cbor:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" cbor:"updated_at,omitempty"`
}

// Validate checks the directory-side invariants. The match engine performs no
// clamping of its own, so records must be valid before they reach a snapshot.
// String fields are held to the same limits the HTTP API enforces on its
// request bodies.
func (v *Vendor) Validate() []error {
	var errs []error

	if _, err := validate.VendorName(v.Name); err != nil {
		errs = append(errs, fmt.Errorf("name: %w", err))
	}
	if !v.Category.Valid() {
		errs = append(errs, fmt.Errorf("unknown category %q", string(v.Category)))
	}
	if !v.Status.Valid() {
		errs = append(errs, fmt.Errorf("unknown status %q", string(v.Status)))
	}
	if v.Rating < 0 || v.Rating > 5 {
		errs = append(errs, fmt.Errorf("rating %.2f outside [0, 5]", v.Rating))
	}
	if v.PriceMin != nil && *v.PriceMin < 0 {
		errs = append(errs, errors.New("price_min must be non-negative"))
	}
	if v.PriceMax != nil && *v.PriceMax < 0 {
		errs = append(errs, errors.New("price_max must be non-negative"))
	}
	if v.PriceMin != nil && v.PriceMax != nil && *v.PriceMin > *v.PriceMax {
		errs = append(errs, errors.New("price_min must not exceed price_max"))
	}
	if _, err := validate.City(v.City); err != nil {
		errs = append(errs, fmt.Errorf("city: %w", err))
	}
	for i, tag := range v.Tags {
		if _, err := validate.Tag(tag); err != nil {
			errs = append(errs, fmt.Errorf("tags[%d]: %w", i, err))
		}
	}
	if _, err := validate.Notes(v.Notes); err != nil {
		errs = append(errs, fmt.Errorf("notes: %w", err))
	}
	if _, err := validate.Phone(v.Phone); err != nil {
		errs = append(errs, fmt.Errorf("phone: %w", err))
	}
	if v.Email != "" {
		if _, err := validate.Email(v.Email); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	return errs
}

// HasTag reports whether the vendor carries the given tag. Tags are stored
// as given but matched case-insensitively.
func (v *Vendor) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no memory with the receiver.
func (v *Vendor) Clone() *Vendor {
	c := *v
	if v.PriceMin != nil {
		min := *v.PriceMin
		c.PriceMin = &min
	}
	if v.PriceMax != nil {
		max := *v.PriceMax
		c.PriceMax = &max
	}
	if v.Tags != nil {
		c.Tags = append([]string(nil), v.Tags...)
	}
	if v.CreatedAt != nil {
		t := *v.CreatedAt
		c.CreatedAt = &t
	}
	if v.UpdatedAt != nil {
		t := *v.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}
