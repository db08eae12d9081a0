package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/utsavhq/vendormatch/internal/directory"
)

// List pagination bounds for GET /vendors.
const (
	DefaultListLimit = 20
	MaxListLimit     = 50
)

// validate checks request structs against their validate tags. Field names in
// error messages come from the json tags so clients see wire names, not Go
// names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateVendorRequest represents the request body for creating a vendor.
type CreateVendorRequest struct {
	Name      string   `json:"name" validate:"required,max=80"`
	Category  string   `json:"category" validate:"required"`
	City      string   `json:"city,omitempty" validate:"omitempty,max=120"`
	PriceMin  *float64 `json:"price_min,omitempty" validate:"omitempty,gte=0"`
	PriceMax  *float64 `json:"price_max,omitempty" validate:"omitempty,gte=0"`
	Rating    float64  `json:"rating" validate:"gte=0,lte=5"`
	Status    string   `json:"status,omitempty"`
	Available *bool    `json:"available,omitempty"`
	Tags      []string `json:"tags,omitempty" validate:"omitempty,dive,max=40"`
	Notes     string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Phone     string   `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email     string   `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// UpdateVendorRequest represents the request body for partially updating a
// vendor. Only fields present in the body are applied; absent fields keep
// their stored values.
type UpdateVendorRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,max=80"`
	Category  *string  `json:"category,omitempty"`
	City      *string  `json:"city,omitempty" validate:"omitempty,max=120"`
	PriceMin  *float64 `json:"price_min,omitempty" validate:"omitempty,gte=0"`
	PriceMax  *float64 `json:"price_max,omitempty" validate:"omitempty,gte=0"`
	Rating    *float64 `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	Status    *string  `json:"status,omitempty"`
	Available *bool    `json:"available,omitempty"`
	Tags      []string `json:"tags,omitempty" validate:"omitempty,dive,max=40"`
	Notes     *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Phone     *string  `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email     *string  `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// ListVendorsResponse represents the response body for GET /vendors.
type ListVendorsResponse struct {
	Vendors []directory.Vendor `json:"vendors"`
}

// VendorHandlers holds dependencies for vendor HTTP handlers.
type VendorHandlers struct {
	repo  directory.Repository
	cache *directory.SnapshotCache
}

// NewVendorHandlers creates a new VendorHandlers instance. The cache may be
// nil; when present it is invalidated after every successful mutation.
func NewVendorHandlers(repo directory.Repository, cache *directory.SnapshotCache) *VendorHandlers {
	return &VendorHandlers{repo: repo, cache: cache}
}

// validationMessage turns the first validator field error into a message a
// client can act on.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "request validation failed"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed validation rule %q", fe.Field(), fe.Tag())
	}
}

// CreateVendor handles POST /vendors - creates a new vendor.
func (h *VendorHandlers) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var req CreateVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
		return
	}

	category, ok := directory.ParseCategory(req.Category)
	if !ok {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("unknown category %q", req.Category))
		return
	}

	status := directory.StatusActive
	if req.Status != "" {
		var ok bool
		status, ok = directory.ParseStatus(req.Status)
		if !ok {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("unknown status %q", req.Status))
			return
		}
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	vendor := &directory.Vendor{
		Name:      strings.TrimSpace(req.Name),
		Category:  category,
		City:      strings.TrimSpace(req.City),
		PriceMin:  req.PriceMin,
		PriceMax:  req.PriceMax,
		Rating:    req.Rating,
		Status:    status,
		Available: available,
		Tags:      req.Tags,
		Notes:     req.Notes,
		Phone:     req.Phone,
		Email:     req.Email,
	}

	// Domain invariants, including the price_min <= price_max cross-field
	// check, live on the model.
	if errs := vendor.Validate(); len(errs) > 0 {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, errs[0].Error())
		return
	}

	if err := h.repo.Insert(r.Context(), vendor); err != nil {
		if errors.Is(err, directory.ErrDuplicateName) {
			WriteError(w, r.Context(), http.StatusConflict, ErrCodeDuplicateName, "Vendor with this name already exists")
			return
		}
		slog.ErrorContext(r.Context(), "failed to insert vendor", "error", err)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to create vendor")
		return
	}

	h.invalidateSnapshot(r)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(vendor); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode vendor response", "error", err)
	}
}

// ListVendors handles GET /vendors - lists vendors with optional filters.
func (h *VendorHandlers) ListVendors(w http.ResponseWriter, r *http.Request) {
	var f directory.Filter

	q := r.URL.Query()

	if s := q.Get("category"); s != "" {
		category, ok := directory.ParseCategory(s)
		if !ok {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("unknown category %q", s))
			return
		}
		f.Category = category
	}

	if s := q.Get("status"); s != "" {
		status, ok := directory.ParseStatus(s)
		if !ok {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("unknown status %q", s))
			return
		}
		f.Status = status
	}

	f.City = q.Get("city")

	if s := q.Get("available"); s != "" {
		available, err := strconv.ParseBool(s)
		if err != nil {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "available must be true or false")
			return
		}
		f.Available = &available
	}

	f.Limit = DefaultListLimit
	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		if limit > MaxListLimit {
			limit = MaxListLimit
		}
		f.Limit = limit
	}

	vendors, err := h.repo.List(r.Context(), f)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list vendors", "error", err)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to list vendors")
		return
	}
	if vendors == nil {
		vendors = []directory.Vendor{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ListVendorsResponse{Vendors: vendors}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode vendors response", "error", err)
	}
}

// GetVendor handles GET /vendors/{id} - fetches a single vendor.
func (h *VendorHandlers) GetVendor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Vendor ID is required")
		return
	}

	vendor, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Vendor not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get vendor", "error", err, "vendor_id", id)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve vendor")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(vendor); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode vendor response", "error", err)
	}
}

// UpdateVendor handles PATCH /vendors/{id} - partially updates a vendor.
func (h *VendorHandlers) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Vendor ID is required")
		return
	}

	var req UpdateVendorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if err := validate.Struct(req); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
		return
	}

	vendor, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Vendor not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get vendor", "error", err, "vendor_id", id)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve vendor")
		return
	}

	if req.Name != nil {
		vendor.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		category, ok := directory.ParseCategory(*req.Category)
		if !ok {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("unknown category %q", *req.Category))
			return
		}
		vendor.Category = category
	}
	if req.City != nil {
		vendor.City = strings.TrimSpace(*req.City)
	}
	if req.PriceMin != nil {
		vendor.PriceMin = req.PriceMin
	}
	if req.PriceMax != nil {
		vendor.PriceMax = req.PriceMax
	}
	if req.Rating != nil {
		vendor.Rating = *req.Rating
	}
	if req.Status != nil {
		status, ok := directory.ParseStatus(*req.Status)
		if !ok {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation,
				fmt.Sprintf("unknown status %q", *req.Status))
			return
		}
		vendor.Status = status
	}
	if req.Available != nil {
		vendor.Available = *req.Available
	}
	if req.Tags != nil {
		vendor.Tags = req.Tags
	}
	if req.Notes != nil {
		vendor.Notes = *req.Notes
	}
	if req.Phone != nil {
		vendor.Phone = *req.Phone
	}
	if req.Email != nil {
		vendor.Email = *req.Email
	}

	// Cross-field invariants are checked on the merged record, so a PATCH
	// that sets only price_min still cannot cross a stored price_max.
	if errs := vendor.Validate(); len(errs) > 0 {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, errs[0].Error())
		return
	}

	if err := h.repo.Update(r.Context(), vendor); err != nil {
		switch {
		case errors.Is(err, directory.ErrNotFound):
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Vendor not found")
		case errors.Is(err, directory.ErrDuplicateName):
			WriteError(w, r.Context(), http.StatusConflict, ErrCodeDuplicateName, "Vendor with this name already exists")
		default:
			slog.ErrorContext(r.Context(), "failed to update vendor", "error", err, "vendor_id", id)
			WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to update vendor")
		}
		return
	}

	h.invalidateSnapshot(r)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(vendor); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode vendor response", "error", err)
	}
}

// DeleteVendor handles DELETE /vendors/{id} - soft-deletes a vendor.
func (h *VendorHandlers) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Vendor ID is required")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Vendor not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete vendor", "error", err, "vendor_id", id)
		WriteError(w, r.Context(), http.StatusInternalServerError, ErrCodeInternal, "Failed to delete vendor")
		return
	}

	h.invalidateSnapshot(r)

	w.WriteHeader(http.StatusNoContent)
}

func (h *VendorHandlers) invalidateSnapshot(r *http.Request) {
	if h.cache != nil {
		h.cache.Invalidate(r.Context())
	}
}
