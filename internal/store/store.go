// Package store persists bookings. Callers depend on Store and never on a concrete backend.
package store

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/jinzhu/now"
)

var (
	ErrNotFound  = errors.New("booking not found")
	ErrDuplicate = errors.New("booking already exists for this email and package")
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Filter struct {
	Search  string
	Status  models.BookingStatus
	Package string
}

type Page struct {
	Items      []models.Booking `json:"bookings"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"totalPages"`
}

type Stats struct {
	Total     int64            `json:"total"`
	ByStatus  map[string]int64 `json:"byStatus"`
	Today     int64            `json:"today"`
	ThisWeek  int64            `json:"thisWeek"`
	Generated time.Time        `json:"generatedAt"`
}

type Store interface {
	// Insert assigns id and timestamps. It returns ErrDuplicate when a
	// non-cancelled booking for the same email and package already exists.
	Insert(ctx context.Context, b *models.Booking) error
	// FindDuplicate returns nil when no non-cancelled match exists.
	FindDuplicate(ctx context.Context, email, pkg string) (*models.Booking, error)
	Get(ctx context.Context, id uint64) (*models.Booking, error)
	List(ctx context.Context, f Filter, page, limit int) (*Page, error)
	All(ctx context.Context) ([]models.Booking, error)
	// UpdateStatus leaves notes untouched when notes is nil.
	UpdateStatus(ctx context.Context, id uint64, status models.BookingStatus, notes *string) (*models.Booking, error)
	Delete(ctx context.Context, id uint64) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Normalize clamps page and limit to usable values.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	// Keep (page-1)*limit representable; such pages are empty anyway.
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return page, limit
}

func newPage(items []models.Booking, total int64, page, limit int) *Page {
	if items == nil {
		items = []models.Booking{}
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}

// periodStarts returns the beginning of the day and week containing t.
func periodStarts(t time.Time) (time.Time, time.Time) {
	n := now.With(t)
	return n.BeginningOfDay(), n.BeginningOfWeek()
}
