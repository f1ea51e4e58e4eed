package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"gorm.io/gorm"
)

// GormStore backs bookings with Postgres, MySQL or SQLite through gorm.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// WithClock replaces the time source used for created_at/updated_at.
func (s *GormStore) WithClock(now func() time.Time) *GormStore {
	s.now = now
	return s
}

func findDuplicate(tx *gorm.DB, email, pkg string) (*models.Booking, error) {
	var found []models.Booking
	err := tx.Where("LOWER(email) = LOWER(?) AND LOWER(selected_package) = LOWER(?) AND status <> ?",
		strings.TrimSpace(email), strings.TrimSpace(pkg), models.StatusCancelled).
		Order("id").Limit(1).Find(&found).Error
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (s *GormStore) FindDuplicate(ctx context.Context, email, pkg string) (*models.Booking, error) {
	b, err := findDuplicate(s.db.WithContext(ctx), email, pkg)
	if err != nil {
		return nil, fmt.Errorf("find duplicate booking: %w", err)
	}
	return b, nil
}

func (s *GormStore) Insert(ctx context.Context, b *models.Booking) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findDuplicate(tx, b.Email, b.SelectedPackage)
		if err != nil {
			return fmt.Errorf("find duplicate booking: %w", err)
		}
		if existing != nil {
			return ErrDuplicate
		}

		ts := s.now().UTC()
		b.ID = 0
		b.CreatedAt = ts
		b.UpdatedAt = ts
		if b.Status == "" {
			b.Status = models.StatusPending
		}
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return nil
	})
}

func (s *GormStore) Get(ctx context.Context, id uint64) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &b, nil
}

// likeEscaper makes % and _ literal. '!' is the escape character because a
// backslash literal is spelled differently in MySQL and Postgres.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func (s *GormStore) filtered(ctx context.Context, f Filter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Booking{})

	if search := strings.TrimSpace(f.Search); search != "" {
		like := containsPattern(search)
		query = query.Where("(LOWER(full_name) LIKE ? ESCAPE '!' OR LOWER(email) LIKE ? ESCAPE '!' OR LOWER(phone) LIKE ? ESCAPE '!')", like, like, like)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if pkg := strings.TrimSpace(f.Package); pkg != "" {
		query = query.Where("LOWER(selected_package) LIKE ? ESCAPE '!'", containsPattern(pkg))
	}

	return query.Session(&gorm.Session{})
}

func (s *GormStore) List(ctx context.Context, f Filter, page, limit int) (*Page, error) {
	page, limit = Normalize(page, limit)
	query := s.filtered(ctx, f)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	offset := (page - 1) * limit
	if int64(offset) >= total {
		return newPage(nil, total, page, limit), nil
	}

	var bookings []models.Booking
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return newPage(bookings, total, page, limit), nil
}

func (s *GormStore) All(ctx context.Context) ([]models.Booking, error) {
	var bookings []models.Booking
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("list all bookings: %w", err)
	}
	return bookings, nil
}

func (s *GormStore) UpdateStatus(ctx context.Context, id uint64, status models.BookingStatus, notes *string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]interface{}{
			"status":     status,
			"updated_at": s.now().UTC(),
		}
		if notes != nil {
			// Empty notes are stored as NULL, matching the Sheets backend's empty cell.
			if *notes == "" {
				updates["notes"] = nil
			} else {
				updates["notes"] = *notes
			}
		}
		if err := tx.Model(&b).Updates(updates).Error; err != nil {
			return err
		}
		b = models.Booking{}
		return tx.First(&b, id).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update booking %d: %w", id, err)
	}
	return &b, nil
}

func (s *GormStore) Delete(ctx context.Context, id uint64) error {
	res := s.db.WithContext(ctx).Delete(&models.Booking{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete booking %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Stats(ctx context.Context) (*Stats, error) {
	current := s.now().UTC()
	dayStart, weekStart := periodStarts(current)
	db := s.db.WithContext(ctx)

	var rows []struct {
		Status models.BookingStatus
		Count  int64
	}
	if err := db.Model(&models.Booking{}).Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count bookings by status: %w", err)
	}

	stats := &Stats{
		ByStatus:  map[string]int64{string(models.StatusPending): 0, string(models.StatusConfirmed): 0, string(models.StatusCancelled): 0},
		Generated: current,
	}
	for _, row := range rows {
		stats.ByStatus[string(row.Status)] = row.Count
		stats.Total += row.Count
	}

	if err := db.Model(&models.Booking{}).Where("created_at >= ?", dayStart).Count(&stats.Today).Error; err != nil {
		return nil, fmt.Errorf("count bookings today: %w", err)
	}
	if err := db.Model(&models.Booking{}).Where("created_at >= ?", weekStart).Count(&stats.ThisWeek).Error; err != nil {
		return nil, fmt.Errorf("count bookings this week: %w", err)
	}
	return stats, nil
}

// Close is a no-op; the pool belongs to the caller that opened it.
func (s *GormStore) Close() error {
	return nil
}
