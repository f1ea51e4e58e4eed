// Package booking orchestrates submission and admin changes of bookings.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/mailer"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/notifier"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/store"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/validation"
)

var ErrConflict = errors.New("booking already exists for this email and package")

// Mailer is satisfied by *mailer.Mailer.
type Mailer interface {
	Send(ctx context.Context, kind mailer.Kind, b *models.Booking, extra ...string) mailer.Result
}

type Service struct {
	store     store.Store
	validator *validation.Validator
	mailer    Mailer
	alerter   notifier.Notifier

	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

// NewService wires the service. mailer and alerter may be nil.
func NewService(s store.Store, v *validation.Validator, m Mailer, alerter notifier.Notifier) *Service {
	return &Service{
		store:         s,
		validator:     v,
		mailer:        m,
		alerter:       alerter,
		notifyTimeout: 2 * time.Minute,
	}
}

func (s *Service) WithNotifyTimeout(d time.Duration) *Service {
	if d > 0 {
		s.notifyTimeout = d
	}
	return s
}

// background runs fn detached from the request. Failures are only logged.
func (s *Service) background(what string, bookingID uint64, fn func(ctx context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("Best-effort %s for booking %d failed: %v", what, bookingID, err)
		}
	}()
}

// Wait blocks until every queued notification has finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) email(kind mailer.Kind, b models.Booking, extra ...string) {
	if s.mailer == nil {
		return
	}
	s.background(string(kind)+" email", b.ID, func(ctx context.Context) error {
		return s.mailer.Send(ctx, kind, &b, extra...).Err
	})
}

func (s *Service) Submit(ctx context.Context, sub validation.Submission) (*models.Booking, error) {
	b, err := s.validator.Booking(sub)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindDuplicate(ctx, b.Email, b.SelectedPackage)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrConflict
	}

	if err := s.store.Insert(ctx, &b); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, err
	}

	s.email(mailer.AdminNotification, b)
	if s.alerter != nil {
		s.background("discord alert", b.ID, func(ctx context.Context) error {
			return s.alerter.NotifyBooking(b)
		})
	}

	return &b, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id uint64, status string, notes *string) (*models.Booking, error) {
	newStatus, err := validation.Status(status)
	if err != nil {
		return nil, err
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := current.Status

	updated, err := s.store.UpdateStatus(ctx, id, newStatus, notes)
	if err != nil {
		return nil, err
	}

	if newStatus == models.StatusConfirmed {
		s.email(mailer.PaymentConfirmation, *updated)
	} else if newStatus != oldStatus {
		s.email(mailer.StatusUpdate, *updated, string(oldStatus), string(newStatus))
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uint64) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uint64) (*models.Booking, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f store.Filter, page, limit int) (*store.Page, error) {
	return s.store.List(ctx, f, page, limit)
}

func (s *Service) Export(ctx context.Context) ([]models.Booking, error) {
	return s.store.All(ctx)
}

func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Stats(ctx)
}

// SendEmail sends kind for booking id synchronously, on behalf of an admin.
func (s *Service) SendEmail(ctx context.Context, id uint64, kind mailer.Kind) (mailer.Result, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return mailer.Result{}, err
	}
	if s.mailer == nil {
		return mailer.Result{Err: fmt.Errorf("email is not configured")}, nil
	}
	var extra []string
	if kind == mailer.StatusUpdate {
		extra = []string{"", string(b.Status)}
	}
	return s.mailer.Send(ctx, kind, b, extra...), nil
}
