// Package mailer sends transactional booking emails with bounded retries.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/google/uuid"
)

type Kind string

const (
	BookingConfirmation Kind = "booking-confirmation"
	PaymentConfirmation Kind = "payment-confirmation"
	StatusUpdate        Kind = "status-update"
	AdminNotification   Kind = "admin-notification"
)

var Kinds = []Kind{BookingConfirmation, PaymentConfirmation, StatusUpdate, AdminNotification}

func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second
)

type Message struct {
	ID      string
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Transport delivers one composed message.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
	Close() error
}

// Dialer builds a fresh transport. It is called lazily and again after a
// connection-level failure.
type Dialer func() (Transport, error)

// Result never carries a panic or propagated error; Err is set only when Success is false.
type Result struct {
	Success   bool
	MessageID string
	Err       error
}

type Config struct {
	From         string
	AdminAddress string
	SiteName     string
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
}

type Mailer struct {
	cfg   Config
	dial  Dialer
	sleep func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	transport Transport
}

func New(cfg Config, dial Dialer) *Mailer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	return &Mailer{cfg: cfg, dial: dial, sleep: sleepContext}
}

// WithSleep replaces the backoff wait, for tests.
func (m *Mailer) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Mailer {
	m.sleep = sleep
	return m
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff is the wait after the given failed attempt: base*2^(attempt-1), capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

func (m *Mailer) acquire() (Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transport != nil {
		return m.transport, nil
	}
	t, err := m.dial()
	if err != nil {
		return nil, fmt.Errorf("create mail transport: %w", err)
	}
	m.transport = t
	return t, nil
}

// invalidate drops t if it is still the cached transport.
func (m *Mailer) invalidate(t Transport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transport != t {
		return
	}
	if err := t.Close(); err != nil {
		log.Printf("Failed to close mail transport: %v", err)
	}
	m.transport = nil
}

// Close releases the cached transport. The mailer can still be used afterwards.
func (m *Mailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transport == nil {
		return nil
	}
	err := m.transport.Close()
	m.transport = nil
	return err
}

func isConnectionError(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "broken pipe")
}

// Send composes and delivers kind for b. For StatusUpdate, extra holds the
// old and new status.
func (m *Mailer) Send(ctx context.Context, kind Kind, b *models.Booking, extra ...string) Result {
	msg, err := m.compose(kind, b, extra...)
	if err != nil {
		return Result{Err: err}
	}

	var lastErr error
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := m.sleep(ctx, Backoff(attempt-1, m.cfg.BaseDelay, m.cfg.MaxDelay)); err != nil {
				lastErr = err
				break
			}
		}

		t, err := m.acquire()
		if err != nil {
			lastErr = err
			log.Printf("Email %s for booking %d: attempt %d/%d: %v", kind, b.ID, attempt, m.cfg.MaxAttempts, err)
			continue
		}

		if err := t.Send(ctx, msg); err != nil {
			lastErr = err
			log.Printf("Email %s for booking %d: attempt %d/%d: %v", kind, b.ID, attempt, m.cfg.MaxAttempts, err)
			if isConnectionError(err) {
				m.invalidate(t)
			}
			continue
		}

		log.Printf("Email %s sent for booking %d (message %s)", kind, b.ID, msg.ID)
		return Result{Success: true, MessageID: msg.ID}
	}

	return Result{Err: fmt.Errorf("send %s email: %w", kind, lastErr)}
}

func (m *Mailer) compose(kind Kind, b *models.Booking, extra ...string) (*Message, error) {
	if b == nil {
		return nil, errors.New("no booking to email about")
	}

	to := b.Email
	if kind == AdminNotification {
		to = m.cfg.AdminAddress
		if to == "" {
			return nil, errors.New("admin notification address not configured")
		}
	}

	data := templateData{Booking: b, SiteName: m.cfg.SiteName, NewStatus: string(b.Status)}
	if kind == StatusUpdate {
		if len(extra) > 0 {
			data.OldStatus = extra[0]
		}
		if len(extra) > 1 {
			data.NewStatus = extra[1]
		}
	}

	subject, html, text, err := render(kind, data)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:      messageID(m.cfg.From),
		From:    m.cfg.From,
		To:      to,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}, nil
}

func messageID(from string) string {
	domain := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i < len(from)-1 {
		domain = strings.TrimSuffix(from[i+1:], ">")
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}
