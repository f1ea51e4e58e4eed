package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu     sync.Mutex
	fails  []error
	sent   []*Message
	calls  int
	closed bool
}

func (f *fakeTransport) Send(ctx context.Context, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.fails) > 0 {
		err := f.fails[0]
		f.fails = f.fails[1:]
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

type recorder struct {
	delays []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func testBooking() *models.Booking {
	return &models.Booking{
		ID:              7,
		FullName:        "Jane Doe",
		Email:           "jane@x.com",
		Phone:           "+15551234567",
		Age:             30,
		Country:         "France",
		BookingType:     models.BookingIndividual,
		NumberOfPeople:  1,
		SelectedPackage: "Yirgacheffe Tour",
		Status:          models.StatusPending,
	}
}

func testConfig() Config {
	return Config{From: "Tours <bookings@tours.example>", AdminAddress: "ops@tours.example", SiteName: "Coffee Origin Tours"}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{12, 10 * time.Second},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, Backoff(test.attempt, DefaultBaseDelay, DefaultMaxDelay), "attempt %d", test.attempt)
	}
}

func TestSend_RetriesWithBackoff(t *testing.T) {
	transport := &fakeTransport{fails: []error{errors.New("451 try later"), errors.New("451 try later")}}
	rec := &recorder{}
	m := New(testConfig(), func() (Transport, error) { return transport, nil }).WithSleep(rec.sleep)

	res := m.Send(context.Background(), BookingConfirmation, testBooking())

	require.True(t, res.Success, "unexpected error: %v", res.Err)
	assert.NotEmpty(t, res.MessageID)
	assert.Equal(t, 3, transport.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	require.Len(t, transport.sent, 1)
	assert.Equal(t, res.MessageID, transport.sent[0].ID)
	assert.True(t, strings.HasSuffix(res.MessageID, "@tours.example>"))
}

func TestSend_GivesUpAfterThreeAttempts(t *testing.T) {
	boom := errors.New("550 mailbox unavailable")
	transport := &fakeTransport{fails: []error{boom, boom, boom, boom}}
	rec := &recorder{}
	m := New(testConfig(), func() (Transport, error) { return transport, nil }).WithSleep(rec.sleep)

	res := m.Send(context.Background(), PaymentConfirmation, testBooking())

	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, boom))
	assert.Equal(t, 3, transport.calls)
	assert.Len(t, rec.delays, 2)
}

func TestSend_ConnectionErrorRebuildsTransport(t *testing.T) {
	first := &fakeTransport{fails: []error{fmt.Errorf("write: %w", syscall.ECONNRESET)}}
	second := &fakeTransport{}
	transports := []*fakeTransport{first, second}
	dials := 0
	m := New(testConfig(), func() (Transport, error) {
		t := transports[dials]
		dials++
		return t, nil
	}).WithSleep((&recorder{}).sleep)

	res := m.Send(context.Background(), BookingConfirmation, testBooking())

	require.True(t, res.Success)
	assert.Equal(t, 2, dials)
	assert.True(t, first.closed)
	assert.Len(t, second.sent, 1)

	// A healthy transport is reused.
	res = m.Send(context.Background(), BookingConfirmation, testBooking())
	require.True(t, res.Success)
	assert.Equal(t, 2, dials)
	assert.Len(t, second.sent, 2)
}

func TestSend_DialFailure(t *testing.T) {
	m := New(testConfig(), func() (Transport, error) { return nil, errors.New("smtp host not configured") }).
		WithSleep((&recorder{}).sleep)

	res := m.Send(context.Background(), BookingConfirmation, testBooking())
	assert.False(t, res.Success)
	assert.Contains(t, res.Err.Error(), "smtp host not configured")
}

func TestSend_CancelledDuringBackoff(t *testing.T) {
	transport := &fakeTransport{fails: []error{errors.New("busy")}}
	m := New(testConfig(), func() (Transport, error) { return transport, nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := m.Send(ctx, BookingConfirmation, testBooking())
	assert.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, context.Canceled))
	assert.Equal(t, 1, transport.calls)
}

func TestCompose(t *testing.T) {
	m := New(testConfig(), nil)
	b := testBooking()

	t.Run("AdminNotificationGoesToOperator", func(t *testing.T) {
		msg, err := m.compose(AdminNotification, b)
		require.NoError(t, err)
		assert.Equal(t, "ops@tours.example", msg.To)
		assert.Contains(t, msg.Subject, "Jane Doe")
		assert.Contains(t, msg.Text, "+15551234567")
	})

	t.Run("CustomerEmails", func(t *testing.T) {
		for _, kind := range []Kind{BookingConfirmation, PaymentConfirmation, StatusUpdate} {
			msg, err := m.compose(kind, b)
			require.NoError(t, err)
			assert.Equal(t, b.Email, msg.To)
			assert.Contains(t, msg.HTML, "Jane Doe")
			assert.Contains(t, msg.HTML, "Yirgacheffe Tour")
		}
	})

	t.Run("StatusUpdateCarriesBothStatuses", func(t *testing.T) {
		notes := "See you in Addis"
		updated := *b
		updated.Status = models.StatusCancelled
		updated.Notes = &notes
		msg, err := m.compose(StatusUpdate, &updated, "pending", "cancelled")
		require.NoError(t, err)
		assert.Contains(t, msg.Text, "changed from pending to cancelled")
		assert.Contains(t, msg.HTML, "See you in Addis")
	})

	t.Run("EscapesHTML", func(t *testing.T) {
		evil := *b
		evil.SelectedPackage = "<script>alert(1)</script>"
		msg, err := m.compose(BookingConfirmation, &evil)
		require.NoError(t, err)
		assert.NotContains(t, msg.HTML, "<script>")
	})

	t.Run("MissingAdminAddress", func(t *testing.T) {
		noAdmin := New(Config{From: "a@b.c"}, nil)
		_, err := noAdmin.compose(AdminNotification, b)
		assert.Error(t, err)
	})
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("status-update")
	assert.True(t, ok)
	assert.Equal(t, StatusUpdate, k)

	_, ok = ParseKind("newsletter")
	assert.False(t, ok)
}
