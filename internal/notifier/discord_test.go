package notifier

import (
	"errors"
	"strings"
	"testing"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/bwmarrin/discordgo"
)

type fakeSender struct {
	channel string
	content string
	err     error
}

func (f *fakeSender) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.content = content
	return &discordgo.Message{}, f.err
}

func TestNotifyBooking(t *testing.T) {
	booking := models.Booking{
		ID:              12,
		FullName:        "Jane Doe",
		Email:           "jane@x.com",
		Phone:           "+15551234567",
		Country:         "France",
		BookingType:     models.BookingGroup,
		NumberOfPeople:  4,
		SelectedPackage: "Yirgacheffe Tour",
	}

	t.Run("Sends", func(t *testing.T) {
		sender := &fakeSender{}
		n := &DiscordNotifier{session: sender, channelID: "chan-1"}

		if err := n.NotifyBooking(booking); err != nil {
			t.Fatalf("NotifyBooking returned error: %v", err)
		}
		if sender.channel != "chan-1" {
			t.Errorf("expected channel chan-1, got %s", sender.channel)
		}
		for _, want := range []string{"#12", "Jane Doe", "Yirgacheffe Tour", "4 travellers"} {
			if !strings.Contains(sender.content, want) {
				t.Errorf("expected message to contain %q, got %q", want, sender.content)
			}
		}
	})

	t.Run("SendError", func(t *testing.T) {
		n := &DiscordNotifier{session: &fakeSender{err: errors.New("rate limited")}, channelID: "chan-1"}
		if err := n.NotifyBooking(booking); err == nil {
			t.Fatal("expected error from failed send")
		}
	})

	t.Run("NotConfigured", func(t *testing.T) {
		if err := NewDiscordNotifier(nil, "chan-1").NotifyBooking(booking); err == nil {
			t.Fatal("expected error for nil session")
		}
		n := &DiscordNotifier{session: &fakeSender{}}
		if err := n.NotifyBooking(booking); err == nil {
			t.Fatal("expected error for empty channel")
		}
	})
}
