package notifier

import (
	"fmt"
	"log"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/bwmarrin/discordgo"
)

// Notifier alerts operators about new bookings outside of email.
type Notifier interface {
	NotifyBooking(booking models.Booking) error
}

type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordNotifier struct {
	session   messageSender
	channelID string
}

func NewDiscordNotifier(session *discordgo.Session, channelID string) *DiscordNotifier {
	n := &DiscordNotifier{channelID: channelID}
	if session != nil {
		n.session = session
	}
	return n
}

// NewDiscordSession opens a bot session, or returns nil when no token is configured.
func NewDiscordSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, nil
	}
	return discordgo.New("Bot " + token)
}

func bookingMessage(booking models.Booking) string {
	people := "1 traveller"
	if booking.NumberOfPeople > 1 {
		people = fmt.Sprintf("%d travellers", booking.NumberOfPeople)
	}

	return fmt.Sprintf("☕ **New Booking #%d**\n**Name:** %s\n**Email:** %s\n**Phone:** %s\n**Package:** %s\n**Group:** %s (%s)\n**Country:** %s",
		booking.ID,
		booking.FullName,
		booking.Email,
		booking.Phone,
		booking.SelectedPackage,
		people,
		booking.BookingType,
		booking.Country,
	)
}

func (n *DiscordNotifier) NotifyBooking(booking models.Booking) error {
	if n.session == nil {
		return fmt.Errorf("discord session is nil")
	}
	if n.channelID == "" {
		return fmt.Errorf("discord channel ID is empty")
	}

	_, err := n.session.ChannelMessageSend(n.channelID, bookingMessage(booking))
	if err != nil {
		log.Printf("Failed to send discord message: %v", err)
		return err
	}

	return nil
}
