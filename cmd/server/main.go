package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/auth"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/booking"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/config"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/database"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/handlers"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/mailer"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/notifier"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/store"
	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/validation"
	"github.com/go-chi/chi/v5"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Booking storage
	var bookings store.Store
	switch cfg.BookingStore {
	case config.StoreSheets:
		rows, err := openSheets(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Google Sheets: %v", err)
		}
		bookings = store.NewSheetsStore(rows)
		log.Printf("Storing bookings in Google Sheets %s", cfg.SheetsSpreadsheet)
	default:
		bookings = store.NewGormStore(db)
		log.Printf("Storing bookings in %s database", cfg.DatabaseDriver)
	}

	// Email
	var bookingMailer booking.Mailer
	var smtpMailer *mailer.Mailer
	if cfg.SMTPHost != "" {
		smtpMailer = mailer.New(mailer.Config{
			From:         cfg.MailFrom,
			AdminAddress: cfg.AdminNotifyEmail,
			SiteName:     cfg.SiteName,
		}, mailer.DialSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			SSL:      cfg.SMTPSSL,
			Timeout:  cfg.SMTPTimeout,
		}))
		bookingMailer = smtpMailer
	} else {
		log.Printf("SMTP_HOST not set, emails are disabled")
	}

	// Discord
	var alerter notifier.Notifier
	session, err := notifier.NewDiscordSession(cfg.DiscordBotToken)
	if err != nil {
		log.Printf("Discord notifier not initialized: %v", err)
	} else if session != nil && cfg.DiscordNotificationsChannelID != "" {
		alerter = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
	}

	// Initialize Auth Handler
	authHandler := auth.NewAuthHandler(cfg, db)
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		created, err := authHandler.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, models.RoleAdmin)
		if err != nil {
			log.Fatalf("Failed to bootstrap admin user: %v", err)
		}
		if created {
			log.Printf("Created admin user %s", cfg.AdminUsername)
		}
	}

	// Initialize Handlers
	rules := validation.DefaultRules()
	rules.AgeMin = cfg.AgeMin
	rules.AgeMax = cfg.AgeMax
	rules.GroupMax = cfg.GroupSizeMax
	svc := booking.NewService(bookings, validation.New(rules), bookingMailer, alerter).
		WithNotifyTimeout(cfg.NotifyTimeout)
	bookingHandler := handlers.NewBookingHandler(svc, authHandler, cfg)

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, cfg, authHandler, bookingHandler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start Server
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	svc.Wait()
	if smtpMailer != nil {
		if err := smtpMailer.Close(); err != nil {
			log.Printf("Close mailer: %v", err)
		}
	}
	if err := bookings.Close(); err != nil {
		log.Printf("Close booking store: %v", err)
	}
	if err := database.Close(db); err != nil {
		log.Printf("Close database: %v", err)
	}
}

func openSheets(ctx context.Context, cfg *config.Config) (store.SheetRows, error) {
	if cfg.SheetsSpreadsheet == "" {
		return nil, errors.New("GOOGLE_SHEETS_SPREADSHEET_ID is required when BOOKING_STORE=sheets")
	}
	return store.NewSheetsClient(ctx, cfg.ServiceAccountFile, cfg.SheetsSpreadsheet, cfg.SheetsSheetName, cfg.SheetsSheetID)
}
