package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvProduction = "production"

	StoreSQL    = "sql"
	StoreSheets = "sheets"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`

	DatabaseDriver     string        `mapstructure:"DATABASE_DRIVER"`
	DatabasePath       string        `mapstructure:"DATABASE_PATH"`
	DatabaseDSN        string        `mapstructure:"DATABASE_DSN"`
	DBMaxOpenConns     int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns     int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxIdleTime  time.Duration `mapstructure:"DB_CONN_MAX_IDLE_TIME"`
	DBConnectTimeout   time.Duration `mapstructure:"DB_CONNECT_TIMEOUT"`
	BookingStore       string        `mapstructure:"BOOKING_STORE"`
	SheetsSpreadsheet  string        `mapstructure:"GOOGLE_SHEETS_SPREADSHEET_ID"`
	SheetsSheetName    string        `mapstructure:"GOOGLE_SHEETS_SHEET_NAME"`
	SheetsSheetID      int64         `mapstructure:"GOOGLE_SHEETS_SHEET_ID"`
	ServiceAccountFile string        `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	SMTPHost         string        `mapstructure:"SMTP_HOST"`
	SMTPPort         int           `mapstructure:"SMTP_PORT"`
	SMTPUsername     string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword     string        `mapstructure:"SMTP_PASSWORD"`
	SMTPSSL          bool          `mapstructure:"SMTP_SSL"`
	SMTPTimeout      time.Duration `mapstructure:"SMTP_TIMEOUT"`
	MailFrom         string        `mapstructure:"MAIL_FROM"`
	AdminNotifyEmail string        `mapstructure:"ADMIN_NOTIFY_EMAIL"`
	SiteName         string        `mapstructure:"SITE_NAME"`
	NotifyTimeout    time.Duration `mapstructure:"NOTIFY_TIMEOUT"`

	DiscordBotToken               string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`

	EnableCORS         bool     `mapstructure:"ENABLE_CORS"`
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	AgeMin       int `mapstructure:"AGE_MIN"`
	AgeMax       int `mapstructure:"AGE_MAX"`
	GroupSizeMax int `mapstructure:"GROUP_SIZE_MAX"`
}

// IsProduction reports whether raw error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func LoadConfig() *Config {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_PATH", "tours.db")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 20)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "30s")
	viper.SetDefault("DB_CONNECT_TIMEOUT", "10s")
	viper.SetDefault("BOOKING_STORE", StoreSQL)
	viper.SetDefault("GOOGLE_SHEETS_SPREADSHEET_ID", "")
	viper.SetDefault("GOOGLE_SHEETS_SHEET_NAME", "Bookings")
	viper.SetDefault("GOOGLE_SHEETS_SHEET_ID", 0)
	viper.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "service-account.json")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_SSL", false)
	viper.SetDefault("SMTP_TIMEOUT", "30s")
	viper.SetDefault("MAIL_FROM", "bookings@example.com")
	viper.SetDefault("SITE_NAME", "Ethiopian Coffee Origin Tours")
	viper.SetDefault("NOTIFY_TIMEOUT", "2m")
	viper.SetDefault("ENABLE_CORS", true)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("AGE_MIN", 18)
	viper.SetDefault("AGE_MAX", 100)
	viper.SetDefault("GROUP_SIZE_MAX", 20)

	viper.BindEnv("JWT_SECRET")
	viper.BindEnv("ADMIN_USERNAME")
	viper.BindEnv("ADMIN_EMAIL")
	viper.BindEnv("ADMIN_PASSWORD")
	viper.BindEnv("SMTP_HOST")
	viper.BindEnv("SMTP_USERNAME")
	viper.BindEnv("SMTP_PASSWORD")
	viper.BindEnv("ADMIN_NOTIFY_EMAIL")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}

	if config.JWTSecret == "" {
		if config.IsProduction() {
			log.Fatalf("JWT_SECRET must be set in production")
		}
		log.Printf("JWT_SECRET not set, using an insecure development secret")
		config.JWTSecret = "development-secret"
	}

	return &config
}
