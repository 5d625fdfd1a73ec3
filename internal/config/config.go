package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ddmitrenko/crossposter/internal/models"
)

type Config struct {
	PORT         string
	APP_ENV      string
	LOG_LEVEL    string
	FRONTEND_URL string

	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	JWT_SECRET         string
	JWT_REFRESH_SECRET string

	KAFKA_ADDRESS string

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	EMAIL_HOST string
	EMAIL_PORT string
	EMAIL_USER string
	EMAIL_PASS string

	GOOGLE_CLIENT_ID     string
	GOOGLE_CLIENT_SECRET string
	GOOGLE_CALLBACK_URL  string

	YOUTUBE_CLIENT_ID     string
	YOUTUBE_CLIENT_SECRET string
	YOUTUBE_CALLBACK_URL  string

	FACEBOOK_CLIENT_ID     string
	FACEBOOK_CLIENT_SECRET string
	FACEBOOK_CALLBACK_URL  string

	LINKEDIN_CLIENT_ID     string
	LINKEDIN_CLIENT_SECRET string
	LINKEDIN_CALLBACK_URL  string

	TWITTER_API_KEY        string
	TWITTER_API_KEY_SECRET string
	TWITTER_CALLBACK_URL   string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:         getenv("PORT", "4000"),
		APP_ENV:      getenv("APP_ENV", "development"),
		LOG_LEVEL:    getenv("LOG_LEVEL", "info"),
		FRONTEND_URL: getenv("FRONTEND_URL", "http://localhost:3000"),

		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		JWT_SECRET:         os.Getenv("JWT_SECRET"),
		JWT_REFRESH_SECRET: os.Getenv("JWT_REFRESH_SECRET"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		EMAIL_HOST: os.Getenv("EMAIL_HOST"),
		EMAIL_PORT: getenv("EMAIL_PORT", "587"),
		EMAIL_USER: os.Getenv("EMAIL_USER"),
		EMAIL_PASS: os.Getenv("EMAIL_PASS"),

		GOOGLE_CLIENT_ID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GOOGLE_CLIENT_SECRET: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GOOGLE_CALLBACK_URL:  os.Getenv("GOOGLE_CALLBACK_URL"),

		YOUTUBE_CLIENT_ID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YOUTUBE_CLIENT_SECRET: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YOUTUBE_CALLBACK_URL:  os.Getenv("YOUTUBE_CALLBACK_URL"),

		FACEBOOK_CLIENT_ID:     os.Getenv("FACEBOOK_CLIENT_ID"),
		FACEBOOK_CLIENT_SECRET: os.Getenv("FACEBOOK_CLIENT_SECRET"),
		FACEBOOK_CALLBACK_URL:  os.Getenv("FACEBOOK_CALLBACK_URL"),

		LINKEDIN_CLIENT_ID:     os.Getenv("LINKEDIN_CLIENT_ID"),
		LINKEDIN_CLIENT_SECRET: os.Getenv("LINKEDIN_CLIENT_SECRET"),
		LINKEDIN_CALLBACK_URL:  os.Getenv("LINKEDIN_CALLBACK_URL"),

		TWITTER_API_KEY:        os.Getenv("TWITTER_API_KEY"),
		TWITTER_API_KEY_SECRET: os.Getenv("TWITTER_API_KEY_SECRET"),
		TWITTER_CALLBACK_URL:   os.Getenv("TWITTER_CALLBACK_URL"),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.APP_ENV == "development"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("cannot run migrations: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.SocialAccount{},
		&models.PublishedPost{},
	)
}
