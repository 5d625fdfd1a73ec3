package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ddmitrenko/crossposter/internal/config"
	"github.com/ddmitrenko/crossposter/internal/es"
	"github.com/ddmitrenko/crossposter/internal/handlers"
	"github.com/ddmitrenko/crossposter/internal/logging"
	"github.com/ddmitrenko/crossposter/internal/mailer"
	"github.com/ddmitrenko/crossposter/internal/mykafka"
	"github.com/ddmitrenko/crossposter/internal/oauthstate"
	"github.com/ddmitrenko/crossposter/internal/provider"
	"github.com/ddmitrenko/crossposter/internal/repo"
	"github.com/ddmitrenko/crossposter/internal/service"
	httpserver "github.com/ddmitrenko/crossposter/internal/transport/http"
)

const postsIndex = "posts"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)
	slog.SetDefault(logger)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	emailPort, err := strconv.Atoi(configuration.EMAIL_PORT)
	if err != nil {
		log.Fatalf("bad EMAIL_PORT: %v", err)
	}

	repository := repo.New(db)
	secure := !configuration.IsDevelopment()

	authSvc := &service.AuthService{
		Repo:          repository,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.JWT_REFRESH_SECRET),
		Mailer:        mailer.New(configuration.EMAIL_HOST, emailPort, configuration.EMAIL_USER, configuration.EMAIL_PASS),
	}

	google := provider.NewGoogle(configuration.GOOGLE_CLIENT_ID, configuration.GOOGLE_CLIENT_SECRET, configuration.GOOGLE_CALLBACK_URL)
	youtube := provider.NewYouTube(configuration.YOUTUBE_CLIENT_ID, configuration.YOUTUBE_CLIENT_SECRET, configuration.YOUTUBE_CALLBACK_URL)
	facebook := provider.NewFacebook(configuration.FACEBOOK_CLIENT_ID, configuration.FACEBOOK_CLIENT_SECRET, configuration.FACEBOOK_CALLBACK_URL)
	linkedin := provider.NewLinkedIn(configuration.LINKEDIN_CLIENT_ID, configuration.LINKEDIN_CLIENT_SECRET, configuration.LINKEDIN_CALLBACK_URL)
	twitter := provider.NewTwitter(configuration.TWITTER_API_KEY, configuration.TWITTER_API_KEY_SECRET, configuration.TWITTER_CALLBACK_URL)

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())

	deps := httpserver.Deps{
		JWTSecret: []byte(configuration.JWT_SECRET),
		AuthHandler: &handlers.AuthHandler{
			Auth:     authSvc,
			Repo:     repository,
			Producer: prod,
			Secure:   secure,
		},
		ConnectHandler: &handlers.ConnectHandler{
			Auth:        authSvc,
			States:      oauthstate.New(),
			Producer:    prod,
			Google:      google,
			YouTube:     youtube,
			Facebook:    facebook,
			LinkedIn:    linkedin,
			Twitter:     twitter,
			FrontendURL: configuration.FRONTEND_URL,
			Secure:      secure,
		},
		PublishHandler: &handlers.PublishHandler{
			Repo:     repository,
			Producer: prod,
			ES:       esClient,
			Index:    postsIndex,
			Twitter:  twitter,
			Facebook: facebook,
			YouTube:  youtube,
			LinkedIn: linkedin,
		},
		AnalyticsHandler: &handlers.AnalyticsHandler{
			Repo:        repository,
			YouTube:     youtube,
			Coordinator: provider.NewCoordinator(repository),
		},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: postsIndex},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
