// Command storynest-fakeapi serves the in-memory storytelling backend for
// local development against the SDK, CLI and MCP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/storynest/storynest/client"
	"github.com/storynest/storynest/client/fakeapi"
	"github.com/storynest/storynest/devmode"
	"github.com/storynest/storynest/internal/logger"
)

// config is read from STORYNEST_FAKEAPI_* variables.
type config struct {
	HTTPPort    int           `envconfig:"HTTP_PORT" default:"8000"`
	Latency     time.Duration `envconfig:"LATENCY" default:"0s"`
	RequireAuth bool          `envconfig:"REQUIRE_AUTH" default:"true"`
	Seed        bool          `envconfig:"SEED" default:"true"`
	LogLevel    string        `envconfig:"LOG_LEVEL" default:"info"`
}

func main() {
	port := flag.Int("port", 0, "Override STORYNEST_FAKEAPI_HTTP_PORT")
	flag.Parse()

	log := logger.New("storynest-fakeapi")

	var cfg config
	if err := envconfig.Process("STORYNEST_FAKEAPI", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if *port != 0 {
		cfg.HTTPPort = *port
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	log = log.Level(level)

	opts := []fakeapi.Option{fakeapi.WithLogger(log)}
	if cfg.RequireAuth {
		opts = append(opts, fakeapi.WithTokens(devmode.APIKey))
	}
	fake := fakeapi.New(opts...)
	fake.SetDelay(cfg.Latency)
	if cfg.Seed {
		seedDemo(fake)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      fake,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Bool("require_auth", cfg.RequireAuth).Msg("fake backend starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down fake backend")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
}

// seedDemo adds one parent ("demo-parent") with two kids and a few stories.
func seedDemo(fake *fakeapi.Server) {
	age7, age4 := 7, 4
	lang := "en-GB"
	alice := fake.SeedKid(client.Kid{UserID: "demo-parent", Name: "Alice", Age: &age7, FavoriteGenres: []string{"space", "pirates"}, PreferredLanguage: &lang})
	ben := fake.SeedKid(client.Kid{UserID: "demo-parent", Name: "Ben", Age: &age4, FavoriteGenres: []string{"animals"}})

	fake.SeedStory(client.Story{KidID: alice.ID, Title: "Alice and the Moon Map", Content: "Once upon a time, Alice found a map of the moon.", Status: client.StoryApproved, IsFavourite: true})
	fake.SeedStory(client.Story{KidID: alice.ID, Title: "The Pirate Parrot", Content: "A parrot who could only say 'treasure'.", Status: client.StoryPending})
	fake.SeedStory(client.Story{KidID: ben.ID, Title: "Ben and the Sleepy Bear", Content: "Ben helped a bear find its winter cave.", Status: client.StoryApproved})
}
