package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gosuda.org/portal/portal/core/cryptoops"
	"gosuda.org/portal/sdk"

	"github.com/gosuda/portal-werewolf/werewolf/bot"
	"github.com/gosuda/portal-werewolf/werewolf/game"
	"github.com/gosuda/portal-werewolf/werewolf/store"
)

var rootCmd = &cobra.Command{
	Use:   "werewolf",
	Short: "Portal demo: werewolf matches with automated players",
	RunE:  runServer,
}

var (
	flagServerURLs []string
	flagPort       int
	flagName       string
	flagCredKey    string
	flagDataPath   string
	flagSeed       int64
	flagLogLevel   string
)

func registerFlags(cfg Config) {
	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&flagServerURLs, "server-url", cfg.Relay, "relayserver base URL(s); repeat or comma-separated (from env RELAY if set)")
	flags.IntVar(&flagPort, "port", cfg.Port, "optional local HTTP port (negative to disable)")
	flags.StringVar(&flagName, "name", cfg.Name, "backend display name")
	flags.StringVar(&flagCredKey, "cred-key", cfg.CredKey, "optional credential key to use for the listener (base64 encoded)")
	flags.StringVar(&flagDataPath, "data-path", cfg.DataPath, "directory of the pebble store for transcripts and rankings")
	flags.Int64Var(&flagSeed, "seed", cfg.Seed, "random seed for reproducible matches (0 picks one)")
	flags.StringVar(&flagLogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load werewolf config")
	}
	registerFlags(cfg)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute werewolf command")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	level, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(flagDataPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("[werewolf] close store")
		}
	}()

	opts := []game.Option{
		game.WithEventSink(st),
		game.WithRanker(st),
		game.WithArchive(st),
		game.WithDecider(bot.New(nil)),
	}
	if flagSeed != 0 {
		opts = append(opts, game.WithSeed(flagSeed))
	}
	engine := game.NewEngine(opts...)
	hubs := NewHubManager(engine)
	handler := NewHTTPServer(engine, st, hubs)

	var (
		ln     net.Listener
		client *sdk.RDClient
	)

	if servers := relayServers(flagServerURLs); len(servers) > 0 {
		cred := sdk.NewCredential()
		if flagCredKey != "" {
			key, err := base64.StdEncoding.DecodeString(flagCredKey)
			if err != nil {
				return fmt.Errorf("decode cred key: %w", err)
			}
			cred2, err := cryptoops.NewCredentialFromPrivateKey(key)
			if err != nil {
				return fmt.Errorf("new credential from private key: %w", err)
			}
			cred = cred2
		}

		c, err := sdk.NewClient(func(cfg *sdk.RDClientConfig) {
			cfg.BootstrapServers = servers
		})
		if err != nil {
			return fmt.Errorf("new client: %w", err)
		}
		listener, err := c.Listen(cred, flagName, []string{"http/1.1"})
		if err != nil {
			_ = c.Close()
			return fmt.Errorf("listen: %w", err)
		}
		client = c
		ln = listener
		log.Info().Strs("servers", servers).Msg("[werewolf] relay listener enabled")
	} else {
		log.Info().Msg("[werewolf] relay disabled; running local mode only")
	}

	mux := handler.Router()
	if ln != nil {
		go func() {
			if err := http.Serve(ln, mux); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
				log.Error().Err(err).Msg("[werewolf] relay http error")
			}
		}()
	}

	var httpSrv *http.Server
	if flagPort >= 0 {
		httpSrv = &http.Server{Addr: fmt.Sprintf(":%d", flagPort), Handler: mux, ReadHeaderTimeout: 5 * time.Second, IdleTimeout: 60 * time.Second}
		log.Info().Msgf("[werewolf] serving locally at http://127.0.0.1:%d", flagPort)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn().Err(err).Msg("[werewolf] local http stopped")
			}
		}()
	}

	<-ctx.Done()
	if ln != nil {
		_ = ln.Close()
	}
	if client != nil {
		_ = client.Close()
	}
	if httpSrv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("[werewolf] http server shutdown error")
		}
	}
	hubs.Close()
	log.Info().Msg("[werewolf] shutdown complete")
	return nil
}
