package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/floodline/floodline/dataset"
	"github.com/floodline/floodline/engine"
	"github.com/floodline/floodline/server"
	"github.com/floodline/floodline/session"
)

// ============================================================================
// FLOODLINE CLI — ask questions about flood control projects
// ============================================================================
// Three modes: one-shot query, interactive REPL, and HTTP server. All
// three load the same CSV dataset; the server and REPL add per-session
// conversation memory on top.
// ============================================================================

const version = "0.3.0"

var (
	dataPath string
	verbose  bool
)

func main() {
	// A missing .env is fine; explicit env vars win either way.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "floodline",
		Short:         "Query engine for Philippine flood control project data",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataPath, "data", os.Getenv("FLOODLINE_DATA"),
		"path to the projects CSV file (env FLOODLINE_DATA)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newQueryCmd(), newReplCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func loadEngine(log zerolog.Logger) (*engine.Engine, error) {
	if dataPath == "" {
		return nil, errors.New("no dataset: pass --data or set FLOODLINE_DATA")
	}
	tbl, err := dataset.LoadFile(dataPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("file", dataPath).Int("rows", tbl.NumRows()).Msg("dataset loaded")
	return engine.New(tbl, engine.WithLogger(log)), nil
}

// openStore picks the context backend: redis when FLOODLINE_REDIS_ADDR
// is set, sqlite when FLOODLINE_CONTEXT_DB is set, in-memory otherwise.
func openStore(ctx context.Context, log zerolog.Logger) (session.Store, error) {
	if addr := os.Getenv("FLOODLINE_REDIS_ADDR"); addr != "" {
		log.Info().Str("addr", addr).Msg("using redis context store")
		return session.NewRedisStore(ctx, addr)
	}
	if path := os.Getenv("FLOODLINE_CONTEXT_DB"); path != "" {
		log.Info().Str("path", path).Msg("using sqlite context store")
		return session.NewSQLiteStore(path)
	}
	log.Info().Msg("using in-memory context store")
	return session.NewMemoryStore(), nil
}

// ============================================================================
// QUERY — one question, one answer
// ============================================================================

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query [question]",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			e, err := loadEngine(log)
			if err != nil {
				return err
			}
			answer := e.Resolve(strings.Join(args, " "), engine.NewSession())
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}

// ============================================================================
// REPL — interactive session with conversation memory
// ============================================================================

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive question loop with conversation memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			e, err := loadEngine(log)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStore(ctx, log)
			if err != nil {
				return err
			}
			defer store.Close()

			conv := session.NewConversation(e, store, log)
			sessionID := ""

			fmt.Println("floodline — ask about flood control projects (\"exit\" to quit, \"context\" to inspect memory)")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					continue
				case line == "exit" || line == "quit":
					return nil
				case line == "context":
					summary, err := conv.ContextSummary(ctx, sessionID)
					if err != nil {
						return err
					}
					fmt.Println(summary)
					continue
				}
				out, err := conv.Ask(ctx, sessionID, line)
				if err != nil {
					log.Error().Err(err).Msg("failed to answer")
					continue
				}
				sessionID = out.SessionID
				fmt.Println(out.Answer)
			}
			return scanner.Err()
		},
	}
}

// ============================================================================
// SERVE — HTTP API
// ============================================================================

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question-answering HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			e, err := loadEngine(log)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStore(ctx, log)
			if err != nil {
				return err
			}
			defer store.Close()

			conv := session.NewConversation(e, store, log)
			srv := &http.Server{
				Addr:    addr,
				Handler: server.NewServer(conv, log).Handler(),
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Msg("listening")
				errCh <- srv.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-stop:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOr("FLOODLINE_ADDR", ":8080"),
		"listen address (env FLOODLINE_ADDR)")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
