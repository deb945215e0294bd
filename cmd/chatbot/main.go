// Command chatbot is a terminal front end for the storefront assistant. It keeps
// the conversation in a local store, so history survives between runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/pawshop/internal/config"
	"github.com/zhouzirui/pawshop/internal/service/chatbot"
	"github.com/zhouzirui/pawshop/internal/storage"
)

type options struct {
	endpoint string
	store    string
	path     string
	timeout  time.Duration
	verbose  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "chatbot",
		Short:         "Talk to the pawshop assistant from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.endpoint, "endpoint", "", "chat endpoint URL (default $CHATBOT_ENDPOINT)")
	flags.StringVar(&opts.store, "store", "", "history store: file, sqlite or memory (default $CHATBOT_STORE)")
	flags.StringVar(&opts.path, "path", "", "history store location (default $CHATBOT_STORE_PATH)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout, 0 for none (default $CHATBOT_TIMEOUT)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log diagnostics to stderr")

	root.AddCommand(
		&cobra.Command{
			Use:   "chat",
			Short: "Start an interactive conversation",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runChat(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "ask <question>",
			Short: "Ask a single question and print the answer",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAsk(cmd, opts, strings.Join(args, " "))
			},
		},
		&cobra.Command{
			Use:   "history",
			Short: "Print the saved conversation",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withManager(opts, func(m *chatbot.Manager) error {
					printTranscript(cmd.OutOrStdout(), m.State())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget the saved conversation",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withManager(opts, func(m *chatbot.Manager) error {
					m.ClearChat()
					fmt.Fprintln(cmd.OutOrStdout(), "Conversation cleared.")
					return nil
				})
			},
		},
	)

	return root
}

// resolve fills options that were not set on the command line from the environment.
func (o *options) resolve(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if !flags.Changed("endpoint") {
		o.endpoint = cfg.Chatbot.Endpoint
	}
	if !flags.Changed("store") {
		o.store = cfg.Chatbot.StoreDriver
	}
	if !flags.Changed("path") {
		o.path = cfg.Chatbot.StorePath
		if flags.Changed("store") && o.store == storage.DriverSQLite && strings.HasSuffix(o.path, ".json") {
			o.path = strings.TrimSuffix(o.path, ".json") + ".db"
		}
	}
	if !flags.Changed("timeout") {
		o.timeout = cfg.Chatbot.Timeout
	}

	if !o.verbose {
		log.SetOutput(io.Discard)
	}
	return nil
}

// withManager opens the configured store, runs fn and closes the store again.
func withManager(opts *options, fn func(*chatbot.Manager) error) error {
	store, err := storage.Open(opts.store, opts.path)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer storage.Close(store)

	client := &http.Client{Timeout: opts.timeout}
	manager := chatbot.NewManager(store, chatbot.NewHTTPEndpoint(opts.endpoint, client))
	return fn(manager)
}

func runChat(cmd *cobra.Command, opts *options) error {
	return withManager(opts, func(m *chatbot.Manager) error {
		return runREPL(cmd.Context(), m, cmd.InOrStdin(), cmd.OutOrStdout())
	})
}

func runAsk(cmd *cobra.Command, opts *options, question string) error {
	return withManager(opts, func(m *chatbot.Manager) error {
		if strings.TrimSpace(question) == "" {
			return errors.New("question must not be empty")
		}
		m.SendMessage(cmd.Context(), question)
		if msg := m.Error(); msg != "" {
			return errors.New(msg)
		}
		messages := m.Messages()
		fmt.Fprintln(cmd.OutOrStdout(), messages[len(messages)-1].Content)
		return nil
	})
}
