package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"financial-planner/internal/integrations/chatapi"
	"financial-planner/internal/logging"
	"financial-planner/internal/tui"
	"financial-planner/internal/widget"
)

var (
	chatURL  string
	timeout  time.Duration
	logFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "chatwidget",
	Short: "Financial planner form with a chat assistant",
	Long: `Opens the financial planning form in the terminal.

Save the form with ctrl+s, then open the assistant with ctrl+o. Questions are
sent to the planner's /chat endpoint together with the saved form values.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&chatURL, "url", envOr("PLANNER_CHAT_URL", "http://localhost:8080/chat"), "Chat endpoint URL (or set PLANNER_CHAT_URL env)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (0 waits indefinitely)")
	rootCmd.Flags().StringVar(&logFile, "log-file", logging.DefaultFile(), "Log file path")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// The terminal belongs to the UI, so logs only go to the file.
	logger, err := logging.Init(logging.Options{Level: logLevel, Format: "text", File: logFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
	}

	client, err := chatapi.NewClient(chatURL, chatapi.WithTimeout(timeout))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	model := tui.New()
	w, err := widget.New(model, client, model,
		widget.WithContext(ctx),
		widget.WithLogger(logger.With("component", "widget")),
	)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.Attach(p)

	logger.Info("chat widget started", "url", chatURL)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run terminal UI: %w", err)
	}
	slog.Debug("chat widget stopped", "state", w.State())
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
