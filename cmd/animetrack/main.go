package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spiecc/animetrack/internal/adapter"
	"github.com/spiecc/animetrack/internal/app"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/session"
	"github.com/spiecc/animetrack/internal/tui"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

const startupTimeout = 30 * time.Second

func main() {
	// Handle version flag
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Parse()

	if showVersion {
		fmt.Printf("animetrack %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := adapter.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, closer, err := adapter.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		defer closer.Close()
	}
	slog.SetDefault(logger)

	logger.Info("starting animetrack", "version", Version)

	// Each pass is one startup flow; logout and session expiry start a new one
	for {
		restart, err := runOnce(cfg, logger)
		if err != nil {
			return err
		}
		if !restart {
			break
		}
		logger.Info("restarting startup flow")
	}

	logger.Info("shutting down")
	return nil
}

// runOnce wires the app, makes sure a session exists and runs the TUI.
// It reports whether startup should run again.
func runOnce(cfg *adapter.Config, logger *slog.Logger) (bool, error) {
	progressCh := make(chan domain.SyncProgress, 8)
	noticeCh := make(chan tui.Notice, 8)
	storeCh := make(chan uint64, 1)

	a, err := app.New(cfg, logger,
		app.WithObserver(tui.NewChannelObserver(progressCh)),
		app.WithNotifier(tui.NewChannelNotifier(noticeCh)),
		app.WithOnExpired(func() {
			logger.Warn("session expired")
		}),
	)
	if err != nil {
		return false, err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	err = a.Initialize(ctx)
	cancel()
	if errors.Is(err, domain.ErrAuthExpired) {
		fmt.Println("Your session has expired. Please log in again.")
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to initialize session: %w", err)
	}

	if !a.Session.IsLoggedIn() {
		ok, err := runLoginFlow(a.Session)
		if err != nil || !ok {
			return false, err
		}
	}

	unsubscribe := a.Store.Subscribe(tui.StoreWatcher(storeCh))
	defer unsubscribe()

	model := tui.NewModel(a.Tracker, a.Views, a.Session, tui.Channels{
		Progress: progressCh,
		Store:    storeCh,
		Notices:  noticeCh,
	})
	model.Browser = a.Browser

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	final, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		return false, fmt.Errorf("TUI error: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.LoggedOut {
		fmt.Println("Logged out.")
		return true, nil
	}
	return false, nil
}

// runLoginFlow prompts for one-time codes until one is accepted. An empty
// code quits.
func runLoginFlow(sess *session.Manager) (bool, error) {
	fmt.Println()
	fmt.Println("Welcome to animetrack!")
	fmt.Println("Request a one-time login code from the catalog bot, then enter it below.")
	fmt.Println()

	for {
		code, err := readCode("Login code (empty to quit): ")
		if err != nil {
			return false, fmt.Errorf("failed to read login code: %w", err)
		}
		if code == "" {
			return false, nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		result, err := sess.Login(ctx, code)
		cancel()

		switch result {
		case session.LoginSuccess:
			fmt.Println("✓ Logged in")
			return true, nil
		case session.LoginInvalid:
			fmt.Println("✗ That code was not accepted. Please try again.")
		default:
			fmt.Printf("✗ Login failed: %v\n", err)
		}
		fmt.Println()
	}
}

// readCode reads a code with hidden input when stdin is a terminal
func readCode(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		b, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // Add newline after hidden input
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
