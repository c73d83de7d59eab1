package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Browser opens metadata pages in an external browser
type Browser struct {
	command string   // configured browser command, empty for system default
	args    []string // additional arguments placed before the URL
	webURL  string   // site root, e.g. "https://bgm.tv"
	logger  *slog.Logger
	start   func(name string, args ...string) error
}

// NewBrowser creates a Browser for the pages under webURL
func NewBrowser(cfg BrowserConfig, webURL string, logger *slog.Logger) *Browser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Browser{
		command: cfg.Command,
		args:    cfg.Args,
		webURL:  strings.TrimRight(webURL, "/"),
		logger:  logger,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start() // Start async, don't wait
		},
	}
}

// SubjectURL is the public page of animeID
func (b *Browser) SubjectURL(animeID int) string {
	return fmt.Sprintf("%s/subject/%d", b.webURL, animeID)
}

// OpenSubject opens the page of animeID
func (b *Browser) OpenSubject(animeID int) error {
	return b.Open(b.SubjectURL(animeID))
}

// Open opens url in the configured browser or the system default handler
func (b *Browser) Open(url string) error {
	name, args := browserCommand(runtime.GOOS, b.command, b.args, url)
	b.logger.Info("opening url", "command", name, "url", url)
	if err := b.start(name, args...); err != nil {
		return fmt.Errorf("open %s with %s: %w", url, name, err)
	}
	return nil
}

// browserCommand resolves the command line that opens url on goos
func browserCommand(goos, command string, extra []string, url string) (string, []string) {
	if command != "" {
		args := append([]string{}, extra...)
		return command, append(args, url)
	}

	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "cmd", []string{"/c", "start", "", url}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{url}
	}
}
