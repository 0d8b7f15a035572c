// Package main is the entry point for the citeview CLI. Without a subcommand
// it runs the terminal viewer.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/csheth/citeview/internal/backend"
	"github.com/csheth/citeview/internal/config"
	"github.com/csheth/citeview/internal/docsource"
	"github.com/csheth/citeview/internal/history"
	"github.com/csheth/citeview/internal/tui"
	"github.com/csheth/citeview/internal/viewer"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "citeview [pdf-or-url]",
	Short: "Ask questions about a PDF and jump to the cited passages",
	Long: `citeview uploads a PDF to a document-question backend, lets you ask
questions about it, and highlights every passage an answer cites inside the
paginated document view.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runViewer,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./citeview.yaml or ~/.config/citeview/citeview.yaml)")
	flags.String("backend", "", "backend base URL (default http://localhost:5000)")
	flags.String("history", "", "transcript database path")
	rootCmd.Flags().Bool("no-alt-screen", false, "disable the alternate screen buffer")
	rootCmd.Flags().String("reference-mode", "", "citation page size: page or fixed")

	_ = viper.BindPFlag("backend.url", flags.Lookup("backend"))
	_ = viper.BindPFlag("history.path", flags.Lookup("history"))
	_ = viper.BindPFlag("no_alt_screen", rootCmd.Flags().Lookup("no-alt-screen"))
	_ = viper.BindPFlag("viewer.reference_mode", rootCmd.Flags().Lookup("reference-mode"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	config.Setup(viper.GetViper(), cfgFile)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return cfg, err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.Printf("[config] using %s", used)
	}
	return cfg, nil
}

func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "citeview: logging disabled: %v\n", err)
	}
	defer closeLog()

	resolver, err := docsource.NewResolver(cfg.Cache.Dir, nil)
	if err != nil {
		return err
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		log.Printf("[history] disabled: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	tuiCfg := tui.Config{
		Backend: backend.New(backend.Config{
			URL:      cfg.Backend.URL,
			ThreadID: cfg.Backend.ThreadID,
			Timeout:  cfg.Backend.Timeout,
		}),
		Resolver:      resolver,
		History:       store,
		HistoryLimit:  cfg.History.Limit,
		BaseWidth:     cfg.Viewer.BaseWidth,
		ReferenceMode: viewer.ReferenceMode(cfg.Viewer.ReferenceMode),
	}
	if len(args) == 1 {
		tuiCfg.InitialDocument = args[0]
	}

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if !cfg.NoAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(tui.New(tuiCfg), opts...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	return nil
}

// setupLogging sends the standard logger to path. The TUI owns the terminal,
// so when the file cannot be opened log output is discarded instead.
func setupLogging(path string) (func(), error) {
	discard := func() { log.SetOutput(io.Discard) }
	if path == "" {
		discard()
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		discard()
		return func() {}, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := tea.LogToFile(path, "citeview")
	if err != nil {
		discard()
		return func() {}, fmt.Errorf("opening log file: %w", err)
	}
	return func() { f.Close() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "citeview:", err)
		os.Exit(1)
	}
}
