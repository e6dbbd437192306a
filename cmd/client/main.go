package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nzaccagnino/notedeck/internal/app"
	"github.com/nzaccagnino/notedeck/internal/config"
	"github.com/nzaccagnino/notedeck/internal/i18n"
	"github.com/nzaccagnino/notedeck/internal/logging"
	"github.com/nzaccagnino/notedeck/internal/ratelimit"
	"github.com/nzaccagnino/notedeck/internal/ui"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "notedeck",
	Short:         "Browse and manage notes from the terminal",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath(), "path to config.yml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", i18n.T().Error, err)
		os.Exit(1)
	}
}

// openApp loads the config and opens the database. Logs go to cfg.LogPath
// when set, otherwise to w.
func openApp(ctx context.Context, w io.Writer) (*app.App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Language != "" {
		i18n.SetLanguage(i18n.Language(cfg.Language))
	}

	level := cfg.LogLevel
	if verbose {
		level = zerolog.LevelDebugValue
	}
	log, closeLog, err := logging.New(logging.Options{Level: level, Path: cfg.LogPath, Output: w})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return a, func() {
		a.Close()
		closeLog()
	}, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !config.ConfigExists(configPath) {
		if err := firstTimeSetup(configPath); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
	}

	// The alternate screen owns the terminal; only a log file gets output.
	a, closeApp, err := openApp(cmd.Context(), io.Discard)
	if err != nil {
		return err
	}
	defer closeApp()

	ui.SetTheme(a.Config.Theme)
	cooldown := ratelimit.NewCooldown(a.Profile.SearchCooldown)
	m := ui.NewModel(cmd.Context(), a.Listing, a.Notes, a.Profile, cooldown)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

func firstTimeSetup(path string) error {
	fmt.Println("  Welcome to notedeck! / Benvenuto in notedeck!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("  Select language / Seleziona lingua:")
	fmt.Println("  [1] English")
	fmt.Println("  [2] Italiano")
	fmt.Print("  > ")

	choice, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read input: %w", err)
	}

	language := "en"
	if strings.TrimSpace(choice) == "2" {
		language = "it"
	}
	i18n.SetLanguage(i18n.Language(language))

	cfg := config.Default()
	cfg.Language = language
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	if language == "it" {
		fmt.Println("  Configurazione creata in " + path)
	} else {
		fmt.Println("  Configuration written to " + path)
	}
	fmt.Println()
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
