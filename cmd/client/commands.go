package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nzaccagnino/notedeck/internal/profile"
	"github.com/nzaccagnino/notedeck/internal/server"
)

var exportCmd = &cobra.Command{
	Use:   "export [DIR]",
	Short: "Write every note to DIR/notes/{id}.md",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		defer closeApp()

		dir := a.Config.ExportDir
		if len(args) == 1 {
			dir = args[0]
		}
		target, n, err := a.Notes.Export(cmd.Context(), dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d notes to %s\n", n, target)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import GLOB",
	Short: "Create a note from each .md, .markdown or .txt file matching GLOB",
	Long: `Create a note from each matching text file. GLOB supports ** for
recursive matches, for example "docs/**/*.md". Titles get the 【Imported】 suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		defer closeApp()

		report, err := a.Notes.Import(cmd.Context(), args[0])
		for _, n := range report.Imported {
			fmt.Fprintf(cmd.OutOrStdout(), "imported #%d %s\n", n.ID, n.Title)
		}
		for _, path := range report.Skipped {
			fmt.Fprintf(cmd.OutOrStdout(), "skipped %s\n", path)
		}
		return err
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or change stored profile settings",
}

var configGetCmd = &cobra.Command{
	Use:   "get [KEY]",
	Short: "Print one setting, or every default key when KEY is omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		defer closeApp()

		if len(args) == 1 {
			v, err := a.Profile.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if v == nil {
				return fmt.Errorf("unknown key %q", args[0])
			}
			return printJSON(cmd.OutOrStdout(), v)
		}

		values := map[string]any{}
		for key := range profile.Defaults() {
			v, err := a.Profile.Get(cmd.Context(), key)
			if err != nil {
				return err
			}
			values[key] = v
		}
		return printJSON(cmd.OutOrStdout(), values)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Store VALUE (parsed as JSON, else taken as a string) under KEY",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		defer closeApp()

		return a.Profile.Set(cmd.Context(), args[0], parseConfigValue(args[0], args[1]))
	},
}

// parseConfigValue keeps text keys verbatim and decodes everything else as
// JSON, falling back to the raw string.
func parseConfigValue(key, raw string) any {
	if profile.IsStringKey(key) {
		return raw
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage tags extracted from 【name】 in note titles",
}

var tagsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create a tag for every bracketed name in note titles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		defer closeApp()

		report, err := a.Notes.GenerateTags(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), report)
	},
}

var tagsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every tag and reset the tag filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		defer closeApp()

		n, err := a.Notes.ClearTags(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d tags\n", n)
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete attachments no note claimed within the grace period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context(), os.Stderr)
		if err != nil {
			return err
		}
		defer closeApp()

		n, err := a.Cleanup.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d orphan attachments\n", n)
		return nil
	},
}

var hashTokenCmd = &cobra.Command{
	Use:   "hash-token [TOKEN]",
	Short: "Print the bcrypt hash to use as server.token_hash",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := ""
		if len(args) == 1 {
			token = args[0]
		} else {
			var err error
			if token, err = promptToken(); err != nil {
				return err
			}
		}
		if token == "" {
			return fmt.Errorf("empty token")
		}

		hash, err := server.HashToken(token)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func promptToken() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		var token string
		_, err := fmt.Fscanln(os.Stdin, &token)
		return strings.TrimSpace(token), err
	}

	fmt.Fprint(os.Stderr, "Token: ")
	token, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(token)), nil
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd)
	tagsCmd.AddCommand(tagsGenerateCmd, tagsClearCmd)
	rootCmd.AddCommand(exportCmd, importCmd, configCmd, tagsCmd, cleanupCmd, hashTokenCmd)
}
