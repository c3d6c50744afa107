package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/promptengine/internal/theme"
	"github.com/user/promptengine/internal/types"
)

func init() {
	rootCmd.AddCommand(themeCmd)
	themeCmd.AddCommand(themeGetCmd, themeSetCmd, themeToggleCmd)
}

func withTheme(fn func(s *theme.Store) error) error {
	cfg := loadConfig()
	backend, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	return fn(theme.NewStore(backend))
}

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show or change the theme preference",
	Args:  cobra.NoArgs,
	RunE:  themeGetCmd.RunE,
}

var themeGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current theme",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTheme(func(s *theme.Store) error {
			fmt.Fprintln(os.Stdout, s.Get())
			return nil
		})
	},
}

var themeSetCmd = &cobra.Command{
	Use:       "set dark|light",
	Short:     "Set the theme",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(types.ThemeDark), string(types.ThemeLight)},
	RunE: func(cmd *cobra.Command, args []string) error {
		t := types.Theme(args[0])
		if !t.Valid() {
			return fmt.Errorf("theme must be dark or light, got %q", args[0])
		}
		return withTheme(func(s *theme.Store) error {
			s.Set(t)
			fmt.Fprintf(os.Stdout, "Theme set to %s.\n", t)
			return nil
		})
	},
}

var themeToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between dark and light",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTheme(func(s *theme.Store) error {
			fmt.Fprintf(os.Stdout, "Theme set to %s.\n", s.Toggle())
			return nil
		})
	},
}
