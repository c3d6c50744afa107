package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/promptengine/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		fmt.Println("Prompt Engine Setup")
		fmt.Println("Press Enter to accept the value shown in brackets.")
		fmt.Println()

		runWizard(bufio.NewScanner(os.Stdin), os.Stdout, cfg)

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

func runWizard(scanner *bufio.Scanner, w io.Writer, cfg *config.Config) {
	cfg.Studio.Endpoint = ask(scanner, w, "Studio endpoint (empty to run the engine locally)", cfg.Studio.Endpoint)
	if cfg.Studio.Endpoint == "" {
		cfg.LLM.BaseURL = ask(scanner, w, "LLM base URL", cfg.LLM.BaseURL)
		cfg.LLM.APIKey = ask(scanner, w, "LLM API key (empty for demo mode)", cfg.LLM.APIKey)
		cfg.LLM.GenerateModel = ask(scanner, w, "Generation model", cfg.LLM.GenerateModel)
		cfg.LLM.TestModel = ask(scanner, w, "Test model", cfg.LLM.TestModel)
	}

	switch backend := ask(scanner, w, "Storage backend (file, sqlite, redis)", cfg.Storage.Backend); backend {
	case "file", "sqlite", "redis":
		cfg.Storage.Backend = backend
	default:
		fmt.Fprintf(w, "Unknown backend %q, using file.\n", backend)
		cfg.Storage.Backend = "file"
	}
	if cfg.Storage.Backend == "redis" {
		cfg.Storage.RedisURL = ask(scanner, w, "Redis URL", cfg.Storage.RedisURL)
	}

	cfg.Telegram.Token = ask(scanner, w, "Telegram bot token (optional)", cfg.Telegram.Token)
}

// ask shows label with its current value and returns the trimmed input, or
// the current value when the input is empty.
func ask(scanner *bufio.Scanner, w io.Writer, label, current string) string {
	if current != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	if scanner.Scan() {
		if input := strings.TrimSpace(scanner.Text()); input != "" {
			return input
		}
	}
	return current
}
