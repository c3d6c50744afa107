package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/promptengine/internal/history"
	"github.com/user/promptengine/internal/kvstore"
	"github.com/user/promptengine/internal/render"
	"github.com/user/promptengine/internal/session"
	"github.com/user/promptengine/internal/theme"
	"github.com/user/promptengine/internal/types"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyRateCmd, historyDeleteCmd, historyExportCmd)

	historyListCmd.Flags().String("search", "", "case-insensitive search term")
	historyListCmd.Flags().String("filter", "all", "rating filter: all, up, down or none")
}

// withHistory opens the store and runs fn with a local session over it.
// History commands never generate, so the session has no services.
func withHistory(fn func(c *session.Controller, h *history.Store, backend kvstore.Backend) error) error {
	cfg := loadConfig()
	backend, err := openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	h := history.NewStore(backend)
	return fn(session.New(cliKey, nil, nil, h), h, backend)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and manage saved prompts",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved prompts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		search, _ := cmd.Flags().GetString("search")
		filterName, _ := cmd.Flags().GetString("filter")
		filter, err := types.ParseRatingFilter(filterName)
		if err != nil {
			return err
		}

		return withHistory(func(c *session.Controller, _ *history.Store, _ kvstore.Backend) error {
			c.SetSearchTerm(search)
			c.SetRatingFilter(filter)
			prompts := c.Visible()
			if len(prompts) == 0 {
				fmt.Println("No prompts found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tRATING\tCREATED\tIDEA")
			for _, p := range prompts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					p.ID,
					ratingLabel(p.Rating),
					p.CreatedAt.Format("2006-01-02 15:04"),
					oneLine(p.OriginalIdea, 60),
				)
			}
			return w.Flush()
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(_ *session.Controller, h *history.Store, _ kvstore.Backend) error {
			p, ok := h.Get(types.PromptID(args[0]))
			if !ok {
				return fmt.Errorf("prompt not found: %s", args[0])
			}
			printPrompt(os.Stdout, &p, true)
			return nil
		})
	},
}

var historyRateCmd = &cobra.Command{
	Use:   "rate <id> up|down",
	Short: "Rate a saved prompt; repeating the same rating clears it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := types.ParseRating(args[1])
		if err != nil || r == types.RatingNone {
			return fmt.Errorf("rating must be up or down, got %q", args[1])
		}
		return withHistory(func(c *session.Controller, _ *history.Store, _ kvstore.Backend) error {
			result, ok := c.Rate(types.PromptID(args[0]), r)
			if !ok {
				return fmt.Errorf("prompt not found: %s", args[0])
			}
			fmt.Fprintf(os.Stdout, "Rating for %s: %s\n", args[0], ratingLabel(result))
			return nil
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(c *session.Controller, h *history.Store, _ kvstore.Backend) error {
			id := types.PromptID(args[0])
			if !h.Contains(id) {
				return fmt.Errorf("prompt not found: %s", args[0])
			}
			c.Delete(id)
			fmt.Fprintf(os.Stdout, "Prompt %s deleted.\n", args[0])
			return nil
		})
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <file.html>",
	Short: "Export the history as a standalone HTML page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(_ *session.Controller, h *history.Store, backend kvstore.Backend) error {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			if err := render.Page(f, h.All(), theme.NewStore(backend).Get()); err != nil {
				f.Close()
				return fmt.Errorf("render history: %w", err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Exported %d prompt(s) to %s.\n", h.Len(), args[0])
			return nil
		})
	},
}

func oneLine(s string, n int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' || c == '\r' {
			r[i] = ' '
		}
	}
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return string(r)
}
