package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/promptengine/internal/contextfile"
	"github.com/user/promptengine/internal/history"
	"github.com/user/promptengine/internal/ideasource"
	"github.com/user/promptengine/internal/session"
	"github.com/user/promptengine/internal/types"
)

func init() {
	rootCmd.AddCommand(generateCmd, testCmd)

	generateCmd.Flags().StringArray("file", nil, "context file to describe (repeatable)")
	generateCmd.Flags().String("idea-url", "", "import the idea from a web page")
	generateCmd.Flags().Bool("test", false, "test the generated prompt")
	generateCmd.Flags().Bool("save", false, "save the generated prompt to history")
}

// cliKey identifies the single session a CLI invocation owns.
var cliKey = types.NewChatKey("cli", "local")

var generateCmd = &cobra.Command{
	Use:   "generate [idea]",
	Short: "Generate a structured prompt from an idea",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		paths, _ := cmd.Flags().GetStringArray("file")
		ideaURL, _ := cmd.Flags().GetString("idea-url")
		runTest, _ := cmd.Flags().GetBool("test")
		save, _ := cmd.Flags().GetBool("save")

		ctx, cancel := commandContext(cfg)
		defer cancel()

		idea := ""
		if len(args) == 1 {
			idea = args[0]
		}
		if ideaURL != "" {
			imported, err := ideasource.NewFetcher().FromURL(ctx, ideaURL)
			if err != nil {
				return err
			}
			idea = strings.TrimSpace(idea + "\n\n" + imported)
		}

		files, err := contextfile.Describe(paths)
		if err != nil {
			return err
		}

		backend, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		c := session.New(cliKey, svc.gen, svc.tester, history.NewStore(backend))

		p, err := c.Generate(ctx, idea, files)
		if err != nil {
			if errors.Is(err, session.ErrEmptyIdea) {
				return errors.New("an idea is required (argument or --idea-url)")
			}
			return errors.New(types.UserMessage(err))
		}
		printPrompt(os.Stdout, p, false)

		if runTest {
			result, err := c.TestCurrent(ctx)
			if err != nil {
				return errors.New(types.UserMessage(err))
			}
			fmt.Fprintf(os.Stdout, "\n--- Test result ---\n%s\n", result)
		}

		if save {
			if _, err := c.SaveCurrent(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "\nSaved %s.\n", p.ID)
		}
		return nil
	},
}

var testCmd = &cobra.Command{
	Use:   "test <id>",
	Short: "Test a saved prompt against the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx, cancel := commandContext(cfg)
		defer cancel()

		backend, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		svc, err := newServices(cfg)
		if err != nil {
			return err
		}
		c := session.New(cliKey, svc.gen, svc.tester, history.NewStore(backend))

		if !c.Select(types.PromptID(args[0])) {
			return fmt.Errorf("prompt not found: %s", args[0])
		}
		result, err := c.TestCurrent(ctx)
		if err != nil {
			return errors.New(types.UserMessage(err))
		}
		fmt.Fprintln(os.Stdout, result)
		return nil
	},
}

func ratingLabel(r types.Rating) string {
	switch r {
	case types.RatingUp:
		return "up"
	case types.RatingDown:
		return "down"
	}
	return "-"
}

func printPrompt(w io.Writer, p *types.Prompt, saved bool) {
	fmt.Fprintf(w, "ID:      %s\n", p.ID)
	fmt.Fprintf(w, "Idea:    %s\n", p.OriginalIdea)
	fmt.Fprintf(w, "Created: %s\n", p.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Rating:  %s\n", ratingLabel(p.Rating))
	if saved {
		fmt.Fprintln(w, "Saved:   yes")
	}
	for _, f := range p.ContextFiles {
		fmt.Fprintf(w, "File:    %s (%s, %d bytes)\n", f.Name, f.Type, f.Size)
	}
	fmt.Fprintf(w, "\n%s\n", p.GeneratedPromptText)
}
