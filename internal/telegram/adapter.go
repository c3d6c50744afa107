package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/promptengine/internal/history"
	"github.com/user/promptengine/internal/render"
	"github.com/user/promptengine/internal/session"
	"github.com/user/promptengine/internal/types"
)

const maxTelegramMessage = 4096

const helpText = `Send me an idea and I'll turn it into a structured prompt.
Attach documents to describe context files.

/test - run the current prompt against the model
/save - save the current prompt
/up, /down - rate the current prompt (again to clear)
/show - show the current prompt
/history [term] - list saved prompts
/filter all|up|down|none - filter the history by rating
/select <id> - make a saved prompt current
/delete <id> - delete a saved prompt`

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Adapter bridges Telegram chats to studio sessions. Each chat gets its own
// session controller; all chats share one history.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	send    sender
	gen     session.Generator
	tester  session.Tester
	history *history.Store

	mu       sync.Mutex
	sessions map[types.ChatKey]*session.Controller
	pending  map[types.ChatKey][]types.ContextFile
}

// New creates a Telegram adapter.
func New(token string, gen session.Generator, tester session.Tester, h *history.Store) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	a := newAdapter(bot, gen, tester, h)
	a.bot = bot
	return a, nil
}

func newAdapter(send sender, gen session.Generator, tester session.Tester, h *history.Store) *Adapter {
	return &Adapter{
		send:     send,
		gen:      gen,
		tester:   tester,
		history:  h,
		sessions: make(map[types.ChatKey]*session.Controller),
		pending:  make(map[types.ChatKey][]types.ContextFile),
	}
}

// Start long-polls for updates until ctx is cancelled. Messages are handled
// concurrently; each session rejects overlapping requests itself.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)
	slog.Info("telegram adapter started", "bot", a.bot.Self.UserName)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer wg.Done()
				a.handleMessage(ctx, msg)
			}(update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) controller(key types.ChatKey) *session.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.sessions[key]
	if !ok {
		c = session.New(key, a.gen, a.tester, a.history)
		a.sessions[key] = c
	}
	return c
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		a.handleCommand(ctx, msg)
		return
	}

	key := buildChatKey(msg.Chat.ID)
	idea := msg.Text
	if msg.Document != nil {
		a.attach(key, msg.Document)
		idea = msg.Caption
		if strings.TrimSpace(idea) == "" {
			a.reply(msg.Chat.ID, fmt.Sprintf("Attached *%s*. Send your idea when ready.", msg.Document.FileName))
			return
		}
	}
	if strings.TrimSpace(idea) == "" {
		return
	}

	a.generate(ctx, msg.Chat.ID, key, idea)
}

func (a *Adapter) attach(key types.ChatKey, doc *tgbotapi.Document) {
	mime := doc.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[key] = append(a.pending[key], types.ContextFile{
		Name: doc.FileName,
		Type: mime,
		Size: int64(doc.FileSize),
	})
}

func (a *Adapter) takePending(key types.ChatKey) []types.ContextFile {
	a.mu.Lock()
	defer a.mu.Unlock()
	files := a.pending[key]
	delete(a.pending, key)
	return files
}

func (a *Adapter) generate(ctx context.Context, chatID int64, key types.ChatKey, idea string) {
	c := a.controller(key)
	files := a.takePending(key)

	p, err := c.Generate(ctx, idea, files)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			// Keep the files for the next attempt.
			a.mu.Lock()
			a.pending[key] = append(files, a.pending[key]...)
			a.mu.Unlock()
		}
		a.reply(chatID, errorText(err))
		return
	}
	a.reply(chatID, formatPrompt(p, false)+"\n\n/test · /save · /up · /down")
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	c := a.controller(buildChatKey(chatID))
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		a.reply(chatID, helpText)

	case "test":
		result, err := c.TestCurrent(ctx)
		if err != nil {
			a.reply(chatID, errorText(err))
			return
		}
		a.reply(chatID, "*Test result:*\n\n"+result)

	case "save":
		added, err := c.SaveCurrent()
		switch {
		case err != nil:
			a.reply(chatID, errorText(err))
		case added:
			a.reply(chatID, "Saved.")
		default:
			a.reply(chatID, "Already saved.")
		}

	case "up", "down":
		snap := c.Snapshot()
		if snap.CurrentPrompt == nil {
			a.reply(chatID, errorText(session.ErrNoCurrentPrompt))
			return
		}
		r, _ := types.ParseRating(msg.Command())
		result, _ := c.Rate(snap.CurrentPrompt.ID, r)
		a.reply(chatID, "Rating: "+ratingLabel(result))

	case "show":
		snap := c.Snapshot()
		if snap.CurrentPrompt == nil {
			a.reply(chatID, errorText(session.ErrNoCurrentPrompt))
			return
		}
		a.reply(chatID, formatPrompt(snap.CurrentPrompt, c.IsCurrentSaved()))

	case "history":
		c.SetSearchTerm(args)
		a.reply(chatID, formatList(c.Visible(), c.Snapshot()))

	case "filter":
		f, err := types.ParseRatingFilter(args)
		if err != nil {
			a.reply(chatID, "Usage: /filter all|up|down|none")
			return
		}
		c.SetRatingFilter(f)
		a.reply(chatID, formatList(c.Visible(), c.Snapshot()))

	case "select":
		if args == "" || !c.Select(types.PromptID(args)) {
			a.reply(chatID, "Prompt not found.")
			return
		}
		a.reply(chatID, formatPrompt(c.Snapshot().CurrentPrompt, true))

	case "delete":
		id := types.PromptID(args)
		if args == "" || !a.history.Contains(id) {
			a.reply(chatID, "Prompt not found.")
			return
		}
		c.Delete(id)
		a.reply(chatID, "Deleted.")

	default:
		a.reply(chatID, "Unknown command. Send /help for the list.")
	}
}

// reply renders markdown to Telegram HTML and sends it, falling back to
// plain text when Telegram rejects the markup.
func (a *Adapter) reply(chatID int64, markdown string) {
	for _, part := range splitMessage(markdown) {
		msg := tgbotapi.NewMessage(chatID, render.Telegram(part))
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := a.send.Send(msg); err != nil {
			msg = tgbotapi.NewMessage(chatID, part)
			if _, err := a.send.Send(msg); err != nil {
				slog.Error("send message failed", "chat_id", chatID, "error", err)
			}
		}
	}
}

func errorText(err error) string {
	switch {
	case errors.Is(err, session.ErrBusy):
		return "Still working on your previous request."
	case errors.Is(err, session.ErrNoCurrentPrompt):
		return "No current prompt. Send an idea first."
	case errors.Is(err, session.ErrEmptyIdea):
		return "Please describe your idea."
	}
	return types.UserMessage(err)
}

func ratingLabel(r types.Rating) string {
	switch r {
	case types.RatingUp:
		return "👍"
	case types.RatingDown:
		return "👎"
	}
	return "none"
}

func formatPrompt(p *types.Prompt, saved bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Idea:* %s\n", p.OriginalIdea)
	fmt.Fprintf(&b, "*ID:* `%s`\n", p.ID)
	if len(p.ContextFiles) > 0 {
		names := make([]string, len(p.ContextFiles))
		for i, f := range p.ContextFiles {
			names[i] = f.Name
		}
		fmt.Fprintf(&b, "*Files:* %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\n")
	b.WriteString(p.GeneratedPromptText)
	fmt.Fprintf(&b, "\n\n*Rating:* %s", ratingLabel(p.Rating))
	if saved {
		b.WriteString(" · saved")
	}
	return b.String()
}

func formatList(prompts []types.Prompt, state session.State) string {
	if len(prompts) == 0 {
		return fmt.Sprintf("No saved prompts match (search %q, filter %s).", state.SearchTerm, state.RatingFilter)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%d prompt(s)* (filter %s)\n", len(prompts), state.RatingFilter)
	for _, p := range prompts {
		fmt.Fprintf(&b, "\n`%s` %s %s", p.ID, ratingLabel(p.Rating), p.OriginalIdea)
	}
	return b.String()
}

// splitMessage breaks text into chunks of at most maxTelegramMessage bytes,
// preferring line breaks and never splitting a UTF-8 sequence.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > maxTelegramMessage {
		end := maxTelegramMessage
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		if nl := strings.LastIndexByte(text[:end], '\n'); nl > maxTelegramMessage/2 {
			end = nl + 1
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

func buildChatKey(chatID int64) types.ChatKey {
	return types.NewChatKey("telegram", strconv.FormatInt(chatID, 10))
}
