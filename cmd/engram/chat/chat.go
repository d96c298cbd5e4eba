// Package chatcmder provides the chat command: an interactive REPL that
// recalls relevant memories before each reply, folds the exchange back into
// the store, and keeps the persona state moving with the conversation.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/persona"
)

var (
	userPrompt     = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// transcriptFileName is the plain-text conversation log kept in the
// .engram/ directory. Styled output is stripped before writing.
const transcriptFileName = "chat.log"

// historyWindow caps how many prior session messages go into the prompt so
// long-running sessions do not grow it without bound.
const historyWindow = 20

type chatCommander struct {
	model  string
	user   string
	fresh  bool
	sqlite string
	debug  bool

	configDir string
	cfg       *config.Config
}

const chatLongDesc string = `Start an interactive chat session with your engram companion.

Each turn recalls the memories most relevant to your message, folds them
into the system prompt along with the persona's current mood, and sends a
single prompt to the configured LLM. Exchanges worth keeping are remembered
automatically, and the persona's mood shifts with the emotional weight of
the conversation.

The session persists in .engram/session.json and resumes on the next chat.
Use --fresh to discard it and start over. A plain-text transcript is
appended to .engram/chat.log.

Examples:
  engram chat
  engram chat --model llama3.2
  engram chat --fresh
  engram chat --user maya`

const chatShortDesc string = "Chat with your memory-backed companion"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if cmd.Flags().Changed("model") {
				cfg.LLM.Model = cmder.model
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return cmder.run(cmd.Context())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.model, "model", "m", defaults.LLM.Model, "Model name (e.g. llama3.2, gpt-4o-mini)")
	cmd.Flags().StringVarP(&cmder.user, "user", "u", "", "Name of the user this conversation is about")
	cmd.Flags().BoolVar(&cmder.fresh, "fresh", false, "Discard the saved session and start a new conversation")
	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	log := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(os.Stderr),
	)

	cfg := c.cfg

	driver, err := providers.OpenStore(ctx, cfg, c.configDir, c.sqlite)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer driver.Close()

	embedder, err := providers.NewEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	vecDriver, err := providers.OpenVector(ctx, cfg, c.configDir, log)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}

	mopts := []engram.Option{engram.WithLogger(log)}
	if embedder != nil {
		mopts = append(mopts, engram.WithEmbedder(embedder))
	}
	if vecDriver != nil {
		mopts = append(mopts, engram.WithVectorIndex(vecDriver))
	}
	if cfg.Recall.MinSimilarity > 0 {
		mopts = append(mopts, engram.WithMinSimilarity(cfg.Recall.MinSimilarity))
	}
	manager := engram.NewManager(driver, mopts...)

	generate, err := providers.NewLLM(cfg)
	if err != nil {
		return fmt.Errorf("creating LLM client: %w", err)
	}

	state, err := persona.Load(ctx, driver, cfg.Persona.Name)
	if err != nil {
		return fmt.Errorf("loading persona: %w", err)
	}

	dotdirManager := dotdir.NewManager()
	if c.fresh {
		if err := dotdirManager.ClearSession(c.configDir); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
	}

	session, err := dotdirManager.LoadSession(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if session == nil {
		session = &dotdir.SessionState{StartedAt: time.Now().UTC()}
	}

	c.printBanner(session, state)

	tlog := openTranscript(c.configDir)
	defer tlog.Close()

	assistantPrompt := assistantStyle.Render(strings.ToLower(state.Name) + "> ")

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		state.Mode = persona.DetectMode(input)

		recalled, err := manager.SearchSemantic(ctx, input, int(cfg.Chat.MaxRecall))
		if err != nil {
			log.Debug("recall failed for chat turn", "error", err)
			recalled = nil
		}

		prompt := buildPrompt(persona.BuildSystemPrompt(state, recalled), session.Messages, input)

		session.Messages = append(session.Messages, dotdir.SessionMessage{
			Role:    "user",
			Content: input,
		})

		reply, err := generate(ctx, prompt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			// Remove the failed user message so we can retry
			session.Messages = session.Messages[:len(session.Messages)-1]
			continue
		}

		session.Messages = append(session.Messages, dotdir.SessionMessage{
			Role:    "assistant",
			Content: reply,
		})

		rendered, err := cliui.RenderMarkdown(reply)
		if err != nil {
			rendered = reply
		}
		fmt.Print(assistantPrompt)
		fmt.Println(strings.TrimSpace(rendered))
		fmt.Println()

		tlog.record("user", input)
		tlog.record(state.Name, rendered)

		c.afterTurn(ctx, log, manager, driver, &state, session, input)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// afterTurn runs the side effects of one exchange: shift the persona with
// the message's emotional weight, auto-remember anything worth keeping, and
// persist both the persona and the session. Failures here are logged rather
// than returned so one bad write never ends the conversation.
func (c *chatCommander) afterTurn(
	ctx context.Context,
	log *slog.Logger,
	manager *engram.Manager,
	driver memory.Driver,
	state *persona.State,
	session *dotdir.SessionState,
	input string,
) {
	weight := weighInput(input)
	state.Apply(weight)

	if recType, importance, ok := captureWorthy(input); ok {
		opts := engram.RememberOpts{
			Importance:  &importance,
			Tags:        []string{"chat"},
			RelatedUser: c.user,
		}
		if weight != 0 {
			opts.EmotionalWeight = &weight
		}

		rec, err := manager.RememberWithEmbedding(ctx, input, recType, opts)
		if err != nil {
			log.Debug("auto-remember failed", "error", err)
		} else {
			log.Debug("remembered from chat", "id", rec.ID, "type", rec.Type)
		}
	}

	if err := state.Save(ctx, driver); err != nil {
		log.Debug("saving persona failed", "error", err)
	}
	if err := dotdir.NewManager().SaveSession(session, c.configDir); err != nil {
		log.Debug("saving session failed", "error", err)
	}
}

func (c *chatCommander) printBanner(session *dotdir.SessionState, state persona.State) {
	fmt.Println()
	if len(session.Messages) > 0 {
		fmt.Printf("  %s Resuming session %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages)", len(session.Messages))),
		)
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Printf("  %s %s %s\n",
		cliui.KeyStyle.Render("Persona:"),
		cliui.NameStyle.Render(state.Name),
		cliui.DimStyle.Render("("+state.Mood+")"),
	)
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Model:  "),
		cliui.NameStyle.Render(c.cfg.LLM.Model),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))
}

// buildPrompt assembles the single prompt sent to the model: the system
// section, the recent transcript, and the new message with a trailing
// assistant cue for the model to complete.
func buildPrompt(system string, history []dotdir.SessionMessage, input string) string {
	var b strings.Builder

	b.WriteString(system)
	b.WriteString("\n\n")

	for _, msg := range recentHistory(history) {
		switch msg.Role {
		case "user":
			b.WriteString("User: ")
		case "assistant":
			b.WriteString("Assistant: ")
		default:
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	b.WriteString("User: ")
	b.WriteString(input)
	b.WriteString("\nAssistant:")

	return b.String()
}

func recentHistory(history []dotdir.SessionMessage) []dotdir.SessionMessage {
	if len(history) <= historyWindow {
		return history
	}
	return history[len(history)-historyWindow:]
}

// transcript appends plain-text conversation lines to .engram/chat.log.
// A transcript that failed to open degrades to a no-op rather than
// interrupting the chat.
type transcript struct {
	f *os.File
}

func openTranscript(configDir string) *transcript {
	dir, err := dotdir.NewManager().Create(configDir)
	if err != nil {
		return &transcript{}
	}

	f, err := os.OpenFile(filepath.Join(dir, transcriptFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return &transcript{}
	}

	return &transcript{f: f}
}

func (t *transcript) record(speaker, text string) {
	if t.f == nil {
		return
	}

	stamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(t.f, "[%s] %s: %s\n", stamp, speaker, ansi.Strip(strings.TrimSpace(text)))
}

func (t *transcript) Close() {
	if t.f != nil {
		_ = t.f.Close()
	}
}
