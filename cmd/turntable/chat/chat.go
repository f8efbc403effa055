// Package chatcmder provides the chat command for streaming conversations
// with the chat backend.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/cmd/turntable/env"
	"github.com/papercomputeco/turntable/pkg/backend"
	"github.com/papercomputeco/turntable/pkg/cliui"
	"github.com/papercomputeco/turntable/pkg/config"
	"github.com/papercomputeco/turntable/pkg/dotdir"
	"github.com/papercomputeco/turntable/pkg/eventstream"
	"github.com/papercomputeco/turntable/pkg/ingest"
	"github.com/papercomputeco/turntable/pkg/poller"
	"github.com/papercomputeco/turntable/pkg/stream"
	"github.com/papercomputeco/turntable/pkg/toolstate"
	"github.com/papercomputeco/turntable/pkg/utils"
	"github.com/papercomputeco/turntable/pkg/worker"
)

type chatCommander struct {
	conversationID string
	newSession     bool
	record         string
	noStore        bool
	files          []string

	baseURL      string
	provider     string
	model        string
	storage      string
	sqlitePath   string
	postgresDSN  string
	publisher    string
	kafkaBrokers string
	kafkaTopic   string

	env      *env.Env
	client   *backend.Client
	tools    *toolstate.Store
	pool     *worker.Pool
	pollCfg  poller.Config
	recorder io.Writer

	// pendingFiles are processed uploads attached to the next message.
	pendingFiles []string
	logger   *slog.Logger

	in  io.Reader
	out io.Writer
}

var flagKeys = []string{
	config.FlagBaseURL,
	config.FlagProvider,
	config.FlagModel,
	config.FlagStorage,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagPublisher,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const chatLongDesc string = `Start a streaming chat session with the chat backend.

Every assistant turn is streamed as it is generated: reasoning first, then
tool activity (web search, hot topics) and the answer. Completed turns are
recorded in local storage and announced on the configured event publisher.

The conversation id assigned by the backend is remembered in
.turntable/session.json so the next "turntable chat" continues it. Use
--new to start over, or --conversation to attach to a specific one.

Pass a prompt as arguments to send a single message and exit.

In the interactive session:
  /upload <path>...   Upload files into the conversation and wait for processing
  /new                Start a new conversation
  /exit               Quit (Ctrl+D works too)

Examples:
  turntable chat
  turntable chat --model deepseek-r1 "what is new in Go 1.25?"
  turntable chat --file report.pdf "summarize the report"
  turntable chat --record turn.sse "search the web for gophers"`

const chatShortDesc string = "Stream a chat with the backend"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			e, err := env.Load(cmd, flagKeys...)
			if err != nil {
				return err
			}
			cmder.env = e
			cmder.logger = e.Logger
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), strings.TrimSpace(strings.Join(args, " ")))
		},
	}

	fs := config.Flags
	config.AddStringFlag(cmd, fs, config.FlagBaseURL, &cmder.baseURL)
	config.AddStringFlag(cmd, fs, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagStorage, &cmder.storage)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagPublisher, &cmder.publisher)
	config.AddStringFlag(cmd, fs, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, fs, config.FlagKafkaTopic, &cmder.kafkaTopic)

	cmd.Flags().StringVarP(&cmder.conversationID, "conversation", "c", "", "Continue this conversation id")
	cmd.Flags().BoolVarP(&cmder.newSession, "new", "n", false, "Start a new conversation")
	cmd.Flags().StringVar(&cmder.record, "record", "", "Append the raw event stream of every turn to this file")
	cmd.Flags().BoolVar(&cmder.noStore, "no-store", false, "Do not record turns in local storage")
	cmd.Flags().StringSliceVarP(&cmder.files, "file", "f", nil, "Upload files into the conversation before chatting (requires an existing conversation)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	c.client, err = c.env.Backend()
	if err != nil {
		return err
	}
	c.pollCfg, err = c.env.PollerConfig()
	if err != nil {
		return err
	}
	c.tools = toolstate.NewStore()

	if c.record != "" {
		f, err := os.OpenFile(c.record, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening record file: %w", err)
		}
		defer f.Close()
		c.recorder = f
	}

	if !c.noStore {
		closer, err := c.startPool(ctx)
		if err != nil {
			return err
		}
		defer closer()
	}

	if err := c.resolveConversation(); err != nil {
		return err
	}

	if len(c.files) > 0 {
		if err := c.upload(ctx, c.files); err != nil {
			return err
		}
	}

	if prompt != "" {
		_, err := c.turn(ctx, prompt)
		return err
	}

	return c.repl(ctx)
}

// startPool opens storage and the publisher and starts the persistence
// workers. The returned func drains the queue and closes both.
func (c *chatCommander) startPool(ctx context.Context) (func(), error) {
	driver, err := c.env.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	publisher, err := c.env.Publisher()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("creating publisher: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: publisher,
		Source: eventstream.EventSource{
			Backend:  c.client.BaseURL(),
			Provider: c.env.Config.Client.Provider,
			Model:    c.env.Config.Client.Model,
		},
		Logger: c.logger,
	})
	if err != nil {
		publisher.Close()
		driver.Close()
		return nil, err
	}
	c.pool = pool

	return func() {
		pool.Close()
		if d, ok := publisher.(interface{ Dropped() int64 }); ok && d.Dropped() > 0 {
			c.logger.Debug("event stream disabled, turn events dropped", "count", d.Dropped())
		}
		closeAll(c.logger, publisher, driver)
	}, nil
}

func closeAll(l *slog.Logger, closers ...interface{ Close() error }) {
	for _, cl := range closers {
		if err := cl.Close(); err != nil {
			l.Warn("close failed", "error", err)
		}
	}
}

func (c *chatCommander) resolveConversation() error {
	sessions := dotdir.NewManager()

	switch {
	case c.newSession:
		if err := sessions.ClearSession(c.env.Dir); err != nil {
			return err
		}
		c.conversationID = ""
	case c.conversationID != "":
	default:
		state, err := sessions.LoadSession(c.env.Dir)
		if err != nil {
			return err
		}
		if state != nil {
			c.conversationID = state.ConversationID
		}
	}

	if c.conversationID != "" {
		fmt.Fprintf(c.out, "\n  %s Continuing conversation %s\n",
			cliui.SuccessMark, cliui.NameStyle.Render(c.conversationID))
	} else {
		fmt.Fprintf(c.out, "\n  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(c.out, "  %s %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.env.Config.Client.Model),
		cliui.DimStyle.Render("("+c.env.Config.Client.Provider+")"),
	)
	return nil
}

func (c *chatCommander) repl(ctx context.Context) error {
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, cliui.UserPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "/exit":
			fmt.Fprintln(c.out)
			return nil
		case input == "/new":
			if err := dotdir.NewManager().ClearSession(c.env.Dir); err != nil {
				return err
			}
			c.conversationID = ""
			c.pendingFiles = nil
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		case strings.HasPrefix(input, "/upload"):
			paths := strings.Fields(strings.TrimPrefix(input, "/upload"))
			if err := c.upload(ctx, paths); err != nil {
				fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			}
			continue
		}

		if _, err := c.turn(ctx, input); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() == nil {
				fmt.Fprintf(c.out, "\n  %s interrupted\n\n", cliui.DimStyle.Render("●"))
				continue
			}
			fmt.Fprintf(c.out, "\n  %s %v\n\n", cliui.FailMark, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// turn sends one prompt and streams the reply. Ctrl+C cancels only this turn.
func (c *chatCommander) turn(ctx context.Context, prompt string) (*stream.Result, error) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	token := uuid.NewString()
	started := time.Now()

	c.logger.Debug("sending chat message",
		"token", token,
		"conversation_id", c.conversationID,
		"model", c.env.Config.Client.Model,
		"file_ids", c.pendingFiles,
	)

	body, err := c.client.SendStream(turnCtx, backend.ChatRequest{
		Provider:       c.env.Config.Client.Provider,
		Model:          c.env.Config.Client.Model,
		Message:        prompt,
		ConversationID: c.conversationID,
		FileIDs:        c.pendingFiles,
	})
	if err != nil {
		return nil, err
	}
	defer body.Close()

	printer := cliui.NewTurnPrinter(c.out)
	res, err := stream.Consume(turnCtx, body, stream.Options{
		Token:          token,
		ConversationID: c.conversationID,
		OnProgress:     printer.Update,
		Sink:           fanout{c.tools, printer},
		Tee:            c.recorder,
		Logger:         c.logger,
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprint(c.out, "\n\n")

	if res.Malformed > 0 {
		c.logger.Debug("skipped malformed stream records", "token", token, "count", res.Malformed)
	}
	for _, e := range res.Errors {
		c.logger.Warn("turn completed with errors", "token", token, "error", e)
	}

	if res.ConversationID != "" && res.ConversationID != c.conversationID {
		c.conversationID = res.ConversationID
	}
	c.pendingFiles = nil
	c.saveSession(prompt)
	if res.Turn.FunctionResult != nil {
		c.printToolOutput()
	}

	if c.pool != nil {
		queued := c.pool.Enqueue(worker.Job{
			ConversationID: c.conversationID,
			Token:          token,
			Prompt:         prompt,
			Model:          c.env.Config.Client.Model,
			Provider:       c.env.Config.Client.Provider,
			Turn:           res.Turn,
			StartedAt:      started,
			CompletedAt:    time.Now(),
		})
		if !queued {
			c.logger.Warn("turn was not recorded, storage queue is full", "token", token)
		}
	}

	return res, nil
}

func (c *chatCommander) saveSession(prompt string) {
	if c.conversationID == "" {
		return
	}

	m := dotdir.NewManager()
	state, err := m.LoadSession(c.env.Dir)
	if err != nil || state == nil || state.ConversationID != c.conversationID {
		state = &dotdir.SessionState{
			ConversationID: c.conversationID,
			Title:          utils.Truncate(strings.Join(strings.Fields(prompt), " "), 60),
		}
	}
	state.Provider = c.env.Config.Client.Provider
	state.Model = c.env.Config.Client.Model
	state.UpdatedAt = time.Now().UTC()

	if err := m.SaveSession(state, c.env.Dir); err != nil {
		c.logger.Warn("saving session failed", "error", err)
	}
}

func (c *chatCommander) printToolOutput() {
	st, ok := c.tools.Get(c.conversationID)
	if !ok || st.Output == nil {
		return
	}

	md := cliui.ToolOutputMarkdown(st.Output)
	if md == "" {
		return
	}
	rendered, err := cliui.RenderMarkdown(md, cliui.TerminalWidth(c.out, 80))
	if err != nil {
		c.logger.Debug("rendering tool output failed", "error", err)
	}
	fmt.Fprintln(c.out, rendered)
}

// upload ingests paths into the current conversation. Files that finish
// processing are queued for the next message, even when others fail.
func (c *chatCommander) upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.New("usage: /upload <path>...")
	}
	if c.conversationID == "" {
		return errors.New("files can only be uploaded into an existing conversation; send a message first")
	}

	var outcomes []ingest.Outcome
	err := cliui.Step(c.out, fmt.Sprintf("Processing %d file(s)", len(paths)), func() error {
		var err error
		outcomes, err = ingest.Files(ctx, c.client, c.conversationID, paths, ingest.Options{
			Poller: c.pollCfg,
			Logger: c.logger,
		})
		return err
	})
	cliui.PrintOutcomes(c.out, outcomes)
	c.pendingFiles = append(c.pendingFiles, ingest.ProcessedIDs(outcomes)...)
	return err
}

// fanout delivers tool phase events to several sinks in order.
type fanout []stream.ToolPhaseSink

func (f fanout) ApplyToolPhase(ev stream.ToolPhaseEvent) {
	for _, s := range f {
		s.ApplyToolPhase(ev)
	}
}
