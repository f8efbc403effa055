// Package historycmder provides the history command for browsing and
// deleting conversations, either on the chat backend or in local storage.
package historycmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/cmd/turntable/env"
	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/cliui"
	"github.com/papercomputeco/turntable/pkg/config"
	"github.com/papercomputeco/turntable/pkg/dotdir"
	"github.com/papercomputeco/turntable/pkg/reconcile"
	"github.com/papercomputeco/turntable/pkg/storage"
	"github.com/papercomputeco/turntable/pkg/utils"
)

type historyCommander struct {
	local   bool
	jsonOut bool

	baseURL     string
	storage     string
	sqlitePath  string
	postgresDSN string

	env    *env.Env
	logger *slog.Logger
	out    io.Writer
}

var flagKeys = []string{
	config.FlagBaseURL,
	config.FlagStorage,
	config.FlagSQLite,
	config.FlagPostgresDSN,
}

const historyLongDesc string = `Show a conversation.

Fetches the conversation from the chat backend and rebuilds it from its
stored rows: reasoning is folded into the assistant message it belongs to,
and the latest tool output is shown after the messages. With --local the
rows recorded by "turntable chat" in local storage are used instead.

Without an id the conversation of the current session is shown.

Examples:
  turntable history
  turntable history 6f1c9a2e
  turntable history --local --json 6f1c9a2e
  turntable history list
  turntable history delete 6f1c9a2e`

const historyShortDesc string = "Show, list and delete conversations"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:     "history [conversation-id]",
		Short:   historyShortDesc,
		Long:    historyLongDesc,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: cmder.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return cmder.runShow(cmd.Context(), id)
		},
	}
	cmder.addFlags(cmd)
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the reconciled conversation as JSON")

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func (c *historyCommander) addFlags(cmd *cobra.Command) {
	fs := config.Flags
	config.AddStringFlag(cmd, fs, config.FlagBaseURL, &c.baseURL)
	config.AddStringFlag(cmd, fs, config.FlagStorage, &c.storage)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &c.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &c.postgresDSN)
	cmd.Flags().BoolVar(&c.local, "local", false, "Use local storage instead of the chat backend")
}

func (c *historyCommander) preRun(cmd *cobra.Command, _ []string) error {
	e, err := env.Load(cmd, flagKeys...)
	if err != nil {
		return err
	}
	c.env = e
	c.logger = e.Logger
	c.out = cmd.OutOrStdout()
	return nil
}

// sessionID returns the conversation id of the saved session, or "".
func (c *historyCommander) sessionID() string {
	state, err := dotdir.NewManager().LoadSession(c.env.Dir)
	if err != nil {
		c.logger.Debug("reading session failed", "error", err)
		return ""
	}
	if state == nil {
		return ""
	}
	return state.ConversationID
}

// withStorage opens local storage for the duration of fn.
func (c *historyCommander) withStorage(ctx context.Context, fn func(storage.Driver) error) error {
	driver, err := c.env.Storage(ctx)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := driver.Close(); err != nil {
			c.logger.Warn("closing storage failed", "error", err)
		}
	}()
	return fn(driver)
}

func (c *historyCommander) runShow(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if id == "" {
		id = c.sessionID()
	}
	if id == "" {
		return errors.New("no conversation id given and no active session; run \"turntable history list\" to find one")
	}

	conv, err := c.fetch(ctx, id)
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(conv)
	}
	return c.render(conv)
}

func (c *historyCommander) fetch(ctx context.Context, id string) (*chat.Conversation, error) {
	if !c.local {
		client, err := c.env.Backend()
		if err != nil {
			return nil, err
		}
		sc, err := client.Conversation(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("fetching conversation: %w", err)
		}
		return reconcile.Conversation(sc), nil
	}

	var conv *chat.Conversation
	err := c.withStorage(ctx, func(d storage.Driver) error {
		rows, err := d.Rows(ctx, id)
		if err != nil {
			return err
		}
		res := reconcile.Rows(rows)
		conv = &chat.Conversation{
			ID:         id,
			Title:      storage.Title(rows),
			Messages:   res.Messages,
			ToolOutput: res.ToolOutput,
		}
		if n := len(res.Messages); n > 0 {
			conv.CreatedAt = res.Messages[0].Timestamp
			conv.UpdatedAt = res.Messages[n-1].Timestamp
		}
		return nil
	})
	return conv, err
}

func (c *historyCommander) render(conv *chat.Conversation) error {
	title := conv.Title
	if title == "" {
		title = "Untitled conversation"
	}
	fmt.Fprintf(c.out, "\n  %s %s\n", cliui.NameStyle.Render(title), cliui.DimStyle.Render(conv.ID))
	if conv.Model != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Model:"), cliui.ValueStyle.Render(conv.Model))
	}
	if conv.UpdatedAt > 0 {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.KeyStyle.Render("Updated:"), cliui.ValueStyle.Render(formatMillis(conv.UpdatedAt)))
	}
	fmt.Fprintln(c.out)

	if len(conv.Messages) == 0 {
		fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("No messages."))
		return nil
	}

	width := cliui.TerminalWidth(c.out, 80)
	for _, m := range conv.Messages {
		c.printMarkdown(cliui.MessageMarkdown(m), width)
	}
	if md := cliui.ToolOutputMarkdown(conv.ToolOutput); md != "" {
		c.printMarkdown(md, width)
	}
	return nil
}

func (c *historyCommander) printMarkdown(md string, width int) {
	rendered, err := cliui.RenderMarkdown(md, width)
	if err != nil {
		c.logger.Debug("rendering markdown failed", "error", err)
	}
	fmt.Fprint(c.out, rendered)
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

// summaryTime converts a list entry timestamp for display.
func summaryTime(v any) string {
	return formatMillis(utils.ParseTimestamp(v))
}
