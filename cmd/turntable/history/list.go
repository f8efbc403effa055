package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/pkg/chat"
	"github.com/papercomputeco/turntable/pkg/cliui"
	"github.com/papercomputeco/turntable/pkg/storage"
	"github.com/papercomputeco/turntable/pkg/utils"
)

const listLongDesc string = `List conversations, most recently updated first.

The conversation of the current session is marked with ●.

Examples:
  turntable history list
  turntable history list --local`

const listShortDesc string = "List conversations"

func newListCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:     "list",
		Short:   listShortDesc,
		Long:    listLongDesc,
		Args:    cobra.NoArgs,
		PreRunE: cmder.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runList(cmd.Context())
		},
	}
	cmder.addFlags(cmd)

	return cmd
}

func (c *historyCommander) runList(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		list []chat.ConversationSummary
		err  error
	)
	if c.local {
		err = c.withStorage(ctx, func(d storage.Driver) error {
			list, err = d.Conversations(ctx)
			return err
		})
	} else {
		client, cerr := c.env.Backend()
		if cerr != nil {
			return cerr
		}
		list, err = client.Conversations(ctx)
	}
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	if len(list) == 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("No conversations yet."))
		return nil
	}

	current := c.sessionID()
	maxID := 0
	for _, s := range list {
		maxID = max(maxID, len(s.ID))
	}

	fmt.Fprintln(c.out)
	for _, s := range list {
		marker := " "
		if s.ID == current {
			marker = cliui.NameStyle.Render("●")
		}
		title := s.Title
		if title == "" {
			title = "untitled"
		}
		fmt.Fprintf(c.out, "  %s %-*s  %s  %s\n",
			marker,
			maxID, s.ID,
			cliui.DimStyle.Render(summaryTime(s.UpdatedAt)),
			utils.Truncate(title, 60),
		)
	}
	fmt.Fprintln(c.out)
	return nil
}
