package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/pkg/cliui"
	"github.com/papercomputeco/turntable/pkg/dotdir"
	"github.com/papercomputeco/turntable/pkg/storage"
)

const deleteLongDesc string = `Delete a conversation.

Deleting the conversation of the current session also ends the session,
so the next "turntable chat" starts a new conversation.

Examples:
  turntable history delete 6f1c9a2e
  turntable history delete --local 6f1c9a2e`

const deleteShortDesc string = "Delete a conversation"

func newDeleteCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:     "delete <conversation-id>",
		Aliases: []string{"rm"},
		Short:   deleteShortDesc,
		Long:    deleteLongDesc,
		Args:    cobra.ExactArgs(1),
		PreRunE: cmder.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runDelete(cmd.Context(), args[0])
		},
	}
	cmder.addFlags(cmd)

	return cmd
}

func (c *historyCommander) runDelete(ctx context.Context, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var err error
	if c.local {
		err = c.withStorage(ctx, func(d storage.Driver) error {
			return d.DeleteConversation(ctx, id)
		})
	} else {
		client, cerr := c.env.Backend()
		if cerr != nil {
			return cerr
		}
		err = client.DeleteConversation(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}

	if c.sessionID() == id {
		if err := dotdir.NewManager().ClearSession(c.env.Dir); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.out, "\n  %s Deleted conversation %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(id))
	return nil
}
