package filescmder

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/pkg/cliui"
)

const listShortDesc string = "List the files attached to a conversation"

func newListCmd() *cobra.Command {
	cmder := &filesCommander{}

	cmd := &cobra.Command{
		Use:     "list",
		Short:   listShortDesc,
		Args:    cobra.NoArgs,
		PreRunE: cmder.preRun,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runList(cmd.Context())
		},
	}
	cmder.addFlags(cmd)

	return cmd
}

func (c *filesCommander) runList(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := c.resolveConversation(); err != nil {
		return err
	}

	client, err := c.env.Backend()
	if err != nil {
		return err
	}
	files, err := client.ConversationFiles(ctx, c.conversationID)
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	if len(files) == 0 {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("No files in this conversation."))
		return nil
	}

	fmt.Fprintln(c.out)
	for _, f := range files {
		fmt.Fprintf(c.out, "  %s  %s  %s  %s\n",
			cliui.DimStyle.Render(f.ID),
			cliui.NameStyle.Render(f.Filename),
			cliui.ValueStyle.Render(humanize.Bytes(uint64(max(f.Size, 0)))),
			cliui.DimStyle.Render(f.MimeType),
		)
	}
	fmt.Fprintln(c.out)
	return nil
}
