package filescmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/pkg/cliui"
	"github.com/papercomputeco/turntable/pkg/config"
)

const deleteShortDesc string = "Delete uploaded files"

func newDeleteCmd() *cobra.Command {
	cmder := &filesCommander{}

	cmd := &cobra.Command{
		Use:     "delete <file-id>...",
		Aliases: []string{"rm"},
		Short:   deleteShortDesc,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: cmder.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runDelete(cmd.Context(), args)
		},
	}
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &cmder.baseURL)

	return cmd
}

func (c *filesCommander) runDelete(ctx context.Context, ids []string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := c.env.Backend()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	var failed int
	for _, id := range ids {
		err := client.DeleteFile(ctx, id)
		fmt.Fprintf(c.out, "  %s %s\n", cliui.Mark(err), id)
		if err != nil {
			c.logger.Warn("deleting file failed", "file_id", id, "error", err)
			failed++
		}
	}
	fmt.Fprintln(c.out)

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be deleted", failed, len(ids))
	}
	return nil
}
