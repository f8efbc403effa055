package filescmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/pkg/cliui"
	"github.com/papercomputeco/turntable/pkg/config"
	"github.com/papercomputeco/turntable/pkg/ingest"
	"github.com/papercomputeco/turntable/pkg/poller"
)

const uploadLongDesc string = `Upload files and wait until the backend has processed them.

Each file is polled with exponential backoff until it is processed, fails,
or runs out of retries (--max-retries). The command fails when any file
did not finish processing.

Examples:
  turntable files upload report.pdf
  turntable files upload --conversation 6f1c9a2e a.md b.md`

const uploadShortDesc string = "Upload files into a conversation"

func newUploadCmd() *cobra.Command {
	cmder := &filesCommander{}

	cmd := &cobra.Command{
		Use:     "upload <path>...",
		Short:   uploadShortDesc,
		Long:    uploadLongDesc,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: cmder.preRun,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runUpload(cmd.Context(), args)
		},
	}
	cmder.addFlags(cmd)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxRetries, &cmder.maxRetries)

	return cmd
}

func (c *filesCommander) runUpload(ctx context.Context, paths []string) error {
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
	pollCfg, err := c.env.PollerConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Conversation:"), cliui.NameStyle.Render(c.conversationID))

	var outcomes []ingest.Outcome
	err = cliui.Step(c.out, fmt.Sprintf("Processing %d file(s)", len(paths)), func() error {
		var err error
		outcomes, err = ingest.Files(ctx, client, c.conversationID, paths, ingest.Options{
			Poller: pollCfg,
			OnStatus: func(u poller.StatusUpdate) {
				c.logger.Debug("file status", "file_id", u.ResourceID, "status", u.Status, "synthetic", u.Synthetic)
			},
			Logger: c.logger,
		})
		return err
	})
	cliui.PrintOutcomes(c.out, outcomes)
	if err != nil {
		return err
	}

	if done := len(ingest.ProcessedIDs(outcomes)); done < len(outcomes) {
		return fmt.Errorf("%d of %d files did not finish processing", len(outcomes)-done, len(outcomes))
	}
	return nil
}
