// Package filescmder provides the files command for uploading documents into
// a conversation and managing the files already attached to it.
package filescmder

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/cmd/turntable/env"
	"github.com/papercomputeco/turntable/pkg/config"
	"github.com/papercomputeco/turntable/pkg/dotdir"
)

type filesCommander struct {
	conversationID string

	baseURL    string
	maxRetries uint

	env    *env.Env
	logger *slog.Logger
	out    io.Writer
}

var flagKeys = []string{
	config.FlagBaseURL,
	config.FlagMaxRetries,
}

const filesLongDesc string = `Manage the files attached to a conversation.

Files are uploaded into an existing conversation, where the backend parses
and indexes them so the assistant can answer questions about them. The
conversation defaults to the one of the current session.

Examples:
  turntable files upload report.pdf notes.md
  turntable files list
  turntable files delete 3b0d2c44`

const filesShortDesc string = "Upload and manage conversation files"

func NewFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: filesShortDesc,
		Long:  filesLongDesc,
	}

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDeleteCmd())

	return cmd
}

func (c *filesCommander) addFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagBaseURL, &c.baseURL)
	cmd.Flags().StringVarP(&c.conversationID, "conversation", "c", "", "Conversation id (defaults to the current session)")
}

func (c *filesCommander) preRun(cmd *cobra.Command, _ []string) error {
	e, err := env.Load(cmd, flagKeys...)
	if err != nil {
		return err
	}
	c.env = e
	c.logger = e.Logger
	c.out = cmd.OutOrStdout()
	return nil
}

// resolveConversation fills conversationID from the session when unset.
func (c *filesCommander) resolveConversation() error {
	if c.conversationID != "" {
		return nil
	}

	state, err := dotdir.NewManager().LoadSession(c.env.Dir)
	if err != nil {
		return err
	}
	if state == nil {
		return errors.New("no active session; pass --conversation or start one with \"turntable chat\"")
	}
	c.conversationID = state.ConversationID
	return nil
}
