// Package turntablecmder
package turntablecmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/papercomputeco/turntable/cmd/turntable/chat"
	configcmder "github.com/papercomputeco/turntable/cmd/turntable/config"
	filescmder "github.com/papercomputeco/turntable/cmd/turntable/files"
	historycmder "github.com/papercomputeco/turntable/cmd/turntable/history"
	versioncmder "github.com/papercomputeco/turntable/cmd/version"
)

const turntableLongDesc string = `Turntable is a streaming terminal client for the chat backend.

It renders assistant turns as they stream (reasoning, tool calls such as
web search and hot topics, and the answer), records finished turns in local
storage, and can publish them to Kafka.

Get started with:
  turntable chat                 Start or continue a conversation
  turntable history list         List conversations
  turntable files upload <path>  Add documents to the current conversation
  turntable config list          Show configuration`

const turntableShortDesc string = "Turntable - streaming chat client"

func NewTurntableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "turntable",
		Short:         turntableShortDesc,
		Long:          turntableLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .turntable/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(filescmder.NewFilesCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
