// Package configcmder provides the config command for managing persistent
// turntable configuration stored in the .turntable/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/turntable/pkg/cliui"
	"github.com/papercomputeco/turntable/pkg/config"
)

const configLongDesc string = `Manage persistent turntable configuration.

Configuration is stored as config.toml in the .turntable/ directory and
provides default values for command flags. CLI flags and TURNTABLE_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.base_url, client.provider, client.model, client.timeout,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  poller.initial_interval, poller.max_interval, poller.factor, poller.max_retries,
  eventstream.publisher, eventstream.kafka_brokers, eventstream.kafka_topic,
  log.debug, log.json, log.file, log.max_size_mb, log.max_backups

Use subcommands to get, set, or list configuration values:
  turntable config set <key> <value>    Set a configuration value
  turntable config get <key>            Get a configuration value
  turntable config list                 List all configuration values

Examples:
  turntable config set client.model deepseek-r1
  turntable config set storage.driver postgres
  turntable config get client.base_url
  turntable config list`

const configShortDesc string = "Manage persistent turntable configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKeyError(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
