// Package common holds helpers shared by the CLI subcommands.
package common

import (
	"github.com/spf13/cobra"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/bootstrap"
)

// Version is set by the root command from the build-time stamp so every
// process reports the same build.
var Version string

// OptionsFromFlags builds process options from the root command's
// persistent flags.
func OptionsFromFlags(cmd *cobra.Command) bootstrap.Options {
	configFile, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")
	return bootstrap.Options{
		ConfigFile: configFile,
		Debug:      debug,
		Version:    Version,
	}
}
