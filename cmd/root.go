package cmd

import (
	"fmt"
	"os"

	"github.com/UndeffinedDev/Indexa/cmd/store"
	"github.com/UndeffinedDev/Indexa/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "indexa",
		Short: "typed embedded object store",
		Long: fmt.Sprintf(`Indexa (v%s)

A typed, reactive access layer over an embedded transactional
object store: schema-declared stores, secondary indexes, cursors
and push-based change subscriptions.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Indexa",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Indexa v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(store.StoreCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob) - stores with a key path or indexes require json"))
	key = "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level (debug, info, warn, error)"))
	key = "debug"
	RootCmd.PersistentFlags().Bool(key, false, util.WrapString("emit lifecycle trace events"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
