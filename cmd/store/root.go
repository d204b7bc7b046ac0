package store

import (
	"github.com/UndeffinedDev/Indexa/cmd/util"
	"github.com/UndeffinedDev/Indexa/lib/indexa"
	"github.com/spf13/cobra"
)

var (
	db *indexa.Database

	// StoreCommands represents the store command group
	StoreCommands = &cobra.Command{
		Use:                "store",
		Short:              "Operate on the stores of a local database",
		PersistentPreRunE:  setupDatabase,
		PersistentPostRunE: teardownDatabase,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common database flags to the store command
	util.SetupDatabaseFlags(StoreCommands)

	// Add subcommands
	StoreCommands.AddCommand(addCmd)
	StoreCommands.AddCommand(getCmd)
	StoreCommands.AddCommand(allCmd)
	StoreCommands.AddCommand(updateCmd)
	StoreCommands.AddCommand(delCmd)
	StoreCommands.AddCommand(clearCmd)
	StoreCommands.AddCommand(countCmd)
	StoreCommands.AddCommand(existsCmd)
	StoreCommands.AddCommand(indexCmd)
	StoreCommands.AddCommand(watchCmd)
	StoreCommands.AddCommand(dropCmd)
}

// setupDatabase opens the configured database for the invoked subcommand
func setupDatabase(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	db, err = util.OpenDatabase()
	return err
}

// teardownDatabase releases the connection again
func teardownDatabase(_ *cobra.Command, _ []string) error {
	if db == nil {
		return nil
	}
	return db.Close()
}
