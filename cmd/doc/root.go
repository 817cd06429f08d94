package doc

import (
	"github.com/ValentinKolb/dCommerce/cmd/util"
	"github.com/ValentinKolb/dCommerce/lib/store"
	"github.com/spf13/cobra"
)

var (
	rpcStore store.IStore

	// DocumentCommands represents the document command group
	DocumentCommands = &cobra.Command{
		Use:               "doc",
		Short:             "Perform document store operations",
		Long:              "Perform document store operations on one shard. Documents are JSON objects given as argument or on stdin ('-').",
		PersistentPreRunE: setupDocClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the doc command
	util.SetupRPCClientFlags(DocumentCommands)

	// Add subcommands
	DocumentCommands.AddCommand(createCmd)
	DocumentCommands.AddCommand(readCmd)
	DocumentCommands.AddCommand(updateCmd)
	DocumentCommands.AddCommand(deleteCmd)
	DocumentCommands.AddCommand(listCmd)
	DocumentCommands.AddCommand(searchCmd)
	DocumentCommands.AddCommand(countCmd)
	DocumentCommands.AddCommand(queryCmd)
	DocumentCommands.AddCommand(infoCmd)
	DocumentCommands.AddCommand(perfTestCmd)
}

// setupDocClient initializes the RPC store client
func setupDocClient(cmd *cobra.Command, _ []string) (err error) {
	rpcStore, err = util.NewStoreClient(cmd)
	return err
}
