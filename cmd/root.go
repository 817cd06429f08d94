package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dCommerce/cmd/doc"
	"github.com/ValentinKolb/dCommerce/cmd/serve"
	"github.com/ValentinKolb/dCommerce/cmd/shop"
	"github.com/ValentinKolb/dCommerce/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dcommerce",
		Short: "in-memory commerce document store",
		Long: fmt.Sprintf(`dCommerce (v%s)

A document store for commerce data (products, carts, orders, loyalty cards)
with paged queries and atomic cart and ledger aggregation, served over
http, tcp or unix sockets and optionally replicated with RAFT.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dCommerce",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dCommerce v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(doc.DocumentCommands)
	RootCmd.AddCommand(shop.CartCommands)
	RootCmd.AddCommand(shop.LoyaltyCommands)
	RootCmd.AddCommand(shop.InventoryCmd)
	RootCmd.AddCommand(shop.OrdersCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
