package shop

import (
	"github.com/ValentinKolb/dCommerce/cmd/util"
	"github.com/ValentinKolb/dCommerce/lib/commerce"
	"github.com/spf13/cobra"
)

var (
	service *commerce.Service

	// CartCommands represents the cart command group
	CartCommands = &cobra.Command{
		Use:               "cart",
		Short:             "Manage shopping carts",
		PersistentPreRunE: setupService,
	}

	// LoyaltyCommands represents the loyalty command group
	LoyaltyCommands = &cobra.Command{
		Use:               "loyalty",
		Short:             "Manage loyalty cards and points",
		PersistentPreRunE: setupService,
	}

	// InventoryCmd prints the availability of a product
	InventoryCmd = &cobra.Command{
		Use:               "inventory [product] [store]",
		Short:             "Prints the quantity of a product on hand (in one store or all stores)",
		Args:              cobra.RangeArgs(1, 2),
		PersistentPreRunE: setupService,
		RunE:              runInventory,
	}

	// OrdersCmd lists the sales orders of a customer
	OrdersCmd = &cobra.Command{
		Use:               "orders [customer]",
		Short:             "Lists the sales orders of a customer",
		Args:              cobra.ExactArgs(1),
		PersistentPreRunE: setupService,
		RunE:              runOrders,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	for _, cmd := range []*cobra.Command{CartCommands, LoyaltyCommands, InventoryCmd, OrdersCmd} {
		util.SetupRPCClientFlags(cmd)
	}

	// Add subcommands
	CartCommands.AddCommand(cartCreateCmd)
	CartCommands.AddCommand(cartGetCmd)
	CartCommands.AddCommand(cartAddCmd)
	CartCommands.AddCommand(cartUpdateCmd)
	CartCommands.AddCommand(cartRemoveCmd)
	CartCommands.AddCommand(cartDiscountCmd)
	CartCommands.AddCommand(cartCheckoutCmd)

	LoyaltyCommands.AddCommand(loyaltyIssueCmd)
	LoyaltyCommands.AddCommand(loyaltyEarnCmd)
	LoyaltyCommands.AddCommand(loyaltyRedeemCmd)
	LoyaltyCommands.AddCommand(loyaltyTransferCmd)
	LoyaltyCommands.AddCommand(loyaltyBalanceCmd)
}

// setupService connects to the configured shard and creates the commerce service on top of it
func setupService(cmd *cobra.Command, _ []string) error {
	s, err := util.NewStoreClient(cmd)
	if err != nil {
		return err
	}
	service = commerce.NewService(s)
	return nil
}
