package shop

import (
	"fmt"

	"github.com/ValentinKolb/dCommerce/cmd/util"
	"github.com/spf13/cobra"
)

func runInventory(_ *cobra.Command, args []string) error {
	storeID := ""
	if len(args) == 2 {
		storeID = args[1]
	}
	quantity, err := service.ProductAvailability(args[0], storeID)
	if err != nil {
		return err
	}
	if storeID == "" {
		storeID = "all"
	}
	fmt.Printf("product=%s, store=%s, available=%g\n", args[0], storeID, quantity)
	return nil
}

func runOrders(_ *cobra.Command, args []string) error {
	orders, err := service.CustomerOrders(args[0])
	if err != nil {
		return err
	}
	return util.PrintJSON(orders)
}
