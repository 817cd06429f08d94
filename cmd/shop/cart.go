package shop

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dCommerce/cmd/util"
	"github.com/ValentinKolb/dCommerce/lib/commerce"
	"github.com/spf13/cobra"
)

var (
	cartCreateCmd = &cobra.Command{
		Use:   "create [customer]",
		Short: "Creates an empty active cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, _ := cmd.Flags().GetString("store")
			currency, _ := cmd.Flags().GetString("currency")
			cart, err := service.CreateCart(args[0], storeID, currency)
			if err != nil {
				return err
			}
			return util.PrintJSON(cart)
		},
	}
	cartGetCmd = &cobra.Command{
		Use:   "get [cart]",
		Short: "Prints a cart with product details on every line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := service.GetCart(args[0])
			if err != nil {
				return err
			}
			return util.PrintJSON(cart)
		},
	}
	cartAddCmd = &cobra.Command{
		Use:   "add [cart] [product[:quantity]]...",
		Short: "Adds products to a cart at their current price",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := make([]commerce.LineInput, 0, len(args)-1)
			for _, arg := range args[1:] {
				productID, quantity, err := ParseItem(arg, 1)
				if err != nil {
					return err
				}
				inputs = append(inputs, commerce.LineInput{ProductID: productID, Quantity: quantity})
			}
			cart, added, err := service.AddCartLines(args[0], inputs)
			if err != nil {
				return err
			}
			fmt.Printf("added %d of %d lines\n", added, len(inputs))
			return util.PrintJSON(cart)
		},
	}
	cartUpdateCmd = &cobra.Command{
		Use:   "update [cart] [line:quantity]...",
		Short: "Sets the quantity of cart lines (0 removes the line)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates := make([]commerce.LineUpdate, 0, len(args)-1)
			for _, arg := range args[1:] {
				lineID, quantity, err := ParseItem(arg, -1)
				if err != nil {
					return err
				}
				if quantity < 0 {
					return fmt.Errorf("missing quantity in %q (expected line:quantity)", arg)
				}
				updates = append(updates, commerce.LineUpdate{LineID: lineID, Quantity: quantity})
			}
			cart, updated, err := service.UpdateCartLines(args[0], updates)
			if err != nil {
				return err
			}
			fmt.Printf("updated %d lines\n", updated)
			return util.PrintJSON(cart)
		},
	}
	cartRemoveCmd = &cobra.Command{
		Use:   "remove [cart] [line]...",
		Short: "Removes lines from a cart",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, removed, err := service.RemoveCartLines(args[0], args[1:])
			if err != nil {
				return err
			}
			fmt.Printf("removed %d lines\n", removed)
			return util.PrintJSON(cart)
		},
	}
	cartDiscountCmd = &cobra.Command{
		Use:   "discount [cart] [code]",
		Short: "Applies a discount code to a cart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, applied, err := service.ApplyDiscountCode(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("applied %s: %.2f (%s)\n", applied.Code, applied.Amount, applied.Type)
			return util.PrintJSON(cart)
		},
	}
	cartCheckoutCmd = &cobra.Command{
		Use:   "checkout [cart]",
		Short: "Turns a cart into a confirmed sales order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			receipt, err := service.Checkout(args[0], email)
			if err != nil {
				return err
			}
			return util.PrintJSON(receipt)
		},
	}
)

func init() {
	key := "store"
	cartCreateCmd.Flags().String(key, "", util.WrapString("Store of the cart (default STORE001)"))
	key = "currency"
	cartCreateCmd.Flags().String(key, "", util.WrapString("Currency of the cart (default USD)"))
	key = "email"
	cartCheckoutCmd.Flags().String(key, "", util.WrapString("Address the receipt is sent to"))
}

// ParseItem splits "id:quantity". Without a quantity def is returned.
func ParseItem(arg string, def float64) (string, float64, error) {
	id, q, ok := strings.Cut(arg, ":")
	if id == "" {
		return "", 0, fmt.Errorf("invalid item %q (expected id[:quantity])", arg)
	}
	if !ok {
		return id, def, nil
	}
	quantity, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid quantity in %q: %w", arg, err)
	}
	return id, quantity, nil
}
