package shop

import (
	"fmt"
	"strconv"

	"github.com/ValentinKolb/dCommerce/cmd/util"
	"github.com/spf13/cobra"
)

var (
	loyaltyIssueCmd = &cobra.Command{
		Use:   "issue [customer]",
		Short: "Issues a new loyalty card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, _ := cmd.Flags().GetString("tier")
			points, _ := cmd.Flags().GetFloat64("points")
			card, err := service.IssueCard(args[0], tier, points)
			if err != nil {
				return err
			}
			return util.PrintJSON(card)
		},
	}
	loyaltyEarnCmd = &cobra.Command{
		Use:   "earn [card] [points]",
		Short: "Credits points to a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[1])
			if err != nil {
				return err
			}
			reason, _ := cmd.Flags().GetString("reason")
			orderID, _ := cmd.Flags().GetString("order")
			card, err := service.EarnPoints(args[0], points, reason, orderID)
			if err != nil {
				return err
			}
			return util.PrintJSON(card)
		},
	}
	loyaltyRedeemCmd = &cobra.Command{
		Use:   "redeem [card] [points]",
		Short: "Redeems points of a card",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[1])
			if err != nil {
				return err
			}
			redemption, err := service.RedeemPoints(args[0], points)
			if err != nil {
				return err
			}
			return util.PrintJSON(redemption)
		},
	}
	loyaltyTransferCmd = &cobra.Command{
		Use:   "transfer [from] [to] [points]",
		Short: "Moves points from one card to another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[2])
			if err != nil {
				return err
			}
			from, to, err := service.TransferPoints(args[0], args[1], points)
			if err != nil {
				return err
			}
			return util.PrintJSON(map[string]any{"from": from, "to": to})
		},
	}
	loyaltyBalanceCmd = &cobra.Command{
		Use:   "balance [card]",
		Short: "Prints the points balance of a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := service.Balance(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("card=%s, balance=%g\n", args[0], balance)
			return nil
		},
	}
)

func init() {
	key := "tier"
	loyaltyIssueCmd.Flags().String(key, "", util.WrapString("Tier of the card (default Bronze)"))
	key = "points"
	loyaltyIssueCmd.Flags().Float64(key, 0, util.WrapString("Points the card starts with"))
	key = "reason"
	loyaltyEarnCmd.Flags().String(key, "", util.WrapString("Reason recorded in the ledger entry"))
	key = "order"
	loyaltyEarnCmd.Flags().String(key, "", util.WrapString("Sales order the points were earned with"))
}

func parsePoints(arg string) (float64, error) {
	points, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("points must be a number: %w", err)
	}
	return points, nil
}
