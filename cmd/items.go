package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"courier/internal/invoice"
	"courier/pkg/models"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Edit invoice line items by hand",
	Long: `Add, update or delete line items of an invoice that is not finalized.

Line item files hold the operator-entered values:

  {"date": "2024-05-10T00:00:00-03:00", "description": "Extra trip",
   "feeAmount": "15.00", "passThroughAmount": "0",
   "extraFees": [{"name": "Rain", "value": "5.00"}]}

Manual items are billed at their full amounts.`,
}

var itemsAddCmd = &cobra.Command{
	Use:   "add <invoice-id>",
	Short: "Add a line item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := manualItemFromFlags(cmd)
		if err != nil {
			return err
		}
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			inv, err := a.service.AddManualLineItem(ctx, args[0], in)
			return a.itemResult(inv, err)
		})
	},
}

var itemsUpdateCmd = &cobra.Command{
	Use:   "update <invoice-id> <item-id>",
	Short: "Replace a line item's values",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := manualItemFromFlags(cmd)
		if err != nil {
			return err
		}
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			inv, err := a.service.UpdateManualLineItem(ctx, args[0], args[1], in)
			return a.itemResult(inv, err)
		})
	},
}

var itemsDeleteCmd = &cobra.Command{
	Use:   "delete <invoice-id> <item-id>",
	Short: "Delete a line item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			inv, err := a.service.DeleteManualLineItem(ctx, args[0], args[1])
			return a.itemResult(inv, err)
		})
	},
}

func manualItemFromFlags(cmd *cobra.Command) (invoice.ManualLineItem, error) {
	path, _ := cmd.Flags().GetString("file")
	var in invoice.ManualLineItem
	err := readJSONFile(path, &in)
	return in, err
}

func (a *app) itemResult(inv *models.Invoice, err error) error {
	if err != nil {
		if a.printValidation(err) {
			return errors.New("line item was not saved")
		}
		return err
	}
	return a.printInvoice(inv)
}

func init() {
	rootCmd.AddCommand(itemsCmd)
	itemsCmd.AddCommand(itemsAddCmd, itemsUpdateCmd, itemsDeleteCmd)

	for _, c := range []*cobra.Command{itemsAddCmd, itemsUpdateCmd} {
		c.Flags().StringP("file", "f", "", "Line item JSON file")
		_ = c.MarkFlagRequired("file")
	}
}
