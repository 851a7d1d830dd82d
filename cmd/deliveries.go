package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"courier/internal/invoice"
	"courier/pkg/models"
)

// completionFile is the JSON document describing a completed delivery and the
// payments collected for its routes.
type completionFile struct {
	Delivery        models.DeliveryRequest `json:"delivery"`
	Reconciliations models.Reconciliations `json:"reconciliations,omitempty"`
}

var deliveriesCmd = &cobra.Command{
	Use:   "deliveries",
	Short: "Bill completed deliveries",
}

var deliveriesCompleteCmd = &cobra.Command{
	Use:   "complete",
	Short: "Add a completed delivery to its client's open invoice",
	Long: `Reconcile a completed delivery and add its routes to the client's open
invoice, opening a new invoice when the client has none.

The file holds the delivery and, optionally, the payments collected for each
route keyed by route id:

  {
    "delivery": {"id": "d1", "clientId": "c1", "code": "D-001",
                 "completedAt": "2024-05-10T15:04:05-03:00",
                 "routes": [{"id": "r1", "baseFee": "20.00", "valorExtra": "50.00"}]},
    "reconciliations": {
      "r1": {"fee": [{"amount": "20.00", "paymentMethodId": "pix"}],
             "passThrough": [{"amount": "50.00", "paymentMethodId": "cash"}]}
    }
  }

Routes without a reconciliation are invoiced in full. Adding the same delivery
twice does not bill it twice.`,
	Example: `  courier deliveries complete --file delivery.json`,
	RunE:    runDeliveriesComplete,
}

func init() {
	rootCmd.AddCommand(deliveriesCmd)
	deliveriesCmd.AddCommand(deliveriesCompleteCmd)

	deliveriesCompleteCmd.Flags().StringP("file", "f", "", "Delivery completion JSON file")
	_ = deliveriesCompleteCmd.MarkFlagRequired("file")
}

func runDeliveriesComplete(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")

	var in completionFile
	if err := readJSONFile(path, &in); err != nil {
		return err
	}
	if !in.Delivery.IsCompleted() {
		return fmt.Errorf("delivery %s has no completedAt timestamp", in.Delivery.ID)
	}

	return runWithApp(cmd, func(ctx context.Context, a *app) error {
		inv, err := a.service.CompleteDelivery(ctx, invoice.DeliveryCompletion{
			Delivery:        in.Delivery,
			Client:          a.clientFor(in.Delivery.ClientID),
			Reconciliations: in.Reconciliations,
			Rules:           a.settings.Rules(),
		})
		if err != nil {
			if a.printValidation(err) {
				return errors.New("delivery was not invoiced")
			}
			return err
		}
		return a.printInvoice(inv)
	})
}
