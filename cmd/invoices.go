package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"courier/internal/invoice"
	"courier/pkg/models"
)

var invoicesCmd = &cobra.Command{
	Use:     "invoices",
	Aliases: []string{"invoice"},
	Short:   "List, settle and maintain invoices",
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
	Example: `  courier invoices list
  courier invoices list --client c1 --status overdue -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		clientID, _ := cmd.Flags().GetString("client")
		status, _ := cmd.Flags().GetString("status")

		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			var invoices []models.Invoice
			if clientID != "" {
				invoices = a.service.ListByClient(clientID)
			} else {
				invoices = a.service.List()
			}
			if status != "" {
				filtered := invoices[:0]
				for _, inv := range invoices {
					if string(inv.OverallStatus) == status {
						filtered = append(filtered, inv)
					}
				}
				invoices = filtered
			}
			sort.SliceStable(invoices, func(i, j int) bool {
				return invoices[i].Number < invoices[j].Number
			})
			return a.printInvoices(invoices)
		})
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show <invoice-id>",
	Short: "Show an invoice with its line items and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			inv, err := a.service.Get(args[0])
			if err != nil {
				return err
			}
			return a.printInvoice(&inv)
		})
	},
}

var invoicesOpenCmd = &cobra.Command{
	Use:   "open <client-id>",
	Short: "Show the client's invoice that is accepting deliveries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			inv, ok := a.service.OpenInvoiceFor(args[0])
			if !ok {
				fmt.Fprintf(a.out, "Client %s has no open invoice.\n", args[0])
				return nil
			}
			return a.printInvoice(&inv)
		})
	},
}

var invoicesPayFeeCmd = &cobra.Command{
	Use:     "pay-fee <invoice-id>",
	Short:   "Register the client's payment of the invoice fees",
	Example: `  courier invoices pay-fee 3f6c... --amount "1.234,56" --method pix --date 2024-06-05`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details, err := paymentDetailsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			inv, err := a.service.RegisterFeePayment(ctx, args[0], details)
			if err != nil {
				return err
			}
			return a.printInvoice(inv)
		})
	},
}

var invoicesSettleCmd = &cobra.Command{
	Use:   "settle <invoice-id>",
	Short: "Register the repasse of collected pass-through money to the client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details, err := paymentDetailsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			inv, err := a.service.RegisterPassThroughSettlement(ctx, args[0], details)
			if err != nil {
				return err
			}
			return a.printInvoice(inv)
		})
	},
}

var invoicesCloseCmd = &cobra.Command{
	Use:   "close <invoice-id>",
	Short: "Stop an open invoice from accepting new deliveries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			inv, err := a.service.CloseInvoice(ctx, args[0])
			if err != nil {
				return err
			}
			return a.printInvoice(inv)
		})
	},
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete <invoice-id>",
	Short: "Delete an invoice",
	Long: `Delete an invoice permanently. Finalized invoices can be deleted too;
this is logged as a warning.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.service.DeleteInvoice(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Invoice %s deleted.\n", args[0])
			return nil
		})
	},
}

// manualDeliveriesFile lists the candidate deliveries of a manual invoice.
type manualDeliveriesFile struct {
	Deliveries      []models.DeliveryRequest `json:"deliveries"`
	Reconciliations models.Reconciliations   `json:"reconciliations,omitempty"`
}

var invoicesCreateManualCmd = &cobra.Command{
	Use:   "create-manual",
	Short: "Create an invoice for a client's deliveries in a date range",
	Long: `Create a new invoice from the client's completed deliveries between --from
and --to, inclusive. Deliveries of other clients, deliveries outside the range
and routes already on an invoice are skipped. The new invoice is separate from
the client's open invoice.`,
	Example: `  courier invoices create-manual --client c1 --from 2024-05-01 --to 2024-05-31 \
    --due 2024-06-10 --deliveries may.json`,
	Args: cobra.NoArgs,
	RunE: runInvoicesCreateManual,
}

func runInvoicesCreateManual(cmd *cobra.Command, args []string) error {
	clientID, _ := cmd.Flags().GetString("client")
	path, _ := cmd.Flags().GetString("deliveries")
	notes, _ := cmd.Flags().GetString("notes")

	from, err := dateFlag(cmd, "from")
	if err != nil {
		return err
	}
	to, err := dateFlag(cmd, "to")
	if err != nil {
		return err
	}
	due, err := dateFlag(cmd, "due")
	if err != nil {
		return err
	}

	var in manualDeliveriesFile
	if err := readJSONFile(path, &in); err != nil {
		return err
	}

	return runWithApp(cmd, func(ctx context.Context, a *app) error {
		client := models.Client{ID: clientID, Name: clientID}
		if c := a.clientFor(clientID); c != nil {
			client = *c
		}

		inv, err := a.service.CreateManualInvoice(ctx, invoice.ManualInvoiceRequest{
			Client:          client,
			PeriodStart:     from,
			PeriodEnd:       to,
			DueDate:         due,
			Deliveries:      in.Deliveries,
			Reconciliations: in.Reconciliations,
			Notes:           notes,
			Rules:           a.settings.Rules(),
		})
		if err != nil {
			if a.printValidation(err) {
				return errors.New("invoice was not created")
			}
			return err
		}
		return a.printInvoice(inv)
	})
}

func paymentDetailsFromFlags(cmd *cobra.Command) (invoice.PaymentDetails, error) {
	amount, _ := cmd.Flags().GetString("amount")
	method, _ := cmd.Flags().GetString("method")
	reference, _ := cmd.Flags().GetString("reference")
	notes, _ := cmd.Flags().GetString("notes")

	date, err := dateFlag(cmd, "date")
	if err != nil {
		return invoice.PaymentDetails{}, err
	}

	return invoice.PaymentDetails{
		Date:      date,
		Method:    method,
		Amount:    models.ParseMoney(amount),
		Reference: reference,
		Notes:     notes,
	}, nil
}

func dateFlag(cmd *cobra.Command, name string) (parsed time.Time, err error) {
	value, _ := cmd.Flags().GetString(name)
	if parsed, err = parseDate(value); err != nil {
		return parsed, fmt.Errorf("--%s: %w", name, err)
	}
	return parsed, nil
}

func addPaymentFlags(cmd *cobra.Command) {
	cmd.Flags().String("amount", "", `Amount paid, e.g. "1.234,56"`)
	cmd.Flags().String("method", "", "Payment method used")
	cmd.Flags().String("date", "", "Payment date, YYYY-MM-DD (default: now)")
	cmd.Flags().String("reference", "", "Bank or receipt reference")
	cmd.Flags().String("notes", "", "Free-text notes")
}

func init() {
	rootCmd.AddCommand(invoicesCmd)
	invoicesCmd.AddCommand(
		invoicesListCmd,
		invoicesShowCmd,
		invoicesOpenCmd,
		invoicesPayFeeCmd,
		invoicesSettleCmd,
		invoicesCloseCmd,
		invoicesDeleteCmd,
		invoicesCreateManualCmd,
	)

	invoicesListCmd.Flags().String("client", "", "Only invoices of this client id")
	invoicesListCmd.Flags().String("status", "", "Only invoices with this status (open, closed, paid, finalized, overdue)")

	addPaymentFlags(invoicesPayFeeCmd)
	addPaymentFlags(invoicesSettleCmd)

	invoicesCreateManualCmd.Flags().String("client", "", "Client id")
	invoicesCreateManualCmd.Flags().String("from", "", "First day of the period, YYYY-MM-DD")
	invoicesCreateManualCmd.Flags().String("to", "", "Last day of the period, YYYY-MM-DD")
	invoicesCreateManualCmd.Flags().String("due", "", "Due date, YYYY-MM-DD")
	invoicesCreateManualCmd.Flags().String("deliveries", "", "JSON file with candidate deliveries and reconciliations")
	invoicesCreateManualCmd.Flags().String("notes", "", "Notes printed on the invoice")
	for _, name := range []string{"client", "from", "to", "due", "deliveries"} {
		_ = invoicesCreateManualCmd.MarkFlagRequired(name)
	}
}
