package cmd

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"courier/internal/logger"
	"courier/internal/reconciliation"
	"courier/internal/settings"
	"courier/pkg/models"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Check delivery reconciliations against the billing rules",
}

var reconcileValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a delivery's reconciliation and show what would be invoiced",
	Long: `Validate the payments collected for each route of a delivery against the
payment methods in the settings file, without touching any invoice.

For every route the fee and pass-through are split into the part that goes on
the invoice and the part resolved at collection. Allocations must add up to
the route's fee (base fee plus extras) and pass-through amount, within one
cent.`,
	Example: `  courier reconcile validate --file delivery.json`,
	Args:    cobra.NoArgs,
	RunE:    runReconcileValidate,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.AddCommand(reconcileValidateCmd)

	reconcileValidateCmd.Flags().StringP("file", "f", "", "Delivery completion JSON file")
	_ = reconcileValidateCmd.MarkFlagRequired("file")
}

func runReconcileValidate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reconcile")
	out := cmd.OutOrStdout()

	path, _ := cmd.Flags().GetString("file")
	var in completionFile
	if err := readJSONFile(path, &in); err != nil {
		return err
	}

	s, err := settings.Load(appConfig.SettingsFile)
	if err != nil {
		return err
	}
	rules := s.Rules()

	log.Debug().
		Str("delivery_id", in.Delivery.ID).
		Int("routes", len(in.Delivery.Routes)).
		Int("reconciliations", len(in.Reconciliations)).
		Msg("Validating reconciliation")

	if err := rules.ValidateDelivery(in.Delivery, in.Reconciliations); err != nil {
		var verrs reconciliation.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fmt.Fprintln(out, "Reconciliation rejected:")
		for _, e := range verrs {
			fmt.Fprintf(out, "  %s: %s\n", e.Field, e.Message)
		}
		return errors.New("reconciliation is invalid")
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ROUTE\tFEE\tINVOICED FEE\tRESOLVED\tPASS-THROUGH\tINVOICED\tRESOLVED\tEXTRAS")
	for _, route := range in.Delivery.Routes {
		var rec *models.Reconciliation
		if r, ok := in.Reconciliations[route.ID]; ok {
			rec = &r
		}
		res := rules.ReconcileRoute(route, rec)

		names := make([]string, 0, len(res.Extras))
		for _, x := range res.Extras {
			names = append(names, x.Name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			route.ID,
			models.FormatBRL(res.OriginalFee),
			models.FormatBRL(res.InvoicedFee()),
			models.FormatBRL(res.ResolvedOutsideFee()),
			models.FormatBRL(res.OriginalPassThrough),
			models.FormatBRL(res.InvoicedPassThrough()),
			models.FormatBRL(res.ResolvedOutsidePassThrough()),
			strings.Join(names, ", "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Reconciliation is valid.")
	return nil
}
