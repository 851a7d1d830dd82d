package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"courier/internal/invoice"
	"courier/internal/logger"
	"courier/internal/reconciliation"
	"courier/internal/settings"
	"courier/internal/store"
	"courier/pkg/models"
)

// app wires settings, storage and the invoice service for one command run.
type app struct {
	settings *settings.Settings
	service  *invoice.Service
	out      io.Writer
	format   string
	close    func() error
}

func openApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	const op = "openApp"
	log := logger.WithComponent("app")

	s, err := settings.Load(appConfig.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := store.OpenSQLite(appConfig.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		repo    invoice.Repository = db
		closers                    = []func() error{db.Close}
	)

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	switch {
	case dryRun:
		invoices, err := db.Load(ctx)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		repo = store.NewMemory(invoices...)
		log.Info().Msg("Dry run, changes will not be saved")
	case appConfig.AsyncSave:
		async := store.NewAsync(db)
		repo = async
		// async flushes before the database closes
		closers = append([]func() error{async.Close}, closers...)
	}

	service, err := invoice.NewService(ctx, repo, invoice.NewEngine())
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	format, _ := cmd.Flags().GetString("output")
	return &app{
		settings: s,
		service:  service,
		out:      cmd.OutOrStdout(),
		format:   strings.ToLower(format),
		close:    func() error { return closeAll(closers) },
	}, nil
}

func closeAll(closers []func() error) error {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runWithApp opens the app, runs fn and closes the app, reporting the first
// error.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	log := logger.WithComponent(cmd.Name())

	ctx, cancel := commandContext(log)
	defer cancel()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}

	runErr := fn(ctx, a)
	if err := a.close(); err != nil {
		log.Error().Err(err).Msg("Failed to close storage")
		if runErr == nil {
			runErr = fmt.Errorf("failed to save invoices: %w", err)
		}
	}
	return runErr
}

// commandContext returns a context canceled on interrupt.
func commandContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// clientFor returns the configured client, or nil when it is unknown.
func (a *app) clientFor(id string) *models.Client {
	c, err := a.settings.Client(id)
	if err != nil {
		log := logger.WithComponent("app")
		log.Warn().Str("client_id", id).Msg("Client not configured, using defaults")
		return nil
	}
	return c
}

func (a *app) writeJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	if _, err := a.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (a *app) printInvoices(invoices []models.Invoice) error {
	if a.format == "json" {
		if invoices == nil {
			invoices = []models.Invoice{}
		}
		return a.writeJSON(invoices)
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNUMBER\tCLIENT\tSTATUS\tFEE\tPASS-THROUGH\tDELIVERIES\tDUE")
	for _, inv := range invoices {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			inv.ID, inv.Number, inv.ClientName, inv.OverallStatus,
			models.FormatBRL(inv.FeeTotal), models.FormatBRL(inv.PassThroughTotal),
			inv.DeliveryCount, formatDate(inv.DueDate))
	}
	return w.Flush()
}

func (a *app) printInvoice(inv *models.Invoice) error {
	if inv == nil {
		fmt.Fprintln(a.out, "No invoice changed.")
		return nil
	}
	if a.format == "json" {
		return a.writeJSON(inv)
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Invoice\t%s (%s)\n", inv.Number, inv.ID)
	fmt.Fprintf(w, "Client\t%s\n", inv.ClientName)
	fmt.Fprintf(w, "Billing\t%s\n", inv.BillingType)
	fmt.Fprintf(w, "Status\t%s (fee %s, pass-through %s)\n", inv.OverallStatus, inv.FeeStatus, inv.PassThroughStatus)
	fmt.Fprintf(w, "Emitted\t%s\n", formatDate(inv.EmissionDate))
	fmt.Fprintf(w, "Due\t%s\n", formatDate(inv.DueDate))
	fmt.Fprintf(w, "Fee total\t%s\n", models.FormatBRL(inv.FeeTotal))
	fmt.Fprintf(w, "Pass-through total\t%s\n", models.FormatBRL(inv.PassThroughTotal))
	if inv.Notes != "" {
		fmt.Fprintf(w, "Notes\t%s\n", inv.Notes)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out)
	w = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tDATE\tDESCRIPTION\tFEE\tBILLED FEE\tPASS-THROUGH\tBILLED PASS-THROUGH")
	for _, li := range inv.LineItems {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			li.ID, formatDate(li.Date), li.Description,
			models.FormatBRL(li.GrossFee()), models.FormatBRL(li.BilledFee()),
			models.FormatBRL(li.PassThroughAmount), models.FormatBRL(li.BilledPassThrough()))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(a.out)
	w = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tACTION\tDETAILS")
	for _, h := range inv.History {
		fmt.Fprintf(w, "%s\t%s\t%s\n", h.Timestamp.Format(time.RFC3339), h.Action, h.Details)
	}
	return w.Flush()
}

// printValidation renders field errors one per line.
func (a *app) printValidation(err error) bool {
	var verrs reconciliation.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	if a.format == "json" {
		_ = a.writeJSON(map[string]interface{}{"valid": false, "errors": verrs.Fields()})
		return true
	}
	fmt.Fprintln(a.out, "Validation failed:")
	for _, e := range verrs {
		fmt.Fprintf(a.out, "  %s: %s\n", e.Field, e.Message)
	}
	return true
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// parseDate reads a YYYY-MM-DD flag value in local time. Empty means zero.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD: %w", value, err)
	}
	return t, nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
