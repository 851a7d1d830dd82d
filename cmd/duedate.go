package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"courier/internal/duedate"
	"courier/internal/invoice"
	"courier/internal/settings"
	"courier/pkg/models"
)

var dueDateCmd = &cobra.Command{
	Use:   "due-date <client-id>",
	Short: "Show the due date a new invoice for the client would get",
	Example: `  courier due-date c1
  courier due-date c1 --today 2024-01-30`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		today, err := dateFlag(cmd, "today")
		if err != nil {
			return err
		}
		if today.IsZero() {
			today = time.Now()
		}

		s, err := settings.Load(appConfig.SettingsFile)
		if err != nil {
			return err
		}
		client, err := s.Client(args[0])
		if err != nil {
			client = &models.Client{ID: args[0], Name: args[0]}
		}

		due := duedate.Compute(client, today)
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s\n",
			client.Name, invoice.BillingTypeLabel(client), due.Format("2006-01-02"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dueDateCmd)
	dueDateCmd.Flags().String("today", "", "Compute as of this day, YYYY-MM-DD (default: today)")
}
