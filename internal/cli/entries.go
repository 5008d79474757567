package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/service"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage time entries",
	Long:  `List, add, edit, and delete time entries. Every edit is recorded in the entry's audit trail.`,
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List time entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var clientID *int64
		if cmd.Flags().Changed("client") {
			name, _ := cmd.Flags().GetString("client")
			id, err := resolveClientID(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to resolve client: %w", err)
			}
			clientID = &id
		}

		var start, end *time.Time
		if cmd.Flags().Changed("from") {
			s, _ := cmd.Flags().GetString("from")
			t, err := parseDate(s)
			if err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
			start = &t
		}
		if cmd.Flags().Changed("to") {
			s, _ := cmd.Flags().GetString("to")
			t, err := parseDate(s)
			if err != nil {
				return fmt.Errorf("invalid --to date: %w", err)
			}
			eod := t.Add(24*time.Hour - time.Second)
			end = &eod
		}

		includeLocked, _ := cmd.Flags().GetBool("billed")

		entries, err := appInstance.EntryService.ListEntries(ctx, clientID, start, end, includeLocked)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No entries found")
			return nil
		}

		fmt.Printf("%-5s %-12s %-25s %-30s %-7s %-10s %s\n", "ID", "Date", "Client", "Description", "Hours", "Amount", "Status")
		fmt.Println("------------------------------------------------------------------------------------------------------")

		for _, entry := range entries {
			status := entryStatus(entry)
			fmt.Printf("%-5d %-12s %-25s %-30s %-7.1f $%-9s %s\n",
				entry.ID,
				entry.StartTime.Format("2006-01-02"),
				truncate(clientDisplayName(ctx, entry.ClientID), 25),
				truncate(entry.Description, 30),
				entry.BilledHours(),
				entry.Amount().StringFixed(2),
				status,
			)
		}

		fmt.Printf("\nTotal: %d entry(ies)\n", len(entries))
		return nil
	},
}

var entriesAddCmd = &cobra.Command{
	Use:   "add [client_id_or_name] [matter_id] [description]",
	Short: "Add a manual time entry",
	Long: `Record work that was not timed. The duration is rounded to the
matter's billing increment and the rate resolved from the catalog unless
--rate is given.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		clientID, err := resolveClientID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve client: %w", err)
		}

		matterID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid matter ID: %w", err)
		}

		startStr, _ := cmd.Flags().GetString("start")
		endStr, _ := cmd.Flags().GetString("end")

		startTime, err := parseDateTime(startStr)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		endTime, err := parseDateTime(endStr)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}

		params := service.ManualEntryParams{
			ClientID:    clientID,
			MatterID:    matterID,
			Description: args[2],
			StartTime:   startTime,
			EndTime:     endTime,
		}

		if nb, _ := cmd.Flags().GetBool("non-billable"); nb {
			params.BillableType = domain.NonBillable
		}
		if nc, _ := cmd.Flags().GetBool("no-charge"); nc {
			params.BillableType = domain.NoCharge
		}
		if cmd.Flags().Changed("rate") {
			rate, _ := cmd.Flags().GetFloat64("rate")
			params.RateOverride = &rate
		}
		if cmd.Flags().Changed("practice-area") {
			id, _ := cmd.Flags().GetInt64("practice-area")
			params.PracticeAreaID = &id
		}
		if cmd.Flags().Changed("activity") {
			id, _ := cmd.Flags().GetInt64("activity")
			params.ActivityTypeID = &id
		}

		entry, err := appInstance.EntryService.CreateManual(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		if entry == nil {
			fmt.Println("Duration rounded to zero, no entry created")
			return nil
		}

		fmt.Printf("✓ Entry created (ID: %d)\n", entry.ID)
		fmt.Printf("  Billed: %.1fh at $%.2f/h\n", entry.BilledHours(), entry.HourlyRate)
		fmt.Printf("  Amount: $%s\n", entry.Amount().StringFixed(2))
		return nil
	},
}

var entriesEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a time entry",
	Long:  `Edit an unbilled entry. The --reason text is stored in the audit trail alongside every changed field.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}

		entry, err := appInstance.EntryService.GetEntry(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get entry: %w", err)
		}
		if entry == nil {
			return fmt.Errorf("entry not found")
		}

		if cmd.Flags().Changed("description") {
			entry.Description, _ = cmd.Flags().GetString("description")
		}
		if cmd.Flags().Changed("start") {
			s, _ := cmd.Flags().GetString("start")
			t, err := parseDateTime(s)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			entry.StartTime = t
		}
		if cmd.Flags().Changed("end") {
			s, _ := cmd.Flags().GetString("end")
			t, err := parseDateTime(s)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			entry.EndTime = t
		}
		if cmd.Flags().Changed("rate") {
			entry.HourlyRate, _ = cmd.Flags().GetFloat64("rate")
			entry.RateOverridden = true
		}

		reason, _ := cmd.Flags().GetString("reason")

		if err := appInstance.EntryService.UpdateEntry(ctx, entry, reason); err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}

		fmt.Printf("✓ Entry updated (ID: %d)\n", entry.ID)
		fmt.Printf("  Billed: %.1fh, amount $%s\n", entry.BilledHours(), entry.Amount().StringFixed(2))
		return nil
	},
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}

		reason, _ := cmd.Flags().GetString("reason")

		if err := appInstance.EntryService.DeleteEntry(ctx, id, reason); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		fmt.Printf("✓ Entry deleted (ID: %d)\n", id)
		return nil
	},
}

var entriesHistoryCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "Show the audit trail for an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}

		history, err := appInstance.EntryService.GetHistory(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get history: %w", err)
		}

		if len(history) == 0 {
			fmt.Println("No changes recorded")
			return nil
		}

		for _, h := range history {
			fmt.Printf("%s  %s: %q -> %q", h.ChangedAt.Format("2006-01-02 15:04"), h.FieldName, h.OldValue, h.NewValue)
			if h.ChangeReason != "" {
				fmt.Printf("  (%s)", h.ChangeReason)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesAddCmd)
	entriesCmd.AddCommand(entriesEditCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)
	entriesCmd.AddCommand(entriesHistoryCmd)

	entriesListCmd.Flags().String("client", "", "Filter by client ID or name")
	entriesListCmd.Flags().String("from", "", "Start date (YYYY-MM-DD)")
	entriesListCmd.Flags().String("to", "", "End date (YYYY-MM-DD)")
	entriesListCmd.Flags().Bool("billed", false, "Include entries already on an invoice")

	entriesAddCmd.Flags().String("start", "", "Start time (YYYY-MM-DD HH:MM)")
	entriesAddCmd.Flags().String("end", "", "End time (YYYY-MM-DD HH:MM)")
	entriesAddCmd.Flags().Float64("rate", 0, "Override the catalog rate")
	entriesAddCmd.Flags().Bool("non-billable", false, "Mark as non-billable")
	entriesAddCmd.Flags().Bool("no-charge", false, "Mark as no-charge")
	entriesAddCmd.Flags().Int64("practice-area", 0, "Practice area ID")
	entriesAddCmd.Flags().Int64("activity", 0, "Activity type ID")
	entriesAddCmd.MarkFlagRequired("start")
	entriesAddCmd.MarkFlagRequired("end")

	entriesEditCmd.Flags().String("description", "", "New description")
	entriesEditCmd.Flags().String("start", "", "New start time (YYYY-MM-DD HH:MM)")
	entriesEditCmd.Flags().String("end", "", "New end time (YYYY-MM-DD HH:MM)")
	entriesEditCmd.Flags().Float64("rate", 0, "New hourly rate")
	entriesEditCmd.Flags().String("reason", "", "Reason recorded in the audit trail")

	entriesDeleteCmd.Flags().String("reason", "", "Reason recorded in the audit trail")
}

func entryStatus(entry *domain.TimeEntry) string {
	switch {
	case entry.IsLocked():
		return "billed"
	case entry.BillableType == domain.NonBillable:
		return "non-billable"
	case entry.BillableType == domain.NoCharge:
		return "no-charge"
	default:
		return "unbilled"
	}
}

// parseDate parses a date in YYYY-MM-DD format
func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// parseDateTime parses a timestamp, accepting a bare date for midnight
func parseDateTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q, expected YYYY-MM-DD HH:MM", s)
}
