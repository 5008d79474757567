package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jparks/lexledger/internal/domain"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Manage invoices",
	Long: `Create draft invoices from unbilled time, adjust tax and discounts,
send them, and record payments against them.`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
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

		var status *domain.InvoiceStatus
		if cmd.Flags().Changed("status") {
			s, _ := cmd.Flags().GetString("status")
			st := domain.InvoiceStatus(s)
			status = &st
		}

		invoices, err := appInstance.InvoiceService.ListInvoices(ctx, clientID, status)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Println("No invoices found")
			return nil
		}

		fmt.Printf("%-5s %-15s %-25s %-12s %-12s %-12s %s\n", "ID", "Number", "Client", "Total", "Balance", "Due", "Status")
		fmt.Println("--------------------------------------------------------------------------------------------------")

		for _, invoice := range invoices {
			due := "-"
			if invoice.DueDate != nil {
				due = invoice.DueDate.Format("2006-01-02")
			}
			fmt.Printf("%-5d %-15s %-25s $%-11s $%-11s %-12s %s\n",
				invoice.ID,
				invoice.InvoiceNumber,
				truncate(clientDisplayName(ctx, invoice.ClientID), 25),
				invoice.Total.StringFixed(2),
				invoice.BalanceDue.StringFixed(2),
				due,
				invoice.Status,
			)
		}

		fmt.Printf("\nTotal: %d invoice(s)\n", len(invoices))
		return nil
	},
}

var invoicesCreateCmd = &cobra.Command{
	Use:   "create [client_id_or_name]",
	Short: "Create a draft invoice from unbilled time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		clientID, err := resolveClientID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve client: %w", err)
		}

		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")

		periodStart, err := parseDate(fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
		periodEnd, err := parseDate(toStr)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
		periodEnd = periodEnd.Add(24*time.Hour - time.Second)

		invoice, err := appInstance.InvoiceService.CreateDraft(ctx, clientID, periodStart, periodEnd, appInstance.Config.Invoice.NumberPrefix)
		if err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		fmt.Printf("✓ Draft invoice %s created (ID: %d)\n", invoice.InvoiceNumber, invoice.ID)
		fmt.Printf("  Entries: %d\n", len(invoice.LineItems))
		fmt.Printf("  Subtotal: $%s\n", invoice.Subtotal.StringFixed(2))
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an invoice in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid invoice ID: %w", err)
		}

		invoice, err := appInstance.InvoiceService.GetInvoice(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}
		if invoice == nil {
			return fmt.Errorf("invoice not found")
		}

		fmt.Printf("Invoice %s (%s)\n", invoice.InvoiceNumber, invoice.Status)
		fmt.Printf("Client: %s\n", clientDisplayName(ctx, invoice.ClientID))
		fmt.Printf("Period: %s to %s\n",
			invoice.PeriodStart.Format("2006-01-02"),
			invoice.PeriodEnd.Format("2006-01-02"))
		if invoice.DueDate != nil {
			fmt.Printf("Due: %s\n", invoice.DueDate.Format("2006-01-02"))
		}
		fmt.Println()

		fmt.Printf("%-12s %-35s %-7s %-10s %s\n", "Date", "Description", "Hours", "Rate", "Amount")
		fmt.Println("--------------------------------------------------------------------------------")
		for _, li := range invoice.LineItems {
			fmt.Printf("%-12s %-35s %-7.1f $%-9.2f $%s\n",
				li.Date.Format("2006-01-02"),
				truncate(li.Description, 35),
				li.Hours(),
				li.Rate,
				li.Amount.StringFixed(2),
			)
		}

		fmt.Println()
		fmt.Printf("%-20s $%s\n", "Subtotal:", invoice.Subtotal.StringFixed(2))
		if !invoice.DiscountValue.IsZero() {
			fmt.Printf("%-20s -$%s\n", "Discount:", invoice.DiscountValue.StringFixed(2))
		}
		if !invoice.TaxValue.IsZero() {
			fmt.Printf("%-20s $%s\n", "Tax:", invoice.TaxValue.StringFixed(2))
		}
		fmt.Printf("%-20s $%s\n", "Total:", invoice.Total.StringFixed(2))

		if len(invoice.Payments) > 0 {
			fmt.Println("\nPayments:")
			for _, p := range invoice.Payments {
				fmt.Printf("  %s  $%s  %s %s\n",
					p.PaymentDate.Format("2006-01-02"),
					p.Amount.StringFixed(2),
					p.Method,
					p.ReferenceNumber,
				)
			}
			fmt.Printf("%-20s $%s\n", "Balance due:", invoice.BalanceDue.StringFixed(2))
		}

		return nil
	},
}

var invoicesAdjustCmd = &cobra.Command{
	Use:   "adjust [id]",
	Short: "Set tax and discount on a draft invoice",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid invoice ID: %w", err)
		}

		taxRate, _ := cmd.Flags().GetFloat64("tax")
		discount, _ := cmd.Flags().GetFloat64("discount")

		discountType := domain.DiscountFixed
		if pct, _ := cmd.Flags().GetBool("percent"); pct {
			discountType = domain.DiscountPercentage
		}

		if err := appInstance.InvoiceService.SetAdjustments(ctx, id, taxRate, discount, discountType); err != nil {
			return fmt.Errorf("failed to adjust invoice: %w", err)
		}

		invoice, err := appInstance.InvoiceService.GetInvoice(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get invoice: %w", err)
		}

		fmt.Printf("✓ Invoice %s adjusted\n", invoice.InvoiceNumber)
		fmt.Printf("  Discount: $%s, Tax: $%s, Total: $%s\n",
			invoice.DiscountValue.StringFixed(2),
			invoice.TaxValue.StringFixed(2),
			invoice.Total.StringFixed(2),
		)
		return nil
	},
}

var invoicesAddEntriesCmd = &cobra.Command{
	Use:   "add-entries [invoice_id] [entry_id...]",
	Short: "Add unbilled entries to a draft invoice",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoiceID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid invoice ID: %w", err)
		}

		entryIDs := make([]int64, 0, len(args)-1)
		for _, arg := range args[1:] {
			entryID, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry ID %q: %w", arg, err)
			}
			entryIDs = append(entryIDs, entryID)
		}

		if err := appInstance.InvoiceService.AddEntries(ctx, invoiceID, entryIDs); err != nil {
			return fmt.Errorf("failed to add entries: %w", err)
		}

		fmt.Printf("✓ Added %d entry(ies) to invoice %d\n", len(entryIDs), invoiceID)
		return nil
	},
}

var invoicesRemoveEntryCmd = &cobra.Command{
	Use:   "remove-entry [invoice_id] [entry_id]",
	Short: "Remove an entry from a draft invoice",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoiceID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid invoice ID: %w", err)
		}
		entryID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}

		if err := appInstance.InvoiceService.RemoveEntry(ctx, invoiceID, entryID); err != nil {
			return fmt.Errorf("failed to remove entry: %w", err)
		}

		fmt.Printf("✓ Entry %d removed from invoice %d and unlocked\n", entryID, invoiceID)
		return nil
	},
}

var invoicesSendCmd = &cobra.Command{
	Use:   "send [id]",
	Short: "Mark an invoice as sent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid invoice ID: %w", err)
		}

		var dueDate time.Time
		if cmd.Flags().Changed("due") {
			s, _ := cmd.Flags().GetString("due")
			dueDate, err = parseDate(s)
			if err != nil {
				return fmt.Errorf("invalid --due date: %w", err)
			}
		} else {
			dueDate = time.Now().AddDate(0, 0, appInstance.Config.Invoice.DefaultDueDays)
		}

		if err := appInstance.InvoiceService.MarkSent(ctx, id, dueDate); err != nil {
			return fmt.Errorf("failed to send invoice: %w", err)
		}

		fmt.Printf("✓ Invoice marked sent, due %s\n", dueDate.Format("2006-01-02"))
		return nil
	},
}

var invoicesPayCmd = &cobra.Command{
	Use:   "pay [id] [amount]",
	Short: "Record a payment against an invoice",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid invoice ID: %w", err)
		}
		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}

		paymentDate := time.Now()
		if cmd.Flags().Changed("date") {
			s, _ := cmd.Flags().GetString("date")
			paymentDate, err = parseDate(s)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
		}

		method, _ := cmd.Flags().GetString("method")
		reference, _ := cmd.Flags().GetString("reference")

		invoice, err := appInstance.InvoiceService.ApplyPayment(ctx, id, amount, paymentDate, method, reference)
		if err != nil {
			return fmt.Errorf("failed to apply payment: %w", err)
		}

		fmt.Printf("✓ Payment of $%.2f recorded\n", amount)
		fmt.Printf("  Balance due: $%s (%s)\n", invoice.BalanceDue.StringFixed(2), invoice.Status)
		return nil
	},
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a draft invoice and release its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid invoice ID: %w", err)
		}

		if err := appInstance.InvoiceService.DeleteDraft(ctx, id); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}

		fmt.Printf("✓ Draft invoice deleted, entries released (ID: %d)\n", id)
		return nil
	},
}

var invoicesOverdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "Flag sent invoices past their due date",
	RunE: func(cmd *cobra.Command, args []string) error {
		flagged, err := appInstance.InvoiceService.CheckOverdue(context.Background())
		if err != nil {
			return fmt.Errorf("failed to check overdue invoices: %w", err)
		}

		if flagged == 0 {
			fmt.Println("No invoices are overdue")
		} else {
			fmt.Printf("✓ %d invoice(s) flagged overdue\n", flagged)
		}
		return nil
	},
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesCreateCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesAdjustCmd)
	invoicesCmd.AddCommand(invoicesAddEntriesCmd)
	invoicesCmd.AddCommand(invoicesRemoveEntryCmd)
	invoicesCmd.AddCommand(invoicesSendCmd)
	invoicesCmd.AddCommand(invoicesPayCmd)
	invoicesCmd.AddCommand(invoicesDeleteCmd)
	invoicesCmd.AddCommand(invoicesOverdueCmd)

	invoicesListCmd.Flags().String("client", "", "Filter by client ID or name")
	invoicesListCmd.Flags().String("status", "", "Filter by status (draft, sent, partial_payment, paid, overdue)")

	invoicesCreateCmd.Flags().String("from", "", "Period start (YYYY-MM-DD)")
	invoicesCreateCmd.Flags().String("to", "", "Period end (YYYY-MM-DD)")
	invoicesCreateCmd.MarkFlagRequired("from")
	invoicesCreateCmd.MarkFlagRequired("to")

	invoicesAdjustCmd.Flags().Float64("tax", 0, "Tax rate percent")
	invoicesAdjustCmd.Flags().Float64("discount", 0, "Discount amount")
	invoicesAdjustCmd.Flags().Bool("percent", false, "Treat the discount as a percentage")

	invoicesSendCmd.Flags().String("due", "", "Due date (YYYY-MM-DD), defaults to the configured terms")

	invoicesPayCmd.Flags().String("date", "", "Payment date (YYYY-MM-DD), defaults to today")
	invoicesPayCmd.Flags().String("method", "check", "Payment method")
	invoicesPayCmd.Flags().String("reference", "", "Check or transaction reference")
}
