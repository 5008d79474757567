package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jparks/lexledger/internal/domain"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the rate catalog",
	Long: `Manage the firm's layered rate catalog. Each definition can be scoped
to a client, matter, practice area, or activity type; the most specific
matching definition wins when a timer starts. Exactly one unscoped
definition is the default fallback.`,
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rate definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rates, err := appInstance.RateService.ListRates(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rates: %w", err)
		}

		if len(rates) == 0 {
			fmt.Println("No rate definitions found")
			return nil
		}

		fmt.Printf("%-5s %-25s %-8s %-10s %-30s %s\n", "ID", "Name", "Type", "Amount", "Scope", "Default")
		fmt.Println("---------------------------------------------------------------------------------------------")

		for _, rate := range rates {
			def := ""
			if rate.IsDefault {
				def = "✓"
			}
			fmt.Printf("%-5d %-25s %-8s $%-9.2f %-30s %s\n",
				rate.ID,
				truncate(rate.Name, 25),
				rate.RateType,
				rate.Amount,
				truncate(scopeDescription(rate), 30),
				def,
			)
		}

		fmt.Printf("\nTotal: %d rate definition(s)\n", len(rates))
		return nil
	},
}

var ratesAddCmd = &cobra.Command{
	Use:   "add [name] [amount]",
	Short: "Add a rate definition",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		amount, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid amount: %w", err)
		}

		rateType := domain.RateTypeHourly
		if flat, _ := cmd.Flags().GetBool("flat"); flat {
			rateType = domain.RateTypeFlat
		}

		rate := domain.NewRateDefinition(args[0], rateType, amount)
		rate.IsDefault, _ = cmd.Flags().GetBool("default")
		applyScopeFlags(cmd, rate)

		if err := rate.Validate(); err != nil {
			return fmt.Errorf("invalid rate definition: %w", err)
		}

		if err := appInstance.RateService.CreateRate(ctx, rate); err != nil {
			return fmt.Errorf("failed to create rate: %w", err)
		}

		fmt.Printf("✓ Rate created: %s at $%.2f (ID: %d)\n", rate.Name, rate.Amount, rate.ID)
		return nil
	},
}

var ratesEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a rate definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rate ID: %w", err)
		}

		rate, err := appInstance.RateService.GetRate(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get rate: %w", err)
		}
		if rate == nil {
			return fmt.Errorf("rate definition not found")
		}

		if cmd.Flags().Changed("name") {
			rate.Name, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("amount") {
			rate.Amount, _ = cmd.Flags().GetFloat64("amount")
		}
		if cmd.Flags().Changed("default") {
			rate.IsDefault, _ = cmd.Flags().GetBool("default")
		}
		applyScopeFlags(cmd, rate)

		if err := rate.Validate(); err != nil {
			return fmt.Errorf("invalid rate definition: %w", err)
		}

		if err := appInstance.RateService.UpdateRate(ctx, rate); err != nil {
			return fmt.Errorf("failed to update rate: %w", err)
		}

		fmt.Printf("✓ Rate updated: %s at $%.2f\n", rate.Name, rate.Amount)
		return nil
	},
}

var ratesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a rate definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rate ID: %w", err)
		}

		if err := appInstance.RateService.DeleteRate(ctx, id); err != nil {
			return fmt.Errorf("failed to delete rate: %w", err)
		}

		fmt.Printf("✓ Rate deleted (ID: %d)\n", id)
		return nil
	},
}

var ratesDuplicateCmd = &cobra.Command{
	Use:   "duplicate [id]",
	Short: "Duplicate a rate definition under a new name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rate ID: %w", err)
		}
		newName, _ := cmd.Flags().GetString("name")

		dup, err := appInstance.RateService.DuplicateRate(ctx, id, newName)
		if err != nil {
			return fmt.Errorf("failed to duplicate rate: %w", err)
		}

		fmt.Printf("✓ Rate duplicated: %s (ID: %d)\n", dup.Name, dup.ID)
		return nil
	},
}

var ratesResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Preview which rate a work context would get",
	Long: `Resolve a hypothetical work context against the catalog without
starting a timer. Useful for checking catalog changes before they bite.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var wctx domain.WorkContext
		if cmd.Flags().Changed("client") {
			name, _ := cmd.Flags().GetString("client")
			id, err := resolveClientID(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to resolve client: %w", err)
			}
			wctx.ClientID = &id
		}
		if cmd.Flags().Changed("matter") {
			id, _ := cmd.Flags().GetInt64("matter")
			wctx.MatterID = &id
		}
		if cmd.Flags().Changed("practice-area") {
			id, _ := cmd.Flags().GetInt64("practice-area")
			wctx.PracticeAreaID = &id
		}
		if cmd.Flags().Changed("activity") {
			id, _ := cmd.Flags().GetInt64("activity")
			wctx.ActivityTypeID = &id
		}

		res, err := appInstance.RateService.Resolve(ctx, wctx)
		if err != nil {
			return fmt.Errorf("resolution failed: %w", err)
		}

		fmt.Printf("Resolved: %s at $%.2f (%s)\n", res.Rate.Name, res.Rate.Amount, scopeDescription(res.Rate))
		if len(res.AmbiguousWith) > 0 {
			fmt.Println("\nWarning: equal-specificity definitions lost the tie-break:")
			for _, def := range res.AmbiguousWith {
				fmt.Printf("  - %s at $%.2f (ID: %d)\n", def.Name, def.Amount, def.ID)
			}
		}
		return nil
	},
}

func init() {
	ratesCmd.AddCommand(ratesListCmd)
	ratesCmd.AddCommand(ratesAddCmd)
	ratesCmd.AddCommand(ratesEditCmd)
	ratesCmd.AddCommand(ratesDeleteCmd)
	ratesCmd.AddCommand(ratesDuplicateCmd)
	ratesCmd.AddCommand(ratesResolveCmd)

	for _, c := range []*cobra.Command{ratesAddCmd, ratesEditCmd} {
		c.Flags().Int64("client", 0, "Scope to a client ID")
		c.Flags().Int64("matter", 0, "Scope to a matter ID")
		c.Flags().Int64("practice-area", 0, "Scope to a practice area ID")
		c.Flags().Int64("activity", 0, "Scope to an activity type ID")
		c.Flags().Bool("default", false, "Mark as the firm default (must be unscoped)")
	}

	ratesAddCmd.Flags().Bool("flat", false, "Flat fee instead of hourly")

	ratesEditCmd.Flags().String("name", "", "New name")
	ratesEditCmd.Flags().Float64("amount", 0, "New amount")

	ratesDuplicateCmd.Flags().String("name", "", "Name for the copy")

	ratesResolveCmd.Flags().String("client", "", "Client ID or name")
	ratesResolveCmd.Flags().Int64("matter", 0, "Matter ID")
	ratesResolveCmd.Flags().Int64("practice-area", 0, "Practice area ID")
	ratesResolveCmd.Flags().Int64("activity", 0, "Activity type ID")
}

func applyScopeFlags(cmd *cobra.Command, rate *domain.RateDefinition) {
	if cmd.Flags().Changed("client") {
		id, _ := cmd.Flags().GetInt64("client")
		rate.ClientID = &id
	}
	if cmd.Flags().Changed("matter") {
		id, _ := cmd.Flags().GetInt64("matter")
		rate.MatterID = &id
	}
	if cmd.Flags().Changed("practice-area") {
		id, _ := cmd.Flags().GetInt64("practice-area")
		rate.PracticeAreaID = &id
	}
	if cmd.Flags().Changed("activity") {
		id, _ := cmd.Flags().GetInt64("activity")
		rate.ActivityTypeID = &id
	}
}

func scopeDescription(rate *domain.RateDefinition) string {
	var parts []string
	if rate.ClientID != nil {
		parts = append(parts, fmt.Sprintf("client %d", *rate.ClientID))
	}
	if rate.MatterID != nil {
		parts = append(parts, fmt.Sprintf("matter %d", *rate.MatterID))
	}
	if rate.PracticeAreaID != nil {
		parts = append(parts, fmt.Sprintf("practice area %d", *rate.PracticeAreaID))
	}
	if rate.ActivityTypeID != nil {
		parts = append(parts, fmt.Sprintf("activity %d", *rate.ActivityTypeID))
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, ", ")
}
