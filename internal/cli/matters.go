package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jparks/lexledger/internal/domain"
)

var mattersCmd = &cobra.Command{
	Use:   "matters",
	Short: "Manage matters",
	Long:  `List, add, edit, and close matters, plus the firm's practice areas and activity types.`,
}

var mattersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List matters",
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
		includeClosed, _ := cmd.Flags().GetBool("closed")

		matters, err := appInstance.MatterRepo.List(ctx, clientID, includeClosed)
		if err != nil {
			return fmt.Errorf("failed to list matters: %w", err)
		}

		if len(matters) == 0 {
			fmt.Println("No matters found")
			return nil
		}

		fmt.Printf("%-5s %-30s %-12s %-25s %-8s\n", "ID", "Name", "Number", "Client", "Status")
		fmt.Println("-----------------------------------------------------------------------------------")

		for _, matter := range matters {
			fmt.Printf("%-5d %-30s %-12s %-25s %-8s\n",
				matter.ID,
				truncate(matter.Name, 30),
				matter.Number,
				truncate(clientDisplayName(ctx, matter.ClientID), 25),
				matter.Status,
			)
		}

		fmt.Printf("\nTotal: %d matter(s)\n", len(matters))
		return nil
	},
}

var mattersAddCmd = &cobra.Command{
	Use:   "add [client_id_or_name] [name]",
	Short: "Add a new matter",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		clientID, err := resolveClientID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve client: %w", err)
		}

		matter := domain.NewMatter(clientID, args[1])
		matter.Number, _ = cmd.Flags().GetString("number")
		matter.Notes, _ = cmd.Flags().GetString("notes")
		if cmd.Flags().Changed("practice-area") {
			id, _ := cmd.Flags().GetInt64("practice-area")
			matter.PracticeAreaID = &id
		}

		if err := appInstance.MatterRepo.Create(ctx, matter); err != nil {
			return fmt.Errorf("failed to create matter: %w", err)
		}

		fmt.Printf("✓ Matter created: %s (ID: %d)\n", matter.Name, matter.ID)
		return nil
	},
}

var mattersEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit an existing matter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid matter ID: %w", err)
		}

		matter, err := appInstance.MatterRepo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get matter: %w", err)
		}
		if matter == nil {
			return fmt.Errorf("matter not found")
		}

		if cmd.Flags().Changed("name") {
			matter.Name, _ = cmd.Flags().GetString("name")
		}
		if cmd.Flags().Changed("number") {
			matter.Number, _ = cmd.Flags().GetString("number")
		}
		if cmd.Flags().Changed("notes") {
			matter.Notes, _ = cmd.Flags().GetString("notes")
		}
		if cmd.Flags().Changed("practice-area") {
			paID, _ := cmd.Flags().GetInt64("practice-area")
			matter.PracticeAreaID = &paID
		}

		if err := appInstance.MatterRepo.Update(ctx, matter); err != nil {
			return fmt.Errorf("failed to update matter: %w", err)
		}

		fmt.Printf("✓ Matter updated: %s\n", matter.Name)
		return nil
	},
}

var mattersCloseCmd = &cobra.Command{
	Use:   "close [id]",
	Short: "Close a matter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid matter ID: %w", err)
		}

		if err := appInstance.MatterRepo.Close(ctx, id); err != nil {
			return fmt.Errorf("failed to close matter: %w", err)
		}

		fmt.Printf("✓ Matter closed (ID: %d)\n", id)
		return nil
	},
}

var mattersRoundingCmd = &cobra.Command{
	Use:   "rounding [matter_id]",
	Short: "Show or change a matter's rounding policy override",
	Long: `Without flags, shows the rounding policy in effect for the matter.
With --increment and --method, installs an override. With --clear, removes
the override so the firm-wide policy applies again.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		matterID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid matter ID: %w", err)
		}

		matter, err := appInstance.MatterRepo.GetByID(ctx, matterID)
		if err != nil {
			return fmt.Errorf("failed to get matter: %w", err)
		}
		if matter == nil {
			return fmt.Errorf("matter not found")
		}

		if clear, _ := cmd.Flags().GetBool("clear"); clear {
			if err := appInstance.PolicyRepo.DeleteForMatter(ctx, matterID); err != nil {
				return fmt.Errorf("failed to clear rounding override: %w", err)
			}
			fmt.Printf("✓ Rounding override cleared, firm policy applies to %s\n", matter.Name)
			return nil
		}

		if cmd.Flags().Changed("increment") || cmd.Flags().Changed("method") {
			increment, _ := cmd.Flags().GetInt64("increment")
			method, _ := cmd.Flags().GetString("method")

			policy := domain.NewRoundingPolicy(increment, domain.RoundingMethod(method))
			if err := policy.Validate(); err != nil {
				return fmt.Errorf("invalid rounding policy: %w", err)
			}

			if err := appInstance.PolicyRepo.SetForMatter(ctx, matterID, policy); err != nil {
				return fmt.Errorf("failed to set rounding override: %w", err)
			}

			fmt.Printf("✓ %s now rounds at %s\n", matter.Name, policy)
			return nil
		}

		override, err := appInstance.PolicyRepo.GetForMatter(ctx, matterID)
		if err != nil {
			return fmt.Errorf("failed to get rounding policy: %w", err)
		}

		firm, err := appInstance.Config.RoundingPolicy()
		if err != nil {
			return err
		}

		if override != nil {
			fmt.Printf("%s: %s (matter override)\n", matter.Name, *override)
		} else {
			fmt.Printf("%s: %s (firm policy)\n", matter.Name, firm)
		}
		return nil
	},
}

var practiceAreasCmd = &cobra.Command{
	Use:   "practice-areas",
	Short: "List or add practice areas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if cmd.Flags().Changed("add") {
			name, _ := cmd.Flags().GetString("add")
			pa, err := appInstance.MatterRepo.CreatePracticeArea(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to create practice area: %w", err)
			}
			fmt.Printf("✓ Practice area created: %s (ID: %d)\n", pa.Name, pa.ID)
			return nil
		}

		areas, err := appInstance.MatterRepo.ListPracticeAreas(ctx)
		if err != nil {
			return fmt.Errorf("failed to list practice areas: %w", err)
		}

		if len(areas) == 0 {
			fmt.Println("No practice areas defined")
			return nil
		}

		for _, pa := range areas {
			fmt.Printf("%-5d %s\n", pa.ID, pa.Name)
		}
		return nil
	},
}

var activityTypesCmd = &cobra.Command{
	Use:   "activity-types",
	Short: "List or add activity types",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if cmd.Flags().Changed("add") {
			name, _ := cmd.Flags().GetString("add")
			at, err := appInstance.MatterRepo.CreateActivityType(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to create activity type: %w", err)
			}
			fmt.Printf("✓ Activity type created: %s (ID: %d)\n", at.Name, at.ID)
			return nil
		}

		types, err := appInstance.MatterRepo.ListActivityTypes(ctx)
		if err != nil {
			return fmt.Errorf("failed to list activity types: %w", err)
		}

		if len(types) == 0 {
			fmt.Println("No activity types defined")
			return nil
		}

		for _, at := range types {
			fmt.Printf("%-5d %s\n", at.ID, at.Name)
		}
		return nil
	},
}

func init() {
	mattersCmd.AddCommand(mattersListCmd)
	mattersCmd.AddCommand(mattersAddCmd)
	mattersCmd.AddCommand(mattersEditCmd)
	mattersCmd.AddCommand(mattersCloseCmd)
	mattersCmd.AddCommand(mattersRoundingCmd)
	mattersCmd.AddCommand(practiceAreasCmd)
	mattersCmd.AddCommand(activityTypesCmd)

	mattersListCmd.Flags().String("client", "", "Filter by client ID or name")
	mattersListCmd.Flags().Bool("closed", false, "Include closed matters")

	mattersAddCmd.Flags().String("number", "", "Firm-assigned matter number")
	mattersAddCmd.Flags().String("notes", "", "Notes about the matter")
	mattersAddCmd.Flags().Int64("practice-area", 0, "Practice area ID")

	mattersEditCmd.Flags().String("name", "", "New name")
	mattersEditCmd.Flags().String("number", "", "New matter number")
	mattersEditCmd.Flags().String("notes", "", "New notes")
	mattersEditCmd.Flags().Int64("practice-area", 0, "New practice area ID")

	mattersRoundingCmd.Flags().Int64("increment", 6, "Billing increment in minutes (6, 15, 30, 60)")
	mattersRoundingCmd.Flags().String("method", "nearest", "Rounding method (nearest, up, down)")
	mattersRoundingCmd.Flags().Bool("clear", false, "Remove the matter override")

	practiceAreasCmd.Flags().String("add", "", "Create a practice area with this name")
	activityTypesCmd.Flags().String("add", "", "Create an activity type with this name")
}
