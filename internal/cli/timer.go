package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jparks/lexledger/internal/domain"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Manage the active timer",
	Long:  `Start, stop, pause, resume, or check the status of the active work session.`,
}

var timerStartCmd = &cobra.Command{
	Use:   "start [client_id_or_name] [matter_id] [description]",
	Short: "Start a new timer",
	Long:  `Start a new timer for a client and matter. The billing rate is resolved from the rate catalog.`,
	Args:  cobra.MinimumNArgs(2),
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

		description := ""
		if len(args) > 2 {
			description = args[2]
		}

		wctx := domain.WorkContext{ClientID: &clientID, MatterID: &matterID}
		if cmd.Flags().Changed("practice-area") {
			id, _ := cmd.Flags().GetInt64("practice-area")
			wctx.PracticeAreaID = &id
		}
		if cmd.Flags().Changed("activity") {
			id, _ := cmd.Flags().GetInt64("activity")
			wctx.ActivityTypeID = &id
		}

		if err := appInstance.TimerService.Start(ctx, wctx, description); err != nil {
			return fmt.Errorf("failed to start timer: %w", err)
		}

		timer, _ := appInstance.TimerService.GetActiveTimer(ctx)

		fmt.Printf("✓ Timer started for %s\n", clientDisplayName(ctx, clientID))
		if description != "" {
			fmt.Printf("  Description: %s\n", description)
		}
		if timer != nil {
			fmt.Printf("  Rate: $%.2f/h\n", timer.Selector.Rate)
		}

		return nil
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the active timer and save the time entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		billableType := domain.Billable
		if nb, _ := cmd.Flags().GetBool("non-billable"); nb {
			billableType = domain.NonBillable
		}
		if nc, _ := cmd.Flags().GetBool("no-charge"); nc {
			billableType = domain.NoCharge
		}

		entry, err := appInstance.TimerService.Stop(ctx, billableType)
		if err != nil {
			var vErr *domain.ValidationError
			if errors.As(err, &vErr) {
				return fmt.Errorf("cannot finalize, missing: %v (timer still running)", vErr.Missing)
			}
			return fmt.Errorf("failed to stop timer: %w", err)
		}

		if entry == nil {
			fmt.Println("✓ Timer stopped (session rounded to zero, no entry created)")
			return nil
		}

		fmt.Printf("✓ Timer stopped\n")
		fmt.Printf("  Client: %s\n", clientDisplayName(ctx, entry.ClientID))
		fmt.Printf("  Billed: %.1fh (%s raw)\n", entry.BilledHours(), formatDuration(time.Duration(entry.RawSeconds)*time.Second))
		fmt.Printf("  Amount: $%s\n", entry.Amount().StringFixed(2))

		return nil
	},
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the active timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.TimerService.Pause(context.Background()); err != nil {
			return fmt.Errorf("failed to pause timer: %w", err)
		}

		fmt.Println("✓ Timer paused")
		return nil
	},
}

var timerResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.TimerService.Resume(context.Background()); err != nil {
			return fmt.Errorf("failed to resume timer: %w", err)
		}

		fmt.Println("✓ Timer resumed")
		return nil
	},
}

var timerDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Discard the active timer without saving",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.TimerService.Discard(context.Background()); err != nil {
			return fmt.Errorf("failed to discard timer: %w", err)
		}

		fmt.Println("✓ Timer discarded")
		return nil
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of the active timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		state, err := appInstance.TimerService.GetState(ctx)
		if err != nil {
			return fmt.Errorf("failed to get timer state: %w", err)
		}

		if state == domain.TimerStateIdle {
			fmt.Println("No active timer")
			return nil
		}

		timer, err := appInstance.TimerService.GetActiveTimer(ctx)
		if err != nil {
			return fmt.Errorf("failed to get active timer: %w", err)
		}

		elapsed, _ := appInstance.TimerService.ElapsedDuration(ctx)
		value := elapsed.Hours() * timer.Selector.Rate

		fmt.Printf("Timer Status: %s\n", state)
		fmt.Printf("  Client: %s\n", clientDisplayName(ctx, timer.ClientID))
		if timer.Description != "" {
			fmt.Printf("  Description: %s\n", timer.Description)
		}
		fmt.Printf("  Started: %s\n", timer.StartTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Elapsed: %s\n", formatDuration(elapsed))
		fmt.Printf("  Rate: $%.2f/h%s\n", timer.Selector.Rate, rateStateSuffix(timer.Selector.State))
		fmt.Printf("  Accrued: $%.2f\n", value)

		return nil
	},
}

var timerRateCmd = &cobra.Command{
	Use:   "rate",
	Short: "Manage the session's billing rate",
	Long: `View or override the billing rate of the active session.

An edited rate must be confirmed before it takes effect. A confirmed
override sticks until reset, even if the work context changes.`,
}

var timerRateSetCmd = &cobra.Command{
	Use:   "set [amount]",
	Short: "Stage a manual rate for the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rate, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid rate: %w", err)
		}

		if err := appInstance.TimerService.EditRate(ctx, rate); err != nil {
			return fmt.Errorf("failed to edit rate: %w", err)
		}

		timer, _ := appInstance.TimerService.GetActiveTimer(ctx)
		if timer != nil && timer.Selector.State == domain.OverrideStatePending {
			fmt.Printf("Rate $%.2f/h staged. Run 'lexledger timer rate confirm' to apply.\n", rate)
		} else {
			fmt.Printf("✓ Rate set to $%.2f/h\n", rate)
		}
		return nil
	},
}

var timerRateConfirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Confirm the staged rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.TimerService.ConfirmRate(context.Background()); err != nil {
			return fmt.Errorf("failed to confirm rate: %w", err)
		}

		fmt.Println("✓ Rate override confirmed")
		return nil
	},
}

var timerRateCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Abandon the staged rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.TimerService.CancelRate(context.Background()); err != nil {
			return fmt.Errorf("failed to cancel rate edit: %w", err)
		}

		fmt.Println("✓ Rate edit cancelled")
		return nil
	},
}

var timerRateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop the override and return to the catalog rate",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if err := appInstance.TimerService.ResetRate(ctx); err != nil {
			return fmt.Errorf("failed to reset rate: %w", err)
		}

		timer, _ := appInstance.TimerService.GetActiveTimer(ctx)
		if timer != nil {
			fmt.Printf("✓ Rate reset to catalog value: $%.2f/h\n", timer.Selector.Rate)
		}
		return nil
	},
}

var timerIdleCmd = &cobra.Command{
	Use:   "idle [keep|discard]",
	Short: "Resolve a suspended timer's idle gap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var keep bool
		switch args[0] {
		case "keep":
			keep = true
		case "discard":
			keep = false
		default:
			return fmt.Errorf("expected 'keep' or 'discard'")
		}

		if err := appInstance.TimerService.ResolveIdle(ctx, keep); err != nil {
			return fmt.Errorf("failed to resolve idle time: %w", err)
		}

		if keep {
			fmt.Println("✓ Idle time kept, timer running")
		} else {
			fmt.Println("✓ Idle time discarded, timer running")
		}
		return nil
	},
}

func init() {
	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerStopCmd)
	timerCmd.AddCommand(timerPauseCmd)
	timerCmd.AddCommand(timerResumeCmd)
	timerCmd.AddCommand(timerDiscardCmd)
	timerCmd.AddCommand(timerStatusCmd)
	timerCmd.AddCommand(timerRateCmd)
	timerCmd.AddCommand(timerIdleCmd)

	timerRateCmd.AddCommand(timerRateSetCmd)
	timerRateCmd.AddCommand(timerRateConfirmCmd)
	timerRateCmd.AddCommand(timerRateCancelCmd)
	timerRateCmd.AddCommand(timerRateResetCmd)

	timerStartCmd.Flags().Int64("practice-area", 0, "Practice area ID")
	timerStartCmd.Flags().Int64("activity", 0, "Activity type ID")

	timerStopCmd.Flags().Bool("non-billable", false, "Save the entry as non-billable")
	timerStopCmd.Flags().Bool("no-charge", false, "Save the entry as no-charge (shown on invoice at $0)")
}

func rateStateSuffix(state domain.OverrideState) string {
	switch state {
	case domain.OverrideStatePending:
		return " (edit pending confirmation)"
	case domain.OverrideStateOverridden:
		return " (overridden)"
	default:
		return ""
	}
}

// resolveClientID resolves a client by ID or name
func resolveClientID(ctx context.Context, idOrName string) (int64, error) {
	if id, err := strconv.ParseInt(idOrName, 10, 64); err == nil {
		client, err := appInstance.ClientRepo.GetByID(ctx, id)
		if err != nil {
			return 0, err
		}
		if client == nil {
			return 0, fmt.Errorf("client with ID %d not found", id)
		}
		return id, nil
	}

	client, err := appInstance.ClientRepo.GetByName(ctx, idOrName)
	if err != nil {
		return 0, err
	}
	if client == nil {
		return 0, fmt.Errorf("client named '%s' not found", idOrName)
	}

	return client.ID, nil
}

func clientDisplayName(ctx context.Context, clientID int64) string {
	client, _ := appInstance.ClientRepo.GetByID(ctx, clientID)
	if client != nil {
		return client.Name
	}
	return fmt.Sprintf("Client #%d", clientID)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	} else if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
