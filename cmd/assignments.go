package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/goals"
)

var assignmentCmd = &cobra.Command{
	Use:     "assignment",
	Aliases: []string{"assignments"},
	Short:   "Change targets and record progress of assigned goals",
}

var assignmentUpdateTargetCmd = &cobra.Command{
	Use:   "update-target ASSIGNMENT_ID TARGET",
	Short: "Set a new target for the assignment and its periods starting today or later",
	Args:  cobra.ExactArgs(2),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		target, err := parseAmount("target", args[1])
		if err != nil {
			return err
		}

		updated, err := rt.service.UpdateTarget(ctx, args[0], target)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), updated)
	}),
}

var assignmentExtendCmd = &cobra.Command{
	Use:   "extend ASSIGNMENT_ID DELTA",
	Short: "Raise the target of a completed assignment and reopen it",
	Args:  cobra.ExactArgs(2),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		delta, err := parseAmount("delta", args[1])
		if err != nil {
			return err
		}

		if force, _ := cmd.Flags().GetBool("force"); !force {
			current, err := rt.service.Assignment(ctx, args[0])
			if err != nil {
				return err
			}
			if !goals.CanExtend(*current) {
				return fmt.Errorf("assignment %s is %s; only completed assignments can be extended (use --force to override)", args[0], current.Status)
			}
		}

		updated, err := rt.service.ExtendTarget(ctx, args[0], delta)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), updated)
	}),
}

var assignmentRemoveCmd = &cobra.Command{
	Use:   "remove ASSIGNMENT_ID",
	Short: "Remove an assignee from a goal together with every instance",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		if !confirmed(cmd, fmt.Sprintf("Remove assignment %s and all its instances", args[0])) {
			rt.logger.Info("exiting", zap.String("reason", "removal not confirmed"))
			return nil
		}

		if err := rt.service.RemoveAssignee(ctx, args[0]); err != nil {
			return err
		}
		rt.logger.Info("assignee removed", zap.String("assigned_goal_id", args[0]))
		return nil
	}),
}

var assignmentTrackCmd = &cobra.Command{
	Use:   "track ASSIGNMENT_ID VALUE",
	Short: "Record progress for an assignment",
	Args:  cobra.ExactArgs(2),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		value, err := parseAmount("value", args[1])
		if err != nil {
			return err
		}

		params := goals.RecordParams{Value: value}
		params.Notes, _ = cmd.Flags().GetString("notes")
		if raw, _ := cmd.Flags().GetString("date"); raw != "" {
			if params.Date, err = parseDate(raw); err != nil {
				return err
			}
		}

		record, err := rt.service.RecordProgress(ctx, args[0], params)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), record)
	}),
}

var assignmentInstancesCmd = &cobra.Command{
	Use:   "instances ASSIGNMENT_ID",
	Short: "Show active, past and upcoming periods of an assignment",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		classified, err := rt.service.Instances(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), classified)
	}),
}

var assignmentRecordsCmd = &cobra.Command{
	Use:   "records ASSIGNMENT_ID",
	Short: "Show recorded progress of an assignment",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		records, err := rt.service.TrackingRecords(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), records)
	}),
}

var instanceCmd = &cobra.Command{
	Use:   "instance",
	Short: "Manage single goal periods",
}

var instanceStopCmd = &cobra.Command{
	Use:   "stop INSTANCE_ID",
	Short: "Stop a goal period and its assignment",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		stopped, err := rt.service.StopGoal(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stopped)
	}),
}

var employeeCmd = &cobra.Command{
	Use:   "employee",
	Short: "Manage employees",
}

var employeeCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an employee",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		e := goals.Employee{Name: args[0]}
		e.ID, _ = flags.GetString("id")
		e.Email, _ = flags.GetString("email")
		e.Department, _ = flags.GetString("department")
		e.Position, _ = flags.GetString("position")

		created, err := rt.service.CreateEmployee(ctx, e)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), created)
	}),
}

var employeeGoalsCmd = &cobra.Command{
	Use:   "goals EMPLOYEE_ID",
	Short: "List the goals assigned to an employee",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		list, err := rt.service.EmployeeGoals(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), list)
	}),
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mark ended periods overdue and open the current ones",
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
		started := time.Now()
		result, err := rt.service.RollInstances(ctx)
		if err != nil {
			return err
		}

		rt.logger.Info("instances synced",
			zap.Int("created", result.Created),
			zap.Int("marked_overdue", result.MarkedOverdue),
			zap.Duration("elapsed", time.Since(started)),
		)
		return printJSON(cmd.OutOrStdout(), result)
	}),
}

func init() {
	assignmentExtendCmd.Flags().Bool("force", false, "extend even when the assignment is not completed")
	assignmentRemoveCmd.Flags().BoolP(flagYes, "y", false, "do not ask for confirmation")
	assignmentTrackCmd.Flags().String("date", "", "record date (YYYY-MM-DD, default today)")
	assignmentTrackCmd.Flags().String("notes", "", "record notes")

	employeeCreateCmd.Flags().String("id", "", "employee id (generated when empty)")
	employeeCreateCmd.Flags().String("email", "", "employee email")
	employeeCreateCmd.Flags().String("department", "", "employee department")
	employeeCreateCmd.Flags().String("position", "", "employee position")

	assignmentCmd.AddCommand(
		assignmentUpdateTargetCmd,
		assignmentExtendCmd,
		assignmentRemoveCmd,
		assignmentTrackCmd,
		assignmentInstancesCmd,
		assignmentRecordsCmd,
	)
	instanceCmd.AddCommand(instanceStopCmd)
	employeeCmd.AddCommand(employeeCreateCmd, employeeGoalsCmd)

	rootCmd.AddCommand(assignmentCmd, instanceCmd, employeeCmd, syncCmd)
}
