package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spigell/goal-tracker/internal/filtering"
	"github.com/spigell/goal-tracker/internal/goals"
)

type commandFunc func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error

// withRuntime opens the store for the duration of one command.
func withRuntime(fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.shutdown(context.Background())

		return fn(ctx, rt, cmd, args)
	}
}

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Create, inspect and delete goals",
}

var goalCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a goal",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		description, _ := flags.GetString("description")
		sector, _ := flags.GetString("sector")
		metric, _ := flags.GetString("metric")
		unit, _ := flags.GetString("unit")
		startRaw, _ := flags.GetString("start")
		endRaw, _ := flags.GetString("end")
		createdBy, _ := flags.GetString("created-by")

		start, err := parseDate(startRaw)
		if err != nil {
			return err
		}
		end, err := parseDate(endRaw)
		if err != nil {
			return err
		}

		goal := goals.Goal{
			Name:        args[0],
			Description: description,
			Sector:      goals.Sector(sector),
			MetricType:  goals.MetricType(metric),
			MetricUnit:  unit,
			StartDate:   start,
			EndDate:     end,
			CreatedBy:   createdBy,
		}
		if flags.Changed("target") {
			target, _ := flags.GetFloat64("target")
			goal.TargetValue = &target
		}

		created, err := rt.service.CreateGoal(ctx, goal)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), created)
	}),
}

var goalAssignCmd = &cobra.Command{
	Use:   "assign GOAL_ID EMPLOYEE_ID...",
	Short: "Assign a goal to employees and open their current period",
	Args:  cobra.MinimumNArgs(2),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		typeRaw, _ := flags.GetString("type")
		notes, _ := flags.GetString("notes")

		goalType, err := goals.ParseGoalType(typeRaw)
		if err != nil {
			return &goals.ValidationError{Field: "type", Reason: err.Error()}
		}

		params := goals.AssignParams{EmployeeIDs: args[1:], GoalType: goalType, Notes: notes}
		if flags.Changed("target") {
			target, _ := flags.GetFloat64("target")
			params.TargetValue = &target
		}

		assigned, err := rt.service.AssignGoal(ctx, args[0], params)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), assigned)
	}),
}

var goalShowCmd = &cobra.Command{
	Use:   "show GOAL_ID",
	Short: "Show a goal with its assignees and totals",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		details, err := rt.service.GoalDetails(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), details)
	}),
}

var goalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals with their aggregated progress",
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
		items, err := filteredGoals(ctx, rt, cmd.Flags())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), items)
	}),
}

var goalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count goals by status",
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, _ []string) error {
		items, err := filteredGoals(ctx, rt, cmd.Flags())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), goals.Summarize(items))
	}),
}

var goalDeleteCmd = &cobra.Command{
	Use:   "delete GOAL_ID",
	Short: "Delete a goal with every assignment and instance",
	Args:  cobra.ExactArgs(1),
	RunE: withRuntime(func(ctx context.Context, rt *runtime, cmd *cobra.Command, args []string) error {
		if !confirmed(cmd, fmt.Sprintf("Delete goal %s with all assignments and instances", args[0])) {
			rt.logger.Info("exiting", zap.String("reason", "deletion not confirmed"))
			return nil
		}

		if err := rt.service.DeleteGoal(ctx, args[0]); err != nil {
			return err
		}
		rt.logger.Info("goal deleted", zap.String("goal_id", args[0]))
		return nil
	}),
}

func filteredGoals(ctx context.Context, rt *runtime, flags *pflag.FlagSet) ([]goals.GoalWithDetails, error) {
	cfg, err := filterConfigFromFlags(flags)
	if err != nil {
		return nil, err
	}

	var base goals.GoalFilter
	if len(cfg.Sectors) == 1 {
		base.Sector = cfg.Sectors[0]
	}

	items, err := rt.service.ListGoalDetails(ctx, base)
	if err != nil {
		return nil, err
	}

	steps := filtering.Default()
	left, err := filtering.Run(ctx, cfg, filtering.Deps{Logger: rt.logger}, steps, filtering.NewGoals(items))
	if err != nil {
		return nil, err
	}

	rt.logger.Debug("filters applied", zap.Any("filters", filtering.Describe(steps)))
	return left.Items, nil
}

func init() {
	goalCreateCmd.Flags().String("description", "", "goal description")
	goalCreateCmd.Flags().String("sector", "", "HR, Sales, Finance, Operations or Marketing")
	goalCreateCmd.Flags().String("metric", "count", "percentage, currency, count, hours or custom")
	goalCreateCmd.Flags().String("unit", "", "metric unit")
	goalCreateCmd.Flags().Float64("target", 0, "base target for new assignments")
	goalCreateCmd.Flags().String("start", "", "first valid day (YYYY-MM-DD)")
	goalCreateCmd.Flags().String("end", "", "last valid day (YYYY-MM-DD)")
	goalCreateCmd.Flags().String("created-by", "", "author employee id")

	goalAssignCmd.Flags().String("type", "Monthly", "period cadence: Daily, Weekly, Monthly or Yearly")
	goalAssignCmd.Flags().Float64("target", 0, "target per assignee (defaults to the goal target)")
	goalAssignCmd.Flags().String("notes", "", "assignment notes")

	addFilterFlags(goalListCmd.Flags())
	addFilterFlags(goalStatsCmd.Flags())

	goalDeleteCmd.Flags().BoolP(flagYes, "y", false, "do not ask for confirmation")

	goalCmd.AddCommand(goalCreateCmd, goalAssignCmd, goalShowCmd, goalListCmd, goalStatsCmd, goalDeleteCmd)
	rootCmd.AddCommand(goalCmd)
}
