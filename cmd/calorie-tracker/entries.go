package main

import (
	"context"
	"fmt"
	"strconv"

	"calorie-tracker/internal/app"
	"calorie-tracker/internal/food"
	"calorie-tracker/internal/report"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"
)

type addOptions struct {
	name     string
	common   string
	calories float64
	quantity float64
	protein  float64
	carbs    float64
	fats     float64
	meal     string
	date     string
}

func newAddCmd(root *rootOptions) *cobra.Command {
	opts := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a food entry",
		Long: `Log a food entry for today or a given date.

Examples:
  # Custom food
  calorie-tracker add --name "Protein bar" --calories 210 --meal snack

  # Two servings from the common foods list
  calorie-tracker add --common "Egg" --quantity 2 --meal breakfast`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				entry, err := opts.entry(a)
				if err != nil {
					return err
				}
				added, err := a.Tracker().Add(ctx, entry)
				if err != nil && added.ID == 0 {
					return err
				}
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
				}
				s := a.Tracker().Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "Added #%d %s (%d cal) to %s on %s\n%s\n",
					added.ID, added.Name, report.Round(added.CaloriesContributed()), added.Meal.Title(), added.Date, report.GoalStatus(s))
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "food name")
	f.StringVar(&opts.common, "common", "", "name of a food from the common foods list")
	f.Float64Var(&opts.calories, "calories", 0, "calories per unit")
	f.Float64Var(&opts.quantity, "quantity", 1, "number of units")
	f.Float64Var(&opts.protein, "protein", 0, "protein grams per unit")
	f.Float64Var(&opts.carbs, "carbs", 0, "carb grams per unit")
	f.Float64Var(&opts.fats, "fats", 0, "fat grams per unit")
	f.StringVar(&opts.meal, "meal", "", "breakfast, lunch, dinner or snack (default from config)")
	f.StringVar(&opts.date, "date", "", "entry date as YYYY-MM-DD (default today)")
	cmd.MarkFlagsMutuallyExclusive("name", "common")
	return cmd
}

func (o *addOptions) entry(a *app.App) (food.Entry, error) {
	meal, err := mealOrDefault(o.meal, a)
	if err != nil {
		return food.Entry{}, err
	}
	date, err := dateOrToday(o.date, a)
	if err != nil {
		return food.Entry{}, err
	}

	if o.common != "" {
		c, ok := food.LookupCommon(o.common)
		if !ok {
			return food.Entry{}, fmt.Errorf("%q is not in the common foods list", o.common)
		}
		e := c.Entry(meal, date)
		e.Quantity = o.quantity
		return e, nil
	}
	if o.name == "" {
		return food.Entry{}, fmt.Errorf("either --name or --common is required")
	}
	return food.Entry{
		Name:     o.name,
		Calories: o.calories,
		Quantity: o.quantity,
		Protein:  o.protein,
		Carbs:    o.carbs,
		Fats:     o.fats,
		Meal:     meal,
		Date:     date,
	}, nil
}

func mealOrDefault(value string, a *app.App) (food.MealType, error) {
	if value == "" {
		return a.Config().DefaultMeal, nil
	}
	return food.ParseMealType(value)
}

func dateOrToday(value string, a *app.App) (civil.Date, error) {
	if value == "" {
		return a.Tracker().Today(), nil
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an entry by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid entry id %q", args[0])
			}
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				removed, err := a.Tracker().Remove(ctx, id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "No entry with id %d\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry #%d\n", id)
				return nil
			})
		},
	}
}

func newListCmd(root *rootOptions) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the foods logged on a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				d, err := dateOrToday(date, a)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.Entries("Foods on "+d.String(), a.Tracker().ListForDate(d)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to list as YYYY-MM-DD (default today)")
	return cmd
}

func newTodayCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Show today's dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), report.Dashboard(a.Tracker().Stats()))
				return nil
			})
		},
	}
}

func newWeekCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show the last seven days against the goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				fmt.Fprintln(cmd.OutOrStdout(), report.Week(a.Tracker().Stats()))
				return nil
			})
		},
	}
}

func newGoalCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "goal [calories]",
		Short: "Show or set the daily calorie goal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				t := a.Tracker()
				if len(args) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Daily goal: %d calories\n", t.Goal())
					return nil
				}
				goal, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("goal must be a whole number of calories: %w", err)
				}
				if err := t.SetGoal(ctx, goal); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daily goal set to %d calories\n", goal)
				return nil
			})
		},
	}
}

func newFoodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "foods",
		Short: "List the common foods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), report.CommonFoods(food.CommonFoods()))
			return nil
		},
	}
}
