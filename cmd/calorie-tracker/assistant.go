package main

import (
	"context"
	"fmt"
	"strings"

	"calorie-tracker/internal/app"
	"calorie-tracker/internal/imagehost"
	"calorie-tracker/internal/report"

	"github.com/spf13/cobra"
)

func newAskCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the nutrition assistant about your intake",
		Long: `Ask the nutrition assistant a question. Your goal, today's total, the
weekly average and recent entries are sent along with it.

Examples:
  calorie-tracker ask "What should I have for dinner?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				answer, err := a.Ask(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), answer)
				return nil
			})
		},
	}
}

func newAnalyzeCmd(root *rootOptions) *cobra.Command {
	var (
		add  bool
		meal string
	)
	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Detect foods in a meal photo",
		Long: `Upload a meal photo, ask the vision model which foods it shows and
print the estimates. With --add every detected item is logged for today.

Examples:
  calorie-tracker analyze lunch.jpg
  calorie-tracker analyze dinner.png --add --meal dinner`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app.App) error {
				mealType, err := mealOrDefault(meal, a)
				if err != nil {
					return err
				}
				img, err := imagehost.ReadFile(args[0])
				if err != nil {
					return err
				}
				p, err := a.NewPipeline(ctx)
				if err != nil {
					return err
				}
				items, err := p.Analyze(ctx, img)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.Detected(items))
				if !add || len(items) == 0 {
					return nil
				}

				t := a.Tracker()
				added, err := p.AddAll(ctx, t, mealType, t.Today())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d items to %s\n%s\n", len(added), mealType.Title(), report.GoalStatus(t.Stats()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "log every detected item")
	cmd.Flags().StringVar(&meal, "meal", "", "meal for added items (default from config)")
	return cmd
}
