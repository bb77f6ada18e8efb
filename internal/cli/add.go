package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/ironhabit/internal/app"
	"github.com/existflow/ironhabit/internal/logger"
	"github.com/existflow/ironhabit/internal/model"
)

var addCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Add a new todo",
	Long: `Add a new todo. The due date defaults to today.

Examples:
  ironhabit add "Buy groceries"
  ironhabit add "Dentist" -d tomorrow -p high
  ironhabit add "Quarterly report" --date 2026-11-01 --category work`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addDate     string
	addCategory string
	addPriority string
)

func init() {
	addCmd.Flags().StringVarP(&addDate, "date", "d", "today", "Due date (today, tomorrow, YYYY-MM-DD or a phrase like \"next friday\")")
	addCmd.Flags().StringVarP(&addCategory, "category", "c", model.DefaultCategory, "Category")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", model.PriorityLow, "Priority (low, medium, high)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.connect(ctx)

	item, res, err := s.engine.AddTodo(ctx, app.TodoInput{
		Text:     strings.Join(args, " "),
		Date:     model.ParseDay(addDate, time.Now()),
		Category: addCategory,
		Priority: model.ParsePriority(addPriority),
	})
	if err != nil {
		return fmt.Errorf("failed to add todo: %w", err)
	}

	logger.Info("Todo added via CLI", logger.F("id", item.ID))
	fmt.Printf("✓ Added: %s\n", item.Text)
	fmt.Printf("  ID: %s  Due: %s  #%s  !%s\n", shortID(item.ID), item.Date, item.Category, item.Priority)
	printSaveResult(res)
	return nil
}
