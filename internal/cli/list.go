package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/ironhabit/internal/model"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List todos",
	Long: `List todos in their saved order.

Examples:
  ironhabit list
  ironhabit list --search groceries
  ironhabit list --sync`,
	RunE: runList,
}

var (
	listSearch string
	listSync   bool
)

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "q", "", "Only show todos matching text or category")
	listCmd.Flags().BoolVarP(&listSync, "sync", "s", false, "Pull from the server before listing")
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.connect(ctx)
	s.deliverPending(ctx)

	if listSync {
		fmt.Println("🔄 Syncing...")
		res, err := s.engine.Pull(ctx)
		switch {
		case err != nil:
			fmt.Printf("⚠️  Sync failed: %v\n", err)
		case res.Skipped:
			fmt.Println("⚠️  Sync skipped: offline or no identity")
		case res.Replaced:
			fmt.Printf("✓ Synced (↓%d)\n", res.Count)
		default:
			fmt.Println("✓ Already up to date")
		}
	}

	todos := s.engine.Todos()
	if len(todos) == 0 {
		fmt.Println("No todos found. Add one with: ironhabit add \"Your todo\"")
		return nil
	}

	shown := todos
	if listSearch != "" {
		shown = model.Filter(todos, listSearch)
		if len(shown) == 0 {
			fmt.Printf("No todos match %q.\n", listSearch)
			return nil
		}
	}

	printTodos(todos, shown, model.Today(time.Now()))
	return nil
}

// printTodos prints shown, numbered by position in the full list so the
// numbers stay valid for done, delete and move.
func printTodos(all, shown []model.TodoItem, today string) {
	for _, t := range shown {
		check := "○"
		if t.Done {
			check = "✓"
		}
		flag := ""
		if t.IsOverdue(today) {
			flag = " ⏰"
		}
		fmt.Printf("  %2d. %s %s [%s] %s #%s !%s%s\n",
			model.IndexOf(all, t.ID)+1, check, t.Text, shortID(t.ID), t.Date, t.Category, t.Priority, flag)
	}

	stats := model.Summarize(all)
	fmt.Printf("\n%d todos, %d done, %d pending (%.0f%%)\n", stats.Total, stats.Done, stats.Pending, stats.Progress())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveTodo finds a todo by its 1-based list number or an id prefix.
func resolveTodo(todos []model.TodoItem, ref string) (model.TodoItem, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(todos) {
		return todos[n-1], nil
	}

	var found []model.TodoItem
	for _, t := range todos {
		if strings.HasPrefix(t.ID, ref) {
			found = append(found, t)
		}
	}
	switch len(found) {
	case 0:
		return model.TodoItem{}, fmt.Errorf("todo not found: %s", ref)
	case 1:
		return found[0], nil
	default:
		return model.TodoItem{}, fmt.Errorf("todo id %q is ambiguous (%d matches)", ref, len(found))
	}
}
