package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/ironhabit/internal/model"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [todo]",
	Aliases: []string{"rm"},
	Short:   "Delete a todo",
	Long: `Delete a todo by list number or id prefix. It can be restored with
'ironhabit undo' for a few seconds.

Examples:
  ironhabit delete 2
  ironhabit rm 3f2a`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Restore the last deleted todo",
	Args:  cobra.NoArgs,
	RunE:  runUndo,
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.connect(ctx)

	item, err := resolveTodo(s.engine.Todos(), args[0])
	if err != nil {
		return err
	}

	deleted, res, err := s.engine.Delete(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	fmt.Printf("🗑️  Deleted: \"%s\"\n", item.Text)
	printSaveResult(res)
	fmt.Printf("   %s\n", undoHint(deleted, time.Now()))
	return nil
}

// undoHint tells how much of the undo window is left once the push is done.
func undoHint(d model.DeletedTodo, now time.Time) string {
	left := model.UndoWindow - now.Sub(d.DeletedAt)
	if left <= 0 {
		return "The undo window has passed."
	}
	return fmt.Sprintf("Run 'ironhabit undo' within %s to restore it.", left.Round(100*time.Millisecond))
}

func runUndo(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.connect(ctx)

	item, res, err := s.engine.Undo(ctx)
	switch {
	case errors.Is(err, model.ErrNothingToUndo):
		fmt.Println("Nothing to undo.")
		return nil
	case errors.Is(err, model.ErrUndoExpired):
		fmt.Println("Too late: the undo window has passed.")
		return nil
	case err != nil:
		return fmt.Errorf("failed to undo: %w", err)
	}

	fmt.Printf("↩️  Restored: %s\n", item.Text)
	printSaveResult(res)
	return nil
}
