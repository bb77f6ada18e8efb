package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var doneCmd = &cobra.Command{
	Use:   "done [todo]",
	Short: "Toggle a todo done",
	Long: `Toggle the done flag of a todo, by list number or id prefix.

Examples:
  ironhabit done 2
  ironhabit done 3f2a`,
	Args: cobra.ExactArgs(1),
	RunE: runDone,
}

func runDone(cmd *cobra.Command, args []string) error {
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

	res, err := s.engine.Toggle(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update todo: %w", err)
	}

	if item.Done {
		fmt.Printf("○ Reopened: %s\n", item.Text)
	} else {
		fmt.Printf("✓ Completed: %s\n", item.Text)
	}
	printSaveResult(res)
	return nil
}
