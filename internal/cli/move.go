package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var moveCmd = &cobra.Command{
	Use:     "move [todo] [position]",
	Aliases: []string{"mv"},
	Short:   "Move a todo to another position",
	Long: `Move a todo to a 1-based position in the list.

Examples:
  ironhabit move 5 1
  ironhabit mv 3f2a 2`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func runMove(cmd *cobra.Command, args []string) error {
	pos, err := strconv.Atoi(args[1])
	if err != nil || pos < 1 {
		return fmt.Errorf("invalid position: %s", args[1])
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.connect(ctx)

	todos := s.engine.Todos()
	item, err := resolveTodo(todos, args[0])
	if err != nil {
		return err
	}
	if pos > len(todos) {
		pos = len(todos)
	}

	res, err := s.engine.Reorder(ctx, item.ID, pos-1)
	if err != nil {
		return fmt.Errorf("failed to move todo: %w", err)
	}

	fmt.Printf("↕️  Moved \"%s\" to position %d\n", item.Text, pos)
	printSaveResult(res)
	return nil
}
