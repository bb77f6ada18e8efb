package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/existflow/ironhabit/internal/model"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all todos and habits",
	Long: `Clear all todos and habits from this machine or/and the sync server.
By default, it only clears local data unless --remote or --all is specified.`,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().Bool("local", true, "Clear local data (default)")
	clearCmd.Flags().Bool("remote", false, "Clear remote todos on the sync server")
	clearCmd.Flags().Bool("all", false, "Clear both local and remote data")
	clearCmd.Flags().Bool("force", false, "Do not ask for confirmation")
}

func runClear(cmd *cobra.Command, args []string) error {
	local, _ := cmd.Flags().GetBool("local")
	remote, _ := cmd.Flags().GetBool("remote")
	all, _ := cmd.Flags().GetBool("all")
	force, _ := cmd.Flags().GetBool("force")

	if all {
		local = true
		remote = true
	} else if remote && !cmd.Flags().Changed("local") {
		local = false
	}

	if !force {
		fmt.Printf("Are you sure you want to clear data? (y/N): ")
		var response string
		_, _ = fmt.Scanln(&response)
		if strings.ToLower(response) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()

	// Remote first: pruning compares against the local list.
	if remote {
		s.connect(ctx)
		if _, ok := s.identity.Current(); !ok || !s.monitor.Online() {
			fmt.Println("Skipping remote clear: offline or no identity.")
		} else {
			fmt.Println("🌐 Clearing remote data...")
			n, err := s.engine.PruneAll(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear remote data after %d todos: %w", n, err)
			}
			fmt.Printf("Remote data cleared (%d todos).\n", n)
		}
	}

	if local {
		fmt.Println("🧹 Clearing local data...")
		if err := s.store.SaveTodos([]model.TodoItem{}); err != nil {
			return fmt.Errorf("failed to clear local todos: %w", err)
		}
		if err := s.store.SaveHabits([]model.HabitItem{}); err != nil {
			return fmt.Errorf("failed to clear local habits: %w", err)
		}
		if err := s.store.ClearLastDeleted(); err != nil {
			return fmt.Errorf("failed to clear undo record: %w", err)
		}
		fmt.Println("Local data cleared.")
	}

	return nil
}
