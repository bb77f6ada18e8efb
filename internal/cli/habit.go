package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/ironhabit/internal/model"
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage daily habits",
	Long: `Track daily habits and their streaks. Habits stay on this machine.

Examples:
  ironhabit habit add "Read 20 pages"
  ironhabit habit done 1
  ironhabit habit ls`,
	RunE: runHabitList,
}

var habitAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a habit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHabitAdd,
}

var habitListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List habits and streaks",
	RunE:    runHabitList,
}

var habitDoneCmd = &cobra.Command{
	Use:   "done [habit]",
	Short: "Mark a habit done for today",
	Args:  cobra.ExactArgs(1),
	RunE:  runHabitDone,
}

var habitDeleteCmd = &cobra.Command{
	Use:     "delete [habit]",
	Aliases: []string{"rm"},
	Short:   "Delete a habit",
	Args:    cobra.ExactArgs(1),
	RunE:    runHabitDelete,
}

func init() {
	habitCmd.AddCommand(habitAddCmd)
	habitCmd.AddCommand(habitListCmd)
	habitCmd.AddCommand(habitDoneCmd)
	habitCmd.AddCommand(habitDeleteCmd)
}

func runHabitAdd(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	name := strings.Join(args, " ")
	if err := s.engine.AddHabit(name); err != nil {
		return fmt.Errorf("failed to add habit: %w", err)
	}

	fmt.Printf("✓ Added habit: %s\n", strings.TrimSpace(name))
	return nil
}

func runHabitList(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	habits := s.engine.Habits()
	if len(habits) == 0 {
		fmt.Println("No habits yet. Add one with: ironhabit habit add \"Your habit\"")
		return nil
	}

	today := model.Today(time.Now())
	fmt.Println("Habits:")
	for i, h := range habits {
		mark := "○"
		if h.DoneOn(today) {
			mark = "✓"
		}
		fmt.Printf("  %2d. %s %s  🔥 %d\n", i+1, mark, h.Name, h.Streak)
	}
	return nil
}

func runHabitDone(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	habits := s.engine.Habits()
	i, err := resolveHabit(habits, args[0])
	if err != nil {
		return err
	}

	changed, err := s.engine.MarkHabitDone(i)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	if !changed {
		fmt.Printf("Already done today: %s\n", habits[i].Name)
		return nil
	}

	fmt.Printf("✓ %s  🔥 %d\n", habits[i].Name, habits[i].Streak+1)
	return nil
}

func runHabitDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	habits := s.engine.Habits()
	i, err := resolveHabit(habits, args[0])
	if err != nil {
		return err
	}

	if err := s.engine.DeleteHabit(i); err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}

	fmt.Printf("🗑️  Deleted habit: \"%s\"\n", habits[i].Name)
	return nil
}

// resolveHabit finds a habit by its 1-based list number or exact name.
func resolveHabit(habits []model.HabitItem, ref string) (int, error) {
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(habits) {
		return n - 1, nil
	}
	for i, h := range habits {
		if strings.EqualFold(h.Name, ref) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("habit not found: %s", ref)
}
