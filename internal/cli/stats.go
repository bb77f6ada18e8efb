package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/ironhabit/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show todo and habit statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	todos := s.engine.Todos()
	habits := s.engine.Habits()
	today := model.Today(time.Now())

	stats := model.Summarize(todos)
	const width = 20
	filled := int(stats.Progress() / 100 * width)
	fmt.Printf("Progress:  [%s%s] %.0f%%\n", strings.Repeat("█", filled), strings.Repeat("░", width-filled), stats.Progress())
	fmt.Printf("Todos:     %d total, %d done, %d pending\n", stats.Total, stats.Done, stats.Pending)

	overdue := 0
	byCategory := map[string]int{}
	for _, t := range todos {
		if t.IsOverdue(today) {
			overdue++
		}
		byCategory[t.Category]++
	}
	fmt.Printf("Overdue:   %d\n", overdue)

	if len(byCategory) > 0 {
		cats := make([]string, 0, len(byCategory))
		for c := range byCategory {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		fmt.Println("Categories:")
		for _, c := range cats {
			fmt.Printf("  #%-12s %d\n", c, byCategory[c])
		}
	}

	best := 0
	doneToday := 0
	for _, h := range habits {
		if h.Streak > best {
			best = h.Streak
		}
		if h.DoneOn(today) {
			doneToday++
		}
	}
	fmt.Printf("Habits:    %d tracked, %d done today, best streak %d\n", len(habits), doneToday, best)
	return nil
}
