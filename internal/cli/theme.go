package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/ironhabit/internal/localstore"
)

var themeCmd = &cobra.Command{
	Use:   "theme [light|dark]",
	Short: "Show or set the TUI theme",
	Long: `Show the current theme, or set it.

Examples:
  ironhabit theme
  ironhabit theme dark`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{localstore.ThemeLight, localstore.ThemeDark},
	RunE:      runTheme,
}

func runTheme(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 0 {
		fmt.Printf("Current theme: %s\n", s.store.Theme())
		return nil
	}

	if err := s.store.SetTheme(args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ Theme set to %s\n", args[0])
	return nil
}
