package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/existflow/ironhabit/internal/app"
	"github.com/existflow/ironhabit/internal/logger"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync todos with the server",
	Long: `Push the local todo list to the server, or pull it from there.

Commands:
  ironhabit sync              # Push every todo now
  ironhabit sync --pull       # Replace local todos with the server copy
  ironhabit sync --prune      # Push, then remove server todos deleted here
  ironhabit sync status       # Show sync status`,
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status",
	RunE:  runSyncStatus,
}

var syncKeyCmd = &cobra.Command{
	Use:   "key",
	Short: "Set the passphrase that seals todos on the server",
	RunE:  runSyncKey,
}

var syncConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure sync settings",
	RunE:  runSyncConfig,
}

func init() {
	syncCmd.AddCommand(syncStatusCmd)
	syncCmd.AddCommand(syncKeyCmd)
	syncCmd.AddCommand(syncConfigCmd)

	syncCmd.Flags().Bool("pull", false, "Pull from the server (replaces local todos when the server has any)")
	syncCmd.Flags().Bool("prune", false, "Delete server todos that no longer exist locally")

	syncConfigCmd.Flags().String("server", "", "Set server URL")
	syncConfigCmd.Flags().String("cloud", "", "Enable or disable cloud sync (on, off)")
	syncStatusCmd.Flags().Int("log-lines", 5, "Number of recent log lines to show")
}

func runSync(cmd *cobra.Command, args []string) error {
	pull, _ := cmd.Flags().GetBool("pull")
	prune, _ := cmd.Flags().GetBool("prune")
	if pull && prune {
		return fmt.Errorf("cannot use both --pull and --prune")
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.client == nil {
		fmt.Println("Cloud sync is off. Enable it with: ironhabit sync config --cloud on")
		return nil
	}

	ctx := context.Background()
	s.connect(ctx)
	if _, ok := s.identity.Current(); !ok {
		return fmt.Errorf("sync failed: %w", app.ErrNoIdentity)
	}
	if !s.monitor.Online() {
		return fmt.Errorf("sync failed: %w", app.ErrOffline)
	}

	if pull {
		fmt.Println("⚠️  Pulling from server (replacing local todos)...")
		res, err := s.engine.Pull(ctx)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		if !res.Replaced {
			fmt.Println("✓ Server has no todos, local list kept")
			return nil
		}
		fmt.Printf("✓ Sync complete! Pulled: %d\n", res.Count)
		return nil
	}

	fmt.Println("🔄 Synchronizing...")
	res, err := s.engine.ForcePush(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if res.State == app.StatePushDeferred {
		return fmt.Errorf("sync failed after %d todos: %w", res.Pushed, res.Err)
	}

	pruned := 0
	if prune {
		pruned, err = s.engine.Prune(ctx)
		if err != nil {
			return fmt.Errorf("prune failed after %d deletions: %w", pruned, err)
		}
	}

	fmt.Printf("✓ Sync complete! Pushed: %d, Pruned: %d\n", res.Pushed, pruned)
	return nil
}

func runSyncStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	s.connect(ctx)

	fmt.Printf("Server:    %s\n", s.cfg.ServerURL)
	if s.client == nil {
		fmt.Println("Status:    Cloud sync off")
	} else if id, ok := s.identity.Current(); ok {
		fmt.Printf("User ID:   %s\n", id.UID)
		fmt.Println("Status:    ✓ Signed in anonymously")
	} else {
		fmt.Println("Status:    No identity (local only)")
	}

	if s.monitor.Online() && s.client != nil {
		fmt.Println("Network:   ✓ Online")
	} else {
		fmt.Println("Network:   Offline")
	}

	if s.cfg.EncryptionPassphrase != "" {
		fmt.Println("Sealing:   ✓ Todos are encrypted on the server")
	}

	pending, err := s.relay.Pending(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pending syncs: %w", err)
	}
	if len(pending) == 0 {
		fmt.Println("Pending:   none")
	}
	for _, reg := range pending {
		fmt.Printf("Pending:   %s since %s\n", reg.Tag, reg.RegisteredAt.Format("2006-01-02 15:04:05"))
	}
	manifest := s.relay.Manifest()
	gens, err := s.relay.Generations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read asset cache: %w", err)
	}
	if len(gens) == 0 {
		fmt.Printf("Cache:     empty (run 'ironhabit relay' to cache %s)\n", manifest.Version)
	} else {
		fmt.Printf("Cache:     %s (want %s)\n", strings.Join(gens, ", "), manifest.Version)
	}

	n, _ := cmd.Flags().GetInt("log-lines")
	if recent := logger.GlobalDiagnostics().Recent(n); len(recent) > 0 {
		fmt.Println("\nRecent:")
		for _, e := range recent {
			fmt.Printf("  %s\n", e.String())
		}
	}
	return nil
}

func runSyncKey(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()

	fmt.Print("Enter encryption passphrase (empty to turn sealing off): ")
	passphrase, err := readSecret()
	if err != nil {
		return err
	}

	if passphrase != "" && len(passphrase) < 8 {
		return fmt.Errorf("passphrase must be at least 8 characters")
	}

	cfg.EncryptionPassphrase = passphrase
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if passphrase == "" {
		fmt.Println("✓ Sealing turned off. New pushes are stored in plain JSON.")
		return nil
	}
	fmt.Println("✓ Passphrase saved. New pushes are sealed.")
	fmt.Println("\n⚠️  IMPORTANT: Use the same passphrase on your other devices.")
	return nil
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runSyncConfig(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()

	server, _ := cmd.Flags().GetString("server")
	cloud, _ := cmd.Flags().GetString("cloud")

	changed := false
	if server != "" {
		cfg.ServerURL = strings.TrimRight(server, "/")
		changed = true
	}
	if cloud != "" {
		switch strings.ToLower(cloud) {
		case "on", "true", "yes":
			cfg.CloudSync = true
		case "off", "false", "no":
			cfg.CloudSync = false
		default:
			return errors.New("--cloud must be on or off")
		}
		changed = true
	}

	if changed {
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Println("✓ Sync settings saved")
	}

	if server != "" {
		if err := forgetIdentity(); err != nil {
			return err
		}
		fmt.Println("Identity reset; a new one is created on the next sync.")
	}

	fmt.Printf("Server: %s\n", cfg.ServerURL)
	fmt.Printf("Cloud:  %t\n", cfg.CloudSync)
	return nil
}
