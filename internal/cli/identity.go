package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var identityCmd = &cobra.Command{
	Use:     "identity",
	Aliases: []string{"auth"},
	Short:   "Show or reset the anonymous sync identity",
	Long: `Todos are stored on the server under an anonymous identity created
on first sync. There is no account or password.`,
	RunE: runIdentityShow,
}

var identityResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the identity; the next sync signs in as someone new",
	RunE:  runIdentityReset,
}

var identityVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the server still accepts the identity",
	RunE:  runIdentityVerify,
}

func init() {
	identityCmd.AddCommand(identityResetCmd)
	identityCmd.AddCommand(identityVerifyCmd)
}

func runIdentityShow(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	id, ok := s.store.LoadIdentity()
	if !ok {
		fmt.Println("No identity yet. One is created on the next sync.")
		return nil
	}

	fmt.Printf("User ID:  %s\n", id.UID)
	fmt.Printf("Server:   %s\n", s.cfg.ServerURL)
	return nil
}

func runIdentityVerify(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.client == nil {
		fmt.Println("Cloud sync is off.")
		return nil
	}
	id, ok := s.store.LoadIdentity()
	if !ok {
		fmt.Println("No identity yet.")
		return nil
	}

	fmt.Println("🔄 Verifying identity...")
	if err := s.client.Verify(context.Background(), id); err != nil {
		return fmt.Errorf("identity rejected: %w", err)
	}
	fmt.Println("✅ Identity accepted by the server")
	return nil
}

func runIdentityReset(cmd *cobra.Command, args []string) error {
	if err := forgetIdentity(); err != nil {
		return err
	}
	fmt.Println("✅ Identity forgotten. Server copies under the old identity are no longer reachable from here.")
	return nil
}

func forgetIdentity() error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.identity.Forget(); err != nil {
		return fmt.Errorf("failed to forget identity: %w", err)
	}
	return nil
}
