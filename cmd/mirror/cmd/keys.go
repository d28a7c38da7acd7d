package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/quicksandd/mirror/keystore"
	bboltstore "github.com/quicksandd/mirror/keystore/bbolt"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the local report key cache",
	Long: `The key cache holds the private keys of reports you have unlocked, so
revisiting a report does not ask for the password again. Entries expire
on their own; these commands inspect and revoke them early.`,
}

func openKeyStore() (*bboltstore.Store, error) {
	store, err := bboltstore.NewStoreFromFile(filepath.Join(dataDir, "keys.db"), nil,
		keystore.WithTTL(keyTTL))
	if err != nil {
		return nil, fmt.Errorf("opening key cache: %w", err)
	}
	return store, nil
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report ids with a cached key",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openKeyStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ids, err := store.ListIDs()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No cached keys.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var keysRemoveCmd = &cobra.Command{
	Use:   "remove <report-id>",
	Short: "Remove the cached key for one report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openKeyStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Remove(args[0]); err != nil {
			if errors.Is(err, keystore.ErrNotFound) {
				return fmt.Errorf("no cached key for %s", args[0])
			}
			return err
		}
		fmt.Println(color.GreenString("✓") + " Removed cached key for " + args[0])
		return nil
	},
}

var keysClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached key",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openKeyStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println(color.GreenString("✓") + " Key cache cleared")
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysRemoveCmd)
	keysCmd.AddCommand(keysClearCmd)
	rootCmd.AddCommand(keysCmd)
}
