package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/quicksandd/mirror/keystore"
)

var (
	dataDir string
	keyTTL  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror retrieves and decrypts confidential chat-analysis reports",
	Long: `Mirror fetches analysis reports whose contents only the report owner can
read: the insights are sealed to a keypair that unlocks with the owner's
password, and a successfully used key is cached locally so later visits
decrypt without prompting.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(),
		"Directory for the local key cache and server data")
	rootCmd.PersistentFlags().DurationVar(&keyTTL, "key-ttl", keystore.DefaultTTL,
		"How long cached report keys stay usable")
}

// defaultDataDir prefers a per-user location, falling back to the working
// directory when the home directory is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./mirror-data"
	}
	return home + "/.mirror"
}
