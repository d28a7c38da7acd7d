package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quicksandd/mirror/report"
	"github.com/quicksandd/mirror/retrieve"
)

var serverURL string

var viewCmd = &cobra.Command{
	Use:   "view <report-id>",
	Short: "Fetch, decrypt, and print a report",
	Long: `Fetches the report, waiting for the analysis to finish if it is still
running. If a key for this report is cached locally the report decrypts
immediately; otherwise you are prompted for the password. A password that
works is cached for later visits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID := args[0]

		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		keys, err := openKeyStore()
		if err != nil {
			return err
		}
		defer keys.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		changes := make(chan retrieve.View, 32)
		ctrl := retrieve.New(reportID, report.NewClient(serverURL), keys,
			retrieve.WithOnChange(func(v retrieve.View) {
				changes <- v
			}))
		defer ctrl.Close()

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Fetching report..."
		_ = s.Color("cyan")
		s.Start()
		defer s.Stop()

		if err := ctrl.Start(ctx); err != nil {
			return err
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case v := <-changes:
				done, err := handleView(ctrl, s, v)
				if done || err != nil {
					return err
				}
			}
		}
	},
}

// handleView reacts to one state transition. It returns done=true once the
// visit has reached an outcome worth exiting on.
func handleView(ctrl *retrieve.Controller, s *spinner.Spinner, v retrieve.View) (bool, error) {
	switch v.State {
	case retrieve.StatePolling:
		s.Suffix = fmt.Sprintf(" Analysis in progress (check %d)...", v.RetryCount+1)
		if v.FetchError != "" {
			s.Suffix = " Analysis in progress (last check failed, retrying)..."
		}
		return false, nil

	case retrieve.StateAutoDecrypting:
		s.Suffix = " Decrypting with saved key..."
		return false, nil

	case retrieve.StateDecrypting:
		s.Suffix = " Decrypting..."
		return false, nil

	case retrieve.StateAwaitingPassword:
		s.Stop()
		if v.PasswordError != "" {
			fmt.Println(color.RedString("✗") + " " + v.PasswordError)
		}
		password, err := readPassword("Password (empty to cancel): ")
		if err != nil {
			return true, err
		}
		if password == "" {
			ctrl.CancelPassword()
			return false, nil
		}
		s.Suffix = " Decrypting..."
		s.Start()
		if err := ctrl.SubmitPassword(password); err != nil {
			return true, err
		}
		return false, nil

	case retrieve.StateReady:
		s.Stop()
		printReport(v)
		return true, nil

	case retrieve.StateReportError:
		s.Stop()
		msg := "the analysis failed"
		if v.Report != nil && v.Report.ErrorMessage != "" {
			msg = v.Report.ErrorMessage
		}
		return true, fmt.Errorf("analysis failed: %s", msg)

	case retrieve.StateFetchError:
		s.Stop()
		return true, errors.New(v.FetchError)

	case retrieve.StateUnavailable:
		s.Stop()
		return true, errors.New("this report carries no keypair and can never be decrypted")

	case retrieve.StateCancelled:
		fmt.Println("Cancelled.")
		return true, nil
	}
	return false, nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(raw), nil
}

func printReport(v retrieve.View) {
	if v.Report != nil {
		header := "Report"
		if v.Report.PersonName != "" {
			header = "Report for " + v.Report.PersonName
		}
		fmt.Println(color.GreenString("✓") + " " + color.New(color.Bold).Sprint(header))
		if !v.Report.CreatedAt.IsZero() {
			fmt.Println("  Created: " + v.Report.CreatedAt.Local().Format(time.RFC1123))
		}
		fmt.Println()
	}

	var pretty json.RawMessage
	if json.Unmarshal(v.Plaintext, &pretty) == nil {
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err == nil {
			fmt.Println(string(out))
			return
		}
	}
	os.Stdout.Write(v.Plaintext)
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the report server")
}
