package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			displayAppname()

			if email == "" {
				email, err = promptEmail(cmd, app.store.LastIdentity())
				if err != nil {
					return err
				}
			}

			password, err := promptPassword(cmd)
			if err != nil {
				return err
			}

			if err := app.controller.Login(cmd.Context(), email, password); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s tier)\n", email, app.store.Role())
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			app.controller.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			app.controller.RestoreSession(cmd.Context())
			if !app.controller.IsAuthenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}

			snap := app.store.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s tier), session valid until %s\n",
				snap.LastIdentity, snap.Role, snap.ExpiresAt.Local().Format("15:04:05 2006-01-02"))
			return nil
		},
	}
}

func promptEmail(cmd *cobra.Command, lastIdentity string) (string, error) {
	prompt := "Email: "
	if lastIdentity != "" {
		prompt = fmt.Sprintf("Email [%s]: ", lastIdentity)
	}
	fmt.Fprint(cmd.OutOrStdout(), prompt)

	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	entered := strings.TrimSpace(line)
	if entered == "" {
		entered = lastIdentity
	}
	return entered, nil
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Password: ")
	defer fmt.Fprintln(cmd.OutOrStdout())

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	// Piped input for scripting.
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
