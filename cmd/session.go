package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Open a session and print its token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ip, _ := cmd.Flags().GetString("ip")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		sess, err := d.accounts.Login(cmd.Context(), args[0], ip)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sess.Token)
		fmt.Fprintf(out, "expires %s\n", sess.ExpiresAt.Local().Format(time.RFC3339))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout <token>",
	Short: "End a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		return d.accounts.Logout(cmd.Context(), args[0])
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami <token>",
	Short: "Show the user a session token belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		sess, err := d.accounts.Authenticate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "user %s (ip %q), expires %s\n",
			sess.UserID, sess.IPAddress, sess.ExpiresAt.Local().Format(time.RFC3339))
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Maintain login sessions",
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all expired sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		n, err := d.accounts.PurgeExpired(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired sessions\n", n)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("ip", "", "Client IP address recorded with the session")

	sessionsCmd.AddCommand(sessionsPurgeCmd)
}
