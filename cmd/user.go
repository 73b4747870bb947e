package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finprep/finprep/internal/account"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage learner accounts",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Register a new learner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		u, err := d.accounts.Register(cmd.Context(), args[0], name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (id %s)\n", u.Email, u.ID)
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered learners",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		users, err := d.accounts.Users(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(users) == 0 {
			fmt.Fprintln(out, "No users registered.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-32s  %-20s  %s\n", "ID", "Email", "Name", "Created")
		fmt.Fprintln(out, strings.Repeat("─", 110))
		for _, u := range users {
			fmt.Fprintf(out, "%-36s  %-32s  %-20s  %s\n",
				u.ID, u.Email, truncate(u.Name, 20), u.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Delete a learner with their progress and sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.accounts.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

var userExportCmd = &cobra.Command{
	Use:   "export <email>",
	Short: "Write a JSON backup of a learner to stdout or --out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, _ := cmd.Flags().GetString("out")

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		b, err := d.accounts.Export(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if outPath == "" {
			return account.WriteBackup(cmd.OutOrStdout(), b)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := account.WriteBackup(f, b); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var userImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore a learner from a JSON backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		b, err := account.ReadBackup(f)
		if err != nil {
			return err
		}

		d, err := openDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.accounts.Import(cmd.Context(), b); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (id %s)\n", b.User.Email, b.User.ID)
		return nil
	},
}

func init() {
	userRegisterCmd.Flags().String("name", "", "Display name")
	userExportCmd.Flags().StringP("out", "o", "", "Write the backup to this file")

	userCmd.AddCommand(userRegisterCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userExportCmd)
	userCmd.AddCommand(userImportCmd)
}
