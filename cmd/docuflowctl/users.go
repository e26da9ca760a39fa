package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docuflow/internal/bootstrap"
)

func usersCmd(build appFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage admin accounts",
	}
	cmd.AddCommand(usersCreateCmd(build))
	return cmd
}

func usersCreateCmd(build appFactory) *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a password account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, build, func(app *bootstrap.App) error {
				user, err := app.UsersService.Create(cmd.Context(), email, name, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %s <%s>\n", user.ID, user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (at least 8 characters)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
