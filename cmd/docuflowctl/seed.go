package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docuflow/internal/bootstrap"
	"docuflow/internal/seed"
)

func seedCmd(build appFactory) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load institutions, members and system config fixtures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixtures, err := loadFixtures(file)
			if err != nil {
				return err
			}
			return withApp(cmd, build, func(app *bootstrap.App) error {
				rep, err := app.Seeder.Run(cmd.Context(), fixtures)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "institutions: %d created, %d updated\n", rep.InstitutionsCreated, rep.InstitutionsUpdated)
				fmt.Fprintf(cmd.OutOrStdout(), "members: %d created, %d updated\n", rep.MembersCreated, rep.MembersUpdated)
				if rep.SystemConfig {
					fmt.Fprintln(cmd.OutOrStdout(), "system config: updated")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "fixtures YAML file (defaults to the built-in fixtures)")
	return cmd
}

func loadFixtures(file string) (seed.Fixtures, error) {
	if file == "" {
		return seed.Default()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return seed.Fixtures{}, fmt.Errorf("read fixtures: %w", err)
	}
	return seed.Parse(data)
}
