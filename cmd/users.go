package cmd

import (
	"github.com/Roshick/go-autumn-assetlock/internal/app"
	"github.com/Roshick/go-autumn-assetlock/pkg/userdirectory"
	"github.com/spf13/cobra"
)

func newUsersCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage the user directory",
	}

	var user userdirectory.User
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Add a user to the directory",
		RunE: r.withApp(func(cmd *cobra.Command, a *app.App) error {
			if err := a.Users.Create(cmd.Context(), user); err != nil {
				return err
			}
			cmd.Printf("Created user: %s (%d)\n", user.Username, user.ID)
			return nil
		}),
	}
	createCmd.Flags().Int64Var(&user.ID, "id", 0, "user id")
	createCmd.Flags().StringVar(&user.Username, "username", "", "username")
	createCmd.Flags().StringVar(&user.FirstName, "first-name", "", "first name")
	createCmd.Flags().StringVar(&user.LastName, "last-name", "", "last name")
	_ = createCmd.MarkFlagRequired("id")
	_ = createCmd.MarkFlagRequired("username")
	cmd.AddCommand(createCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "reconcile",
		Short: "Refresh the cached user profiles from the database",
		RunE: r.withApp(func(cmd *cobra.Command, a *app.App) error {
			if err := a.Users.ReconcileAll(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Reconciled user directory")
			return nil
		}),
	})

	return cmd
}
