package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Roshick/go-autumn-assetlock/internal/app"
	"github.com/Roshick/go-autumn-assetlock/pkg/cameralock"
	"github.com/Roshick/go-autumn-assetlock/pkg/userdirectory"
	"github.com/spf13/cobra"
)

type cameraFlags struct {
	assetID string
	userID  int64
}

func newCameraCmd(r *runner) *cobra.Command {
	flags := &cameraFlags{}

	cmd := &cobra.Command{
		Use:   "camera",
		Short: "Lock, unlock and inspect cameras",
	}
	cmd.PersistentFlags().StringVar(&flags.assetID, "asset", "", "camera asset id")
	cmd.PersistentFlags().Int64Var(&flags.userID, "user", 0, "id of the acting user")
	_ = cmd.MarkPersistentFlagRequired("asset")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(&cobra.Command{
		Use:   "lock",
		Short: "Lock the camera for the acting user",
		RunE: r.withManager(flags, func(cmd *cobra.Command, m *cameralock.Manager) error {
			ok, err := m.LockCamera(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				cmd.Printf("Locked camera %s\n", m.AssetID())
			} else {
				cmd.Printf("Camera %s is locked by another user\n", m.AssetID())
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "unlock",
		Short: "Unlock the camera and notify the waiting list",
		RunE: r.withManager(flags, func(cmd *cobra.Command, m *cameralock.Manager) error {
			if err := m.UnlockCamera(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("Unlocked camera %s\n", m.AssetID())
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "request",
		Short: "Request access, asking the current holder to release the camera",
		RunE: r.withManager(flags, func(cmd *cobra.Command, m *cameralock.Manager) error {
			ok, err := m.RequestAccess(cmd.Context())
			if err != nil {
				return err
			}
			if ok {
				cmd.Printf("Camera %s is available\n", m.AssetID())
			} else {
				cmd.Printf("Requested access to camera %s\n", m.AssetID())
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show holder, access and waiting list of the camera",
		RunE: r.withManager(flags, func(cmd *cobra.Command, m *cameralock.Manager) error {
			ctx := cmd.Context()
			access, err := m.HasAccess(ctx)
			if err != nil {
				return err
			}
			holder, err := m.CurrentUser(ctx)
			if err != nil {
				return err
			}
			waiting, err := m.WaitingList(ctx)
			if err != nil {
				return err
			}

			cmd.Printf("camera:  %s\n", m.AssetID())
			if holder == nil {
				cmd.Printf("holder:  -\n")
			} else {
				cmd.Printf("holder:  %s (%d)\n", holder.Username, holder.ID)
			}
			cmd.Printf("access:  %t\n", access)
			cmd.Printf("waiting: %s\n", formatIDs(waiting))
			return nil
		}),
	})

	var clearList bool
	waitingCmd := &cobra.Command{
		Use:   "waiting-list",
		Short: "Show or clear the waiting list of the camera",
		RunE: r.withManager(flags, func(cmd *cobra.Command, m *cameralock.Manager) error {
			if clearList {
				if err := m.ClearWaitingList(cmd.Context()); err != nil {
					return err
				}
				cmd.Printf("Cleared waiting list of camera %s\n", m.AssetID())
				return nil
			}
			waiting, err := m.WaitingList(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(formatIDs(waiting))
			return nil
		}),
	}
	waitingCmd.Flags().BoolVar(&clearList, "clear", false, "clear the waiting list")
	cmd.AddCommand(waitingCmd)

	return cmd
}

func (r *runner) withManager(
	flags *cameraFlags,
	fn func(cmd *cobra.Command, m *cameralock.Manager) error,
) func(cmd *cobra.Command, args []string) error {
	return r.withApp(func(cmd *cobra.Command, a *app.App) error {
		user, err := a.Users.Read(cmd.Context(), flags.userID)
		if err != nil {
			if errors.As(err, &userdirectory.ErrUserNotFound{}) {
				return fmt.Errorf("unknown user %d", flags.userID)
			}
			return err
		}
		return fn(cmd, a.Cameras.For(flags.assetID, user))
	})
}

func formatIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ", ")
}
