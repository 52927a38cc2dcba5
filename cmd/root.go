package cmd

import (
	"os"

	"github.com/Roshick/go-autumn-assetlock/internal/app"
	"github.com/Roshick/go-autumn-assetlock/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/net/context"
)

// Opener builds the application for a command. The returned func releases it.
type Opener func(ctx context.Context, cfg *config.Config) (*app.App, func() error, error)

func OpenApp(ctx context.Context, cfg *config.Config) (*app.App, func() error, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, a.Close, nil
}

type runner struct {
	open Opener
	cfg  *config.Config
}

func NewRootCmd(open Opener) *cobra.Command {
	vip := viper.New()
	r := &runner{open: open}

	cmd := &cobra.Command{
		Use:           "assetlock",
		Short:         "Exclusive, time-bounded access to shared cameras",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			if err := config.ReadIn(vip, file); err != nil {
				return err
			}
			cfg, err := config.Decode(vip)
			if err != nil {
				return err
			}
			r.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "config file (default assetlock.yaml)")
	cobra.CheckErr(config.Bind(cmd.PersistentFlags(), vip))

	cmd.AddCommand(newCameraCmd(r))
	cmd.AddCommand(newUsersCmd(r))
	cmd.AddCommand(newMonitorCmd(r))

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	return cmd
}

// withApp opens the application for the duration of fn.
func (r *runner) withApp(fn func(cmd *cobra.Command, a *app.App) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, release, err := r.open(cmd.Context(), r.cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = release()
		}()
		return fn(cmd, a)
	}
}

func Execute() {
	if err := NewRootCmd(OpenApp).Execute(); err != nil {
		os.Exit(1)
	}
}
