package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/Roshick/go-autumn-assetlock/internal/app"
	"github.com/Roshick/go-autumn-assetlock/internal/config"
	"github.com/Roshick/go-autumn-assetlock/pkg/userdirectory"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

func sharedApp(t *testing.T) Opener {
	t.Helper()

	a, err := app.New(context.TODO(), &config.Config{
		Redis: config.RedisConfig{Backend: config.BackendMemory},
		Lock:  config.LockConfig{Retention: 5 * time.Minute},
		Locker: config.LockerConfig{
			Retention:     time.Minute,
			RetryInterval: time.Millisecond,
			RetryLimit:    100,
		},
		Users: config.UsersConfig{
			Driver:         userdirectory.DriverSQLite,
			DSN:            ":memory:",
			CacheRetention: time.Minute,
		},
	})
	require.Nil(t, err)
	t.Cleanup(func() {
		require.Nil(t, a.Close())
	})

	return func(context.Context, *config.Config) (*app.App, func() error, error) {
		return a, func() error { return nil }, nil
	}
}

func TestCameraCmds(t *testing.T) {
	open := sharedApp(t)

	tcs := []struct {
		name       string
		args       []string
		wantStdout string
		wantErr    bool
	}{
		{
			name:       "CreateUser1",
			args:       []string{"users", "create", "--id", "1", "--username", "test_user_1", "--first-name", "Jane", "--last-name", "Doe"},
			wantStdout: "Created user: test_user_1 (1)\n",
		},
		{
			name:       "CreateUser2",
			args:       []string{"users", "create", "--id", "2", "--username", "test_user_2"},
			wantStdout: "Created user: test_user_2 (2)\n",
		},
		{
			name:       "StatusFree",
			args:       []string{"camera", "status", "--asset", "camera-1", "--user", "2"},
			wantStdout: "camera:  camera-1\nholder:  -\naccess:  true\nwaiting: -\n",
		},
		{
			name:       "LockByUser1",
			args:       []string{"camera", "lock", "--asset", "camera-1", "--user", "1"},
			wantStdout: "Locked camera camera-1\n",
		},
		{
			name:       "LockByUser2Denied",
			args:       []string{"camera", "lock", "--asset", "camera-1", "--user", "2"},
			wantStdout: "Camera camera-1 is locked by another user\n",
		},
		{
			name:       "RequestByUser2",
			args:       []string{"camera", "request", "--asset", "camera-1", "--user", "2"},
			wantStdout: "Requested access to camera camera-1\n",
		},
		{
			name:       "StatusHeld",
			args:       []string{"camera", "status", "--asset", "camera-1", "--user", "2"},
			wantStdout: "camera:  camera-1\nholder:  test_user_1 (1)\naccess:  false\nwaiting: 2\n",
		},
		{
			name:       "UnlockByUser1",
			args:       []string{"camera", "unlock", "--asset", "camera-1", "--user", "1"},
			wantStdout: "Unlocked camera camera-1\n",
		},
		{
			name:       "LockByUser2",
			args:       []string{"camera", "lock", "--asset", "camera-1", "--user", "2"},
			wantStdout: "Locked camera camera-1\n",
		},
		{
			name:       "WaitingListEmptied",
			args:       []string{"camera", "waiting-list", "--asset", "camera-1", "--user", "2"},
			wantStdout: "-\n",
		},
		{
			name:    "UnknownUser",
			args:    []string{"camera", "lock", "--asset", "camera-1", "--user", "42"},
			wantErr: true,
		},
		{
			name:    "MissingAsset",
			args:    []string{"camera", "lock", "--user", "1"},
			wantErr: true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			stdout := &bytes.Buffer{}
			stderr := &bytes.Buffer{}

			cmd := NewRootCmd(open)
			cmd.SetOut(stdout)
			cmd.SetErr(stderr)
			cmd.SetArgs(append(tc.args, "--redis-backend", "memory"))

			err := cmd.Execute()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.Nil(t, err)
			require.Equal(t, tc.wantStdout, stdout.String())
		})
	}
}
