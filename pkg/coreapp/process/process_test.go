package process

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	goruntime "runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/pkg/controlplane/models"
)

// TestHelperProcess is not a real test. It is the child process started by
// the tests below, selected through GO_WANT_HELPER_PROCESS.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	mode, rest := args[1], args[2:]

	switch mode {
	case "serve":
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGTERM, os.Interrupt)
		fmt.Println("core app ready")
		<-sig
		os.Exit(0)
	case "stubborn":
		signal.Ignore(syscall.SIGTERM)
		time.Sleep(time.Minute)
		os.Exit(0)
	case "check-ok":
		fmt.Println("configuration valid")
		os.Exit(0)
	case "check-fail":
		fmt.Println("Invalid config for [http]: port must be an integer")
		os.Exit(1)
	case "crash":
		os.Exit(3)
	case "print-version":
		fmt.Println(os.Getenv("COREVISOR_VERSION"), rest)
		os.Exit(0)
	}
	os.Exit(2)
}

func helperCommand(mode string) []string {
	return []string{os.Args[0], "-test.run=TestHelperProcess", "--", mode}
}

func newHelperRuntime(t *testing.T, mode string, mutate ...func(*Config)) *Runtime {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("signal based helper process is not supported on windows")
	}

	cfg := Config{
		Command:     os.Args[0],
		Args:        []string{"-test.run=TestHelperProcess", "--", mode},
		Env:         []string{"GO_WANT_HELPER_PROCESS=1"},
		StopTimeout: 5 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	r, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Stop(context.Background()) })
	return r
}

func TestNew_RequiresCommand(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Command: "hass"}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultSafeModeArg, cfg.SafeModeArg)
	assert.Equal(t, DefaultStopTimeout, cfg.StopTimeout)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
}

func TestRuntime_StartStop(t *testing.T) {
	r := newHelperRuntime(t, "serve")
	ctx := context.Background()

	assert.False(t, r.Running(ctx))
	require.NoError(t, r.Start(ctx))
	assert.True(t, r.Running(ctx))
	assert.NotZero(t, r.pid())

	// Starting again is a no-op.
	pid := r.pid()
	require.NoError(t, r.Start(ctx))
	assert.Equal(t, pid, r.pid())

	require.NoError(t, r.Stop(ctx))
	assert.False(t, r.Running(ctx))
	assert.Zero(t, r.pid())

	// Stopping a stopped app is a no-op.
	require.NoError(t, r.Stop(ctx))
}

func TestRuntime_OnExit(t *testing.T) {
	watch := func(r *Runtime) <-chan error {
		exits := make(chan error, 1)
		r.OnExit(func(err error) { exits <- err })
		return exits
	}

	t.Run("crash is reported", func(t *testing.T) {
		r := newHelperRuntime(t, "crash")
		exits := watch(r)
		require.NoError(t, r.Start(context.Background()))

		select {
		case err := <-exits:
			require.Error(t, err)
			assert.Contains(t, err.Error(), "exit status 3")
		case <-time.After(10 * time.Second):
			t.Fatal("exit was not reported")
		}
		assert.False(t, r.Running(context.Background()))
	})

	t.Run("clean exit is reported", func(t *testing.T) {
		r := newHelperRuntime(t, "check-ok")
		exits := watch(r)
		require.NoError(t, r.Start(context.Background()))

		select {
		case err := <-exits:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("exit was not reported")
		}
	})

	t.Run("stop is not reported", func(t *testing.T) {
		r := newHelperRuntime(t, "serve")
		exits := watch(r)
		ctx := context.Background()
		require.NoError(t, r.Start(ctx))
		require.NoError(t, r.Restart(ctx, false))
		require.NoError(t, r.Stop(ctx))

		select {
		case err := <-exits:
			t.Fatalf("runtime-initiated exit was reported: %v", err)
		case <-time.After(200 * time.Millisecond):
		}
	})
}

func TestRuntime_StopKillsAfterTimeout(t *testing.T) {
	r := newHelperRuntime(t, "stubborn", func(c *Config) {
		c.StopTimeout = 200 * time.Millisecond
	})
	ctx := context.Background()

	require.NoError(t, r.Start(ctx))
	// Give the child time to install its signal handler.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	require.NoError(t, r.Stop(ctx))
	assert.False(t, r.Running(ctx))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRuntime_RestartSafeMode(t *testing.T) {
	r := newHelperRuntime(t, "serve")
	ctx := context.Background()

	require.NoError(t, r.Start(ctx))
	first := r.pid()

	require.NoError(t, r.Restart(ctx, true))
	assert.True(t, r.Running(ctx))
	assert.NotEqual(t, first, r.pid())

	c := r.alive()
	require.NotNil(t, c)
	assert.Equal(t, DefaultSafeModeArg, c.cmd.Args[len(c.cmd.Args)-1])
}

func TestRuntime_RestartFromStopped(t *testing.T) {
	r := newHelperRuntime(t, "serve")
	ctx := context.Background()

	require.NoError(t, r.Restart(ctx, false))
	assert.True(t, r.Running(ctx))
}

func TestRuntime_Rebuild(t *testing.T) {
	r := newHelperRuntime(t, "serve", func(c *Config) {
		c.RebuildCommand = helperCommand("check-ok")
	})
	ctx := context.Background()

	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Rebuild(ctx, false))
	assert.True(t, r.Running(ctx))
}

func TestRuntime_RebuildFailureLeavesStopped(t *testing.T) {
	r := newHelperRuntime(t, "serve", func(c *Config) {
		c.RebuildCommand = helperCommand("check-fail")
	})
	ctx := context.Background()

	require.NoError(t, r.Start(ctx))
	err := r.Rebuild(ctx, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rebuild command failed")
	assert.False(t, r.Running(ctx))
}

func TestRuntime_Update(t *testing.T) {
	t.Run("requires update command", func(t *testing.T) {
		r := newHelperRuntime(t, "serve")
		require.Error(t, r.Update(context.Background(), "2024.6.1", false))
	})

	t.Run("restarts when running", func(t *testing.T) {
		r := newHelperRuntime(t, "serve", func(c *Config) {
			c.UpdateCommand = helperCommand("print-version")
			c.BackupCommand = helperCommand("check-ok")
		})
		ctx := context.Background()

		require.NoError(t, r.Start(ctx))
		before := r.pid()

		require.NoError(t, r.Update(ctx, "2024.6.1", true))
		assert.True(t, r.Running(ctx))
		assert.NotEqual(t, before, r.pid())
	})

	t.Run("stays stopped when stopped", func(t *testing.T) {
		r := newHelperRuntime(t, "serve", func(c *Config) {
			c.UpdateCommand = helperCommand("print-version")
		})
		ctx := context.Background()

		require.NoError(t, r.Update(ctx, "2024.6.1", false))
		assert.False(t, r.Running(ctx))
	})

	t.Run("failing update", func(t *testing.T) {
		r := newHelperRuntime(t, "serve", func(c *Config) {
			c.UpdateCommand = helperCommand("check-fail")
		})
		err := r.Update(context.Background(), "2024.6.1", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "update command failed")
	})
}

func TestRuntime_RunReplacesVersion(t *testing.T) {
	r := newHelperRuntime(t, "serve")

	argv := append(helperCommand("print-version"), "--tag="+VersionPlaceholder)
	out, err := r.run(context.Background(), argv, "2024.6.1")
	require.NoError(t, err)
	assert.Contains(t, string(out), "2024.6.1 [--tag=2024.6.1]")
}

func TestRuntime_CheckConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("no check command", func(t *testing.T) {
		r := newHelperRuntime(t, "serve")
		res, err := r.CheckConfig(ctx)
		require.NoError(t, err)
		assert.True(t, res.Valid)
	})

	t.Run("valid", func(t *testing.T) {
		r := newHelperRuntime(t, "serve", func(c *Config) {
			c.CheckCommand = helperCommand("check-ok")
		})
		res, err := r.CheckConfig(ctx)
		require.NoError(t, err)
		assert.True(t, res.Valid)
	})

	t.Run("invalid", func(t *testing.T) {
		r := newHelperRuntime(t, "serve", func(c *Config) {
			c.CheckCommand = helperCommand("check-fail")
		})
		res, err := r.CheckConfig(ctx)
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Contains(t, res.Log, "port must be an integer")
	})

	t.Run("missing binary", func(t *testing.T) {
		r := newHelperRuntime(t, "serve", func(c *Config) {
			c.CheckCommand = []string{"/nonexistent/corevisor-check"}
		})
		_, err := r.CheckConfig(ctx)
		require.Error(t, err)
	})
}

func TestRuntime_Stats(t *testing.T) {
	r := newHelperRuntime(t, "serve")
	ctx := context.Background()

	_, err := r.Stats(ctx)
	require.ErrorIs(t, err, models.ErrStatsUnavailable)

	if goruntime.GOOS != "linux" {
		t.Skip("process sampling is only exercised on linux")
	}

	require.NoError(t, r.Start(ctx))
	stats, err := r.Stats(ctx)
	require.NoError(t, err)
	assert.NotZero(t, stats.MemoryUsage)
	assert.NotZero(t, stats.MemoryLimit)
	assert.GreaterOrEqual(t, stats.MemoryPercent, 0.0)
}

func coreAPI(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/core/state" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRuntime_MigrationInProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("no api url", func(t *testing.T) {
		r := newHelperRuntime(t, "serve")
		require.NoError(t, r.Start(ctx))
		migrating, err := r.MigrationInProgress(ctx)
		require.NoError(t, err)
		assert.False(t, migrating)
	})

	t.Run("not running", func(t *testing.T) {
		srv := coreAPI(t, http.StatusOK, `{"state":"RUNNING","offline_db_migration":true}`)
		r := newHelperRuntime(t, "serve", func(c *Config) { c.APIURL = srv.URL })
		migrating, err := r.MigrationInProgress(ctx)
		require.NoError(t, err)
		assert.False(t, migrating)
	})

	t.Run("migrating", func(t *testing.T) {
		srv := coreAPI(t, http.StatusOK, `{"state":"NOT_RUNNING","offline_db_migration":true}`)
		r := newHelperRuntime(t, "serve", func(c *Config) { c.APIURL = srv.URL + "/" })
		require.NoError(t, r.Start(ctx))
		migrating, err := r.MigrationInProgress(ctx)
		require.NoError(t, err)
		assert.True(t, migrating)
	})

	t.Run("api error", func(t *testing.T) {
		srv := coreAPI(t, http.StatusBadGateway, `oops`)
		r := newHelperRuntime(t, "serve", func(c *Config) { c.APIURL = srv.URL })
		require.NoError(t, r.Start(ctx))
		_, err := r.MigrationInProgress(ctx)
		require.Error(t, err)
	})
}

func TestRuntime_Healthy(t *testing.T) {
	ctx := context.Background()

	srv := coreAPI(t, http.StatusOK, `{"state":"RUNNING"}`)
	r := newHelperRuntime(t, "serve", func(c *Config) { c.APIURL = srv.URL })
	assert.False(t, r.Healthy(ctx))

	require.NoError(t, r.Start(ctx))
	assert.True(t, r.Healthy(ctx))

	down := coreAPI(t, http.StatusServiceUnavailable, ``)
	r2 := newHelperRuntime(t, "serve", func(c *Config) { c.APIURL = down.URL })
	require.NoError(t, r2.Start(ctx))
	assert.False(t, r2.Healthy(ctx))
}

func TestRuntime_LatestVersion(t *testing.T) {
	ctx := context.Background()

	t.Run("pinned", func(t *testing.T) {
		r, err := New(Config{Command: "hass", LatestVersion: "2024.6.1"})
		require.NoError(t, err)
		v, err := r.LatestVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2024.6.1", v)
	})

	t.Run("unknown", func(t *testing.T) {
		r, err := New(Config{Command: "hass"})
		require.NoError(t, err)
		_, err = r.LatestVersion(ctx)
		require.Error(t, err)
	})

	t.Run("from url", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"version":"2024.7.0"}`))
		}))
		defer srv.Close()

		r, err := New(Config{Command: "hass", LatestVersion: "2024.6.1", VersionURL: srv.URL})
		require.NoError(t, err)
		v, err := r.LatestVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, "2024.7.0", v)
	})
}

func TestRuntime_Identity(t *testing.T) {
	r, err := New(Config{Command: "hass", Machine: "qemux86-64", Arch: "amd64"})
	require.NoError(t, err)

	id := r.Identity(context.Background())
	assert.Equal(t, "qemux86-64", id.Machine)
	assert.Equal(t, "amd64", id.Arch)

	r2, err := New(Config{Command: "hass"})
	require.NoError(t, err)
	assert.Equal(t, goruntime.GOARCH, r2.Identity(context.Background()).Arch)
}

func TestLineLogger_SplitsLines(t *testing.T) {
	l := newLineLogger("stdout")

	n, err := l.Write([]byte("first\nsec"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	assert.Equal(t, "sec", l.buf.String())

	_, err = l.Write([]byte("ond\n"))
	require.NoError(t, err)
	assert.Zero(t, l.buf.Len())
}
