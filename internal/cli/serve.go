package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	ps "github.com/mitchellh/go-ps"
	"go.uber.org/zap"

	"github.com/latuang/petd/internal/constants"
	"github.com/latuang/petd/internal/gateway"
	"github.com/latuang/petd/internal/scheduler"
	"github.com/latuang/petd/internal/server"
	"github.com/latuang/petd/internal/settings"
	"github.com/latuang/petd/internal/stats"
)

type ServeCmd struct {
	AllowOrigin []string `help:"Additional allowed origins for external control panels."`
	Debug       bool     `help:"Enable debug logging."`
}

func (c *ServeCmd) Run(ctx *Context) error {
	if err := ctx.Store.Load(); err != nil {
		return err
	}

	// Refuse to start a second daemon against the same store.
	pidFile := pidFilePath(ctx.Store.GetConfigPath())
	if pid, alive := daemonAlive(pidFile); alive {
		return fmt.Errorf("another petd daemon is already running (pid %d)", pid)
	}
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0600); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	defer os.Remove(pidFile)

	ctx.PerformAutomaticBackup()

	logger, err := buildLogger(c.Debug)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer logger.Sync()

	allowed := append([]string{}, constants.DefaultAllowedOrigins...)
	allowed = append(allowed, c.AllowOrigin...)

	rec := settings.New(ctx.Store)
	eng := stats.New(ctx.Store)

	var gw *gateway.Gateway
	sched := scheduler.New(func() { gw.Nudge() })
	gw = gateway.New(ctx.Store, rec, eng, sched, allowed, logger)
	defer sched.Stop()

	// Arm the nudge timer from the persisted period.
	minutes, err := rec.Period()
	if err != nil {
		return err
	}
	sched.Reschedule(time.Duration(minutes) * time.Minute)
	logger.Info("nudge schedule armed", zap.Int("minutes", minutes))

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(ctx.Addr, gw, logger)
	if err := srv.Run(runCtx); err != nil && err != http.ErrServerClosed {
		return err
	}

	logger.Info("shut down cleanly")
	return nil
}

func buildLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func pidFilePath(configPath string) string {
	dir := filepath.Dir(configPath)
	return filepath.Join(dir, "petd.pid")
}

// daemonAlive reports whether the pid file points at a live petd process.
// A stale file (dead pid, or a recycled pid now running something else) is
// not considered alive.
func daemonAlive(pidFile string) (int, bool) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return 0, false
	}

	proc, err := ps.FindProcess(pid)
	if err != nil || proc == nil {
		return 0, false
	}
	if !strings.Contains(proc.Executable(), "petd") {
		return 0, false
	}
	return pid, true
}
