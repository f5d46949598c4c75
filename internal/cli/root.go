package cli

import (
	"fmt"
	"os"

	"github.com/latuang/petd/internal/backup"
	"github.com/latuang/petd/internal/storage"
)

type Context struct {
	Store storage.Provider
	Addr  string // daemon API address, host:port
}

// PerformAutomaticBackup creates a best-effort backup of the store. Failures
// are warnings, never fatal.
func (ctx *Context) PerformAutomaticBackup() {
	mgr := backup.NewManager(ctx.Store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: automatic backup failed: %v\n", err)
	}
}

// formatSeconds renders a duration in seconds as "1h23m" / "45m" / "30s".
func formatSeconds(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
}
