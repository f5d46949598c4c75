package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/latuang/petd/internal/cli"
	"github.com/latuang/petd/internal/storage"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Store file path." type:"path" default:"~/.config/petd/petd.db"`
	Addr    string `help:"Daemon API address." default:"127.0.0.1:7465"`

	Init      cli.InitCmd      `cmd:"" help:"Initialize petd storage."`
	Serve     cli.ServeCmd     `cmd:"" help:"Run the companion daemon."`
	Watch     cli.WatchCmd     `cmd:"" help:"Show the pet in this terminal." default:"1"`
	Say       cli.SayCmd       `cmd:"" help:"Make the pet say a line everywhere, right now."`
	Configure cli.ConfigureCmd `cmd:"" help:"Interactively set the nudge period and avatar."`
	Stats     cli.StatsCmd     `cmd:"" help:"Show focus statistics."`
	Doctor    cli.DoctorCmd    `cmd:"" help:"Run health diagnostics."`

	Lines struct {
		Add     cli.LinesAddCmd     `cmd:"" help:"Merge encouragement lines into the pool."`
		List    cli.LinesListCmd    `cmd:"" help:"List the current line pool."`
		Replace cli.LinesReplaceCmd `cmd:"" help:"Replace the whole line pool."`
	} `cmd:"" help:"Manage encouragement lines."`

	Period struct {
		Get cli.PeriodGetCmd `cmd:"" help:"Show the nudge period."`
		Set cli.PeriodSetCmd `cmd:"" help:"Set the nudge period in minutes."`
	} `cmd:"" help:"Manage the nudge period."`

	Avatar struct {
		Get cli.AvatarGetCmd `cmd:"" help:"Show the selected avatar."`
		Set cli.AvatarSetCmd `cmd:"" help:"Select an avatar."`
	} `cmd:"" help:"Manage the avatar."`

	Session struct {
		Log cli.SessionLogCmd `cmd:"" help:"Record a completed focus session."`
	} `cmd:"" help:"Manage the session log."`

	Reschedule cli.RescheduleCmd `cmd:"" help:"Re-arm the nudge timer from the stored period."`

	Backup struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a store backup."`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore the store from a backup."`
	} `cmd:"" help:"Manage store backups."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("petd"),
		kong.Description("Desktop companion that nudges you toward focus breaks"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.3.0"},
	)

	// Determine storage type based on extension
	var store storage.Provider
	if strings.HasSuffix(CLI.Config, ".json") {
		store = storage.NewJSONStore(CLI.Config)
	} else {
		store = storage.NewSQLiteStore(CLI.Config)
	}

	appCtx := &cli.Context{
		Store: store,
		Addr:  CLI.Addr,
	}

	err := ctx.Run(appCtx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
