package cli

import (
	"fmt"

	"github.com/latuang/petd/internal/gateway"
)

type SessionLogCmd struct {
	Seconds float64 `arg:"" help:"Length of the completed focus session, in seconds."`
	At      *int64  `help:"Completion time as unix milliseconds (defaults to now)."`
}

func (c *SessionLogCmd) Run(ctx *Context) error {
	req := gateway.Request{Type: gateway.TypeLogSession, Seconds: &c.Seconds, AtMs: c.At}
	resp, err := call(ctx.Addr, req)
	if err != nil {
		return err
	}

	fmt.Println("Session logged.")
	if resp.Stats != nil {
		fmt.Printf("Today: %s  Current streak: %d day(s)\n",
			formatSeconds(resp.Stats.TodaySeconds), resp.Stats.CurrentStreak)
	}
	return nil
}
