package cli

import (
	"fmt"

	"github.com/latuang/petd/internal/gateway"
)

type PeriodGetCmd struct{}

func (c *PeriodGetCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeGetSettings})
	if err != nil {
		return err
	}

	fmt.Printf("Nudge period: every %d minutes\n", resp.Minutes)
	return nil
}

type PeriodSetCmd struct {
	Minutes float64 `arg:"" help:"Minutes between nudges (>= 1)."`
}

func (c *PeriodSetCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeSetPeriod, Minutes: &c.Minutes})
	if err != nil {
		return err
	}

	fmt.Printf("Nudge period set to every %d minutes.\n", resp.Minutes)
	return nil
}
