package cli

import (
	"fmt"

	"github.com/latuang/petd/internal/gateway"
)

type SayCmd struct {
	Text string `arg:"" help:"Line to broadcast to every open surface right now."`
}

func (c *SayCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeSayNow, Text: c.Text})
	if err != nil {
		return err
	}

	if resp.Said != nil {
		fmt.Printf("Said: %s\n", *resp.Said)
	}
	return nil
}
