package cli

import (
	"fmt"

	"github.com/latuang/petd/internal/gateway"
)

type RescheduleCmd struct{}

func (c *RescheduleCmd) Run(ctx *Context) error {
	if _, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeReschedule}); err != nil {
		return err
	}

	fmt.Println("Nudge timer re-armed from the stored period.")
	return nil
}
