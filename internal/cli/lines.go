package cli

import (
	"fmt"

	"github.com/latuang/petd/internal/gateway"
)

type LinesAddCmd struct {
	Lines []string `arg:"" help:"Encouragement lines to merge into the pool."`
}

func (c *LinesAddCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeAddLines, Lines: c.Lines})
	if err != nil {
		return err
	}

	fmt.Printf("Line pool now has %d entries.\n", resp.Count)
	if resp.Said != nil {
		fmt.Printf("Said: %s\n", *resp.Said)
	}
	return nil
}

type LinesListCmd struct{}

func (c *LinesListCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeGetLines})
	if err != nil {
		return err
	}

	if len(resp.Lines) == 0 {
		fmt.Println("No custom lines yet. Add some with 'petd lines add'.")
		return nil
	}

	for i, line := range resp.Lines {
		fmt.Printf("%3d. %s\n", i+1, line)
	}
	return nil
}

type LinesReplaceCmd struct {
	Lines []string `arg:"" optional:"" help:"New full line pool (empty clears it)."`
}

func (c *LinesReplaceCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeReplaceLines, Lines: c.Lines})
	if err != nil {
		return err
	}

	fmt.Printf("Line pool replaced, %d entries.\n", resp.Count)
	return nil
}
