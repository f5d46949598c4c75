package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/latuang/petd/internal/watch"
)

type WatchCmd struct{}

func (c *WatchCmd) Run(ctx *Context) error {
	p := tea.NewProgram(watch.NewModel(ctx.Addr))
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
	return nil
}
