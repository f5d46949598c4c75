package cli

import (
	"fmt"

	"github.com/latuang/petd/internal/gateway"
)

type AvatarGetCmd struct{}

func (c *AvatarGetCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeGetSettings})
	if err != nil {
		return err
	}

	fmt.Printf("Avatar: %s\n", resp.Avatar)
	return nil
}

type AvatarSetCmd struct {
	Name string `arg:"" help:"Avatar asset name, e.g. brown_dog_nobg.png."`
}

func (c *AvatarSetCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeSetAvatar, Name: c.Name})
	if err != nil {
		return err
	}

	fmt.Printf("Avatar set to: %s\n", resp.Name)
	return nil
}
