package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/latuang/petd/internal/gateway"
)

// avatarOptions are the avatar assets shipped with the control panel.
var avatarOptions = []string{
	"brown_dog_nobg.png",
	"white_cat_nobg.png",
	"red_panda_nobg.png",
}

type ConfigureCmd struct{}

func (c *ConfigureCmd) Run(ctx *Context) error {
	current, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeGetSettings})
	if err != nil {
		return err
	}

	minutesStr := strconv.Itoa(current.Minutes)
	avatar := current.Avatar

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Nudge period (minutes)").
				Value(&minutesStr).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return fmt.Errorf("enter a whole number of minutes, 1 or more")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Avatar").
				Options(huh.NewOptions(avatarOptions...)...).
				Value(&avatar),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	minutes, err := strconv.ParseFloat(minutesStr, 64)
	if err != nil {
		return fmt.Errorf("invalid minutes value: %w", err)
	}

	if _, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeSetPeriod, Minutes: &minutes}); err != nil {
		return err
	}
	if _, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeSetAvatar, Name: avatar}); err != nil {
		return err
	}

	fmt.Printf("Saved: nudge every %.0f minutes, avatar %s.\n", minutes, avatar)
	return nil
}
