package cli

import (
	"fmt"
	"strings"

	"github.com/latuang/petd/internal/gateway"
)

type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *Context) error {
	resp, err := call(ctx.Addr, gateway.Request{Type: gateway.TypeGetStats})
	if err != nil {
		return err
	}
	if resp.Stats == nil {
		return fmt.Errorf("daemon response missing stats")
	}
	st := resp.Stats

	fmt.Printf("Today: %s\n\n", formatSeconds(st.TodaySeconds))

	// Bars scale to the busiest day of the week.
	max := 0
	for _, day := range st.Weekly {
		if day.Seconds > max {
			max = day.Seconds
		}
	}
	for _, day := range st.Weekly {
		bar := ""
		if max > 0 {
			bar = strings.Repeat("█", day.Seconds*20/max)
		}
		fmt.Printf("%s  %-20s %s\n", day.Date, bar, formatSeconds(day.Seconds))
	}

	fmt.Printf("\nCurrent streak: %d day(s)\n", st.CurrentStreak)
	fmt.Printf("Longest streak: %d day(s)\n", st.LongestStreak)
	fmt.Printf("All-time total: %s\n", formatSeconds(st.TotalSecondsAll))
	return nil
}
