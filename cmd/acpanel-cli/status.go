package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joshp123/acpanel/internal/shadow"
	"github.com/joshp123/acpanel/internal/view"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current heater state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		client, err := newClient()
		if err != nil {
			return err
		}
		state, err := fetchState(ctx, client)
		if err != nil {
			return err
		}
		out := outputMode{json: flags.json, out: cmd.OutOrStdout()}
		if out.json {
			return out.printJSON(state)
		}
		return out.table(statusRows(state))
	},
}

// fetchState polls once with a temporary subscription.
func fetchState(ctx context.Context, client *shadow.Client) (shadow.State, error) {
	var state shadow.State
	sub := client.Subscribe(func(s shadow.State) { state = s })
	defer sub.Unsubscribe()

	if err := client.Poll(ctx); err != nil {
		return shadow.State{}, fmt.Errorf("poll: %w", err)
	}
	return state, nil
}

func statusRows(state shadow.State) [][]string {
	rows := [][]string{{"FIELD", "VALUE"}}
	status := view.NewStatusModel(state)
	if status.Loading {
		return append(rows, []string{"state", "loading"})
	}
	control := view.NewControlModel(state)

	override := "expired"
	if control.MinutesLeft > 0 {
		override = fmt.Sprintf("%.0f min left", control.MinutesLeft)
	}
	return append(rows,
		[]string{"set_temp", status.SetTemp},
		[]string{"current_temp", status.CurrentTemp},
		[]string{"display_temp", status.DisplayTemp},
		[]string{"enabled", status.EnabledText},
		[]string{"heating", status.HeatCmd},
		[]string{"default_temp", strconv.Itoa(control.DefaultT)},
		[]string{"override_temp", strconv.Itoa(control.OverrideT)},
		[]string{"override", override},
	)
}
