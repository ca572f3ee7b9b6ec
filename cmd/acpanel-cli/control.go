package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshp123/acpanel/internal/shadow"
	"github.com/joshp123/acpanel/internal/view"
)

var setCmd = &cobra.Command{
	Use:   "set <enable|default|override> <value>",
	Short: "Change one desired setting",
	Long: "Change one desired setting.\n\n" +
		"  set enable on|off\n" +
		"  set default <temp>|+N|-N\n" +
		"  set override <temp>|+N|-N\n\n" +
		"Put -- before a negative step: set -- default -1",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		return withControl(ctx, cmd, func(control *view.Control) error {
			return applySetting(ctx, control, args[0], args[1])
		})
	},
}

var overrideCmd = &cobra.Command{
	Use:   "override <30m|1h|2h|4h|cancel>",
	Short: "Start or cancel a timed override",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		return withControl(ctx, cmd, func(control *view.Control) error {
			return control.SelectShortcut(ctx, args[0])
		})
	},
}

// withControl signs in if a key is configured, loads the current state
// into a control panel, runs fn and prints the resulting state.
func withControl(ctx context.Context, cmd *cobra.Command, fn func(*view.Control) error) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if err := ensureSignedIn(ctx, client); err != nil {
		return err
	}

	control := view.NewControl(client)
	control.Mount(nil)
	defer control.Unmount()

	var latest shadow.State
	sub := client.Subscribe(func(s shadow.State) { latest = s })
	defer sub.Unsubscribe()

	if err := client.Poll(ctx); err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if err := fn(control); err != nil {
		return err
	}

	out := outputMode{json: flags.json, out: cmd.OutOrStdout()}
	if out.json {
		return out.printJSON(latest)
	}
	return out.table(statusRows(latest))
}

func applySetting(ctx context.Context, control *view.Control, field, value string) error {
	switch strings.ToLower(field) {
	case "enable", "enabled":
		enable, err := parseSwitch(value)
		if err != nil {
			return err
		}
		return control.SetEnable(ctx, enable)
	case "default", "default_t":
		step, absolute, err := parseTemp(value)
		if err != nil {
			return err
		}
		if absolute {
			return control.SetDefault(ctx, step)
		}
		return control.StepDefault(ctx, step)
	case "override", "override_t":
		step, absolute, err := parseTemp(value)
		if err != nil {
			return err
		}
		if absolute {
			return control.SetOverride(ctx, step)
		}
		return control.StepOverride(ctx, step)
	default:
		return fmt.Errorf("unknown setting %q (want enable, default or override)", field)
	}
}

func parseSwitch(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid switch value %q (want on or off)", value)
	}
}

// parseTemp accepts an absolute integer or a signed step (+1, -2).
func parseTemp(value string) (int, bool, error) {
	absolute := !strings.HasPrefix(value, "+") && !strings.HasPrefix(value, "-")
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("invalid temperature %q", value)
	}
	return n, absolute, nil
}
