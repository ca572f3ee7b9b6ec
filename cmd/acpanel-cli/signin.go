package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshp123/acpanel/internal/shadow"
)

var signinCmd = &cobra.Command{
	Use:   "signin <access-key>",
	Short: "Check an access key against the backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		client, err := newClient()
		if err != nil {
			return err
		}
		result, err := client.Signin(ctx, args[0])
		if err != nil {
			return err
		}

		out := outputMode{json: flags.json, out: cmd.OutOrStdout()}
		if out.json {
			if err := out.printJSON(result); err != nil {
				return err
			}
		} else if result.OK() {
			fmt.Fprintln(cmd.OutOrStdout(), "ok: signed in")
		}
		if !result.OK() {
			return fmt.Errorf("rejected: %s", result.Msg)
		}
		return nil
	},
}

func ensureSignedIn(ctx context.Context, client *shadow.Client) error {
	if flags.accessKey == "" {
		return nil
	}
	result, err := client.Signin(ctx, flags.accessKey)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	if !result.OK() {
		return fmt.Errorf("sign in rejected: %s", result.Msg)
	}
	return nil
}
