package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/joshp123/acpanel/internal/shadow"
	"github.com/joshp123/acpanel/internal/view"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive panel that follows the heater state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "acpanel> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return fmt.Errorf("failed to create readline: %w", err)
		}
		defer rl.Close()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		c := newConsole(client, rl.Stdout())
		if err := c.mount(ctx); err != nil {
			fmt.Fprintf(rl.Stdout(), "auth check failed: %v\n", err)
		}
		defer c.root.Unmount()

		go client.Run(ctx)
		_ = client.Poll(ctx)

		c.printHelp()
		for {
			line, err := rl.Readline()
			if err != nil {
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				fmt.Fprintln(rl.Stdout(), "Exiting...")
				return nil
			}
			quit, err := c.exec(ctx, line)
			if err != nil {
				fmt.Fprintf(rl.Stdout(), "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	},
}

type console struct {
	client *shadow.Client
	root   *view.Root
	out    io.Writer

	mu   sync.Mutex
	last *view.RootModel
}

func newConsole(client *shadow.Client, out io.Writer) *console {
	return &console{client: client, root: view.NewRoot(client), out: out}
}

func (c *console) mount(ctx context.Context) error {
	err := c.root.Mount(ctx, c.render)
	c.show()
	return err
}

// render prints the panel when the model changed since the last print.
func (c *console) render() {
	model := c.root.Model()
	c.mu.Lock()
	if c.last != nil && reflect.DeepEqual(*c.last, model) {
		c.mu.Unlock()
		return
	}
	c.last = &model
	c.mu.Unlock()
	view.WriteText(c.out, model)
}

func (c *console) show() {
	model := c.root.Model()
	c.mu.Lock()
	c.last = &model
	c.mu.Unlock()
	view.WriteText(c.out, model)
}

func (c *console) exec(ctx context.Context, line string) (bool, error) {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false, nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "quit", "exit", "q":
		return true, nil
	case "show", "s":
		c.show()
	case "poll", "p":
		return false, c.client.Poll(ctx)
	case "signin":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: signin <access-key>")
		}
		if c.root.Authenticated() {
			return false, fmt.Errorf("already signed in")
		}
		c.root.SignIn.SetKey(args[0])
		_, err := c.root.SignIn.Submit(ctx)
		return false, err
	case "enable", "default", "override", "shortcut", "o":
		if !c.root.Authenticated() {
			return false, fmt.Errorf("sign in to change settings")
		}
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <value>", cmd)
		}
		return false, c.control(ctx, cmd, args[0])
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

func (c *console) control(ctx context.Context, cmd, arg string) error {
	control := c.root.Control
	if cmd == "shortcut" || cmd == "o" {
		return control.SelectShortcut(ctx, arg)
	}
	switch arg {
	case "+":
		arg = "+1"
	case "-":
		arg = "-1"
	}
	return applySetting(ctx, control, cmd, arg)
}

func (c *console) printHelp() {
	keys := make([]string, 0, len(shadow.Shortcuts))
	for _, s := range shadow.Shortcuts {
		keys = append(keys, s.Key)
	}
	fmt.Fprintln(c.out, "Commands:")
	fmt.Fprintln(c.out, "  show                     print the panel")
	fmt.Fprintln(c.out, "  poll                     fetch the state now")
	fmt.Fprintln(c.out, "  signin <key>             sign in to enable control")
	fmt.Fprintln(c.out, "  enable on|off            toggle heating")
	fmt.Fprintln(c.out, "  default +|-|<temp>       change the default temperature")
	fmt.Fprintln(c.out, "  override +|-|<temp>      change the override temperature")
	fmt.Fprintf(c.out, "  shortcut <%s>\n", strings.Join(keys, "|"))
	fmt.Fprintln(c.out, "  quit")
}
