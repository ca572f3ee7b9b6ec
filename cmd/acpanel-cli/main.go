package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joshp123/acpanel/internal/config"
	"github.com/joshp123/acpanel/internal/logging"
	"github.com/joshp123/acpanel/internal/shadow"
)

type globalFlags struct {
	baseURL    string
	configPath string
	accessKey  string
	logLevel   string
	timeout    time.Duration
	json       bool
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:           "acpanel-cli",
	Short:         "Monitor and control the AC heater from a terminal",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.baseURL, "base-url", "", "backend base URL (default from $ACPANEL_BASE_URL or config)")
	pf.StringVar(&flags.configPath, "config", "", "path to YAML config")
	pf.StringVar(&flags.accessKey, "access-key", os.Getenv("ACPANEL_ACCESS_KEY"), "sign in with this key before changing settings")
	pf.StringVar(&flags.logLevel, "log-level", "fatal", "client log level")
	pf.DurationVar(&flags.timeout, "timeout", 15*time.Second, "overall timeout for one-shot commands")
	pf.BoolVar(&flags.json, "json", false, "print JSON")

	rootCmd.AddCommand(statusCmd, setCmd, overrideCmd, signinCmd, consoleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fatal(rootCmd.Name(), err)
	}
}

func newClient() (*shadow.Client, error) {
	baseURL, err := resolveBaseURL()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(flags.logLevel, true)
	if err != nil {
		return nil, err
	}
	return shadow.NewClient(shadow.Config{BaseURL: baseURL}, shadow.WithLogger(logger))
}

func resolveBaseURL() (string, error) {
	if flags.baseURL != "" {
		return flags.baseURL, nil
	}
	if value := os.Getenv("ACPANEL_BASE_URL"); value != "" {
		return value, nil
	}
	paths := configSearchPaths()
	if flags.configPath != "" {
		paths = []string{flags.configPath}
	}
	for _, path := range paths {
		if cfg, err := config.Load(path); err == nil {
			return cfg.Backend.BaseURL, nil
		}
	}
	return "", fmt.Errorf("backend base URL not set (use --base-url, $ACPANEL_BASE_URL or a config file)")
}

func configSearchPaths() []string {
	paths := []string{config.DefaultPath}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".config", "acpanel", "config.yaml"))
	}
	return paths
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), flags.timeout)
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("error:"), action, err)
	os.Exit(1)
}
