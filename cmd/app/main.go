package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/secondbrain/internal"
	pkgconfig "github.com/starford/secondbrain/pkg/config"
)

var version = "dev"

// options loads the config and returns the shared application options.
// Commands other than serve log to stderr so stdout stays usable.
func options(cmd *cli.Command, logToStderr bool) ([]internal.Option, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}
	if logToStderr {
		opts = append(opts, internal.WithLogOutput(os.Stderr))
	}
	return opts, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, false)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, true)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func process(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, true)
	if err != nil {
		return err
	}
	results, err := internal.Process(ctx, cmd.Bool("all"), opts...)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func extract(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, true)
	if err != nil {
		return err
	}
	res, err := internal.Extract(ctx, opts...)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func vaultPush(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, true)
	if err != nil {
		return err
	}
	report, err := internal.VaultPush(ctx, cmd.Bool("force"), opts...)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func vaultPull(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd, true)
	if err != nil {
		return err
	}
	report, err := internal.VaultPull(ctx, cmd.Bool("force"), opts...)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func forceFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "force",
		Usage: "Ignore recorded versions and overwrite",
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "secondbrain",
		Usage:   "Capture thoughts, file them into a Johnny.Decimal knowledge base, and keep a calendar of the events they mention",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, scheduler and vault watcher (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:  "process",
				Usage: "Categorize the next pending capture",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Keep going until nothing is pending"},
				},
				Action: process,
			},
			{
				Name:   "extract",
				Usage:  "Sync calendar events with the event lines in notes",
				Action: extract,
			},
			{
				Name:  "vault",
				Usage: "Sync the Markdown mirror",
				Commands: []*cli.Command{
					{
						Name:   "push",
						Usage:  "Write edited Markdown files into the store",
						Flags:  []cli.Flag{forceFlag()},
						Action: vaultPush,
					},
					{
						Name:   "pull",
						Usage:  "Write stored notes out as Markdown files",
						Flags:  []cli.Flag{forceFlag()},
						Action: vaultPull,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
