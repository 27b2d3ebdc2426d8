package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/jotter/internal"
	pkgconfig "github.com/starford/jotter/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// input opens the file named by the first argument, or stdin when there is none or it is "-".
func input(cmd *cli.Command) (io.ReadCloser, error) {
	name := cmd.Args().First()
	if name == "" || name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	in, err := input(cmd)
	if err != nil {
		return err
	}
	defer in.Close()
	return internal.RenderContent(ctx, cmd.Bool("scrub"), internal.WithConfig(cfg), internal.WithIO(in, os.Stdout))
}

func runScrub(_ context.Context, cmd *cli.Command) error {
	in, err := input(cmd)
	if err != nil {
		return err
	}
	defer in.Close()
	return internal.ScrubContent(internal.WithIO(in, os.Stdout))
}

func runTLDRefresh(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RefreshTLDs(ctx, internal.WithConfig(cfg))
}

func runTLDCheck(ctx context.Context, cmd *cli.Command) error {
	domain := cmd.Args().First()
	if domain == "" {
		return fmt.Errorf("domain argument is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	valid, err := internal.CheckTLD(ctx, domain, internal.WithConfig(cfg))
	if err != nil {
		return err
	}
	if !valid {
		return cli.Exit("", 2)
	}
	return nil
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("directory argument is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ImportVault(ctx, dir, internal.WithConfig(cfg))
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.Args().First()
	if dir == "" {
		return fmt.Errorf("directory argument is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ExportVault(ctx, dir, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "jotter",
		Usage:  "Note service with a content rendering pipeline, full-text search and an MCP tool surface",
		Action: run,
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
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: runMCP,
			},
			{
				Name:      "render",
				Usage:     "Render content to text and HTML as JSON",
				ArgsUsage: "[file]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "scrub", Usage: "Treat input as editor HTML and scrub it first"},
				},
				Action: runRender,
			},
			{
				Name:      "scrub",
				Usage:     "Convert editor HTML to canonical content",
				ArgsUsage: "[file]",
				Action:    runScrub,
			},
			{
				Name:      "import",
				Usage:     "Import Markdown notes from a directory (files without a guid get one written back)",
				ArgsUsage: "<dir>",
				Action:    runImport,
			},
			{
				Name:      "export",
				Usage:     "Export every note to a directory as Markdown with frontmatter",
				ArgsUsage: "<dir>",
				Action:    runExport,
			},
			{
				Name:  "tld",
				Usage: "Manage the top-level domain list",
				Commands: []*cli.Command{
					{
						Name:   "refresh",
						Usage:  "Fetch the list now and save it to the configured store",
						Action: runTLDRefresh,
					},
					{
						Name:      "check",
						Usage:     "Check whether a domain ends in a known TLD (exit 2 if not)",
						ArgsUsage: "<domain>",
						Action:    runTLDCheck,
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
