package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/novelcipher/internal"
	"github.com/starford/novelcipher/internal/chapter"
	"github.com/starford/novelcipher/internal/cipher"
	"github.com/starford/novelcipher/internal/protect/dom"
	"github.com/starford/novelcipher/internal/reader"
	pkgconfig "github.com/starford/novelcipher/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg, pkgconfig.WithDotenv(".env")); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func options(cfg *internal.Config) []internal.Option {
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, options(cfg)...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, options(cfg)...)
}

func seal(ctx context.Context, cmd *cli.Command) error {
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("seal: plaintext file argument is required")
	}
	plaintext, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts := append(options(cfg), internal.WithLogOutput(os.Stderr))
	c, err := internal.Setup(opts...)
	if err != nil {
		return err
	}
	defer c.Close()

	d, err := c.Service.Seal(ctx, chapter.Draft{
		Number: int(cmd.Int("chapter")),
		Title:  cmd.String("title"),
		Tags:   cmd.StringSlice("tag"),
	}, string(plaintext))
	if err != nil {
		return fmt.Errorf("seal: %w", err)
	}
	fmt.Fprintf(os.Stdout, "sealed chapter %d at %s (%s)\n", d.Number, d.Path, d.Checksum)
	return nil
}

func read(ctx context.Context, cmd *cli.Command) error {
	var number int
	if _, err := fmt.Sscanf(cmd.Args().First(), "%d", &number); err != nil || number < 1 {
		return fmt.Errorf("read: chapter number argument is required")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	km, err := cfg.Cipher.KeyMaterial()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	p := reader.New(
		&reader.HTTPSource{BaseURL: cmd.String("server")},
		cipher.New(cipher.StaticKeys(km)),
		dom.NewDocument(),
	)
	page, err := p.Open(ctx, number)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if page.Err != nil {
		slog.Warn("chapter rendered with placeholder", slog.String("error", page.Err.Error()))
	}

	out, err := p.HTML()
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	fmt.Fprintln(os.Stdout, out)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "novelcipher",
		Usage:   "Encrypted chapter catalog with a copy-protected reader",
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
				Usage:  "Run the HTTP API, event stream and vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve chapter tools over MCP stdio",
				Action: mcp,
			},
			{
				Name:      "seal",
				Usage:     "Encrypt a plaintext file and store it as a chapter",
				ArgsUsage: "FILE",
				Action:    seal,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "chapter",
						Aliases:  []string{"n"},
						Usage:    "Chapter number",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Chapter title",
					},
					&cli.StringSliceFlag{
						Name:  "tag",
						Usage: "Chapter tag (repeatable)",
					},
				},
			},
			{
				Name:      "read",
				Usage:     "Render a chapter through the protected reader and print the HTML",
				ArgsUsage: "NUMBER",
				Action:    read,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "server",
						Usage: "Base URL of a running server",
						Value: "http://localhost:8080",
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
