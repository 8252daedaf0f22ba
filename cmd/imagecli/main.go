// Command imagecli applies a query string to a local image.
//
//	imagecli -q "w=300&output=webp" input.jpg [output.webp]
//
// Without an output path the result is written to stdout. On failure the
// status JSON is printed to stderr.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jo-hoe/goimages/internal/config"
	"github.com/jo-hoe/goimages/internal/core"
	"github.com/jo-hoe/goimages/internal/engine/native"
	"github.com/jo-hoe/goimages/internal/stream"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "imagecli",
		Usage:     "transform a local image with a query string",
		ArgsUsage: "input [output]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "query string, e.g. w=300&output=webp",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "optional YAML configuration",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log debug output",
			},
		},
		Action: transform,
	}
}

func transform(c *cli.Context) error {
	if c.NArg() < 1 || c.NArg() > 2 {
		return cli.Exit("usage: imagecli -q <query> input [output]", 2)
	}

	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})))

	opts := core.DefaultOptions()
	if path := c.String("config"); path != "" {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		opts = cfg.CoreOptions()
	}

	processor, err := core.NewProcessor(native.New(), opts)
	if err != nil {
		return fmt.Errorf("failed to initialize processor: %w", err)
	}

	input, err := os.Open(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer func() {
		_ = input.Close()
	}()

	target := stream.NewBufferTarget()
	result := processor.Process(c.Context, strings.TrimPrefix(c.String("query"), "?"), stream.NewSource(input), target)
	if !result.Ok() {
		return cli.Exit(string(result.JSON()), 1)
	}

	if c.NArg() == 1 {
		if _, err := c.App.Writer.Write(target.Bytes()); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(c.Args().Get(1), target.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
