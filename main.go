package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Stouckie/Scrimpilot/app"
	"github.com/Stouckie/Scrimpilot/config"
)

func main() {
	cliApp := &cli.App{
		Name:  "scrimpilot",
		Usage: "scrim and ladder match coordination engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				Value:   "config.yaml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the coordination engine",
				Action: func(c *cli.Context) error {
					return serve(c.Context, c.String("config"))
				},
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}

	runErr := application.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	application.Shutdown(shutdownCtx)

	return runErr
}
