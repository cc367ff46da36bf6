package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/urfave/cli/v2"

	"github.com/pdok/pointtiles/logging"
	"github.com/pdok/pointtiles/service"
	"github.com/pdok/pointtiles/upstream"
)

const CONFIG string = `config`
const BINDADDRESS string = `bindAddress`
const UPSTREAMURL string = `upstreamUrl`
const UPSTREAMTIMEOUT string = `upstreamTimeout`
const FORWARDHEADERS string = `forwardHeaders`
const LOGLEVEL string = `logLevel`
const LOGFORMAT string = `logFormat`

func main() {
	app := cli.NewApp()
	app.Name = "pointtiles"
	app.Usage = "A vector tile server that aggregates point datasets per pixel"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     CONFIG,
			Aliases:  []string{"c"},
			Usage:    "Path to a JSON config file. Flags override its values",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(CONFIG)},
		},
		&cli.StringFlag{
			Name:     BINDADDRESS,
			Aliases:  []string{"b"},
			Usage:    "Address to listen on. E.g. :8080",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(BINDADDRESS)},
		},
		&cli.StringFlag{
			Name:     UPSTREAMURL,
			Aliases:  []string{"u"},
			Usage:    "Base URL of the upstream data service",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(UPSTREAMURL)},
		},
		&cli.UintFlag{
			Name:     UPSTREAMTIMEOUT,
			Usage:    "Upstream query timeout in seconds",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(UPSTREAMTIMEOUT)},
		},
		&cli.StringSliceFlag{
			Name:     FORWARDHEADERS,
			Usage:    "Client header names to forward to the upstream data service",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(FORWARDHEADERS)},
		},
		&cli.StringFlag{
			Name:     LOGLEVEL,
			Usage:    "Log level: debug, info, warn or error",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(LOGLEVEL)},
		},
		&cli.StringFlag{
			Name:     LOGFORMAT,
			Usage:    "Log format: json or text",
			Required: false,
			EnvVars:  []string{strcase.ToScreamingSnake(LOGFORMAT)},
		},
	}

	app.Action = func(c *cli.Context) error {
		config, err := service.LoadConfig(c.String(CONFIG))
		if err != nil {
			return err
		}
		if c.IsSet(BINDADDRESS) {
			config.BindAddress = c.String(BINDADDRESS)
		}
		if c.IsSet(UPSTREAMURL) {
			config.UpstreamURL = c.String(UPSTREAMURL)
		}
		if c.IsSet(UPSTREAMTIMEOUT) {
			config.UpstreamTimeoutSeconds = c.Uint(UPSTREAMTIMEOUT)
		}
		if c.IsSet(FORWARDHEADERS) {
			config.ForwardHeaders = c.StringSlice(FORWARDHEADERS)
		}
		if c.IsSet(LOGLEVEL) {
			config.LogLevel = c.String(LOGLEVEL)
		}
		if c.IsSet(LOGFORMAT) {
			config.LogFormat = c.String(LOGFORMAT)
		}
		if err := config.Validate(); err != nil {
			return err
		}

		logger := logging.New(config.LogLevel, config.LogFormat)

		client := upstream.NewHTTPClient(config.UpstreamURL, config.UpstreamTimeout())
		server := service.New(config, client, logger)

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-shutdown
			logger.Info("shutting down", "signal", sig.String())
			if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
				logger.Error("shutdown failed", "error", err)
			}
		}()

		logger.Info("listening", "address", config.BindAddress, "upstream", config.UpstreamURL)
		return server.Listen(config.BindAddress)
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
