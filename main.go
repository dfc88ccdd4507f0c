package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/constants"
	"github.com/xeptore/tunefetch/log"
)

func main() {
	logger := log.NewDefault()

	//nolint:exhaustruct
	app := &cli.Command{
		Name:    "tunefetch",
		Version: constants.Version,
		Metadata: map[string]any{
			"compiled_at": constants.CompileTime,
		},
		Suggest:                    true,
		Usage:                      "Download audio and tag it with metadata, cover art and lyrics",
		ArgsUsage:                  "[URL...]",
		EnableShellCompletion:      true,
		ShellCompletionCommandName: "shell-completion",
		AllowExtFlags:              false,
		DefaultCommand:             "download",
		Flags: []cli.Flag{
			//nolint:exhaustruct
			&cli.StringFlag{
				Name:     "config",
				Usage:    "Config file path",
				Required: false,
			},
		},
		Commands: []*cli.Command{
			//nolint:exhaustruct
			{
				Name:      "download",
				Usage:     "Download and tag one or more URLs",
				ArgsUsage: "[URL...]",
				Flags: []cli.Flag{
					//nolint:exhaustruct
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Download directory",
					},
					//nolint:exhaustruct
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Number of items processed at once",
					},
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:  "no-lyrics",
						Usage: "Do not look up lyrics",
					},
					//nolint:exhaustruct
					&cli.BoolFlag{
						Name:  "no-ai",
						Usage: "Do not complete missing metadata with the AI provider",
					},
				},
				Action: download,
			},
			//nolint:exhaustruct
			{
				Name:      "list",
				Usage:     "List the items a URL would download without downloading them",
				ArgsUsage: "URL",
				Action:    list,
			},
			//nolint:exhaustruct
			{
				Name:      "inspect",
				Usage:     "Show the tags embedded in audio files",
				ArgsUsage: "FILE...",
				Action:    inspect,
			},
			//nolint:exhaustruct
			{
				Name:   "token",
				Usage:  "Obtain a Spotify access token and show its expiry",
				Action: token,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); nil != err {
		if errors.Is(err, context.Canceled) {
			logger.Trace().Msg("Application was canceled")
			os.Exit(1)
		}

		var exitCode exitCodeError
		if errors.As(err, &exitCode) {
			os.Exit(int(exitCode))
		}

		logger.Error().Err(err).Msg("Application exited with error")
		os.Exit(10)
	}
}

type exitCodeError int

func (e exitCodeError) Error() string {
	return "error with exit code: " + strconv.Itoa(int(e))
}

// setup loads .env and the config file, and applies command line overrides.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, context.CancelFunc, zerolog.Logger, *config.Config, error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)

	logger := log.NewDefault()

	if err := godotenv.Load(); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			stop()
			return nil, nil, logger, nil, fmt.Errorf("load .env file: %v", err)
		}
		logger.Debug().Msg(".env file was not found")
	} else {
		logger.Debug().Msg(".env file was loaded")
	}

	conf, err := config.Load(cmd.String("config"))
	if nil != err {
		stop()
		return nil, nil, logger, nil, fmt.Errorf("load config: %v", err)
	}

	if dir := cmd.String("dir"); dir != "" {
		conf.Downloader.Dir = dir
	}
	if n := cmd.Int("concurrency"); n > 0 {
		conf.Downloader.Concurrency = n
	}
	if cmd.Bool("no-lyrics") {
		conf.Lyrics.Enabled = lo.ToPtr(false)
	}
	if cmd.Bool("no-ai") {
		conf.OpenAI.Enabled = lo.ToPtr(false)
	}

	logger = log.FromConfig(conf.Log)

	logger.Debug().Dict("config", conf.ToDict()).Msg("Config loaded")

	return ctx, stop, logger, conf, nil
}
