package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/xeptore/tunefetch/cache"
	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/cover"
	"github.com/xeptore/tunefetch/fetcher"
	"github.com/xeptore/tunefetch/fs"
	"github.com/xeptore/tunefetch/lyrics"
	"github.com/xeptore/tunefetch/mathutil"
	"github.com/xeptore/tunefetch/metadata"
	"github.com/xeptore/tunefetch/metadata/itunes"
	"github.com/xeptore/tunefetch/metadata/openai"
	"github.com/xeptore/tunefetch/metadata/spotify"
	"github.com/xeptore/tunefetch/metadata/spotify/auth"
	"github.com/xeptore/tunefetch/metadata/youtube"
	"github.com/xeptore/tunefetch/pipeline"
	"github.com/xeptore/tunefetch/progress"
	"github.com/xeptore/tunefetch/tagger"
)

const lookupCacheSize = 1000

func download(ctx context.Context, cmd *cli.Command) error {
	ctx, stop, logger, conf, err := setup(ctx, cmd)
	if nil != err {
		return err
	}
	defer stop()

	urls := strings.Fields(strings.Join(cmd.Args().Slice(), " "))
	if len(urls) == 0 {
		urls, err = askURLs()
		if nil != err {
			return err
		}
	}

	dir := fs.DownloadDirFrom(conf.Downloader.Dir)
	if err := dir.Ensure(); nil != err {
		return fmt.Errorf("create download directory: %v", err)
	}

	deps, cleanup, err := newDeps(logger, conf)
	if nil != err {
		return err
	}
	defer cleanup()

	pconf := pipeline.Config{
		Dir:             dir,
		Concurrency:     conf.Downloader.Concurrency,
		MetadataTimeout: conf.Metadata.Timeout.Duration,
	}

	items := pipeline.New(logger, pconf, deps).Expand(ctx, logger, urls)
	if len(items) == 0 {
		logger.Error().Msg("No URL to download")
		return exitCodeError(2)
	}
	logger.
		Info().
		Int("items", len(items)).
		Int("concurrency", pconf.Concurrency).
		Int("rounds", mathutil.DivCeil(len(items), max(pconf.Concurrency, 1))).
		Msg("Starting downloads")

	var (
		monitor *progress.Monitor
		results []pipeline.Result
	)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		term := progress.NewTerminal(os.Stderr, len(items))
		monitor = progress.NewMonitor(len(items), term)
		deps.Observer = monitor
		term.Start()
		results = pipeline.New(logger, pconf, deps).ProcessBatch(ctx, logger, items)
		term.Stop()
	} else {
		monitor = progress.NewMonitor(len(items), progress.NewLog(logger))
		deps.Observer = monitor
		stopReport := reportEvery(logger, monitor, 10*time.Second)
		results = pipeline.New(logger, pconf, deps).ProcessBatch(ctx, logger, items)
		stopReport()
	}

	printSummary(results)

	if err := ctx.Err(); nil != err {
		return err
	}

	logger.Info().Int("done", monitor.Done()).Int("failed", monitor.Failed()).Msg("All items processed")
	if monitor.Done() == 0 {
		return exitCodeError(2)
	}

	return nil
}

func askURLs() ([]string, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil, errors.New("no URL given and stdin is not a terminal")
	}

	var answer string
	prompt := &survey.Input{ //nolint:exhaustruct
		Message: "Enter the URL:",
	}
	askOpts := []survey.AskOpt{
		survey.WithValidator(survey.Required),
		survey.WithStdio(os.Stdin, os.Stderr, os.Stderr),
	}
	if err := survey.AskOne(prompt, &answer, askOpts...); nil != err {
		return nil, fmt.Errorf("ask for url: %v", err)
	}

	return strings.Fields(answer), nil
}

// newDeps wires the pipeline collaborators from config. The returned cleanup stops the lookup
// caches.
func newDeps(logger zerolog.Logger, conf *config.Config) (pipeline.Deps, func(), error) {
	fields, err := metadata.ParseFields(conf.Metadata.CompletionFields)
	if nil != err {
		return pipeline.Deps{}, nil, fmt.Errorf("parse completion fields: %v", err) //nolint:exhaustruct
	}

	queries := cache.New[*metadata.Record](lookupCacheSize, conf.Metadata.CacheTTL.Duration)
	genres := cache.New[[]string](lookupCacheSize, cache.DefaultGenreTTL)
	cleanup := func() {
		queries.Stop()
		genres.Stop()
	}

	var primary metadata.Provider
	if *conf.YouTube.Enabled {
		primary = youtube.New(conf.YouTube)
	}

	var aggregators []metadata.Provider
	if *conf.Spotify.Enabled {
		tokens := auth.New(logger, conf.Spotify)
		aggregators = append(aggregators, metadata.Cached(spotify.New(conf.Spotify, tokens, genres), queries))
	}
	if *conf.ITunes.Enabled {
		aggregators = append(aggregators, metadata.Cached(itunes.New(conf.ITunes), queries))
	}

	var completer metadata.Provider
	if *conf.OpenAI.Enabled {
		completer = openai.New(conf.OpenAI)
	}

	deps := pipeline.Deps{ //nolint:exhaustruct
		Fetcher:  fetcher.NewYTDLP(logger, conf.Downloader),
		Metadata: metadata.NewResolver(primary, aggregators, completer, fields),
		Cover:    cover.New(conf.Cover),
		Tagger:   tagger.New(),
	}

	if *conf.Lyrics.Enabled {
		l, err := lyrics.New(conf.Lyrics)
		if nil != err {
			cleanup()
			return pipeline.Deps{}, nil, fmt.Errorf("create lyrics resolver: %v", err) //nolint:exhaustruct
		}
		deps.Lyrics = l
	}

	logger.
		Debug().
		Bool("primary", nil != primary).
		Int("aggregators", len(aggregators)).
		Bool("completion", nil != completer).
		Bool("lyrics", *conf.Lyrics.Enabled).
		Msg("Metadata providers configured")

	return deps, cleanup, nil
}

func reportEvery(logger zerolog.Logger, m *progress.Monitor, every time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				logger.Info().Int("percent", m.Percent()).Int("done", m.Done()).Int("failed", m.Failed()).Msg("Progress")
			}
		}
	}()

	return func() { close(done) }
}

func printSummary(results []pipeline.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Status", "Path", "Title", "Artist", "Audio", "Warnings"})
	for _, r := range results {
		status, path := "ok", r.Path
		if nil != r.Err {
			status, path = "failed", r.Err.Error()
		}

		var title, artist string
		if nil != r.Metadata {
			title, artist = r.Metadata.Title, r.Metadata.Artist
		}

		audio := tagger.Stream{
			Codec:      r.Stream.Codec,
			Bitrate:    r.Stream.Bitrate,
			SampleRate: r.Stream.SampleRate,
			Channels:   r.Stream.Channels,
			BitDepth:   0,
		}

		t.AppendRow(table.Row{r.Index + 1, status, path, title, artist, audio.String(), strings.Join(r.Warnings, "\n")})
	}
	t.Render()
}
