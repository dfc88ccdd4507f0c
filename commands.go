package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/xeptore/tunefetch/fetcher"
	"github.com/xeptore/tunefetch/metadata/spotify/auth"
	"github.com/xeptore/tunefetch/redact"
	"github.com/xeptore/tunefetch/tagger"
)

func list(ctx context.Context, cmd *cli.Command) error {
	ctx, stop, logger, conf, err := setup(ctx, cmd)
	if nil != err {
		return err
	}
	defer stop()

	if cmd.Args().Len() != 1 {
		logger.Error().Msg("Exactly one URL is expected")
		return exitCodeError(2)
	}

	listing, err := fetcher.NewYTDLP(logger, conf.Downloader).List(ctx, cmd.Args().First())
	if nil != err {
		return fmt.Errorf("list url: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(listing.Title)
	t.AppendHeader(table.Row{"#", "ID", "Title", "Uploader", "URL"})
	for i, e := range listing.Entries {
		t.AppendRow(table.Row{i + 1, e.ID, e.Title, e.Uploader, e.URL})
	}
	t.Render()

	return nil
}

func inspect(ctx context.Context, cmd *cli.Command) error {
	_, stop, logger, _, err := setup(ctx, cmd)
	if nil != err {
		return err
	}
	defer stop()

	if cmd.Args().Len() == 0 {
		logger.Error().Msg("At least one file is expected")
		return exitCodeError(2)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"File", "Format", "Title", "Artist", "Album", "Album Artist", "Genre", "Year", "Track", "Disc", "Cover", "Lyrics", "Audio"})

	var failed int
	for _, path := range cmd.Args().Slice() {
		s, err := tagger.Inspect(path)
		if nil != err {
			failed++
			logger.Error().Err(err).Str("path", path).Msg("Failed to inspect file")
			continue
		}

		picture := "-"
		if s.PictureSize > 0 {
			picture = fmt.Sprintf("%s (%d B)", s.PictureMIME, s.PictureSize)
		}

		if nil != s.StreamErr {
			logger.Warn().Err(s.StreamErr).Str("path", path).Msg("Failed to read audio stream properties")
		}

		t.AppendRow(table.Row{
			path,
			s.Format + "/" + s.FileType,
			s.Title,
			s.Artist,
			s.Album,
			s.AlbumArtist,
			s.Genre,
			s.Year,
			s.Track,
			s.Disc,
			picture,
			s.LyricsChars,
			s.Stream.String(),
		})
	}
	t.Render()

	if failed == cmd.Args().Len() {
		return exitCodeError(2)
	}

	return nil
}

func token(ctx context.Context, cmd *cli.Command) error {
	ctx, stop, logger, conf, err := setup(ctx, cmd)
	if nil != err {
		return err
	}
	defer stop()

	tokens := auth.New(logger, conf.Spotify)
	accessToken, err := tokens.Token(ctx)
	if nil != err {
		if errors.Is(err, auth.ErrNoCredentials) || errors.Is(err, auth.ErrUnauthorized) {
			logger.Error().Err(err).Msg("Set valid SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
			return exitCodeError(3)
		}

		return fmt.Errorf("get spotify token: %w", err)
	}

	current := tokens.Current()
	logger.
		Info().
		Str("token", redact.String(accessToken)).
		Time("expires_at", current.ExpiresAt).
		Dur("expires_in", time.Until(current.ExpiresAt).Round(time.Second)).
		Msg("Spotify token is valid")

	return nil
}
