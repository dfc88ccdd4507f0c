package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/xeptore/tunefetch/fetcher"
	"github.com/xeptore/tunefetch/metadata"
)

// ProcessBatch processes items with at most Config.Concurrency items in flight. Items fail
// independently and the results are ordered by Item.Index.
func (c *Coordinator) ProcessBatch(ctx context.Context, logger zerolog.Logger, items []Item) []Result {
	results := make([]Result, len(items))

	var wg errgroup.Group
	wg.SetLimit(c.conf.Concurrency)
	for _, item := range items {
		c.observe(Event{ //nolint:exhaustruct
			Index: item.Index,
			URL:   item.URL,
			Stage: StageQueued,
			Title: item.Hint.Title,
		})
	}
	for i, item := range items {
		wg.Go(func() error {
			results[i] = *c.Process(ctx, logger, item)
			return nil
		})
	}
	_ = wg.Wait()

	slices.SortStableFunc(results, func(a, b Result) int { return cmp.Compare(a.Index, b.Index) })

	return results
}

// Expand turns user input into batch items. Collection URLs are replaced by their entries, which
// keep the listed title and uploader as hints. Repeated URLs are processed once.
func (c *Coordinator) Expand(ctx context.Context, logger zerolog.Logger, urls []string) []Item {
	urls = lo.Uniq(lo.Compact(lo.Map(urls, func(u string, _ int) string { return strings.TrimSpace(u) })))

	var items []Item
	for _, u := range urls {
		if !fetcher.IsCollection(u) {
			items = append(items, Item{URL: u}) //nolint:exhaustruct
			continue
		}

		listing, err := c.deps.Fetcher.List(ctx, u)
		if nil != err {
			logger.Error().Err(err).Str("url", u).Msg("Failed to list collection")
			items = append(items, Item{URL: u, Err: fmt.Errorf("list collection: %w", err)}) //nolint:exhaustruct
			continue
		}
		logger.Info().Str("url", u).Str("title", listing.Title).Int("entries", len(listing.Entries)).Msg("Collection listed")

		for _, e := range listing.Entries {
			items = append(items, Item{ //nolint:exhaustruct
				URL: e.URL,
				Hint: metadata.Hint{
					Title:  e.Title,
					Artist: strings.TrimSuffix(e.Uploader, " - Topic"),
				},
			})
		}
	}

	items = lo.UniqBy(items, func(it Item) string { return it.URL })
	for i := range items {
		items[i].Index = i
	}

	return items
}
