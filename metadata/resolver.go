package metadata

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/xeptore/tunefetch/cache"
	"github.com/xeptore/tunefetch/result"
)

var ErrNoIdentifier = errors.New("neither title nor artist could be determined")

// Query is what a provider is asked about. Primary providers use VideoID, aggregators use Title
// and Artist, and completers are restricted to Fields.
type Query struct {
	VideoID string
	Title   string
	Artist  string
	Fields  []Field
}

func (q Query) Text() string {
	return strings.TrimSpace(strings.TrimSpace(q.Title) + " " + strings.TrimSpace(q.Artist))
}

type Provider interface {
	Name() ProviderName
	Lookup(ctx context.Context, logger zerolog.Logger, q Query) result.Of[Record]
}

// Hint carries what is already known about an item, e.g. from a playlist listing.
type Hint struct {
	Title  string
	Artist string
}

type Source struct {
	URL     string
	VideoID string
	Hint    Hint
}

// Resolver merges provider answers with precedence primary, then aggregators in order, then the
// completer. A field set by an earlier provider is never overwritten by a later one.
type Resolver struct {
	primary          Provider
	aggregators      []Provider
	completer        Provider
	completionFields []Field
}

func NewResolver(primary Provider, aggregators []Provider, completer Provider, completionFields []Field) *Resolver {
	return &Resolver{
		primary:          primary,
		aggregators:      aggregators,
		completer:        completer,
		completionFields: completionFields,
	}
}

func (r *Resolver) Resolve(ctx context.Context, logger zerolog.Logger, src Source) (*Record, error) {
	rec := &Record{} //nolint:exhaustruct

	if nil != r.primary && src.VideoID != "" {
		res := r.primary.Lookup(ctx, logger, Query{VideoID: src.VideoID}) //nolint:exhaustruct
		switch res.Kind() {
		case result.KindOk:
			rec.Fill(res.Unwrap())
		case result.KindFailed:
			logger.Warn().Err(res.Err()).Str("provider", string(r.primary.Name())).Msg("Primary metadata lookup failed")
		case result.KindEmpty:
			logger.Debug().Str("provider", string(r.primary.Name())).Msg("Primary metadata lookup returned nothing")
		}
	}

	rec.Fill(&Record{Title: src.Hint.Title, Artist: src.Hint.Artist, Provider: ProviderHint}) //nolint:exhaustruct

	if rec.IsMissing(FieldTitle) && rec.IsMissing(FieldArtist) {
		if err := ctx.Err(); nil != err {
			return nil, err
		}

		return nil, ErrNoIdentifier
	}

	for _, p := range r.aggregators {
		if nil != ctx.Err() {
			break
		}

		res := p.Lookup(ctx, logger, Query{Title: rec.Title, Artist: rec.Artist}) //nolint:exhaustruct
		switch res.Kind() {
		case result.KindOk:
			filled := rec.Fill(res.Unwrap())
			logger.Debug().Str("provider", string(p.Name())).Strs("filled", fieldNames(filled)).Msg("Aggregator lookup merged")
		case result.KindFailed:
			logger.Warn().Err(res.Err()).Str("provider", string(p.Name())).Msg("Aggregator lookup failed")
		case result.KindEmpty:
			logger.Debug().Str("provider", string(p.Name())).Msg("Aggregator lookup returned nothing")
		}
	}

	if missing := rec.Missing(r.completionFields); len(missing) > 0 && nil != r.completer && nil == ctx.Err() {
		q := Query{Title: rec.Title, Artist: rec.Artist, Fields: missing} //nolint:exhaustruct
		res := r.completer.Lookup(ctx, logger, q)
		switch res.Kind() {
		case result.KindOk:
			filled := rec.Complete(res.Unwrap(), missing)
			logger.Debug().Str("provider", string(r.completer.Name())).Strs("filled", fieldNames(filled)).Msg("Completion merged")
		case result.KindFailed:
			logger.Warn().Err(res.Err()).Str("provider", string(r.completer.Name())).Msg("Completion failed")
		case result.KindEmpty:
		}
	}

	if err := ctx.Err(); nil != err {
		return nil, err
	}

	return rec, nil
}

func fieldNames(fields []Field) []string {
	return lo.Map(fields, func(f Field, _ int) string { return string(f) })
}

type cached struct {
	Provider
	c *cache.Cache[*Record]
}

// Cached memoizes Ok and Empty answers of p per query text. Failures are not remembered.
func Cached(p Provider, c *cache.Cache[*Record]) Provider {
	return &cached{Provider: p, c: c}
}

func (p *cached) Lookup(ctx context.Context, logger zerolog.Logger, q Query) result.Of[Record] {
	key := string(p.Name()) + "\x00" + q.VideoID + "\x00" + strings.ToLower(q.Text())
	rec, err := p.c.Fetch(key, func() (*Record, error) {
		res := p.Provider.Lookup(ctx, logger, q)
		switch res.Kind() {
		case result.KindOk:
			return res.Unwrap(), nil
		case result.KindFailed:
			return nil, res.Err()
		default:
			return nil, nil
		}
	})
	if nil != err {
		return result.Err[Record](err)
	}

	if nil == rec {
		return result.Empty[Record]()
	}

	return result.Ok(rec.Clone())
}
