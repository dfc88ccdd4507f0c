package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"

	"github.com/xeptore/tunefetch/config"
	"github.com/xeptore/tunefetch/metadata"
	"github.com/xeptore/tunefetch/result"
)

const Name metadata.ProviderName = "openai"

const systemPrompt = "You are a music metadata assistant. Answer with a single JSON object whose keys are " +
	"exactly the requested field names. Use a string value for every field, or null when unsure. " +
	"year is a four digit year, track_number and disk_number are plain integers."

type Provider struct {
	client  *goopenai.Client
	model   string
	timeout time.Duration
}

func New(conf config.OpenAI) *Provider {
	cfg := goopenai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		cfg.BaseURL = conf.BaseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: conf.Timeout.Duration} //nolint:exhaustruct

	return &Provider{
		client:  goopenai.NewClientWithConfig(cfg),
		model:   conf.Model,
		timeout: conf.Timeout.Duration,
	}
}

func (p *Provider) Name() metadata.ProviderName {
	return Name
}

// Lookup asks the model for q.Fields only. Keys outside q.Fields in the answer are ignored.
func (p *Provider) Lookup(ctx context.Context, logger zerolog.Logger, q metadata.Query) result.Of[metadata.Record] {
	if len(q.Fields) == 0 || q.Text() == "" {
		return result.Empty[metadata.Record]()
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req := goopenai.ChatCompletionRequest{ //nolint:exhaustruct
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt}, //nolint:exhaustruct
			{Role: goopenai.ChatMessageRoleUser, Content: userPrompt(q)},  //nolint:exhaustruct
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{ //nolint:exhaustruct
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if nil != err {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			logger.Debug().Int("status_code", apiErr.HTTPStatusCode).Str("type", apiErr.Type).Msg("Completion request rejected")
		}

		return result.Err[metadata.Record](fmt.Errorf("failed to create chat completion: %w", err))
	}

	if len(resp.Choices) == 0 {
		return result.Empty[metadata.Record]()
	}

	rec, err := parseAnswer(resp.Choices[0].Message.Content, q.Fields)
	if nil != err {
		logger.Debug().Err(err).Str("content", resp.Choices[0].Message.Content).Msg("Unusable completion answer")
		return result.Err[metadata.Record](err)
	}

	if len(rec.Missing(q.Fields)) == len(q.Fields) {
		return result.Empty[metadata.Record]()
	}

	return result.Ok(rec)
}

func userPrompt(q metadata.Query) string {
	fields := lo.Map(q.Fields, func(f metadata.Field, _ int) string { return string(f) })

	var b strings.Builder
	b.WriteString("Song title: ")
	b.WriteString(q.Title)
	b.WriteString("\nArtist: ")
	b.WriteString(q.Artist)
	b.WriteString("\nFields: ")
	b.WriteString(strings.Join(fields, ", "))

	return b.String()
}

func parseAnswer(content string, fields []metadata.Field) (*metadata.Record, error) {
	content = strings.TrimSpace(content)
	if !gjson.Valid(content) || !gjson.Parse(content).IsObject() {
		return nil, errors.New("completion answer is not a JSON object")
	}

	rec := &metadata.Record{Provider: Name} //nolint:exhaustruct
	answer := gjson.Parse(content)
	for _, f := range fields {
		v := answer.Get(string(f))
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		// A malformed value for one field does not discard the others.
		_ = rec.Set(f, v.String())
	}

	return rec, nil
}
