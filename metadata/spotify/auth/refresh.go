package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/xeptore/tunefetch/unit"
)

func (c *Cache) requestToken(ctx context.Context, now time.Time) (t *Token, err error) {
	reqURL, err := url.JoinPath(c.accountsURL, "/api/token")
	if nil != err {
		c.logger.Error().Err(err).Msg("Failed to join accounts URL and token path")
		return nil, fmt.Errorf("join accounts URL and token path: %v", err)
	}

	reqParams := make(url.Values, 1)
	reqParams.Add("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBufferString(reqParams.Encode()))
	if nil != err {
		c.logger.Error().Err(err).Msg("Failed to create token request")
		return nil, fmt.Errorf("create token request: %w", err)
	}

	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Add("Accept", "application/json")
	req.Header.Add(
		"Authorization",
		"Basic "+base64.StdEncoding.Strict().EncodeToString([]byte(c.clientID+":"+c.clientSecret)),
	)

	resp, err := http.DefaultClient.Do(req)
	if nil != err {
		c.logger.Error().Err(err).Msg("Failed to issue token request")
		return nil, fmt.Errorf("issue token request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); nil != closeErr {
			c.logger.Error().Err(closeErr).Msg("Failed to close response body")
			err = errors.Join(err, fmt.Errorf("close response body: %v", closeErr))
		}
	}()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*unit.Kibibyte))
	if nil != err {
		c.logger.Error().Err(err).Int("status_code", resp.StatusCode).Msg("Failed to read response body")
		return nil, fmt.Errorf("read response body: %w", err)
	}

	switch code := resp.StatusCode; code {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized:
		var respBody struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if err := json.Unmarshal(respBytes, &respBody); nil == err && respBody.Error == "invalid_client" {
			return nil, ErrUnauthorized
		}

		c.logger.Error().Int("status_code", code).Bytes("response_body", respBytes).Msg("Unexpected token response")

		return nil, fmt.Errorf("unexpected status code %d with body: %s", code, string(respBytes))
	default:
		c.logger.Error().Int("status_code", code).Bytes("response_body", respBytes).Msg("Unexpected response status code")

		return nil, fmt.Errorf("unexpected status code %d with body: %s", code, string(respBytes))
	}

	var respBody struct {
		AccessToken string `json:"access_token"` //nolint:gosec
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(respBytes, &respBody); nil != err {
		c.logger.Error().Err(err).Bytes("response_body", respBytes).Msg("Failed to decode 200 response body")
		return nil, fmt.Errorf("decode 200 response body: %v", err)
	}

	if respBody.AccessToken == "" || respBody.ExpiresIn <= 0 {
		return nil, errors.New("token response is missing access_token or expires_in")
	}

	return &Token{
		AccessToken: respBody.AccessToken,
		TokenType:   respBody.TokenType,
		ExpiresAt:   now.Add(time.Duration(respBody.ExpiresIn) * time.Second),
	}, nil
}
