package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

var ErrMalformedTokenFile = errors.New("malformed token file")

// TokenFile is the on-disk copy of the last issued token. It is shared by every run of the tool,
// so writes replace the file atomically.
type TokenFile string

type TokenFileContent struct {
	AccessToken string `json:"access_token"` //nolint:gosec
	TokenType   string `json:"token_type"`
	// ExpiresAt is in Unix seconds.
	ExpiresAt int64 `json:"expires_at"`
	// ExpiryTime is the fractional Unix time older files carry instead of ExpiresAt. It is read,
	// never written.
	ExpiryTime float64 `json:"expiry_time,omitempty"`
}

func contentOf(t *Token) TokenFileContent {
	return TokenFileContent{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresAt:   t.ExpiresAt.Unix(),
		ExpiryTime:  0,
	}
}

func (c *TokenFileContent) Token() *Token {
	return &Token{
		AccessToken: c.AccessToken,
		TokenType:   c.TokenType,
		ExpiresAt:   time.Unix(c.ExpiresAt, 0),
	}
}

func (f TokenFile) Read() (c *TokenFileContent, err error) {
	file, err := os.Open(string(f))
	if nil != err {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}

		return nil, fmt.Errorf("open token file: %v", err)
	}
	defer func() {
		if closeErr := file.Close(); nil != closeErr {
			err = errors.Join(err, fmt.Errorf("close token file: %v", closeErr))
		}
	}()

	dec := json.NewDecoder(file)
	if err := dec.DecodeWithOption(&c, json.DecodeFieldPriorityFirstWin()); nil != err {
		return nil, fmt.Errorf("decode token file contents: %v", err)
	}

	if nil == c || c.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", ErrMalformedTokenFile)
	}

	if c.ExpiresAt == 0 && c.ExpiryTime > 0 {
		c.ExpiresAt = int64(c.ExpiryTime)
	}
	c.ExpiryTime = 0

	if c.ExpiresAt <= 0 {
		return nil, fmt.Errorf("%w: no expiry", ErrMalformedTokenFile)
	}

	return c, nil
}

// Write replaces the file through a sibling temporary file so a concurrent reader sees either the
// old token or the new one.
func (f TokenFile) Write(c TokenFileContent) (err error) {
	dir := filepath.Dir(string(f))
	if err := os.MkdirAll(dir, 0o0700); nil != err {
		return fmt.Errorf("create token file directory: %v", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(string(f))+".*")
	if nil != err {
		return fmt.Errorf("create temporary token file: %v", err)
	}
	defer func() {
		if nil != err {
			if removeErr := os.Remove(tmp.Name()); nil != removeErr && !errors.Is(removeErr, os.ErrNotExist) {
				err = errors.Join(err, fmt.Errorf("remove temporary token file: %v", removeErr))
			}
		}
	}()

	if err := json.NewEncoder(tmp).EncodeWithOption(c); nil != err {
		_ = tmp.Close()
		return fmt.Errorf("encode token file: %v", err)
	}

	if err := tmp.Sync(); nil != err {
		_ = tmp.Close()
		return fmt.Errorf("sync token file: %v", err)
	}

	if err := tmp.Close(); nil != err {
		return fmt.Errorf("close temporary token file: %v", err)
	}

	if err := os.Rename(tmp.Name(), string(f)); nil != err {
		return fmt.Errorf("replace token file: %v", err)
	}

	return nil
}
