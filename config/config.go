package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/xeptore/tunefetch/redact"
	"github.com/xeptore/tunefetch/unit"
)

const DefaultFilename = "config.yaml"

type Config struct {
	Log        Log        `yaml:"log"`
	Downloader Downloader `yaml:"downloader"`
	Metadata   Metadata   `yaml:"metadata"`
	YouTube    YouTube    `yaml:"youtube"`
	ITunes     ITunes     `yaml:"itunes"`
	Spotify    Spotify    `yaml:"spotify"`
	OpenAI     OpenAI     `yaml:"openai"`
	Lyrics     Lyrics     `yaml:"lyrics"`
	Cover      Cover      `yaml:"cover"`
}

func (c *Config) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Dict("log", c.Log.ToDict()).
		Dict("downloader", c.Downloader.ToDict()).
		Dict("metadata", c.Metadata.ToDict()).
		Dict("youtube", c.YouTube.ToDict()).
		Dict("itunes", c.ITunes.ToDict()).
		Dict("spotify", c.Spotify.ToDict()).
		Dict("openai", c.OpenAI.ToDict()).
		Dict("lyrics", c.Lyrics.ToDict()).
		Dict("cover", c.Cover.ToDict())
}

func (c *Config) setDefaults() {
	c.Log.setDefaults()
	c.Downloader.setDefaults()
	c.Metadata.setDefaults()
	c.YouTube.setDefaults()
	c.ITunes.setDefaults()
	c.Spotify.setDefaults()
	c.OpenAI.setDefaults()
	c.Lyrics.setDefaults()
	c.Cover.setDefaults()
}

func (c *Config) validate() error {
	if err := c.Log.validate(); nil != err {
		return fmt.Errorf("log config validation failed: %v", err)
	}

	if err := c.Downloader.validate(); nil != err {
		return fmt.Errorf("downloader config validation failed: %v", err)
	}

	if err := c.Metadata.validate(); nil != err {
		return fmt.Errorf("metadata config validation failed: %v", err)
	}

	if err := c.YouTube.validate(); nil != err {
		return fmt.Errorf("youtube config validation failed: %v", err)
	}

	if err := c.ITunes.validate(); nil != err {
		return fmt.Errorf("itunes config validation failed: %v", err)
	}

	if err := c.Spotify.validate(); nil != err {
		return fmt.Errorf("spotify config validation failed: %v", err)
	}

	if err := c.OpenAI.validate(); nil != err {
		return fmt.Errorf("openai config validation failed: %v", err)
	}

	if err := c.Lyrics.validate(); nil != err {
		return fmt.Errorf("lyrics config validation failed: %v", err)
	}

	if err := c.Cover.validate(); nil != err {
		return fmt.Errorf("cover config validation failed: %v", err)
	}

	return nil
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Log) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("level", c.Level).
		Str("format", c.Format)
}

func (c *Log) setDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Format == "" {
		c.Format = "pretty"
	}
}

func (c *Log) validate() error {
	if !slices.Contains([]string{"debug", "info", "warn", "error", "fatal", "panic"}, c.Level) {
		return fmt.Errorf(
			"level must be one of: debug, info, warn, error, fatal, panic, got: %s",
			c.Level,
		)
	}

	if !slices.Contains([]string{"json", "pretty"}, c.Format) {
		return fmt.Errorf("format must be 'json' or 'pretty', got: %s", c.Format)
	}

	return nil
}

type Downloader struct {
	Dir          string   `yaml:"dir"`
	Concurrency  int      `yaml:"concurrency"`
	Format       string   `yaml:"format"`
	Executable   string   `yaml:"executable"`
	ExtractAudio string   `yaml:"extract_audio"`
	ListTimeout  Duration `yaml:"list_timeout"`
}

func (c *Downloader) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("dir", c.Dir).
		Int("concurrency", c.Concurrency).
		Str("format", c.Format).
		Str("executable", c.Executable).
		Str("extract_audio", c.ExtractAudio).
		Str("list_timeout", c.ListTimeout.String())
}

func (c *Downloader) setDefaults() {
	if c.Dir == "" {
		c.Dir = "downloads"
	}

	if c.Concurrency == 0 {
		c.Concurrency = 4
	}

	if c.Format == "" {
		c.Format = "bestaudio[ext=m4a]/bestaudio/best"
	}

	if c.ListTimeout.Duration == 0 {
		c.ListTimeout.Duration = 60 * time.Second
	}
}

func (c *Downloader) validate() error {
	if c.Concurrency < 1 {
		return errors.New("concurrency must be greater than 0")
	}

	if !slices.Contains([]string{"", "m4a", "mp3"}, c.ExtractAudio) {
		return fmt.Errorf("extract_audio must be empty, 'm4a' or 'mp3', got: %s", c.ExtractAudio)
	}

	if i, err := os.Stat(c.Dir); nil != err {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat dir: %v", err)
		}
	} else if !i.IsDir() {
		return errors.New("dir must be a directory")
	}

	if c.ListTimeout.Duration < 0 {
		return errors.New("list_timeout must be greater than 0")
	}

	return nil
}

type Metadata struct {
	Timeout          Duration `yaml:"timeout"`
	CompletionFields []string `yaml:"completion_fields"`
	CacheTTL         Duration `yaml:"cache_ttl"`
}

func (c *Metadata) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("timeout", c.Timeout.String()).
		Strs("completion_fields", c.CompletionFields).
		Str("cache_ttl", c.CacheTTL.String())
}

func (c *Metadata) setDefaults() {
	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 20 * time.Second
	}

	if len(c.CompletionFields) == 0 {
		c.CompletionFields = []string{"title", "artist", "album", "year"}
	}

	if c.CacheTTL.Duration == 0 {
		c.CacheTTL.Duration = time.Hour
	}
}

// KnownFields mirrors the field names of metadata.Record. It is duplicated here to keep
// config free of domain imports.
var KnownFields = []string{
	"title",
	"artist",
	"album",
	"album_artist",
	"genre",
	"year",
	"track_number",
	"disk_number",
	"composer",
	"cover_image_url",
	"duration",
	"popularity",
}

func (c *Metadata) validate() error {
	if c.Timeout.Duration < 0 {
		return errors.New("timeout must be greater than 0")
	}

	for _, f := range c.CompletionFields {
		if !slices.Contains(KnownFields, f) {
			return fmt.Errorf("unknown completion field %q, expected one of: %s", f, strings.Join(KnownFields, ", "))
		}
	}

	if c.CacheTTL.Duration < 0 {
		return errors.New("cache_ttl must be greater than 0")
	}

	return nil
}

type YouTube struct {
	Enabled *bool    `yaml:"enabled"`
	Timeout Duration `yaml:"timeout"`
}

func (c *YouTube) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Bool("enabled", *c.Enabled).
		Str("timeout", c.Timeout.String())
}

func (c *YouTube) setDefaults() {
	if c.Enabled == nil {
		c.Enabled = lo.ToPtr(true)
	}

	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 10 * time.Second
	}
}

func (c *YouTube) validate() error {
	if c.Timeout.Duration < 0 {
		return errors.New("timeout must be greater than 0")
	}

	return nil
}

type ITunes struct {
	Enabled *bool    `yaml:"enabled"`
	BaseURL string   `yaml:"base_url"`
	Country string   `yaml:"country"`
	Timeout Duration `yaml:"timeout"`
	RPS     float64  `yaml:"rps"`
}

func (c *ITunes) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Bool("enabled", *c.Enabled).
		Str("base_url", c.BaseURL).
		Str("country", c.Country).
		Str("timeout", c.Timeout.String()).
		Float64("rps", c.RPS)
}

func (c *ITunes) setDefaults() {
	if c.Enabled == nil {
		c.Enabled = lo.ToPtr(true)
	}

	if c.BaseURL == "" {
		c.BaseURL = "https://itunes.apple.com"
	}

	if c.Country == "" {
		c.Country = "US"
	}

	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 5 * time.Second
	}

	if c.RPS == 0 {
		c.RPS = 5
	}
}

func (c *ITunes) validate() error {
	if c.Timeout.Duration < 0 {
		return errors.New("timeout must be greater than 0")
	}

	if c.RPS < 0 {
		return errors.New("rps must be greater than 0")
	}

	return nil
}

type Spotify struct {
	Enabled      *bool    `yaml:"enabled"`
	ClientID     string   `yaml:"-"`
	ClientSecret string   `yaml:"-"`
	TokenFile    string   `yaml:"token_file"`
	AccountsURL  string   `yaml:"accounts_url"`
	APIURL       string   `yaml:"api_url"`
	Market       string   `yaml:"market"`
	Timeout      Duration `yaml:"timeout"`
	RPS          float64  `yaml:"rps"`
}

func (c *Spotify) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Bool("enabled", *c.Enabled).
		Str("client_id", redact.String(c.ClientID)).
		Str("client_secret", redact.String(c.ClientSecret)).
		Str("token_file", c.TokenFile).
		Str("accounts_url", c.AccountsURL).
		Str("api_url", c.APIURL).
		Str("market", c.Market).
		Str("timeout", c.Timeout.String()).
		Float64("rps", c.RPS)
}

func (c *Spotify) setDefaults() {
	if c.Enabled == nil {
		c.Enabled = lo.ToPtr(c.ClientID != "" && c.ClientSecret != "")
	}

	if c.TokenFile == "" {
		c.TokenFile = "spotify_token.json"
	}

	if c.AccountsURL == "" {
		c.AccountsURL = "https://accounts.spotify.com"
	}

	if c.APIURL == "" {
		c.APIURL = "https://api.spotify.com/v1"
	}

	if c.Market == "" {
		c.Market = "US"
	}

	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 5 * time.Second
	}

	if c.RPS == 0 {
		c.RPS = 5
	}
}

func (c *Spotify) validate() error {
	if *c.Enabled && (c.ClientID == "" || c.ClientSecret == "") {
		return errors.New("make sure the SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET environment variables are set")
	}

	if c.Timeout.Duration < 0 {
		return errors.New("timeout must be greater than 0")
	}

	if c.RPS < 0 {
		return errors.New("rps must be greater than 0")
	}

	return nil
}

type OpenAI struct {
	Enabled *bool    `yaml:"enabled"`
	APIKey  string   `yaml:"-"`
	Model   string   `yaml:"model"`
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
}

func (c *OpenAI) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Bool("enabled", *c.Enabled).
		Str("api_key", redact.String(c.APIKey)).
		Str("model", c.Model).
		Str("base_url", c.BaseURL).
		Str("timeout", c.Timeout.String())
}

func (c *OpenAI) setDefaults() {
	if c.Enabled == nil {
		c.Enabled = lo.ToPtr(c.APIKey != "")
	}

	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}

	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 20 * time.Second
	}
}

func (c *OpenAI) validate() error {
	if *c.Enabled && c.APIKey == "" {
		return errors.New("make sure the OPEN_AI_KEY environment variable is set")
	}

	if c.Timeout.Duration < 0 {
		return errors.New("timeout must be greater than 0")
	}

	return nil
}

type Lyrics struct {
	Enabled   *bool    `yaml:"enabled"`
	LRCLibURL string   `yaml:"lrclib_url"`
	Sources   []string `yaml:"sources"`
	Timeout   Duration `yaml:"timeout"`
}

func (c *Lyrics) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Bool("enabled", *c.Enabled).
		Str("lrclib_url", c.LRCLibURL).
		Strs("sources", c.Sources).
		Str("timeout", c.Timeout.String())
}

func (c *Lyrics) setDefaults() {
	if c.Enabled == nil {
		c.Enabled = lo.ToPtr(true)
	}

	if c.LRCLibURL == "" {
		c.LRCLibURL = "https://lrclib.net"
	}

	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 10 * time.Second
	}
}

func (c *Lyrics) validate() error {
	if c.Timeout.Duration < 0 {
		return errors.New("timeout must be greater than 0")
	}

	if dups := lo.FindDuplicates(c.Sources); len(dups) > 0 {
		return fmt.Errorf("duplicate lyrics sources: %s", strings.Join(dups, ", "))
	}

	return nil
}

type Cover struct {
	Timeout Duration `yaml:"timeout"`
	MaxSize int64    `yaml:"max_size"`
	Retries uint64   `yaml:"retries"`
}

func (c *Cover) ToDict() *zerolog.Event {
	return zerolog.Dict().
		Str("timeout", c.Timeout.String()).
		Int64("max_size", c.MaxSize).
		Uint64("retries", c.Retries)
}

func (c *Cover) setDefaults() {
	if c.Timeout.Duration == 0 {
		c.Timeout.Duration = 10 * time.Second
	}

	if c.MaxSize == 0 {
		c.MaxSize = 10 * unit.Mebibyte
	}

	if c.Retries == 0 {
		c.Retries = 3
	}
}

func (c *Cover) validate() error {
	if c.Timeout.Duration < 0 {
		return errors.New("timeout must be greater than 0")
	}

	if c.MaxSize < 0 {
		return errors.New("max_size must be greater than 0")
	}

	return nil
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("failed to parse duration: %v", err)
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("failed to parse duration: %v", err)
	}

	d.Duration = parsed

	return nil
}

// Load reads filename, or DefaultFilename when filename is empty. A missing default file is not
// an error: the defaults are used instead.
func Load(filename string) (*Config, error) {
	var conf Config

	path := lo.Ternary(len(filename) > 0, filename, DefaultFilename)
	data, err := os.ReadFile(path)
	switch {
	case nil == err:
		if err := yaml.Unmarshal(data, &conf); nil != err {
			return nil, fmt.Errorf("failed to parse config file %s: %v", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && filename == "":
	default:
		return nil, fmt.Errorf("failed to read config file %s: %v", path, err)
	}

	conf.Spotify.ClientID = os.Getenv("SPOTIFY_CLIENT_ID")
	conf.Spotify.ClientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")
	conf.OpenAI.APIKey = os.Getenv("OPEN_AI_KEY")
	conf.setDefaults()

	if err := conf.validate(); nil != err {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return &conf, nil
}
