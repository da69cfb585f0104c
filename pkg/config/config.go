// Package config loads the service configuration: built-in defaults, then
// an optional YAML file, then environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"branddna/pkg/language"
	"branddna/pkg/models"
)

const EnvPrefix = "BRANDDNA"

type Server struct {
	Port            string   `yaml:"port"`
	BodyLimit       string   `yaml:"body_limit"`
	CORSOrigins     []string `yaml:"cors_origins"`
	LogLevel        string   `yaml:"log_level"`
	DefaultLanguage string   `yaml:"default_language"`
}

type Backend struct {
	// Provider is "gemini" or "openai".
	Provider      string        `yaml:"provider"`
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	Project       string        `yaml:"project"`
	Location      string        `yaml:"location"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	OpenAIModel   string        `yaml:"openai_model"`
	Timeout       time.Duration `yaml:"timeout"`
	Attempts      int           `yaml:"attempts"`
	Backoff       time.Duration `yaml:"backoff"`
}

type Models struct {
	LLM    string `yaml:"llm"`
	Vision string `yaml:"vision"`
}

type Store struct {
	// Driver is one of file, gcs, firestore, redis, sqlite or memory.
	Driver        string `yaml:"driver"`
	Dir           string `yaml:"dir"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Namespace     string `yaml:"namespace"`
	SQLitePath    string `yaml:"sqlite_path"`

	// Project is the Firestore project. It defaults to backend.project.
	Project  string `yaml:"project"`
	Database string `yaml:"database"`
}

type Queue struct {
	Workers  int           `yaml:"workers"`
	Capacity int           `yaml:"capacity"`
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
	Timeout  time.Duration `yaml:"timeout"`
}

type Translation struct {
	// RPS limits translation calls per second; zero disables the limit.
	RPS float64 `yaml:"rps"`
}

type Images struct {
	WebP        bool   `yaml:"webp"`
	Quality     int    `yaml:"quality"`
	Concurrency int    `yaml:"concurrency"`
	EditModel   string `yaml:"edit_model"`
}

type YouTube struct {
	APIKey   string        `yaml:"api_key"`
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

type Transcripts struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`

	// Interval is the minimum gap between transcript requests.
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Server      Server      `yaml:"server"`
	Backend     Backend     `yaml:"backend"`
	Models      Models      `yaml:"models"`
	Store       Store       `yaml:"store"`
	Queue       Queue       `yaml:"queue"`
	Translation Translation `yaml:"translation"`
	Images      Images      `yaml:"images"`
	YouTube     YouTube     `yaml:"youtube"`
	Transcripts Transcripts `yaml:"transcripts"`
}

func Default() *Config {
	return &Config{
		Server: Server{
			Port:            "8080",
			BodyLimit:       "100M",
			LogLevel:        "info",
			DefaultLanguage: string(language.English),
		},
		Backend: Backend{
			Provider: "gemini",
			Location: "us-central1",
			Timeout:  2 * time.Minute,
			Attempts: 3,
			Backoff:  time.Second,
		},
		Models: Models{
			LLM:    models.DefaultSelection.LLM,
			Vision: models.DefaultSelection.Vision,
		},
		Store: Store{
			Driver:     "file",
			Dir:        "data",
			Namespace:  "branddna",
			SQLitePath: "data/branddna.db",
		},
		Queue: Queue{
			Workers:  2,
			Capacity: 100,
			Attempts: 3,
			Backoff:  2 * time.Second,
			Timeout:  5 * time.Minute,
		},
		Translation: Translation{RPS: 2},
		Images:      Images{Quality: 90, Concurrency: 4},
		YouTube:     YouTube{StatsTTL: time.Hour},
		Transcripts: Transcripts{Interval: time.Second},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.merge(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) merge(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// legacyEnv lists the unprefixed variable names still honoured for a key.
var legacyEnv = map[string][]string{
	"server.port":             {"PORT"},
	"backend.gemini_api_key":  {"GEMINI_API_KEY"},
	"backend.project":         {"GOOGLE_CLOUD_PROJECT", "PROJECT_ID"},
	"backend.location":        {"LOCATION_ID"},
	"backend.openai_api_key":  {"OPENAI_API_KEY"},
	"backend.openai_base_url": {"OPENAI_BASE_URL"},
	"backend.openai_model":    {"OPENAI_MODEL"},
	"store.bucket":            {"GCS_BUCKET"},
	"store.redis_addr":        {"REDIS_ADDR"},
	"store.redis_password":    {"REDIS_PASSWORD"},
	"youtube.api_key":         {"YOUTUBE_API_KEY", "BRANDCONNECT_API_KEY"},
	"transcripts.api_key":     {"SUPADATA_API_KEY"},
}

// envName is the prefixed variable for a key: server.port becomes
// BRANDDNA_SERVER_PORT.
func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (c *Config) applyEnv() error {
	v := viper.New()
	str := map[string]*string{
		"server.port":             &c.Server.Port,
		"server.body_limit":       &c.Server.BodyLimit,
		"server.log_level":        &c.Server.LogLevel,
		"server.default_language": &c.Server.DefaultLanguage,
		"backend.provider":        &c.Backend.Provider,
		"backend.gemini_api_key":  &c.Backend.GeminiAPIKey,
		"backend.project":         &c.Backend.Project,
		"backend.location":        &c.Backend.Location,
		"backend.openai_api_key":  &c.Backend.OpenAIAPIKey,
		"backend.openai_base_url": &c.Backend.OpenAIBaseURL,
		"backend.openai_model":    &c.Backend.OpenAIModel,
		"models.llm":              &c.Models.LLM,
		"models.vision":           &c.Models.Vision,
		"store.driver":            &c.Store.Driver,
		"store.dir":               &c.Store.Dir,
		"store.bucket":            &c.Store.Bucket,
		"store.prefix":            &c.Store.Prefix,
		"store.redis_addr":        &c.Store.RedisAddr,
		"store.redis_password":    &c.Store.RedisPassword,
		"store.namespace":         &c.Store.Namespace,
		"store.sqlite_path":       &c.Store.SQLitePath,
		"store.project":           &c.Store.Project,
		"store.database":          &c.Store.Database,
		"youtube.api_key":         &c.YouTube.APIKey,
		"images.edit_model":       &c.Images.EditModel,
		"transcripts.api_key":     &c.Transcripts.APIKey,
		"transcripts.base_url":    &c.Transcripts.BaseURL,
	}
	ints := map[string]*int{
		"backend.attempts":   &c.Backend.Attempts,
		"store.redis_db":     &c.Store.RedisDB,
		"queue.workers":      &c.Queue.Workers,
		"queue.capacity":     &c.Queue.Capacity,
		"queue.attempts":     &c.Queue.Attempts,
		"images.quality":     &c.Images.Quality,
		"images.concurrency": &c.Images.Concurrency,
	}
	durations := map[string]*time.Duration{
		"backend.timeout":      &c.Backend.Timeout,
		"backend.backoff":      &c.Backend.Backoff,
		"queue.backoff":        &c.Queue.Backoff,
		"queue.timeout":        &c.Queue.Timeout,
		"youtube.stats_ttl":    &c.YouTube.StatsTTL,
		"transcripts.interval": &c.Transcripts.Interval,
	}

	bind := func(key string) error {
		names := append([]string{key, envName(key)}, legacyEnv[key]...)
		return v.BindEnv(names...)
	}
	for key := range str {
		if err := bind(key); err != nil {
			return err
		}
	}
	for key := range ints {
		if err := bind(key); err != nil {
			return err
		}
	}
	for key := range durations {
		if err := bind(key); err != nil {
			return err
		}
	}
	for _, key := range []string{"server.cors_origins", "translation.rps", "images.webp"} {
		if err := bind(key); err != nil {
			return err
		}
	}

	for key, dst := range str {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	for key, dst := range ints {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	for key, dst := range durations {
		if v.IsSet(key) {
			d, err := time.ParseDuration(v.GetString(key))
			if err != nil {
				return fmt.Errorf("%s: %w", envName(key), err)
			}
			*dst = d
		}
	}
	if v.IsSet("server.cors_origins") {
		c.Server.CORSOrigins = splitList(v.GetString("server.cors_origins"))
	}
	if v.IsSet("translation.rps") {
		c.Translation.RPS = v.GetFloat64("translation.rps")
	}
	if v.IsSet("images.webp") {
		c.Images.WebP = v.GetBool("images.webp")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	providers = []string{"gemini", "openai"}
	drivers   = []string{"file", "gcs", "firestore", "redis", "sqlite", "memory"}
	levels    = []string{"debug", "info", "warn", "error"}
)

// Validate checks that the configuration is complete for the selected
// backends.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if !slices.Contains(levels, strings.ToLower(c.Server.LogLevel)) {
		return fmt.Errorf("server.log_level must be one of %s", strings.Join(levels, ", "))
	}
	if _, err := language.Parse(c.Server.DefaultLanguage); err != nil {
		return fmt.Errorf("server.default_language: %q is not english or spanish", c.Server.DefaultLanguage)
	}

	switch c.Backend.Provider {
	case "gemini":
		if c.Backend.GeminiAPIKey == "" && c.Backend.Project == "" {
			return fmt.Errorf("backend.gemini_api_key or backend.project is required for the gemini provider")
		}
	case "openai":
		if c.Backend.OpenAIAPIKey == "" && c.Backend.OpenAIBaseURL == "" {
			return fmt.Errorf("backend.openai_api_key or backend.openai_base_url is required for the openai provider")
		}
	default:
		return fmt.Errorf("backend.provider must be one of %s", strings.Join(providers, ", "))
	}
	if c.Backend.Attempts < 1 {
		return fmt.Errorf("backend.attempts must be at least 1")
	}

	switch c.Store.Driver {
	case "file":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file driver")
		}
	case "gcs":
		if c.Store.Bucket == "" {
			return fmt.Errorf("store.bucket is required for the gcs driver")
		}
	case "firestore":
		if c.Store.Project == "" && c.Backend.Project == "" {
			return fmt.Errorf("store.project or backend.project is required for the firestore driver")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("store.driver must be one of %s", strings.Join(drivers, ", "))
	}

	if c.Queue.Workers < 1 || c.Queue.Capacity < 1 {
		return fmt.Errorf("queue.workers and queue.capacity must be positive")
	}
	if c.Images.Quality < 1 || c.Images.Quality > 100 {
		return fmt.Errorf("images.quality must be between 1 and 100")
	}
	if c.Translation.RPS < 0 {
		return fmt.Errorf("translation.rps must not be negative")
	}
	return nil
}

// Redacted returns a copy safe to print, with credentials masked.
func (c *Config) Redacted() *Config {
	cp := *c
	mask := func(s *string) {
		if *s != "" {
			*s = "****"
		}
	}
	mask(&cp.Backend.GeminiAPIKey)
	mask(&cp.Backend.OpenAIAPIKey)
	mask(&cp.Store.RedisPassword)
	mask(&cp.YouTube.APIKey)
	return &cp
}

// YAML renders the configuration in the file format Load reads.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
