package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jedib0t/go-pretty/v6/table"
	_ "github.com/joho/godotenv/autoload"
	glog "github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"branddna/pkg/config"
	"branddna/pkg/dna"
	"branddna/pkg/inference"
	"branddna/pkg/kv"
	"branddna/pkg/language"
	"branddna/pkg/models"
	"branddna/pkg/orchestrate"
	"branddna/pkg/queue"
	"branddna/pkg/schema"
	"branddna/pkg/server"
	"branddna/pkg/translate"
	"branddna/pkg/youtube"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "branddna",
	Short: "Brand DNA and Creator DNA service",
	Long: `branddna extracts brand and creator identities with a generative model,
stores them in English and Spanish, and matches brands with creators.
Running without a subcommand starts the HTTP server.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv(config.EnvPrefix+"_CONFIG"), "YAML config file")
	rootCmd.AddCommand(serveCmd(), modelsCmd(), configCmd())

	ctx, done := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer done()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the model catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"ID", "Name", "Type", "Grounding", "Default"})
			for _, m := range models.Catalog {
				def := ""
				if m.ID == models.DefaultSelection.LLM || m.ID == models.DefaultSelection.Vision {
					def = "*"
				}
				tw.AppendRow(table.Row{m.ID, m.DisplayName, m.Kind, m.Grounding, def})
			}
			tw.Render()
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			out, err := cfg.Redacted().YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setLogLevel(cfg.Server.LogLevel)

	reg, err := models.NewRegistry(models.Catalog, models.Selection{LLM: cfg.Models.LLM, Vision: cfg.Models.Vision})
	if err != nil {
		return fmt.Errorf("default models: %w", err)
	}

	gen, imager, err := newBackend(ctx, cfg.Backend)
	if err != nil {
		return err
	}
	guardCfg := inference.GuardConfig{
		Timeout:  cfg.Backend.Timeout,
		Attempts: cfg.Backend.Attempts,
		Backoff:  cfg.Backend.Backoff,
	}
	guarded := inference.NewGuard(gen, guardCfg)
	var (
		images inference.Imager
		editor inference.Editor
	)
	if imager != nil {
		g := inference.NewImageGuard(imager, guardCfg)
		images, editor = g, g
	}

	backend, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	q := queue.New(queue.Config{
		Workers:  cfg.Queue.Workers,
		Capacity: cfg.Queue.Capacity,
		Attempts: cfg.Queue.Attempts,
		Backoff:  cfg.Queue.Backoff,
		Timeout:  cfg.Queue.Timeout,
	})
	q.Start()

	tr := translate.New(guarded, cfg.Translation.RPS)
	brands := dna.NewStore(backend, schema.Brand, tr, q)
	creators := dna.NewStore(backend, schema.Creator, tr, q)

	var stats orchestrate.StatsSource
	if cfg.YouTube.APIKey != "" {
		client, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
		if err != nil {
			return fmt.Errorf("youtube client: %w", err)
		}
		stats = youtube.NewService(client, cfg.YouTube.StatsTTL)
	} else {
		log.Warn("YouTube API key not set, channel stats are disabled")
	}

	var videos orchestrate.TranscriptFetcher
	if cfg.Transcripts.APIKey != "" {
		videos = youtube.NewTranscriber(
			youtube.NewSupadata(cfg.Transcripts.APIKey, cfg.Transcripts.BaseURL, nil),
			cfg.Transcripts.Interval,
		)
	} else {
		log.Warn("Supadata API key not set, video transcripts are disabled")
	}

	svc := orchestrate.New(orchestrate.Deps{
		Generator:  guarded,
		Imager:     images,
		Editor:     editor,
		Models:     reg,
		Brands:     brands,
		Creators:   creators,
		Translator: tr,
		Stats:      stats,
		Videos:     videos,
		Images: orchestrate.ImageConfig{
			WebP:        cfg.Images.WebP,
			Quality:     cfg.Images.Quality,
			Concurrency: cfg.Images.Concurrency,
			EditModel:   cfg.Images.EditModel,
		},
	})

	defLang, err := language.Parse(cfg.Server.DefaultLanguage)
	if err != nil {
		return err
	}
	srv := server.NewServer(ctx, server.Deps{
		Service:  svc,
		Models:   reg,
		Brands:   brands,
		Creators: creators,
		Session:  language.NewSession(defLang),
	}, server.Options{
		BodyLimit:   cfg.Server.BodyLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	srv.Echo.Logger.SetLevel(echoLevel(cfg.Server.LogLevel))

	finishedShutDown := make(chan struct{})
	go func() {
		defer close(finishedShutDown)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown", "error", err)
		}
		if err := q.Stop(shutdownCtx); err != nil {
			log.Error("background tasks did not finish", "error", err)
		}
	}()

	if err := srv.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-finishedShutDown
	return nil
}

// newBackend builds the text generator for the configured provider. Images
// always go through Gemini, so an imager exists whenever Gemini credentials
// are present.
func newBackend(ctx context.Context, cfg config.Backend) (inference.Generator, inference.Imager, error) {
	var gemini *inference.GeminiInferencer
	if cfg.GeminiAPIKey != "" || cfg.Project != "" {
		g, err := inference.NewGeminiInferencer(ctx, inference.GeminiConfig{
			APIKey:   cfg.GeminiAPIKey,
			Project:  cfg.Project,
			Location: cfg.Location,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("gemini client: %w", err)
		}
		gemini = g
	}

	var imager inference.Imager
	if gemini != nil {
		imager = gemini
	}

	switch cfg.Provider {
	case "openai":
		openAI := inference.NewOpenAIInferencer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if cfg.OpenAIBaseURL != "" {
			openAI.ChangeBaseURL(cfg.OpenAIBaseURL)
		}
		log.Info("using OpenAI-compatible backend", "model", cfg.OpenAIModel, "baseURL", cfg.OpenAIBaseURL)
		return openAI, imager, nil
	default:
		if gemini == nil {
			return nil, nil, errors.New("gemini provider selected without credentials")
		}
		log.Info("using Gemini backend", "vertex", cfg.Project != "")
		return gemini, imager, nil
	}
}

func openStore(ctx context.Context, c *config.Config) (kv.Store, error) {
	cfg := c.Store
	log.Info("opening DNA store", "driver", cfg.Driver)
	switch cfg.Driver {
	case "firestore":
		return kv.NewFirestore(ctx, cmp.Or(cfg.Project, c.Backend.Project), cfg.Database)
	case "gcs":
		return kv.NewBucket(ctx, cfg.Bucket, cfg.Prefix)
	case "redis":
		return kv.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.Namespace)
	case "sqlite":
		return kv.OpenSQLite(ctx, cfg.SQLitePath)
	case "memory":
		return kv.NewMemory(), nil
	default:
		return kv.NewFile(cfg.Dir)
	}
}

func setLogLevel(level string) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

func echoLevel(level string) glog.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return glog.DEBUG
	case "warn":
		return glog.WARN
	case "error":
		return glog.ERROR
	default:
		return glog.INFO
	}
}
