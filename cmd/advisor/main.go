package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/campushq/advisor/internal/profile"
	"github.com/campushq/advisor/plugin/chatrelay"
	"github.com/campushq/advisor/plugin/llm"
	"github.com/campushq/advisor/plugin/llmproxy"
	apiv1 "github.com/campushq/advisor/server/router/api/v1"
	"github.com/campushq/advisor/server/runner/advisorpoll"
	"github.com/campushq/advisor/server/service/advisor"
	"github.com/campushq/advisor/store"
	"github.com/campushq/advisor/store/db"
)

const version = "0.1.0"

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:   "advisor",
		Short: "Chatbot backend answering student questions about the CS handbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8231, "port of server")
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("advisor")
	viper.AutomaticEnv()
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	instanceProfile = &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return err
	}

	setupLogger(instanceProfile)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return err
	}
	if err := dbDriver.Migrate(ctx); err != nil {
		return err
	}
	st := store.New(dbDriver, instanceProfile)
	defer st.Close()

	sessions := advisor.NewInMemorySessionStore()
	links := advisor.NewInMemoryThreadLinkTable()

	messenger := chatrelay.NewClient(
		instanceProfile.ChatBaseURL,
		instanceProfile.ChatAuthToken,
		instanceProfile.ChatBotUser,
		instanceProfile.RequestTimeout,
	)
	relay := advisor.NewRelay(links, messenger, instanceProfile.AdvisorUser)

	var semantic advisor.SemanticMatcher
	if instanceProfile.IsLLMEnabled() {
		semantic = advisor.NewOpenAIMatcher(advisor.OpenAIMatcherConfig{
			APIKey:  instanceProfile.LLMAPIKey,
			BaseURL: instanceProfile.LLMBaseURL,
			Model:   instanceProfile.LLMModel,
		})
	}
	matcher := advisor.NewFAQMatcher(
		&advisor.StoreFAQBank{Store: st},
		semantic,
		instanceProfile.FAQCaseSensitive,
	)

	estimator := advisor.NewEstimator(instanceProfile.ConfidenceThreshold).
		WithKnownEntities(instanceProfile.KnownEntities)

	orchestrator := advisor.NewOrchestrator(
		sessions,
		links,
		relay,
		matcher,
		estimator,
		buildGenerator(ctx, instanceProfile),
		advisor.OrchestratorConfig{
			HistoryWindow:  instanceProfile.HistoryWindow,
			RequestTimeout: instanceProfile.RequestTimeout,
			MaxInflightGen: int64(instanceProfile.MaxInflightGen),
			ShowUnverified: instanceProfile.ShowUnverified,
		},
	)

	sweeper := advisor.NewSweeper(sessions, links, advisor.SweeperConfig{
		RetentionTTL:  instanceProfile.RetentionTTL,
		SweepInterval: instanceProfile.SweepInterval,
	})
	if err := sweeper.Start(ctx); err != nil {
		return err
	}
	defer sweeper.Stop()

	if instanceProfile.ChatBaseURL != "" {
		poller := advisorpoll.NewRunner(
			advisorpoll.NewChatFetcher(messenger),
			orchestrator,
			instanceProfile.PollInterval,
		)
		go poller.Run(ctx)
	} else {
		slog.Warn("no chat platform configured; advisor replies will not be polled")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	apiv1.NewAPIV1Service(instanceProfile, orchestrator).Register(e)

	addr := fmt.Sprintf("%s:%d", instanceProfile.Addr, instanceProfile.Port)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	slog.Info("advisor server started",
		"version", version,
		"mode", instanceProfile.Mode,
		"addr", addr,
		"driver", instanceProfile.Driver)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// buildGenerator picks the generation path: the RAG proxy when configured,
// otherwise the direct LLM as a drafting fallback, otherwise none (every
// cache miss escalates).
func buildGenerator(ctx context.Context, p *profile.Profile) advisor.Generator {
	if p.IsProxyEnabled() {
		client := llmproxy.NewClient(p.ProxyEndpoint, p.ProxyAPIKey, p.RequestTimeout)
		if p.HandbookPath != "" {
			uploadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			if err := client.UploadPDF(uploadCtx, p.HandbookPath, "smart", "CS department handbook", p.ProxySessionID); err != nil {
				// The proxy may already hold the handbook from a previous run.
				slog.Warn("handbook upload failed", "path", p.HandbookPath, "error", err)
			} else {
				slog.Info("handbook uploaded", "path", p.HandbookPath, "session_id", p.ProxySessionID)
			}
		}
		return advisor.NewProxyGenerator(client, advisor.ProxyGeneratorConfig{
			SessionID:    p.ProxySessionID,
			LastK:        p.HistoryWindow,
			RAGThreshold: p.RAGThreshold,
			RAGTopK:      p.RAGTopK,
		})
	}

	if p.IsLLMEnabled() {
		svc, err := llm.NewService(&llm.Config{
			Provider: p.LLMProvider,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Model:    p.LLMModel,
		})
		if err != nil {
			slog.Warn("failed to create direct LLM service", "error", err)
			return nil
		}
		return advisor.NewDirectGenerator(svc)
	}

	slog.Warn("no generation backend configured; unmatched questions will escalate")
	return nil
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if p.Mode == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
