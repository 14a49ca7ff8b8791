package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"linguanest/internal/cli/scheme/colours"
	"linguanest/internal/config"
	"linguanest/internal/story/nest"
)

func main() {
	config.SetDefaults()
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := nest.NewLinguaNest()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		app.Shutdown()
		fmt.Println("\n" + colours.Warning.Sprint("👋 À bientôt! ¡Hasta pronto!"))
		os.Exit(0)
	}()

	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "linguanest",
		Short: "🌍 Learn a language one story at a time",
		Long: `
┌─────────────────────────────────────┐
│  🌍 Welcome to LinguaNest! 📚       │
│  Bilingual stories read aloud       │
│  French 🇫🇷  and Spanish 🇪🇸          │
└─────────────────────────────────────┘

LinguaNest writes short stories in the language you are learning, shows the
English translation alongside and reads them aloud sentence by sentence.
		`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return err
			}
			applyLogLevel(verbose)
			config.Watch(func(fsnotify.Event) { applyLogLevel(verbose) })

			startMetrics(cmd.Context(), viper.GetString("metrics.addr"))
			return app.Setup()
		},
		Run: app.ShowWelcome,
	}

	generateCmd := &cobra.Command{
		Use:   "generate [topic]",
		Short: "✍️ Write a new story",
		Long:  "Generate a bilingual story about a topic and print it",
		Run:   app.GenerateStory,
	}

	playCmd := &cobra.Command{
		Use:   "play [topic]",
		Short: "🎧 Write a story and listen to it",
		Long:  "Generate a bilingual story and read it aloud with sentence highlighting",
		Run:   app.PlayStory,
	}

	languagesCmd := &cobra.Command{
		Use:   "languages",
		Short: "🗣️ Show languages and levels",
		Run:   app.ListLanguages,
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 Show speech engines and voices",
		Run:   app.ListVoices,
	}

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show the effective configuration",
		Run:   app.ShowSettings,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("lang", "l", "", "Target language (fr, es, french, spanish...)")
	flags.String("level", "", "Language level (beginner, intermediate, expert)")
	flags.String("driver", "", "Speech engine (auto, mock, espeak, say, sapi, googleclassic)")
	flags.String("provider", "", "Story provider (gemini, sample)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	for key, flag := range map[string]string{
		"story.language": "lang",
		"story.level":    "level",
		"tts.type":       "driver",
		"story.provider": "provider",
		"metrics.addr":   "metrics-addr",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			logrus.WithError(err).Fatal("failed to bind flag")
		}
	}

	rootCmd.AddCommand(generateCmd, playCmd, languagesCmd, voicesCmd, settingsCmd)
	app.AddCacheCommands(rootCmd)

	ctx, cancel := context.WithCancel(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	app.Shutdown()
	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func applyLogLevel(verbose bool) {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
		return
	}
	logrus.SetLevel(config.LogLevel())
}

// startMetrics serves /metrics until ctx is done. An empty addr disables it.
func startMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.WithField("addr", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Metrics server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
