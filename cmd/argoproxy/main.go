// Command argoproxy runs the translating reverse proxy of spec.md: a
// single HTTP server fronting Argo with OpenAI/Anthropic-compatible
// endpoints (spec.md §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taipm/argoproxy/appctx"
	"github.com/taipm/argoproxy/config"
	"github.com/taipm/argoproxy/endpoints"
	"github.com/taipm/argoproxy/ir"
	"github.com/taipm/argoproxy/logging"
)

func main() {
	nativeOpenAI := flag.Bool("native-openai", false, "send OpenAI-dialect requests to the OpenAI base URL without model resolution (body is still an Argo envelope)")
	nativeAnthropic := flag.Bool("native-anthropic", false, "send Anthropic-dialect requests to the Anthropic base URL without model resolution (body is still an Argo envelope)")
	dev := flag.Bool("dev", false, "skip model resolution for every dialect; requests still go to Argo")
	verbose := flag.Bool("verbose", false, "debug-level logging")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Printf("config: %v", err)
		os.Exit(1)
	}
	cfg.NativeOpenAI = *nativeOpenAI
	cfg.NativeAnthropic = *nativeAnthropic
	cfg.Dev = *dev
	cfg.Verbose = *verbose

	level := logging.LevelInfo
	if cfg.Verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewStdLogger(level)

	app := appctx.New(&cfg, nil, nil, seedCatalogue(), logger)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      endpoints.NewMux(app),
		ReadTimeout:  cfg.Session.ReadTimeout,
		WriteTimeout: cfg.Session.TotalTimeout,
	}

	go func() {
		logger.Info(context.Background(), "argoproxy listening", logging.F("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		os.Exit(2)
	}
}

// seedCatalogue is the bundled fallback model list used until the first
// successful registry.Refresh; kept deliberately small, matching common
// Argo-fronted model names.
func seedCatalogue() []ir.ModelEntry {
	return []ir.ModelEntry{
		{AliasKey: "argo:gpt-4o", InternalID: "gpt4o", Type: ir.ModelChat, Family: ir.FamilyOpenAI, Available: true},
		{AliasKey: "argo:gpt-4o-mini", InternalID: "gpt4o-mini", Type: ir.ModelChat, Family: ir.FamilyOpenAI, Available: true},
		{AliasKey: "argo:claude-3-5-sonnet", InternalID: "claude35sonnet", Type: ir.ModelChat, Family: ir.FamilyAnthropic, Available: true},
		{AliasKey: "argo:gemini-1.5-pro", InternalID: "gemini15pro", Type: ir.ModelChat, Family: ir.FamilyGoogle, Available: true},
		{AliasKey: "argo:text-embedding-3-large", InternalID: "embedding3large", Type: ir.ModelEmbed, Family: ir.FamilyOpenAI, Available: true},
	}
}
