// Command fake-upstream serves a generated organization with the ranking
// service's API and website shapes, so the crawler can be run end to end
// without the network. With -verify it also checks what a running
// solvedboard instance publishes for the fixture.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/solvedboard/internal/fakeupstream"
	"github.com/okian/solvedboard/pkg/logger"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

func main() {
	var (
		addr      = flag.String("addr", ":9090", "Listen address")
		seed      = flag.Uint64("seed", 1, "Fixture seed")
		members   = flag.Int("members", 12, "Number of organization members")
		problems  = flag.Int("problems", 80, "Size of the problem pool")
		pageSize  = flag.Int("page-size", 5, "Page size of paginated endpoints")
		failEvery = flag.Int("fail-every", 0, "Answer 503 to every nth API request (0 disables)")
		missing   = flag.Int("missing-every", 0, "Make every nth member's profile answer 404 (0 disables)")
		unrated   = flag.Int("unrated-every", 0, "Make every nth member's profile omit its rating (0 disables)")
		verify    = flag.String("verify", "", "Base URL of a solvedboard instance to verify against the fixture")
		logFormat = flag.String("log-format", logger.FormatConsole, "Log format: text, json or console")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("fake-upstream")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fixture := fakeupstream.Generate(
		fakeupstream.WithSeed(*seed),
		fakeupstream.WithMembers(*members),
		fakeupstream.WithProblems(*problems),
		fakeupstream.WithMissingProfiles(*missing),
		fakeupstream.WithUnratedProfiles(*unrated),
	)
	srv := &http.Server{
		Addr: *addr,
		Handler: fakeupstream.NewServer(fixture,
			fakeupstream.WithPageSize(*pageSize),
			fakeupstream.WithFailEvery(*failEvery)),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "serving fixture",
			logger.String("addr", *addr),
			logger.String("organization", fixture.Organization.Name),
			logger.Int("organization_id", fixture.Organization.ID),
			logger.Int("members", len(fixture.Members)),
			logger.String("api_base_url", "http://localhost"+*addr+fakeupstream.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "server failed", logger.Error(err))
			stop()
		}
	}()

	code := 0
	if *verify != "" {
		if err := fakeupstream.Verify(ctx, *verify, fixture, log); err != nil {
			log.Error(ctx, "verification failed", logger.Error(err))
			code = 1
		} else {
			log.Info(ctx, "verification passed")
		}
		stop()
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "shutdown failed", logger.Error(err))
	}
	if code != 0 {
		os.Exit(code)
	}
}
