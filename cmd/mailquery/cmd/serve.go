package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/mailquery/internal/api"
	"github.com/wesm/mailquery/internal/scheduler"
	"github.com/wesm/mailquery/internal/searchstate"
)

var servePort int

// llmCheck names the scheduled ping of the AI search backend.
const llmCheck = "llm"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the query composition HTTP API",
	Long: `Run the HTTP API in the foreground.

Endpoints (under /api/v1):
  POST   /compose      compose a query from form values
  POST   /translate    AI search path (requires [llm] enabled)
  POST   /extract      extract a query from conversational text
  GET    /parse?q=     validate a query and show its structure
  GET    /suggestions  example natural-language searches
  GET    /state        current search record
  DELETE /state        clear the search record

Configure in config.toml:
  [server]
  api_port = 8080
  api_key = "..."   # required when bind_addr is not loopback

  [llm]
  health_check = "*/5 * * * *"   # ping schedule; while the ping fails,
                                 # /translate answers rule-based

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides [server] api_port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Server.APIPort = servePort
	}
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	state := searchstate.New()
	assembler := newAssembler(state)
	deps := api.Deps{Assembler: assembler, State: state}
	tr, err := newTranslator(assembler, "", "")
	if err != nil {
		return err
	}
	var checks *scheduler.Scheduler
	if tr != nil {
		deps.Translator = tr
		if cfg.LLM.HealthCheck != "" {
			checks = scheduler.New().WithLogger(logger)
			if err := checks.Add(llmCheck, cfg.LLM.HealthCheck, pingTimeout, tr.LLM.Ping); err != nil {
				return err
			}
			tr.Available = func() bool { return checks.Healthy(llmCheck) }
			deps.Checks = checks
			checks.Start()
			if err := checks.Trigger(llmCheck); err != nil {
				logger.Warn("initial LLM check", "error", err)
			}
		}
	}

	srv := api.NewServer(cfg, deps, logger)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		watchState(ctx, state)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if checks != nil {
			select {
			case <-checks.Stop().Done():
			case <-shutdownCtx.Done():
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Fprintf(cmd.OutOrStdout(), "mailquery API listening on http://%s (AI search: %s)\n",
		cfg.Addr(), onOff(deps.Translator != nil))
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop.")

	return g.Wait()
}

// watchState logs search state changes until ctx is done.
func watchState(ctx context.Context, state *searchstate.Store) {
	updates, cancel := state.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-updates:
			if !ok {
				return
			}
			logger.Debug("search state changed", "query", q.Value, "folder", q.Folder, "ai", q.IsAISearching)
		}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
