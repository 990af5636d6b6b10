package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"charm.land/glamour/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/itihasa/kgq/internal/executor"
	"github.com/itihasa/kgq/internal/graphstore"
	"github.com/itihasa/kgq/internal/observability"
	"github.com/itihasa/kgq/internal/planner"
	"github.com/itihasa/kgq/internal/resolver"
	"github.com/itihasa/kgq/internal/storage/factory"
	"github.com/itihasa/kgq/internal/types"
)

const (
	exitOK        = 0
	exitInternal  = 1
	exitLoadError = 2
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question against the knowledge graph",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

// exitCodeFor maps a pipeline error to the process exit code: 0 success,
// 2 load error, 1 unexpected internal error.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var loadErr *graphstore.LoadError
	if errors.As(err, &loadErr) {
		return exitLoadError
	}
	return exitInternal
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	shutdown, err := observability.Init(ctx, flagOTEL)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(ctx) }()

	ctx, span := observability.Tracer.Start(ctx, "kgq.ask")
	defer span.End()

	src, err := buildSource(ctx)
	if err != nil {
		return err
	}

	loadStart := time.Now()
	store, err := src.Load(ctx)
	if err != nil {
		return err
	}
	logger.Info("graph loaded",
		"source", flagSource,
		"entities", store.EntityCount(),
		"events", store.EventCount(),
		"elapsed", time.Since(loadStart))

	storeRef := &atomic.Pointer[graphstore.Store]{}
	storeRef.Store(store)

	if flagWatch && flagSource == "file" {
		stop, err := watchReload(ctx, flagDataDir, storeRef)
		if err != nil {
			return err
		}
		defer stop()
	}

	question := args[0]
	current := storeRef.Load()
	plan := planner.Plan(question, current.RegistrySnapshot())
	result := executor.Execute(plan, current)
	answer := resolver.Resolve(plan, result)
	logger.Debug("query executed",
		"intent", plan.Intent,
		"seeds", len(plan.SeedEntityIDs),
		"found", result.Found,
		"matched_events", len(result.MatchedEvents),
		"answer_type", answer.Type)

	return render(cmd, question, answer)
}

func buildSource(ctx context.Context) (interface {
	Load(context.Context) (*graphstore.Store, error)
}, error) {
	kind := factory.Kind(flagSource)
	if flagSource == "http" {
		kind = factory.KindRemote
	}
	opts := factory.Options{
		Dir: flagDataDir,
		URL: flagRemote,
		SQL: sqlConfigFromFlags(),
	}
	return factory.New(ctx, kind, opts)
}

func watchReload(ctx context.Context, dir string, storeRef *atomic.Pointer[graphstore.Store]) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting artifact watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				src, err := buildSource(ctx)
				if err != nil {
					logger.Warn("artifact reload skipped", "error", err)
					continue
				}
				store, err := src.Load(ctx)
				if err != nil {
					// keep serving the last good store; never swap mid-load-failure
					logger.Warn("artifact reload failed, keeping previous graph", "error", err)
					continue
				}
				storeRef.Store(store)
				logger.Info("graph reloaded", "entities", store.EntityCount(), "events", store.EventCount())
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return func() { _ = watcher.Close() }, nil
}

func render(cmd *cobra.Command, question string, answer types.Answer) error {
	switch flagOutput {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	case "markdown":
		return renderMarkdown(cmd, question, answer)
	default:
		return renderPretty(cmd, question, answer)
	}
}

// renderMarkdown builds a small markdown document from the Answer and
// renders it through glamour for terminal-friendly markdown (bold,
// bullets, a fenced trace block), matching the registry's own Answer
// shape rather than any NLG of it.
func renderMarkdown(cmd *cobra.Command, question string, answer types.Answer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", question)
	fmt.Fprintf(&b, "**type:** %s · **confidence:** %s\n\n", answer.Type, answer.Confidence)

	switch answer.Type {
	case types.AnswerEntity:
		for _, a := range answer.Payload.Agents {
			fmt.Fprintf(&b, "- %s (x%d)\n", a.Name, a.Frequency)
		}
		for _, ben := range answer.Payload.Beneficiaries {
			fmt.Fprintf(&b, "- %s (x%d)\n", ben.Name, ben.Frequency)
		}
	case types.AnswerChain:
		var parts []string
		for _, node := range answer.Payload.Chain {
			if node.Kind == types.ChainNodeEntity {
				parts = append(parts, node.Name)
			} else {
				parts = append(parts, fmt.Sprintf("`%s %s`", node.Type, node.ID))
			}
		}
		fmt.Fprintf(&b, "%s\n", strings.Join(parts, " → "))
	case types.AnswerEventList:
		for _, ev := range answer.Payload.Events {
			fmt.Fprintf(&b, "- **%s** %s: %s\n", ev.Type, ev.ID, ev.Sentence)
		}
	case types.AnswerNone:
		fmt.Fprintln(&b, "_no answer_")
	}

	if flagTrace && len(answer.Trace) > 0 {
		fmt.Fprintf(&b, "\n```\n%s\n```\n", strings.Join(answer.Trace, "\n"))
	}

	rendered, err := glamour.Render(b.String(), glamourStyle())
	if err != nil {
		return fmt.Errorf("rendering markdown output: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func renderPretty(cmd *cobra.Command, question string, answer types.Answer) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, boldStyle.Render(question))
	fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("type:"), answer.Type)
	fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("confidence:"), answer.Confidence)

	switch answer.Type {
	case types.AnswerEntity:
		for _, a := range answer.Payload.Agents {
			fmt.Fprintf(out, "  %s %s (x%d)\n", accentStyle.Render("•"), a.Name, a.Frequency)
		}
		for _, b := range answer.Payload.Beneficiaries {
			fmt.Fprintf(out, "  %s %s (x%d)\n", accentStyle.Render("•"), b.Name, b.Frequency)
		}
	case types.AnswerChain:
		var parts []string
		for _, node := range answer.Payload.Chain {
			if node.Kind == types.ChainNodeEntity {
				parts = append(parts, node.Name)
			} else {
				parts = append(parts, fmt.Sprintf("[%s %s]", node.Type, node.ID))
			}
		}
		fmt.Fprintln(out, "  "+strings.Join(parts, " → "))
	case types.AnswerEventList:
		for _, ev := range answer.Payload.Events {
			fmt.Fprintf(out, "  %s %s: %s\n", accentStyle.Render(string(ev.Type)), ev.ID, ev.Sentence)
		}
	case types.AnswerNone:
		fmt.Fprintln(out, mutedStyle.Render("  no answer"))
	}

	if flagTrace {
		fmt.Fprintln(out, mutedStyle.Render("trace:"))
		for _, line := range answer.Trace {
			fmt.Fprintf(out, "  %s\n", mutedStyle.Render(line))
		}
	}
	return nil
}
