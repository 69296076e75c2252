// Command psifsd is a small demonstration binary wiring a
// unified.Dispatcher over an in-process loopback wire pair (standing
// in for a real SIBO/ERA serial link, per spec.md's §6 scope note
// that direct byte-level serial access is out of scope) to an
// async.Engine, exposed as cobra subcommands the way rclone's cmd/
// tree wires each backend operation to its own cobra.Command.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoukydides/riscos-psifs-sub001/internal/async"
	"github.com/thoukydides/riscos-psifs-sub001/internal/config"
	"github.com/thoukydides/riscos-psifs-sub001/internal/handlestore"
	"github.com/thoukydides/riscos-psifs-sub001/internal/plog"
	"github.com/thoukydides/riscos-psifs-sub001/internal/timerqueue"
	"github.com/thoukydides/riscos-psifs-sub001/internal/unified"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire"
	"github.com/thoukydides/riscos-psifs-sub001/internal/wire/loopback"
)

// daemon bundles the live engine and dispatcher a subcommand operates
// against, opened fresh for each invocation since this binary is a
// demonstration CLI, not a long-running server. Only the handle
// counter survives across invocations (spec.md's own non-goal: "no
// persistent operation database beyond the one handle counter"), so a
// handle printed by one "start" is only resolvable by a "poll"/
// "response"/etc. run against the same still-live process.
type daemon struct {
	engine     *async.Engine
	dispatcher *unified.Dispatcher
	handles    *handlestore.Store
}

func newDaemon(opt config.Options) (*daemon, error) {
	store, err := handlestore.Open(context.Background(), opt.HandleStorePath)
	if err != nil {
		return nil, fmt.Errorf("opening handle store: %w", err)
	}
	era := loopback.New(wire.VariantERA)
	sibo := loopback.New(wire.VariantSIBO)
	dispatcher := unified.New(era, sibo, timerqueue.New(), opt.Unified())
	engine := async.New(dispatcher, store, async.Options{})
	return &daemon{engine: engine, dispatcher: dispatcher, handles: store}, nil
}

func (d *daemon) Close() error {
	return d.handles.Close()
}

func main() {
	opt := config.Default()

	root := &cobra.Command{
		Use:   "psifsd",
		Short: "PsiFS async-engine demonstration CLI",
	}
	root.PersistentFlags().StringVar(&opt.LogLevel, "log-level", opt.LogLevel, "log level (debug, info, notice, error, emergency)")
	root.PersistentFlags().StringVar(&opt.HandleStorePath, "handle-store", opt.HandleStorePath, "path to the persistent operation-handle counter")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		plog.SetLevel(plog.ParseLevel(opt.LogLevel))
	}

	root.AddCommand(
		startCmd(&opt),
		pollCmd(&opt),
		statusCmd(&opt),
		responseCmd(&opt),
		pauseCmd(&opt),
		resumeCmd(&opt),
		endCmd(&opt),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
