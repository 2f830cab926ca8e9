package scan

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/nrtkbb/forensic/api"
	"github.com/nrtkbb/forensic/app"
	"github.com/nrtkbb/forensic/config"
	"github.com/nrtkbb/forensic/eventlog"
	"github.com/nrtkbb/forensic/output"
	"github.com/nrtkbb/forensic/progress"
	"github.com/nrtkbb/forensic/walker"
	"github.com/spf13/afero"
)

type Command struct {
	opts config.Options

	// Overridden in tests. Zero values mean os.Stdout, OS signals and the
	// OS filesystem.
	stdout  io.Writer
	signals <-chan os.Signal
	fs      afero.Fs
}

func (*Command) Name() string     { return "scan" }
func (*Command) Synopsis() string { return "Walk a file or directory and print forensic records" }
func (*Command) Usage() string {
	return `scan [-r] [-h md5,sha1,sha256] [-o <file>] [-v] [-d] [-external-digests]
     [-workers N] [-grace dur] [-status-addr addr] <file|dir>:
  Print one record per regular file: path, type, size, owner permissions,
  modification and access times, then the requested digests.
  With -v every action is appended to $LOGFILENAME (default log.txt).
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.opts.Recursive, "r", false, "descend into subdirectories")
	f.StringVar(&c.opts.Hashes, "h", "", "comma separated digest algorithms (md5, sha1, sha256)")
	f.StringVar(&c.opts.Output, "o", "", "write records to this file instead of stdout")
	f.BoolVar(&c.opts.Verbose, "v", false, "write the event log")
	f.BoolVar(&c.opts.Debug, "d", false, "print the resolved configuration and debug warnings")
	f.BoolVar(&c.opts.ExternalDigests, "external-digests", false, "compute digests with md5sum, sha1sum and sha256sum")
	f.IntVar(&c.opts.Workers, "workers", 0, "maximum concurrent directory workers (default NumCPU*4)")
	f.DurationVar(&c.opts.Grace, "grace", config.DefaultGrace, "pause granted to in-flight files on cancellation")
	f.StringVar(&c.opts.StatusAddr, "status-addr", "", "serve live progress over HTTP on this address")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		log.Printf("Error: expected one file/directory, got %d arguments", f.NArg())
		f.Usage()
		return subcommands.ExitFailure
	}
	c.opts.Target = f.Arg(0)

	cfg, err := config.New(c.opts)
	if err != nil {
		log.Printf("Error: %v", err)
		f.Usage()
		return subcommands.ExitFailure
	}
	if cfg.Debug {
		cfg.Print(os.Stderr)
	}

	appCtx := app.NewAppContext(ctx)
	defer appCtx.PerformCleanup()

	var events *eventlog.Logger
	if cfg.LogEnabled {
		events = eventlog.New(cfg.LogFile, appCtx.Stats.StartTime)
		if err := events.Reset(); err != nil {
			log.Printf("Error: failed to reset event log: %v", err)
			return subcommands.ExitFailure
		}
	}

	stdout := c.stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	sigOpts := app.SignalOptions{
		Grace:  cfg.Grace,
		Notice: stdout,
		Events: events,
	}
	var watcher *app.SignalWatcher
	if c.signals != nil {
		watcher = app.NewSignalWatcher(appCtx, c.signals, sigOpts)
	} else {
		watcher = app.SetupSignalHandling(appCtx, sigOpts)
	}
	defer watcher.Stop()

	emitter := output.NewEmitter(stdout)
	if cfg.OutputPath != "" {
		emitter, err = output.Create(cfg.OutputPath)
		if err != nil {
			log.Printf("Error: %v", err)
			return subcommands.ExitFailure
		}
	}
	appCtx.AddCloser(emitter)
	go closeWhenDone(appCtx.Context, emitter)

	events.Logf(walker.TopLevel, "COMMAND %s", strings.Join(os.Args, " "))

	if cfg.StatusAddr != "" {
		server := api.NewServer(cfg.StatusAddr, api.NewHandler(appCtx.RunID, appCtx.Stats, cfg, appCtx.Cancelled))
		server.Start()
		appCtx.AddCloser(server)
	}

	tracker := progress.NewTracker(appCtx.Stats, stdout)
	walkOpts := []walker.Option{
		walker.WithEventLog(events),
		walker.WithDrain(appCtx.Draining.Done()),
	}
	if c.fs != nil {
		walkOpts = append(walkOpts, walker.WithFs(c.fs))
	}
	engine := walker.New(cfg, emitter, tracker, walkOpts...)

	err = engine.Walk(appCtx.Context, cfg.Target)
	dirs, files := tracker.Snapshot()
	switch {
	case err == nil:
		log.Printf("Scan completed in %v", appCtx.Elapsed())
	case errors.Is(err, context.Canceled) && appCtx.Cancelled():
		<-watcher.Done()
		log.Printf("Scan cancelled after %v", appCtx.Elapsed())
	default:
		log.Printf("Error: scan failed: %v", err)
		return subcommands.ExitFailure
	}
	log.Printf("Processed %d directories and %d files", dirs, files)

	return subcommands.ExitSuccess
}

// closeWhenDone closes the emitter once ctx is done, so nothing is written
// after the grace period.
func closeWhenDone(ctx context.Context, emitter *output.Emitter) {
	<-ctx.Done()
	if err := emitter.Close(); err != nil {
		log.Printf("Warning: failed to close output: %v", err)
	}
}
