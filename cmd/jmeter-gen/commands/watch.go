package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kzaorski/jmeter-test-generator-sub001/internal/cliutil"
	"github.com/kzaorski/jmeter-test-generator-sub001/logging"
)

// WatchFlags contains flags for the watch command
type WatchFlags struct {
	CommonFlags
	Debounce time.Duration
}

// SetupWatchFlags creates and configures a FlagSet for the watch command.
func SetupWatchFlags() (*flag.FlagSet, *WatchFlags) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags := &WatchFlags{}

	addCommonFlags(fs, &flags.CommonFlags)
	fs.DurationVar(&flags.Debounce, "debounce", 0, "wait this long for writes to settle (default from config, 300ms)")

	fs.Usage = func() {
		cliutil.Writef(fs.Output(), "Usage: jmeter-gen watch [flags] <spec> <jmx>\n\n")
		cliutil.Writef(fs.Output(), "Update the JMeter plan every time the spec file is saved.\n")
		cliutil.Writef(fs.Output(), "Runs once at start, then until interrupted.\n\n")
		cliutil.Writef(fs.Output(), "Flags:\n")
		fs.PrintDefaults()
		printCommonUsage(fs.Output())
	}

	return fs, flags
}

// HandleWatch executes the watch command. It returns when ctx is cancelled.
func HandleWatch(ctx context.Context, args []string, out io.Writer) error {
	fs, flags := SetupWatchFlags()
	done, err := parseArgs(fs, args, 2, 2, "watch command requires a spec file and a JMX file")
	if done || err != nil {
		return err
	}
	if flags.Debounce < 0 {
		return fmt.Errorf("debounce must not be negative, got %s", flags.Debounce)
	}
	specPath, jmxPath := fs.Arg(0), fs.Arg(1)
	target, err := filepath.Abs(specPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", specPath, err)
	}

	p, err := openProject(&flags.CommonFlags)
	if err != nil {
		return err
	}
	defer p.Close()

	debounce := p.cfg.WatchDebounce
	if flags.Debounce > 0 {
		debounce = flags.Debounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	// Watch the directory so editors that replace the file are still seen.
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	sync := func() {
		res, err := p.comps.Service.Sync(ctx, specPath, jmxPath)
		if err != nil {
			p.logger.Error("sync failed", "spec", specPath, "jmx", jmxPath, "error", err)
			cliutil.Writef(out, "Error: %v\n", err)
			return
		}
		renderSync(out, res)
	}

	sync()
	cliutil.Writef(out, "Watching %s (Ctrl+C to stop)\n", specPath)

	loop := &watchLoop{
		target:   target,
		debounce: debounce,
		onChange: sync,
		logger:   p.logger.With("component", "watch"),
	}
	return loop.run(ctx, w.Events, w.Errors)
}

// watchLoop debounces file events for one target and calls onChange on the
// loop's own goroutine, so runs never overlap.
type watchLoop struct {
	target   string
	debounce time.Duration
	onChange func()
	logger   logging.Logger
}

func (l *watchLoop) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if !l.relevant(event) {
				continue
			}
			l.logger.Debug("spec changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(l.debounce)
			} else {
				timer.Reset(l.debounce)
			}
			fire = timer.C

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			l.logger.Warn("file watcher error", "error", err)

		case <-fire:
			fire = nil
			l.onChange()
		}
	}
}

func (l *watchLoop) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != l.target {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
