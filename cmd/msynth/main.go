package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vsariola/msynth"
	"github.com/vsariola/msynth/cmd"
	"github.com/vsariola/msynth/console"
	"github.com/vsariola/msynth/midi"
	"github.com/vsariola/msynth/player"
	"github.com/vsariola/msynth/script"
	"github.com/vsariola/msynth/version"
	"github.com/vsariola/msynth/vm"
	"github.com/vsariola/msynth/wav"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type options struct {
	config     msynth.Config // flag values, applied over the config file
	configFile string
	verbose    bool
	render     string
	duration   time.Duration
}

// anyMIDIInput as the --midi prefix takes the first input
const anyMIDIInput = "*"

var errQuit = errors.New("quit")

func main() {
	if err := newRootCmd(&options{}).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd binds the flags to o, setting their defaults.
func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "msynth",
		Short: "A live scripted synthesizer",
		Long: `msynth plays the signal "left" and "right" evaluate to, sample by
sample. Type name = expression to bind a variable, e.g.

  msynth> f = 220 + sin(2) * 10
  msynth> left = sin(f) * 0.5
  msynth> right = left[4410]`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			err := run(c, o)
			if err != nil {
				fmt.Fprintln(c.ErrOrStderr(), "msynth:", err)
			}
			return err
		},
	}
	flags := root.Flags()
	flags.IntVarP(&o.config.Audio.SampleRate, "samplerate", "s", 0, "sample rate in Hz, 0 for the backend default")
	flags.BoolVarP(&o.config.Audio.Resample, "resample", "r", false, "allow software resampling")
	flags.IntVarP(&o.config.Audio.BufferTime, "buffertime", "b", 0, "buffer time in microseconds, 0 for the backend default")
	flags.IntVarP(&o.config.Audio.PeriodTime, "periodtime", "p", 0, "period time in microseconds, 0 for the backend default")
	flags.StringVarP(&o.config.Audio.Device, "device", "d", msynth.DefaultDevice, "audio output device")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "log the audio parameters and debug messages")
	flags.StringVar(&o.config.Backend, "backend", msynth.DefaultBackend, fmt.Sprintf("audio backend, one of %v", cmd.BackendNames()))
	flags.Float32Var(&o.config.Volume, "volume", msynth.DefaultVolume, "master volume between 0 and 1")
	flags.StringVar(&o.configFile, "config", "", "read the configuration from a yaml `file`; flags override it")
	flags.StringVar(&o.config.Script, "script", "", "run a script `file` at startup")
	flags.BoolVar(&o.config.Watch, "watch", false, "rerun the script file whenever it changes")
	flags.StringVar(&o.config.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this `address`, e.g. :9090")
	flags.StringVar(&o.config.MIDI, "midi", "", "listen to the MIDI input whose name starts with `prefix`; * for the first input")
	flags.StringVar(&o.render, "render", "", "render to a wav `file` instead of playing")
	flags.DurationVar(&o.duration, "duration", 10*time.Second, "length of the render")
	root.AddCommand(newVersionCmd(), newBuiltinsCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, args []string) {
			fmt.Fprintln(c.OutOrStdout(), version.VersionOrHash)
		},
	}
}

func newBuiltinsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "builtins",
		Short: "List the builtin functions as yaml",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			defs := make([]msynth.FuncDef, 0, len(msynth.Builtins))
			for _, name := range msynth.Names() {
				defs = append(defs, msynth.Builtins[name])
			}
			enc := yaml.NewEncoder(c.OutOrStdout())
			defer enc.Close()
			return enc.Encode(defs)
		},
	}
}

// loadConfig reads the config file, if any, and applies the flags the user
// set on top of it.
func loadConfig(c *cobra.Command, o *options) (msynth.Config, error) {
	cfg := msynth.DefaultConfig()
	if o.configFile != "" {
		f, err := os.Open(o.configFile)
		if err != nil {
			return cfg, fmt.Errorf("cannot read config: %w", err)
		}
		err = msynth.ReadConfig(f, &cfg)
		f.Close()
		if err != nil {
			return cfg, err
		}
	}
	flagged := o.config
	overrides := map[string]func(){
		"samplerate":   func() { cfg.Audio.SampleRate = flagged.Audio.SampleRate },
		"resample":     func() { cfg.Audio.Resample = flagged.Audio.Resample },
		"buffertime":   func() { cfg.Audio.BufferTime = flagged.Audio.BufferTime },
		"periodtime":   func() { cfg.Audio.PeriodTime = flagged.Audio.PeriodTime },
		"device":       func() { cfg.Audio.Device = flagged.Audio.Device },
		"backend":      func() { cfg.Backend = flagged.Backend },
		"volume":       func() { cfg.Volume = flagged.Volume },
		"script":       func() { cfg.Script = flagged.Script },
		"watch":        func() { cfg.Watch = flagged.Watch },
		"metrics-addr": func() { cfg.MetricsAddr = flagged.MetricsAddr },
		"midi":         func() { cfg.MIDI = flagged.MIDI },
	}
	for name, apply := range overrides {
		if c.Flags().Changed(name) {
			apply()
		}
	}
	if o.verbose {
		cfg.Audio.Verbose = true
	}
	if cfg.History == "" {
		cfg.History = console.DefaultHistoryFile()
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(c *cobra.Command, o *options) error {
	cfg, err := loadConfig(c, o)
	if err != nil {
		return err
	}
	logger := newLogger(c.ErrOrStderr(), o.verbose)
	slog.SetDefault(logger)
	engine := vm.New(logger)
	interp := script.New(engine, logger)
	if cfg.Script != "" {
		if err := runScript(interp, cfg.Script); err != nil {
			logger.Warn("script loaded with errors", "path", cfg.Script, "err", err)
		}
	}
	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt)
	defer stop()
	if o.render != "" {
		return render(ctx, engine, cfg, o, logger)
	}
	open, err := cmd.Backend(cfg.Backend)
	if err != nil {
		return err
	}
	p := player.New(engine, open, cfg.Audio, logger)
	if err := p.SetVolume(cfg.Volume); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)
	if err := p.Start(ctx); err != nil {
		return err
	}
	g.Go(p.Wait)
	if cfg.MetricsAddr != "" {
		serveMetrics(ctx, g, cfg.MetricsAddr, logger)
	}
	if cfg.Watch && cfg.Script != "" {
		g.Go(func() error {
			return console.NewWatcher(cfg.Script, interp, logger).Run(ctx)
		})
	}
	if cfg.MIDI != "" {
		closeMIDI, err := listenMIDI(ctx, g, engine, cfg.MIDI, logger)
		if err != nil {
			logger.Error("MIDI disabled", "err", err)
		} else {
			defer closeMIDI()
		}
	}
	con := console.New(engine, interp, p, logger)
	con.HistoryFile = cfg.History
	// the prompt cannot be interrupted, so the console is not waited for
	consoleDone := make(chan error, 1)
	go func() { consoleDone <- con.Run(ctx) }()
	g.Go(func() error {
		select {
		case err := <-consoleDone:
			if err != nil {
				return err
			}
			return errQuit
		case <-ctx.Done():
			return nil
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

func runScript(interp *script.Interpreter, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read script: %w", err)
	}
	defer f.Close()
	return interp.ExecFile(f)
}

func render(ctx context.Context, engine *vm.Engine, cfg msynth.Config, o *options, logger *slog.Logger) error {
	rate := cfg.Audio.SampleRate
	if rate <= 0 {
		rate = wav.DefaultSampleRate
	}
	p := player.New(engine, wav.Opener(o.render), cfg.Audio, logger)
	if err := p.SetVolume(cfg.Volume); err != nil {
		return err
	}
	p.SetLimit(int(o.duration.Seconds() * float64(rate)))
	if err := p.Start(ctx); err != nil {
		return err
	}
	if err := p.Wait(); err != nil {
		return err
	}
	logger.Info("rendered", "path", o.render, "frames", p.Stats().Samples)
	return nil
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	g.Go(func() error {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("cannot serve metrics: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func listenMIDI(ctx context.Context, g *errgroup.Group, engine *vm.Engine, prefix string, logger *slog.Logger) (func(), error) {
	driver, err := cmd.NewMIDIDriver()
	if err != nil {
		return nil, err
	}
	mapper, err := midi.NewMapper(engine, logger)
	if err != nil {
		driver.Close()
		return nil, err
	}
	if prefix == anyMIDIInput {
		prefix = ""
	}
	stop, err := midi.Listen(driver, prefix, mapper)
	if err != nil {
		driver.Close()
		return nil, err
	}
	g.Go(func() error { return mapper.Run(ctx) })
	return func() {
		stop()
		driver.Close()
	}, nil
}
