// Command demo runs the runtime on the headless platform with the configured
// windows, a frame counter and an optional Prometheus endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/comalice/framecore"
	"github.com/comalice/framecore/behavior"
	"github.com/comalice/framecore/internal/config"
	"github.com/comalice/framecore/internal/logging"
	"github.com/comalice/framecore/platform"
)

func main() {
	configPath := flag.String("config", "", "YAML or JSON config file")
	envFile := flag.String("env", ".env", "dotenv file read before the environment")
	frames := flag.Int("frames", 300, "close every window after this many updates (0 runs until interrupted)")
	dot := flag.Bool("dot", false, "print the runtime lifecycle as Graphviz DOT and exit")
	writeConfig := flag.String("write-config", "", "write the effective config to this .yaml or .json file and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "demo: %v\n", err)
		os.Exit(2)
	}
	log := logging.New(os.Stderr, logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Component: "demo",
	})

	if *writeConfig != "" {
		if err := config.WriteFile(*writeConfig, cfg); err != nil {
			log.Error("write config", "path", *writeConfig, "err", err)
			os.Exit(1)
		}
		log.Info("config written", "path", *writeConfig)
		return
	}

	if err := run(cfg, log, *frames, *dot); err != nil {
		log.Error("demo failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger, frames int, dot bool) error {
	mode, err := framecore.ParseUpdateMode(cfg.UpdateMode)
	if err != nil {
		return err
	}
	policy, err := behavior.ParsePolicy(cfg.FaultPolicy)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	rt, err := framecore.Init(
		framecore.WithLogger(log.With("component", "runtime")),
		framecore.WithMetrics(reg),
		framecore.WithTickRate(cfg.TickRate),
		framecore.WithUpdateMode(mode),
		framecore.WithFaultPolicy(policy),
		framecore.WithClearColor(platform.Color{
			R: cfg.ClearColor[0],
			G: cfg.ClearColor[1],
			B: cfg.ClearColor[2],
			A: cfg.ClearColor[3],
		}),
		framecore.WithVSyncDefault(cfg.DisableVSync),
	)
	if err != nil {
		return err
	}
	if dot {
		fmt.Print(rt.Lifecycle())
		return rt.Run(context.Background())
	}

	for _, w := range cfg.Windows {
		if _, err := rt.CreateWindow(w.Title, w.Width, w.Height); err != nil {
			return err
		}
	}

	fc, err := framecore.Register(rt, &frameCounter{log: log, rt: rt, limit: frames})
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(reg)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", "addr", cfg.MetricsAddr, "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		log.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = rt.Run(ctx)
	log.Info("demo finished", "updates", fc.updates)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

// frameCounter logs the update rate once a second and asks every window to
// close after limit updates.
type frameCounter struct {
	log   *slog.Logger
	rt    *framecore.Runtime
	limit int

	updates int
	window  int
	since   time.Time
}

func (f *frameCounter) Start() {
	f.since = time.Now()
	f.log.Info("frame counter started", "limit", f.limit)
}

func (f *frameCounter) Update() {
	f.updates++
	f.window++
	if d := time.Since(f.since); d >= time.Second {
		f.log.Info("frame rate", "fps", float64(f.window)/d.Seconds(), "updates", f.updates)
		f.window, f.since = 0, time.Now()
	}
	if f.limit > 0 && f.updates == f.limit {
		for _, id := range f.rt.Windows().IDs() {
			if err := f.rt.Loop().Post(platform.CloseRequested{Window: id}); err != nil {
				f.log.Warn("request close", "window", id, "err", err)
			}
		}
	}
}
