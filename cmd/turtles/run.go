package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/turtles/pkg/canvas"
	"github.com/germanamz/turtles/pkg/geom"
	"github.com/germanamz/turtles/pkg/scheduler"
	"github.com/germanamz/turtles/pkg/session"
	"github.com/germanamz/turtles/pkg/stream"
)

type runOptions struct {
	configPath string
	workers    int
	fps        float64
	streamAddr string
	logFile    string
	headless   bool
}

// apply overrides cfg with the flags that were set.
func (o runOptions) apply(cfg session.Config) session.Config {
	if o.workers >= 0 {
		cfg.Workers = o.workers
	}
	if o.fps != 0 {
		cfg.MaxTickRate = o.fps
	}
	if o.streamAddr != "" {
		cfg.Stream.Addr = o.streamAddr
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	return cfg
}

func run(opts runOptions) (err error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	path, explicit := opts.configPath, opts.configPath != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg, err := loadConfig(path, explicit)
	if err != nil {
		return err
	}
	cfg = opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeLog()) }()

	headless := opts.headless || !isTerminal()

	frames := newFrameSink()
	width, height, fit := canvasSize(cfg.Canvas)
	cv := canvas.New(width, height, canvasOptions(cfg.Canvas, frames, headless)...)

	renderers := []scheduler.Renderer{cv}

	var hub *stream.Hub
	if cfg.Stream.Addr != "" {
		hub = stream.NewHub(stream.WithLogger(log.With("component", "stream")))
		renderers = append(renderers, hub)
	}

	s, err := session.New(ctx, cfg, scheduler.Multi(renderers...), session.WithLogger(log))
	if err != nil {
		return err
	}
	log.Info("session created", "id", s.ID(), "workers", cfg.Workers, "max_tick_rate", s.MaxTickRate())

	done := make(chan error, 3)
	pending := 0

	if hub != nil {
		pending++
		go func() {
			err := stream.Serve(ctx, cfg.Stream.Addr, hub, nil)
			if err != nil {
				cancel()
			}
			done <- err
		}()
	}

	pending++
	go func() { done <- runWorkers(ctx, s, cfg.Workers, log) }()

	pending++
	go func() { done <- schedulerErr(s.Wait()) }()

	if headless {
		awaitStop(ctx, s)
	} else if err := runViewer(ctx, s, cv, frames, fit); err != nil {
		cancel()
		return collect(done, pending, err)
	}

	cancel()
	return collect(done, pending, nil)
}

// awaitStop blocks until ctx is done or the scheduler terminated on its own,
// for example after a render failure.
func awaitStop(ctx context.Context, s *session.Session) {
	select {
	case <-ctx.Done():
	case <-s.Done():
	}
}

func runViewer(ctx context.Context, s *session.Session, cv *canvas.Canvas, frames *frameSink, fit bool) error {
	model := newViewerModel(ctx, s, cv, frames, s.Events(), fit)

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Send the program reference so the model can start bridge goroutines.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	final, err := p.Run()
	if vm, ok := final.(viewerModel); ok && vm.cancelBridge != nil {
		vm.cancelBridge()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return nil
}

func canvasOptions(cfg session.CanvasConfig, frames *frameSink, headless bool) []canvas.Option {
	var opts []canvas.Option
	if cfg.Scale > 0 {
		opts = append(opts, canvas.WithScale(cfg.Scale))
	}
	if cfg.Background != "" {
		if bg, err := geom.ParseHex(cfg.Background); err == nil {
			opts = append(opts, canvas.WithBackground(bg))
		}
	}
	if !headless {
		opts = append(opts, canvas.WithSink(frames.Push))
	}
	return opts
}

// schedulerErr drops the errors that only mean the session was shut down.
func schedulerErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// collect waits for n background results and joins the failures with first.
func collect(done <-chan error, n int, first error) error {
	errs := []error{first}
	for range n {
		errs = append(errs, <-done)
	}
	return errors.Join(errs...)
}
