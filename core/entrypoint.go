package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"reflect"
	"runtime"
	"time"

	"github.com/encodeous/lsr/perf"
	"github.com/encodeous/lsr/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the logger of a single node: a console handler prefixed with the node id, plus an optional file sink
func NewLogger(w io.Writer, id state.NodeId, logPath string, logLevel slog.Level) (*slog.Logger, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(w, &tint.Options{
			Level:        logLevel,
			AddSource:    false,
			CustomPrefix: string(id),
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel}).WithAttrs([]slog.Attr{slog.String("node", string(id))}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// New constructs a node attached to sub and initializes its modules. Events are not processed until MainLoop runs.
func New(ctx context.Context, cfg state.LocalCfg, logLevel slog.Level, sub state.Substrate, epoch time.Time) (*state.State, error) {
	state.ExpandLocalConfig(&cfg)
	if err := state.NodeConfigValidator(&cfg); err != nil {
		return nil, err
	}
	logger, err := NewLogger(os.Stderr, cfg.Id, cfg.LogPath, logLevel)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(ctx)
	s := &state.State{
		Modules: make(map[string]state.Module),
		Env: &state.Env{
			DispatchChannel: make(chan func(*state.State) error, 128),
			LocalCfg:        cfg,
			Context:         ctx,
			Cancel:          cancel,
			Log:             logger,
			Substrate:       sub,
			Epoch:           epoch,
		},
	}

	s.Log.Debug("init modules")
	if err := initModules(s); err != nil {
		cancel(err)
		return nil, err
	}
	s.Log.Debug("init modules complete")
	return s, nil
}

// Start runs a node until ctx is cancelled or a dispatched function fails
func Start(ctx context.Context, cfg state.LocalCfg, logLevel slog.Level, sub state.Substrate) error {
	s, err := New(ctx, cfg, logLevel, sub, time.Now())
	if err != nil {
		return err
	}
	return MainLoop(s)
}

func initModules(s *state.State) error {
	var modules []state.Module
	modules = append(modules, &RouteTrace{})
	modules = append(modules, &LinkStateRouter{})

	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

func MainLoop(s *state.State) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-s.DispatchChannel:
			start := time.Now()
			err := fun(s)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatchThreshold {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(s.DispatchChannel))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	cause := context.Cause(s.Context)
	s.Log.Debug("stopped main loop", "reason", cause)
	Stop(s)
	if errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

func Stop(s *state.State) {
	if s.Stopping.Swap(true) {
		return // don't stop twice
	}
	s.Cancel(context.Canceled)
	s.Log.Debug("cleaning up modules")
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
		}
	}
	s.Log.Debug("stopped")
}
