package stream

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type App struct {
	init    Initializer
	runner  Runner
	onReady func()
	log     *zap.Logger
}

func NewApp(init Initializer, runner Runner, onReady func(), log *zap.Logger) *App {
	if onReady == nil {
		onReady = func() {}
	}
	return &App{init: init, runner: runner, onReady: onReady, log: log}
}

// Run provisions first; the runner never starts if that fails.
func (a *App) Run(ctx context.Context) error {
	a.log.Info("app starts")
	if err := a.init.Init(ctx); err != nil {
		return fmt.Errorf("stream init: %w", err)
	}
	a.onReady()
	return a.runner.Run(ctx)
}
