package pipeline

import (
	"context"
	"log/slog"

	"github.com/rkvision/fpganode/internal/display"
	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/rkvision/fpganode/internal/pool"
)

// Pipeline owns the capture loop, the inference worker, and everything they
// share, and enforces the shutdown order: stop producing, close the mailbox,
// join the worker, then tear down sink, pool, and engine.
type Pipeline struct {
	Loop    *Loop
	Worker  *Worker
	Mailbox *Mailbox
	Pool    *pool.Pool
	Sink    *display.Sink
	Engine  fpga.Engine
	Stats   *Stats

	logger *slog.Logger
}

// NewPipeline bundles already-constructed components.
func NewPipeline(loop *Loop, worker *Worker, mailbox *Mailbox, p *pool.Pool, sink *display.Sink, eng fpga.Engine, stats *Stats, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		Loop:    loop,
		Worker:  worker,
		Mailbox: mailbox,
		Pool:    p,
		Sink:    sink,
		Engine:  eng,
		Stats:   stats,
		logger:  logger,
	}
}

// Run starts the worker and drives the capture loop until the context is
// cancelled or the loop faults, then shuts everything down in order. The
// loop's fault error, if any, is returned after teardown completes.
func (p *Pipeline) Run(ctx context.Context) error {
	// A renderer failure must also stop the producer, not just the sink.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case err := <-p.Sink.Fatal():
			p.logger.Error("Renderer failed, stopping pipeline", "error", err)
			cancel()
		case <-runCtx.Done():
		}
	}()

	p.Worker.Start()
	runErr := p.Loop.Run(runCtx)

	p.Mailbox.Close()
	p.Worker.Wait()
	if err := p.Sink.Close(); err != nil {
		p.logger.Warn("Display sink close", "error", err)
	}
	p.Pool.Close()
	if err := p.Engine.Close(); err != nil {
		p.logger.Warn("Transfer engine close", "error", err)
	}
	return runErr
}
