package bot

import (
	"context"
	"time"

	"github.com/google/logger"
)

const flushTimeout = 10 * time.Second

// flushWorker periodically retries lottery saves that failed.
type flushWorker struct {
	target   flusher
	stopChan chan struct{}
	done     chan struct{}
	ticker   *time.Ticker
	interval time.Duration
}

type flusher interface {
	Flush(ctx context.Context) error
}

func newFlushWorker(target flusher, interval time.Duration) *flushWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &flushWorker{
		target:   target,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		interval: interval,
	}
}

func (w *flushWorker) start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

// stop waits for an in-flight flush to finish.
func (w *flushWorker) stop() {
	if w == nil || w.ticker == nil {
		return
	}
	close(w.stopChan)
	w.ticker.Stop()
	<-w.done
}

func (w *flushWorker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ticker.C:
			w.tick()
		case <-w.stopChan:
			return
		}
	}
}

func (w *flushWorker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := w.target.Flush(ctx); err != nil {
		logger.Warningf("flush: lottery state still unsaved: %v", err)
	}
}
