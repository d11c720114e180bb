package main

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// barProgress renders one mpb bar per pipeline phase.
type barProgress struct {
	p *mpb.Progress

	mu  sync.RWMutex
	bar *mpb.Bar
}

func newBarProgress(w io.Writer) *barProgress {
	return &barProgress{p: mpb.New(mpb.WithOutput(w), mpb.WithWidth(64))}
}

// Phase retires the previous bar and starts a new one. Empty phases get no bar.
func (b *barProgress) Phase(name string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.retire()
	if total <= 0 {
		return
	}
	b.bar = b.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name+" "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)
}

func (b *barProgress) Advance() {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.bar != nil {
		b.bar.Increment()
	}
}

// Wait retires the last bar and flushes the renderer.
func (b *barProgress) Wait() {
	b.mu.Lock()
	b.retire()
	b.mu.Unlock()
	b.p.Wait()
}

// retire aborts an unfinished bar so Wait never blocks on it. Callers hold mu.
func (b *barProgress) retire() {
	if b.bar != nil && !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.bar = nil
}
