// Package progress shows a decorative stage list while a long request runs.
// The animation and the request are independent: the request is dispatched
// immediately and its completion ends the animation.
package progress

import (
	"context"
	"sync"
	"time"
)

// Stage is one decorative step.
type Stage struct {
	Label string
	Hold  time.Duration // how long the stage shows before advancing
}

// GenerationStages is the stage list shown while a solution is generated.
var GenerationStages = []Stage{
	{Label: "Analyzing issue", Hold: 2 * time.Second},
	{Label: "Reading repository context", Hold: 3 * time.Second},
	{Label: "Generating fix", Hold: 4 * time.Second},
	{Label: "Reviewing changes", Hold: 3 * time.Second},
	{Label: "Preparing diff", Hold: 2 * time.Second},
}

// Step is emitted to the renderer.
type Step struct {
	Index int
	Total int
	Label string
	Done  bool
	Err   error
}

// Animate emits each stage in turn and then stays on the last one until ctx
// is cancelled. It returns when ctx is done.
func Animate(ctx context.Context, stages []Stage, emit func(Step)) {
	if len(stages) == 0 {
		<-ctx.Done()
		return
	}
	for i, st := range stages {
		emit(Step{Index: i, Total: len(stages), Label: st.Label})
		if i == len(stages)-1 {
			break
		}
		timer := time.NewTimer(st.Hold)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	<-ctx.Done()
}

// Run dispatches request at once and animates stages until it completes.
// emit is never called after Run returns; the final call has Done set.
func Run[T any](ctx context.Context, stages []Stage, emit func(Step), request func(context.Context) (T, error)) (T, error) {
	var mu sync.Mutex
	closed := false
	safeEmit := func(s Step) {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			emit(s)
		}
	}

	animCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		Animate(animCtx, stages, safeEmit)
	}()

	result, err := request(ctx)

	stop()
	wg.Wait()
	mu.Lock()
	emit(Step{Index: len(stages), Total: len(stages), Done: true, Err: err})
	closed = true
	mu.Unlock()
	return result, err
}
