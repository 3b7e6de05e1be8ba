package stream

import (
	"sync"
	"time"
)

// Runner drives one Typewriter with wall-clock tickers: a character-reveal
// ticker at the configured speed and a cursor-blink ticker. At most one of
// each is live per Runner; Stop (or a replaced message) tears both down so
// stale text never keeps animating.
type Runner struct {
	tw         *Typewriter
	speed      time.Duration
	blinkEvery time.Duration
	redraw     func(Frame)

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewRunner creates a Runner over tw. redraw is called with a fresh frame
// after every tick. speed is the per-character reveal interval, blinkEvery
// the cursor toggle interval; zero values get 20ms and 500ms.
func NewRunner(tw *Typewriter, speed, blinkEvery time.Duration, redraw func(Frame)) *Runner {
	if speed <= 0 {
		speed = 20 * time.Millisecond
	}
	if blinkEvery <= 0 {
		blinkEvery = 500 * time.Millisecond
	}
	return &Runner{tw: tw, speed: speed, blinkEvery: blinkEvery, redraw: redraw}
}

// Start begins animating the current message, replacing any animation in
// progress.
func (r *Runner) Start() {
	r.Stop()

	r.mu.Lock()
	stop := make(chan struct{})
	r.stop = stop
	r.mu.Unlock()

	r.wg.Add(2)
	go r.revealLoop(stop)
	go r.blinkLoop(stop)
}

// Stop cancels both tickers and waits for the animation goroutines to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	stop := r.stop
	r.stop = nil
	r.mu.Unlock()
	if stop != nil {
		close(stop)
		r.wg.Wait()
	}
}

// Skip cuts the animation short and redraws the final frame.
func (r *Runner) Skip() {
	r.tw.Skip()
	r.draw()
}

func (r *Runner) revealLoop(stop chan struct{}) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.speed)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			more := r.tw.Tick()
			r.draw()
			if !more && r.tw.Phase() == PhaseComplete {
				return
			}
		}
	}
}

func (r *Runner) blinkLoop(stop chan struct{}) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.blinkEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if r.tw.Phase() != PhaseStreaming {
				return
			}
			r.tw.BlinkTick()
			r.draw()
		}
	}
}

func (r *Runner) draw() {
	if r.redraw != nil {
		r.redraw(r.tw.Frame())
	}
}
