// Package playback drives unattended traversal of a study session: it reads
// each card's front, waits, flips, reads the back, waits and advances.
//
// Every processed action bumps an epoch before doing anything else and then
// cancels the pending timer and in-flight speech. Timer and speech callbacks
// carry the epoch that was current when they were scheduled and are dropped
// if it has moved on, so a stale callback can never drive a transition that
// belongs to a newer card.
package playback

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/studyloop/internal/clock"
	"github.com/conorfennell/studyloop/internal/domain"
	"github.com/conorfennell/studyloop/internal/session"
	"github.com/conorfennell/studyloop/internal/speech"
)

// Cursor is the session position the engine reads and advances.
// *session.State implements it.
type Cursor interface {
	Current() (domain.Item, bool)
	Move(ctx context.Context, dir session.Direction) error
}

// Options configures an Engine. Zero durations take their defaults.
type Options struct {
	FlipDelay      time.Duration // pause between the front and the flip
	AdvanceDelay   time.Duration // pause between the back and the next card
	FlipAnimation  time.Duration
	EmptyFaceDelay time.Duration // stand-in for speech when a face is blank

	// OnChange, if set, is called after every processed action.
	OnChange func(Snapshot)
	// OnDismiss, if set, is called when a Dismiss action is processed.
	OnDismiss func()

	Logger *slog.Logger
}

const (
	DefaultFlipDelay      = time.Second
	DefaultAdvanceDelay   = 1500 * time.Millisecond
	DefaultFlipAnimation  = 600 * time.Millisecond
	DefaultEmptyFaceDelay = time.Second
)

func (o *Options) setDefaults() {
	if o.FlipDelay <= 0 {
		o.FlipDelay = DefaultFlipDelay
	}
	if o.AdvanceDelay <= 0 {
		o.AdvanceDelay = DefaultAdvanceDelay
	}
	if o.FlipAnimation <= 0 {
		o.FlipAnimation = DefaultFlipAnimation
	}
	if o.EmptyFaceDelay <= 0 {
		o.EmptyFaceDelay = DefaultEmptyFaceDelay
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Snapshot is the observable engine state.
type Snapshot struct {
	State   State
	Epoch   uint64
	Flipped bool
	Item    domain.Item
	HasItem bool
}

// Engine is the playback state machine. Send may be called from any
// goroutine; actions and callbacks are processed one at a time in arrival
// order.
type Engine struct {
	cursor  Cursor
	speaker speech.Speaker
	clock   clock.Clock
	opts    Options
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	qmu     sync.Mutex
	pending []func()
	running bool

	mu      sync.Mutex
	state   State
	epoch   uint64
	flipped bool
	timer   clock.Timer
	closed  bool
}

// New creates an idle Engine over cursor. A nil speaker makes every face
// complete immediately.
func New(cursor Cursor, speaker speech.Speaker, clk clock.Clock, opts Options) *Engine {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cursor:  cursor,
		speaker: speaker,
		clock:   clock.Or(clk),
		opts:    opts,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Send queues a user action.
func (e *Engine) Send(a Action) {
	e.submit(func() { e.process(a) })
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{State: e.state, Epoch: e.epoch, Flipped: e.flipped}
	e.mu.Unlock()
	snap.Item, snap.HasItem = e.cursor.Current()
	return snap
}

// Close stops the engine. Pending callbacks are discarded and later actions
// are ignored. OnDismiss is not called.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.epoch++
	e.state = Idle
	e.stopTimerLocked()
	e.mu.Unlock()

	e.cancel()
	if e.speaker != nil {
		e.speaker.Stop()
	}
}

// submit runs fn on the engine's serial executor. The first caller drains the
// queue; calls made while it is draining, including re-entrant calls from
// inside fn, are appended and run after it.
func (e *Engine) submit(fn func()) {
	e.qmu.Lock()
	e.pending = append(e.pending, fn)
	if e.running {
		e.qmu.Unlock()
		return
	}
	e.running = true
	for len(e.pending) > 0 {
		next := e.pending[0]
		e.pending[0] = nil
		e.pending = e.pending[1:]
		e.qmu.Unlock()
		next()
		e.qmu.Lock()
	}
	e.running = false
	e.qmu.Unlock()
}

// post queues an internal action that only runs if epoch is still current.
func (e *Engine) post(epoch uint64, a Action) {
	e.submit(func() {
		e.mu.Lock()
		stale := e.epoch != epoch
		e.mu.Unlock()
		if stale {
			e.log.Debug("playback dropped stale callback", "action", a, "epoch", epoch)
			return
		}
		e.process(a)
	})
}

func (e *Engine) process(a Action) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	from := e.state
	to, ok := transition(from, a)
	if !ok {
		e.mu.Unlock()
		e.log.Debug("playback ignored action", "state", from, "action", a)
		return
	}
	e.epoch++
	e.stopTimerLocked()
	e.state = to
	e.mu.Unlock()

	// A preempted utterance completes synchronously from Stop; its callback
	// carries the old epoch and is dropped.
	if e.speaker != nil {
		e.speaker.Stop()
	}

	e.log.Debug("playback transition", "from", from, "action", a, "to", to)
	e.enter(to, a)

	if e.opts.OnChange != nil {
		e.opts.OnChange(e.Snapshot())
	}
}

// enter runs the entry side effects of state, reached through a.
func (e *Engine) enter(state State, a Action) {
	switch state {
	case Idle:
		switch a {
		case Flip:
			e.mu.Lock()
			e.flipped = !e.flipped
			flipped := e.flipped
			e.mu.Unlock()
			if item, ok := e.cursor.Current(); ok {
				e.say(visibleFace(item, flipped))
			}
		case Dismiss:
			if e.opts.OnDismiss != nil {
				e.opts.OnDismiss()
			}
		}

	case SpeakingFront:
		switch a {
		case Next:
			e.move(session.Next)
		case Previous:
			e.move(session.Previous)
		}
		e.mu.Lock()
		e.flipped = false
		e.mu.Unlock()

		item, ok := e.cursor.Current()
		if !ok {
			e.log.Info("playback has no card to play")
			e.setState(Idle)
			return
		}
		e.speak(item.Front)

	case WaitingToFlip:
		e.schedule(e.opts.FlipDelay, TimerElapsed)

	case Flipping:
		e.mu.Lock()
		e.flipped = !e.flipped
		e.mu.Unlock()
		e.schedule(e.opts.FlipAnimation, FlipAnimationFinished)

	case SpeakingBack:
		item, ok := e.cursor.Current()
		if !ok {
			e.setState(Idle)
			return
		}
		e.speak(item.Back)

	case WaitingToAdvance:
		e.schedule(e.opts.AdvanceDelay, TimerElapsed)

	case AdvancingCard:
		e.move(session.Next)
		e.post(e.currentEpoch(), CardLoaded)
	}
}

// speak reads text and issues SpeechFinished when done. Blank text and a
// missing speaker still complete, so playback never stalls.
func (e *Engine) speak(text string) {
	epoch := e.currentEpoch()
	switch {
	case strings.TrimSpace(text) == "":
		e.schedule(e.opts.EmptyFaceDelay, SpeechFinished)
	case e.speaker == nil:
		e.post(epoch, SpeechFinished)
	default:
		e.speaker.Speak(text, func() { e.post(epoch, SpeechFinished) })
	}
}

// say reads text without driving any transition.
func (e *Engine) say(text string) {
	if e.speaker == nil || strings.TrimSpace(text) == "" {
		return
	}
	e.speaker.Speak(text, func() {})
}

func (e *Engine) schedule(d time.Duration, a Action) {
	e.mu.Lock()
	defer e.mu.Unlock()
	epoch := e.epoch
	e.timer = e.clock.AfterFunc(d, func() { e.post(epoch, a) })
}

func (e *Engine) move(dir session.Direction) {
	if err := e.cursor.Move(e.ctx, dir); err != nil {
		e.log.Warn("playback could not save session position", "direction", dir, "error", err)
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) currentEpoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func visibleFace(item domain.Item, flipped bool) string {
	if flipped {
		return item.Back
	}
	return item.Front
}
