package speech

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/conorfennell/studyloop/internal/clock"
)

// Console "speaks" by printing text and completing after an estimated
// reading time.
type Console struct {
	w       io.Writer
	clock   clock.Clock
	perRune time.Duration
	min     time.Duration

	slot slot
}

// NewConsole creates a Console writing to w. Reading time is perRune for each
// rune of text, at least min.
func NewConsole(w io.Writer, clk clock.Clock, perRune, min time.Duration) *Console {
	return &Console{w: w, clock: clock.Or(clk), perRune: perRune, min: min}
}

// Duration returns the reading time for text.
func (c *Console) Duration(text string) time.Duration {
	d := time.Duration(utf8.RuneCountInString(text)) * c.perRune
	if d < c.min {
		d = c.min
	}
	return d
}

func (c *Console) Speak(text string, onComplete func()) {
	u := &utterance{onComplete: onComplete}
	preempt(c.slot.swap(u))

	fmt.Fprintln(c.w, text)

	t := c.clock.AfterFunc(c.Duration(text), func() {
		c.slot.release(u)
		u.finish()
	})
	u.setCancel(func() { t.Stop() })
}

func (c *Console) Stop() {
	preempt(c.slot.swap(nil))
}
