package playback

// State is a playback engine state.
type State int

const (
	Idle State = iota
	SpeakingFront
	WaitingToFlip
	Flipping
	SpeakingBack
	WaitingToAdvance
	AdvancingCard
)

var stateNames = [...]string{
	Idle:             "idle",
	SpeakingFront:    "speaking-front",
	WaitingToFlip:    "waiting-to-flip",
	Flipping:         "flipping",
	SpeakingBack:     "speaking-back",
	WaitingToAdvance: "waiting-to-advance",
	AdvancingCard:    "advancing-card",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Action is an input to the engine. Start through Dismiss come from the
// user; the rest are issued by the engine's own timers and speech callbacks.
type Action int

const (
	Start Action = iota
	Pause
	Resume
	Next
	Previous
	Flip
	Dismiss

	SpeechFinished
	TimerElapsed
	FlipAnimationFinished
	CardLoaded
)

var actionNames = [...]string{
	Start:                 "start",
	Pause:                 "pause",
	Resume:                "resume",
	Next:                  "next",
	Previous:              "previous",
	Flip:                  "flip",
	Dismiss:               "dismiss",
	SpeechFinished:        "speech-finished",
	TimerElapsed:          "timer-elapsed",
	FlipAnimationFinished: "flip-animation-finished",
	CardLoaded:            "card-loaded",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// IsInternal reports whether a is issued by the engine itself.
func (a Action) IsInternal() bool { return a >= SpeechFinished }

// transition returns the state a leads to from s. ok is false when the pair
// has no transition, in which case the action is ignored.
func transition(s State, a Action) (next State, ok bool) {
	switch a {
	case Pause, Dismiss, Flip:
		return Idle, true
	case Start, Resume, Next, Previous:
		return SpeakingFront, true
	case SpeechFinished:
		switch s {
		case SpeakingFront:
			return WaitingToFlip, true
		case SpeakingBack:
			return WaitingToAdvance, true
		}
	case TimerElapsed:
		switch s {
		case WaitingToFlip:
			return Flipping, true
		case WaitingToAdvance:
			return AdvancingCard, true
		}
	case FlipAnimationFinished:
		if s == Flipping {
			return SpeakingBack, true
		}
	case CardLoaded:
		if s == AdvancingCard {
			return SpeakingFront, true
		}
	}
	return s, false
}
