package domain

import (
	"fmt"
	"strings"
)

// Strategy is the queue-ordering policy of a study session.
type Strategy string

const (
	Linear      Strategy = "linear"
	Shuffled    Strategy = "shuffled"
	Intelligent Strategy = "intelligent"
)

// Strategies lists every strategy in cycling order.
var Strategies = []Strategy{Linear, Shuffled, Intelligent}

func (s Strategy) IsValid() bool {
	switch s {
	case Linear, Shuffled, Intelligent:
		return true
	}
	return false
}

// Next returns the strategy that follows s in Strategies, wrapping around.
func (s Strategy) Next() Strategy {
	for i, st := range Strategies {
		if st == s {
			return Strategies[(i+1)%len(Strategies)]
		}
	}
	return Strategies[0]
}

// ParseStrategy is case-insensitive and also accepts the display aliases
// "sequential" and "random".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "sequential":
		return Linear, nil
	case "shuffled", "random":
		return Shuffled, nil
	case "intelligent":
		return Intelligent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStrategy, s)
}
