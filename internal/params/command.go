package params

import "fmt"

// Command is one discrete operator adjustment.
type Command int

const (
	GravityOn Command = iota
	GravityOff
	LinGainDown
	LinGainUp
	AngGainDown
	AngGainUp
	LinStiffnessDown
	LinStiffnessUp
	AngStiffnessDown
	AngStiffnessUp
)

// Step sizes per command.
const (
	LinGainStep      = 0.05
	AngGainStep      = 0.005
	LinStiffnessStep = 50.0
	AngStiffnessStep = 1.0
)

var commandNames = map[Command]string{
	GravityOn:        "gravity on",
	GravityOff:       "gravity off",
	LinGainDown:      "decrease linear haptic gain",
	LinGainUp:        "increase linear haptic gain",
	AngGainDown:      "decrease angular haptic gain",
	AngGainUp:        "increase angular haptic gain",
	LinStiffnessDown: "decrease linear stiffness",
	LinStiffnessUp:   "increase linear stiffness",
	AngStiffnessDown: "decrease angular stiffness",
	AngStiffnessUp:   "increase angular stiffness",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// keyBindings follows the number-row layout operators already know.
var keyBindings = map[string]Command{
	"1": GravityOn,
	"2": GravityOff,
	"3": LinGainDown,
	"4": LinGainUp,
	"5": AngGainDown,
	"6": AngGainUp,
	"7": LinStiffnessDown,
	"8": LinStiffnessUp,
	"9": AngStiffnessDown,
	"0": AngStiffnessUp,
}

// CommandForKey maps a key to its command.
func CommandForKey(key string) (Command, bool) {
	c, ok := keyBindings[key]
	return c, ok
}

// KeyHelp lists the bindings in key order.
func KeyHelp() []string {
	keys := []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "0"}
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("[%s] %s", k, keyBindings[k]))
	}
	return lines
}

func (c Command) apply(p *Params) {
	switch c {
	case GravityOn:
		p.Gravity = true
	case GravityOff:
		p.Gravity = false
	case LinGainDown:
		p.LinGain = floor0(p.LinGain - LinGainStep)
	case LinGainUp:
		p.LinGain += LinGainStep
	case AngGainDown:
		p.AngGain = floor0(p.AngGain - AngGainStep)
	case AngGainUp:
		p.AngGain += AngGainStep
	case LinStiffnessDown:
		p.LinStiffness = floor0(p.LinStiffness - LinStiffnessStep)
	case LinStiffnessUp:
		p.LinStiffness += LinStiffnessStep
	case AngStiffnessDown:
		p.AngStiffness = floor0(p.AngStiffness - AngStiffnessStep)
	case AngStiffnessUp:
		p.AngStiffness += AngStiffnessStep
	}
}

func floor0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
