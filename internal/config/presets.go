package config

import "sort"

type Preset struct {
	Description string
	apply       func(*Config)
}

var Presets = map[string]Preset{
	"polishing": {
		Description: "defaults of the polishing demo: 20° device range shown as 85°",
		apply:       func(*Config) {},
	},
	"fine": {
		Description: "precision work: small virtual range, soft feedback, slow drift",
		apply: func(c *Config) {
			c.Params.ThetaE = 45
			c.Params.LinGain = 0.1
			c.Params.AngGain = 0.02
			c.Params.Kd = 0.05
		},
	},
	"wide": {
		Description: "large reorientations: 170° virtual range, fast drift",
		apply: func(c *Config) {
			c.Params.ThetaE = 170
			c.Params.Kd = 0.2
			c.Params.Kv = 0.15
		},
	},
	"stiff": {
		Description: "rigid coupling between avatar and tool",
		apply: func(c *Config) {
			c.Params.LinStiffness = 2000
			c.Params.AngStiffness = 60
			c.Params.LinGain = 0.3
			c.Params.AngGain = 0.05
		},
	},
}

// GetPreset returns a fresh config for the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.apply(cfg)
	return cfg
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
