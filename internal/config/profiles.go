package config

import "strings"

// Profile is a named starting point for M/efConstruction/efSearch/alpha,
// tuned for a particular dataset shape. Applying a profile is a hint, not
// a contract (SPEC_FULL §"Domain Stack", dataset auto-tune): any value the
// config file, environment, or CLI flags also set overrides the profile.
type Profile struct {
	M              int
	EfConstruction int
	EfSearch       int
	Alpha          float64
}

// profiles mirrors the two dataset shapes original_source's grid-search
// harnesses were built around: 128-dimensional SIFT descriptors and
// 100-dimensional GloVe word vectors, each with parameters that performed
// well in those sweeps.
var profiles = map[string]Profile{
	"sift-128": {M: 16, EfConstruction: 100, EfSearch: 200, Alpha: 1.0},
	"glove-100": {M: 24, EfConstruction: 150, EfSearch: 250, Alpha: 1.1},
}

func lookupProfile(name string) (Profile, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Profile{}, false
	}
	p, ok := profiles[name]
	return p, ok
}

// ProfileNames returns the known profile names, sorted for stable CLI
// help output.
func ProfileNames() []string {
	return []string{"glove-100", "sift-128"}
}
