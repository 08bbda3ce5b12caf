package goheap

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Opts configures abstraction (canonicalization) and the soundness predicate it installs.
type Opts struct {

	// MinAbstractionDistance is the least number of selector steps a variable's node must be from any
	// node an abstraction would absorb or summarize.  Zero disables the check.
	MinAbstractionDistance int32 `yaml:"min_abstraction_distance"`

	// AggressiveNullAbstraction exempts the variables named in Constants from MinAbstractionDistance.
	AggressiveNullAbstraction bool `yaml:"aggressive_null_abstraction"`

	// Constants names the variables that model constants (null, true, ...) rather than program variables.
	Constants []string `yaml:"constants"`

	// Confluent follows only the first fold found at each step, yielding a single canonical result.
	// When false, every fold order is explored and all distinct fixed points are returned.
	Confluent bool `yaml:"confluent"`
}

// DefaultOpts returns the options used when no config file is given.
func DefaultOpts() Opts {
	return Opts{
		MinAbstractionDistance: 0,
		Constants:              []string{"null", "true", "false", "0", "1"},
		Confluent:              true,
	}
}

// IsConstant reports whether the named variable is exempt from the distance requirement.
func (opts *Opts) IsConstant(varName string) bool {
	if !opts.AggressiveNullAbstraction {
		return false
	}
	for _, c := range opts.Constants {
		if c == varName {
			return true
		}
	}
	return false
}

// LoadOpts reads a YAML file and overlays it onto DefaultOpts().
func LoadOpts(pathname string) (Opts, error) {
	opts := DefaultOpts()

	buf, err := os.ReadFile(pathname)
	if err != nil {
		return opts, errors.Wrapf(err, "reading opts %q", pathname)
	}

	if err = yaml.Unmarshal(buf, &opts); err != nil {
		return opts, errors.Wrapf(err, "parsing opts %q", pathname)
	}
	if opts.MinAbstractionDistance < 0 {
		return opts, errors.New("min_abstraction_distance must be >= 0")
	}

	return opts, nil
}
