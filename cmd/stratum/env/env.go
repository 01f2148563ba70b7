package env

import (
	"os"

	"github.com/co2meal/stratum/pkg/dataset/split"
	yaml "gopkg.in/yaml.v3"
)

// Env carries per-project defaults for splitting, read from a
// "stratumenv" yaml file:
//
//	val: 0.1
//	test: 0.2
//	seed: 42
type Env struct {
	Val  *float64 `yaml:"val"`
	Test *float64 `yaml:"test"`
	Seed *int64   `yaml:"seed"`
}

func New() *Env {
	return new(Env)
}

// Fractions returns the configured fractions, falling back to
// val=0.1, test=0.2 where unset.
func (e *Env) Fractions() split.Fractions {
	f := split.Fractions{Val: 0.1, Test: 0.2}
	if e.Val != nil {
		f.Val = *e.Val
	}
	if e.Test != nil {
		f.Test = *e.Test
	}
	return f
}

func (e *Env) SplitSeed() int64 {
	if e.Seed == nil {
		return 0
	}
	return *e.Seed
}

// LoadEnv reads the Env at filepath. A missing file yields the empty
// Env without error.
func LoadEnv(filepath string) (*Env, error) {
	env := Env{}

	content, err := os.ReadFile(filepath)
	if err != nil {
		return &env, nil
	}

	if err := yaml.Unmarshal(content, &env); err != nil {
		return nil, err
	}

	return &env, nil
}
