package prove

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gnoswap-labs/kprove/internal/decide"
	"github.com/gnoswap-labs/kprove/internal/executor"
	"github.com/gnoswap-labs/kprove/internal/simplifier"
)

const (
	// DefaultMaxDepth is the depth bound used when none is configured.
	DefaultMaxDepth = 1000
	// Unbounded disables the depth bound.
	Unbounded = executor.Unbounded
)

// Config controls a Prover.
type Config struct {
	// MaxDepth bounds the rewrite steps along a branch. -1 disables the bound.
	MaxDepth int `yaml:"max-depth" validate:"gte=-1"`
	// Workers bounds the states expanded in parallel. 0 uses every CPU.
	Workers int `yaml:"workers" validate:"gte=0"`
	// MaxSimplifications bounds lemma and builtin applications per
	// simplifier call.
	MaxSimplifications int `yaml:"max-simplifications" validate:"gte=1"`
	// DecisionTimeout bounds every call to the decision procedure.
	DecisionTimeout time.Duration `yaml:"decision-timeout" validate:"gt=0"`
	// UseDecider enables the SAT back end. Without it only syntactic
	// reasoning discharges conditions.
	UseDecider bool `yaml:"use-decider"`
}

// DefaultConfig returns the configuration used by Prove.
func DefaultConfig() Config {
	return Config{
		MaxDepth:           DefaultMaxDepth,
		Workers:            0,
		MaxSimplifications: simplifier.DefaultMaxApplications,
		DecisionTimeout:    decide.DefaultTimeout,
		UseDecider:         true,
	}
}

var validate = validator.New()

// Validate checks the configuration's field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid prover configuration: %w", err)
	}
	return nil
}

func (c Config) depth() int {
	if c.MaxDepth < 0 {
		return Unbounded
	}
	return c.MaxDepth
}

func (c Config) decider() decide.Decider {
	if !c.UseDecider {
		return decide.None{}
	}
	return decide.NewGini(c.DecisionTimeout)
}
