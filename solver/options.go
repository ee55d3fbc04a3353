package solver

import (
	"fmt"

	"github.com/osmosyslabs/osmosys/logger"
	"github.com/rs/zerolog"
)

// Option defines option for altering the behavior of the Solve call. See
// the descriptions of functions returning instances of this type for
// implemented options.
type Option func(*Config) error

// Config is the configuration for the solver with the options applied.
type Config struct {
	Tolerance     float64        // convergence threshold on the scaled residual infinity norm
	MaxIterations int            // iteration budget
	MinStep       float64        // smallest accepted line-search step before declaring divergence
	Logger        zerolog.Logger // defaults to the osmosys logger
}

// WithTolerance sets the convergence threshold on the scaled residual
// infinity norm. Each residual is measured relative to its initial
// magnitude, with the normalization capped at 1e6. Defaults to 1e-9.
func WithTolerance(tol float64) Option {
	return func(opt *Config) error {
		if tol <= 0 {
			return fmt.Errorf("invalid tolerance: %v", tol)
		}
		opt.Tolerance = tol
		return nil
	}
}

// WithMaxIterations sets the Newton iteration budget. Defaults to 50.
func WithMaxIterations(n int) Option {
	return func(opt *Config) error {
		if n <= 0 {
			return fmt.Errorf("invalid iteration budget: %d", n)
		}
		opt.MaxIterations = n
		return nil
	}
}

// WithMinStep sets the smallest line-search step the solver will attempt
// before reporting divergence. Defaults to 1e-4.
func WithMinStep(step float64) Option {
	return func(opt *Config) error {
		if step <= 0 || step >= 1 {
			return fmt.Errorf("invalid minimum step: %v", step)
		}
		opt.MinStep = step
		return nil
	}
}

// WithLogger specifies a zerolog.Logger as destination for per-iteration
// logs. By default, uses the osmosys logger. zerolog.Nop() disables logging.
func WithLogger(l zerolog.Logger) Option {
	return func(opt *Config) error {
		opt.Logger = l
		return nil
	}
}

// NewConfig returns a default Config with the given options applied.
func NewConfig(opts ...Option) (Config, error) {
	opt := Config{
		Tolerance:     1e-9,
		MaxIterations: 50,
		MinStep:       1e-4,
		Logger:        logger.For("solver"),
	}
	for _, option := range opts {
		if err := option(&opt); err != nil {
			return Config{}, err
		}
	}
	return opt, nil
}
