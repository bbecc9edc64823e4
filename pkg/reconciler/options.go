package reconciler

import (
	"github.com/agentstation/twinmap/pkg/differ"
	"github.com/agentstation/twinmap/pkg/errors"
)

// options configures a reconciler.
type options struct {
	keyFunc func(string) string
	differ  differ.Differ
}

func defaultOptions() *options {
	return &options{differ: diffOrNil(true)}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithKeyFunc recomputes every key from the partner name with fn instead of
// trusting the key set by the normalizer.
func WithKeyFunc(fn func(string) string) Option {
	return func(o *options) error {
		if fn == nil {
			return &errors.ValidationError{
				Field:   "key_func",
				Message: "cannot be nil",
			}
		}
		o.keyFunc = fn
		return nil
	}
}

// WithFieldDiff enables or disables field comparison of matched pairs.
func WithFieldDiff(enabled bool) Option {
	return func(o *options) error {
		o.differ = diffOrNil(enabled)
		return nil
	}
}

// WithDiffer sets the differ used for matched pairs.
func WithDiffer(d differ.Differ) Option {
	return func(o *options) error {
		if d == nil {
			return &errors.ValidationError{
				Field:   "differ",
				Message: "cannot be nil, use WithFieldDiff(false) to disable",
			}
		}
		o.differ = d
		return nil
	}
}
