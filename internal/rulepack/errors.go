package rulepack

import (
	"github.com/cockroachdb/errors"
)

// ErrConfiguration marks every defect found in a rule pack. Callers test for
// it with errors.Is; no rows are evaluated once it has been returned.
var ErrConfiguration = errors.New("invalid rule pack")

// configErrorf builds a configuration error marked with ErrConfiguration.
func configErrorf(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// configHintf is configErrorf with a user-facing hint attached.
func configHintf(hint, format string, args ...any) error {
	return errors.WithHint(configErrorf(format, args...), hint)
}

// wrapConfig marks an underlying decode error as a configuration error.
func wrapConfig(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrConfiguration)
}

// IsConfigurationError reports whether err came from rule pack validation.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
