package topictree

import (
	"errors"
	"fmt"
)

// Fatal error kinds. Callers match them with errors.Is.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrStratification = errors.New("stratification error")
)

var (
	ErrOutOfRange          = fmt.Errorf("%w: sample size out of range", ErrConfiguration)
	ErrEmptyRange          = fmt.Errorf("%w: empty k range", ErrConfiguration)
	ErrTooFewPoints        = fmt.Errorf("%w: fewer points than clusters", ErrConfiguration)
	ErrInsufficientSamples = fmt.Errorf("%w: too few samples to stratify", ErrStratification)
)
