package layout

import "errors"

var (
	// ErrDayOutOfRange is returned when a day outside the host's sections is queried.
	ErrDayOutOfRange = errors.New("layout: day out of range")
	// ErrInvalidWindow is returned when the visible window does not fit the host's sections.
	ErrInvalidWindow = errors.New("layout: invalid visible window")
	// ErrNoLayout is returned by accessors called before a successful pass.
	ErrNoLayout = errors.New("layout: no layout pass has completed")
	// ErrInvalidConfig is returned for unusable geometry settings.
	ErrInvalidConfig = errors.New("layout: invalid config")
)
