package modem

import "errors"

var (
	// ErrInvalidArgument is returned when a caller supplied value does not
	// fit the waveform, e.g. a payload of the wrong length.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrResourceInit is returned when the working storage of an encoder
	// or decoder could not be set up.
	ErrResourceInit = errors.New("resource initialization failed")
)
