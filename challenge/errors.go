package challenge

import "errors"

// Challenge lifecycle failures. All are recoverable: the caller issues a new
// challenge. Content mismatches are not errors; they produce a rejected
// Result.
var (
	ErrNotFound    = errors.New("challenge: not found")
	ErrExpired     = errors.New("challenge: expired")
	ErrAlreadyUsed = errors.New("challenge: already used")
)

func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsExpired(err error) bool     { return errors.Is(err, ErrExpired) }
func IsAlreadyUsed(err error) bool { return errors.Is(err, ErrAlreadyUsed) }
