package voices

import (
	"errors"
	"fmt"
)

// Handle is the opaque engine-side reference produced by registering a voice.
// A nil Handle means the voice is not registered.
type Handle any

// RegisterFunc loads a voice from its resource location and returns the
// engine handle for it.
type RegisterFunc func(location string) (Handle, error)

// UnregisterFunc releases a handle previously returned by a RegisterFunc.
type UnregisterFunc func(h Handle) error

var (
	// ErrRegistrationFailed is returned when a register callback yields no handle.
	ErrRegistrationFailed = errors.New("voice registration failed")
	// ErrNilCallback is returned when a voice is built without its callbacks.
	ErrNilCallback = errors.New("register and unregister callbacks are required")
)

// Voice is one catalog entry: a locale, where its resources live, the
// callback pair that loads and releases them, and the handle while loaded.
//
// handle is non-nil exactly while the voice is registered with the engine.
type Voice struct {
	locale     Locale
	location   string
	register   RegisterFunc
	unregister UnregisterFunc
	handle     Handle
}

// NewVoice creates an unregistered voice
func NewVoice(locale Locale, location string, register RegisterFunc, unregister UnregisterFunc) *Voice {
	return &Voice{
		locale:     locale,
		location:   location,
		register:   register,
		unregister: unregister,
	}
}

// Locale returns the voice locale
func (v *Voice) Locale() Locale {
	return v.locale
}

// Location returns the resource location passed to the register callback
func (v *Voice) Location() string {
	return v.location
}

// Handle returns the current engine handle, nil when unregistered
func (v *Voice) Handle() Handle {
	return v.handle
}

// Registered reports whether the voice currently holds an engine handle
func (v *Voice) Registered() bool {
	return v.handle != nil
}

// MatchesLocale reports whether the voice has exactly this locale
func (v *Voice) MatchesLocale(language, country, variant string) bool {
	return v.locale.Matches(language, country, variant)
}

// Register invokes the register callback and stores its result.
// A handle already held is overwritten without being released; the catalog
// only calls Register on unregistered voices.
func (v *Voice) Register() (Handle, error) {
	h, err := v.register(v.location)
	if err == nil && h == nil {
		err = ErrRegistrationFailed
	}
	if err != nil {
		v.handle = nil
		return nil, fmt.Errorf("register voice %s from %q: %w", v.locale, v.location, err)
	}

	v.handle = h
	return h, nil
}

// Unregister releases the handle if one is held. The handle is cleared
// even when the callback fails, so it is never released twice.
func (v *Voice) Unregister() error {
	if v.handle == nil {
		return nil
	}

	h := v.handle
	v.handle = nil
	if err := v.unregister(h); err != nil {
		return fmt.Errorf("unregister voice %s: %w", v.locale, err)
	}
	return nil
}

// Close unregisters the voice. Safe to call more than once.
func (v *Voice) Close() error {
	return v.Unregister()
}
