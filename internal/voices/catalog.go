package voices

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Policy selects how voices are registered with the engine
type Policy int

const (
	// ExclusiveSingle keeps at most one voice registered, swapping on lookup.
	ExclusiveSingle Policy = iota
	// AllRegistered registers every voice when it is added and keeps it registered.
	AllRegistered
)

func (p Policy) String() string {
	switch p {
	case ExclusiveSingle:
		return "single"
	case AllRegistered:
		return "all"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy maps a configuration value to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "exclusive", "exclusive_single":
		return ExclusiveSingle, nil
	case "all", "all_registered":
		return AllRegistered, nil
	}
	return 0, fmt.Errorf("unknown registration mode %q (want \"single\" or \"all\")", s)
}

var (
	// ErrVoiceNotFound is returned by HandleFor when no voice has the locale.
	ErrVoiceNotFound = errors.New("voice not found")
	// ErrNotRegistered is returned when a matched voice holds no handle
	// because its registration failed under AllRegistered.
	ErrNotRegistered = errors.New("voice is not registered")
	// ErrCatalogClosed is returned by operations on a closed catalog.
	ErrCatalogClosed = errors.New("voice catalog is closed")
)

// Catalog is an ordered set of voices under one registration policy.
//
// Insertion order is lookup priority: when a locale was added twice the
// first voice shadows the second. Under ExclusiveSingle at most one voice
// holds a handle and active points at it.
//
// Every method is a single critical section, callbacks included, so a
// Catalog can be shared between goroutines.
type Catalog struct {
	mu       sync.Mutex
	policy   Policy
	voices   []*Voice
	active   *Voice
	observer Observer
	closed   bool
}

// Option configures a Catalog
type Option func(*Catalog)

// WithObserver attaches an observer notified of registrations and lookups
func WithObserver(o Observer) Option {
	return func(c *Catalog) {
		c.observer = o
	}
}

// NewCatalog creates an empty catalog with a fixed policy
func NewCatalog(policy Policy, opts ...Option) *Catalog {
	c := &Catalog{policy: policy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the registration policy
func (c *Catalog) Policy() Policy {
	return c.policy
}

// Add appends a voice. Under AllRegistered it is registered immediately;
// if that fails the voice stays in the catalog, unregistered, and the
// error is returned.
func (c *Catalog) Add(locale Locale, location string, register RegisterFunc, unregister UnregisterFunc) error {
	if register == nil || unregister == nil {
		return ErrNilCallback
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCatalogClosed
	}

	v := NewVoice(locale, location, register, unregister)
	c.voices = append(c.voices, v)

	if c.policy == AllRegistered {
		if _, err := c.registerLocked(v); err != nil {
			return err
		}
	}
	return nil
}

// IsLocaleAvailable reports whether any voice has exactly this locale.
// It has no side effects.
func (c *Catalog) IsLocaleAvailable(locale Locale) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.findLocked(locale) != nil
}

// HandleFor returns the engine handle for the first voice with the locale,
// applying the registration policy.
//
// Under ExclusiveSingle a different voice than the active one is swapped
// in: the active voice is unregistered before the requested one is
// registered. If registration fails no voice is left active. A miss also
// unregisters the active voice, so the next hit registers afresh.
func (c *Catalog) HandleFor(locale Locale) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrCatalogClosed
	}

	v := c.findLocked(locale)
	if v == nil {
		c.notify(Event{Kind: EventLookupMiss, Locale: locale})
		if c.policy == ExclusiveSingle {
			c.deactivateLocked()
		}
		return nil, fmt.Errorf("%s: %w", locale, ErrVoiceNotFound)
	}

	c.notify(Event{Kind: EventLookupHit, Locale: locale})

	if c.policy == AllRegistered {
		if !v.Registered() {
			return nil, fmt.Errorf("%s: %w", locale, ErrNotRegistered)
		}
		return v.Handle(), nil
	}

	// identity, not locale equality: a shadowed duplicate is never active
	if v == c.active {
		return v.Handle(), nil
	}

	c.deactivateLocked()
	h, err := c.registerLocked(v)
	if err != nil {
		return nil, err
	}
	c.active = v
	return h, nil
}

// Remove drops the first voice with the locale, unregistering it first.
// It reports whether a voice was removed.
func (c *Catalog) Remove(locale Locale) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, v := range c.voices {
		if v.locale != locale {
			continue
		}
		if v == c.active {
			c.active = nil
		}
		c.unregisterLocked(v)
		c.voices = append(c.voices[:i], c.voices[i+1:]...)
		return true
	}
	return false
}

// Locales returns the locale of every voice in insertion order,
// duplicates included
func (c *Catalog) Locales() []Locale {
	c.mu.Lock()
	defer c.mu.Unlock()

	locales := make([]Locale, 0, len(c.voices))
	for _, v := range c.voices {
		locales = append(locales, v.locale)
	}
	return locales
}

// Len returns the number of voices
func (c *Catalog) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.voices)
}

// Registered returns how many voices currently hold an engine handle
func (c *Catalog) Registered() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, v := range c.voices {
		if v.Registered() {
			n++
		}
	}
	return n
}

// Active returns the locale of the active voice under ExclusiveSingle
func (c *Catalog) Active() (Locale, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return Locale{}, false
	}
	return c.active.locale, true
}

// Close unregisters every registered voice in reverse insertion order and
// releases the voices. Unregister errors are joined. Later calls are no-ops.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.active = nil

	var errs []error
	for i := len(c.voices) - 1; i >= 0; i-- {
		if err := c.unregisterLocked(c.voices[i]); err != nil {
			errs = append(errs, err)
		}
	}
	c.voices = nil
	return errors.Join(errs...)
}

func (c *Catalog) findLocked(locale Locale) *Voice {
	for _, v := range c.voices {
		if v.MatchesLocale(locale.Language, locale.Country, locale.Variant) {
			return v
		}
	}
	return nil
}

// deactivateLocked unregisters the active voice, if any, and forgets it
func (c *Catalog) deactivateLocked() {
	if c.active == nil {
		return
	}
	prev := c.active
	c.active = nil
	c.unregisterLocked(prev)
}

func (c *Catalog) registerLocked(v *Voice) (Handle, error) {
	start := time.Now()
	h, err := v.Register()
	latency := time.Since(start)
	if err != nil {
		c.notify(Event{Kind: EventRegisterFailed, Locale: v.locale, Err: err, Latency: latency})
		return nil, err
	}
	c.notify(Event{Kind: EventRegistered, Locale: v.locale, Latency: latency})
	return h, nil
}

func (c *Catalog) unregisterLocked(v *Voice) error {
	if !v.Registered() {
		return nil
	}
	err := v.Unregister()
	c.notify(Event{Kind: EventUnregistered, Locale: v.locale, Err: err})
	return err
}

func (c *Catalog) notify(e Event) {
	if c.observer != nil {
		c.observer.Observe(e)
	}
}
