package voices

import (
	"errors"
	"fmt"
	"testing"
)

// fakeEngine hands out string handles and records every callback
type fakeEngine struct {
	next  int
	calls []string
	live  map[Handle]string
	fail  map[string]error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		live: make(map[Handle]string),
		fail: make(map[string]error),
	}
}

func (f *fakeEngine) register(location string) (Handle, error) {
	f.calls = append(f.calls, "reg:"+location)
	if err, ok := f.fail[location]; ok {
		return nil, err
	}
	f.next++
	h := fmt.Sprintf("h%d", f.next)
	f.live[h] = location
	return h, nil
}

func (f *fakeEngine) unregister(h Handle) error {
	f.calls = append(f.calls, fmt.Sprintf("unreg:%v", h))
	if _, ok := f.live[h]; !ok {
		return fmt.Errorf("handle %v released twice", h)
	}
	delete(f.live, h)
	return nil
}

func (f *fakeEngine) reset() {
	f.calls = nil
}

func TestVoice_MatchesLocale(t *testing.T) {
	v := NewVoice(NewLocale("en", "US", ""), "/voices/en", nil, nil)

	tests := []struct {
		name                       string
		language, country, variant string
		expected                   bool
	}{
		{"exact", "en", "US", "", true},
		{"different country", "en", "GB", "", false},
		{"different variant", "en", "US", "x", false},
		{"case differs", "EN", "us", "", false},
		{"language only", "en", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.MatchesLocale(tt.language, tt.country, tt.variant); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestVoice_RegisterAndUnregister(t *testing.T) {
	eng := newFakeEngine()
	v := NewVoice(NewLocale("en", "US", ""), "/voices/en", eng.register, eng.unregister)

	if v.Registered() {
		t.Fatal("Expected new voice to be unregistered")
	}

	h, err := v.Register()
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}
	if h != "h1" || v.Handle() != "h1" {
		t.Errorf("Expected handle h1, got %v (stored %v)", h, v.Handle())
	}
	if eng.calls[0] != "reg:/voices/en" {
		t.Errorf("Expected register with resource location, got %s", eng.calls[0])
	}

	if err := v.Unregister(); err != nil {
		t.Fatalf("Unregister() failed: %v", err)
	}
	if v.Registered() {
		t.Error("Expected voice to be unregistered")
	}

	// second call is a no-op
	if err := v.Unregister(); err != nil {
		t.Errorf("Expected idempotent Unregister, got %v", err)
	}
	if len(eng.calls) != 2 {
		t.Errorf("Expected 2 callback calls, got %v", eng.calls)
	}
}

func TestVoice_RegisterFailure(t *testing.T) {
	eng := newFakeEngine()
	loadErr := errors.New("model missing")
	eng.fail["/voices/en"] = loadErr
	v := NewVoice(NewLocale("en", "US", ""), "/voices/en", eng.register, eng.unregister)

	h, err := v.Register()
	if h != nil {
		t.Errorf("Expected nil handle, got %v", h)
	}
	if !errors.Is(err, loadErr) {
		t.Errorf("Expected callback error to be wrapped, got %v", err)
	}
	if v.Registered() {
		t.Error("Expected voice to stay unregistered")
	}
}

func TestVoice_RegisterNilHandle(t *testing.T) {
	v := NewVoice(NewLocale("en", "US", ""), "/voices/en",
		func(string) (Handle, error) { return nil, nil },
		func(Handle) error { return nil },
	)

	_, err := v.Register()
	if !errors.Is(err, ErrRegistrationFailed) {
		t.Errorf("Expected ErrRegistrationFailed, got %v", err)
	}
}

func TestVoice_UnregisterErrorClearsHandle(t *testing.T) {
	calls := 0
	v := NewVoice(NewLocale("en", "US", ""), "/voices/en",
		func(string) (Handle, error) { return 1, nil },
		func(Handle) error {
			calls++
			return errors.New("engine busy")
		},
	)
	if _, err := v.Register(); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if err := v.Close(); err == nil {
		t.Error("Expected unregister error")
	}
	if v.Registered() {
		t.Error("Expected handle to be cleared after failed unregister")
	}
	if err := v.Close(); err != nil {
		t.Errorf("Expected second Close to be a no-op, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected unregister callback once, got %d", calls)
	}
}

func TestParseLocale(t *testing.T) {
	tests := []struct {
		input    string
		expected Locale
		wantErr  bool
	}{
		{"en", Locale{Language: "en"}, false},
		{"en-US", Locale{Language: "en", Country: "US"}, false},
		{"en_US", Locale{Language: "en", Country: "US"}, false},
		{"en-US-scottish", Locale{Language: "en", Country: "US", Variant: "scottish"}, false},
		{"en--x", Locale{Language: "en", Variant: "x"}, false},
		{"", Locale{}, true},
		{"-US", Locale{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLocale(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocale(%q) failed: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestLocale_StringRoundTrip(t *testing.T) {
	for _, l := range []Locale{
		NewLocale("en", "", ""),
		NewLocale("en", "US", ""),
		NewLocale("en", "US", "x"),
		NewLocale("en", "", "x"),
	} {
		got, err := ParseLocale(l.String())
		if err != nil {
			t.Fatalf("ParseLocale(%q) failed: %v", l.String(), err)
		}
		if got != l {
			t.Errorf("Expected %+v after round trip, got %+v", l, got)
		}
	}
}
