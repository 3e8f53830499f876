package actuator

import "sync"

// Call records one Sink call.
type Call struct {
	Method string // "BeginAlert", "EndAlert" or "Show"
	Text   string
}

// FakeSink records calls for test assertions. Safe for concurrent use.
type FakeSink struct {
	mu    sync.Mutex
	calls []Call

	// Err, if set, is returned by every call (the call is still recorded).
	Err error
}

// NewFakeSink creates a FakeSink.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// BeginAlert records the call.
func (f *FakeSink) BeginAlert() error {
	return f.record(Call{Method: "BeginAlert"})
}

// EndAlert records the call.
func (f *FakeSink) EndAlert() error {
	return f.record(Call{Method: "EndAlert"})
}

// Show records the call.
func (f *FakeSink) Show(text string) error {
	return f.record(Call{Method: "Show", Text: text})
}

func (f *FakeSink) record(c Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.Err
}

// SetErr changes the scripted error.
func (f *FakeSink) SetErr(err error) {
	f.mu.Lock()
	f.Err = err
	f.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (f *FakeSink) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Count returns how many times method was called.
func (f *FakeSink) Count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Texts returns the Show texts in call order.
func (f *FakeSink) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Method == "Show" {
			out = append(out, c.Text)
		}
	}
	return out
}

// Reset clears recorded calls.
func (f *FakeSink) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.Err = nil
	f.mu.Unlock()
}
