package actuator

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFakeSinkRecords(t *testing.T) {
	f := NewFakeSink()
	f.Show("Monitoring...")
	f.BeginAlert()
	f.EndAlert()

	calls := f.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}
	if calls[0].Method != "Show" || calls[0].Text != "Monitoring..." {
		t.Errorf("call 0: got %+v", calls[0])
	}
	if f.Count("BeginAlert") != 1 {
		t.Errorf("expected 1 BeginAlert, got %d", f.Count("BeginAlert"))
	}

	f.Reset()
	if len(f.Calls()) != 0 {
		t.Error("expected no calls after reset")
	}
}

func TestFakeSinkError(t *testing.T) {
	f := NewFakeSink()
	f.SetErr(ErrFault)

	if err := f.BeginAlert(); !errors.Is(err, ErrFault) {
		t.Errorf("expected ErrFault, got %v", err)
	}
	if f.Count("BeginAlert") != 1 {
		t.Error("failed call should still be recorded")
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := NewFakeSink(), NewFakeSink()
	m := Multi{a, b}

	assert.NoError(t, m.BeginAlert())
	assert.NoError(t, m.Show("Buzzing now!"))
	assert.NoError(t, m.EndAlert())

	for _, s := range []*FakeSink{a, b} {
		assert.Equal(t, 1, s.Count("BeginAlert"))
		assert.Equal(t, 1, s.Count("EndAlert"))
		assert.Equal(t, []string{"Buzzing now!"}, s.Texts())
	}
}

func TestMultiContinuesPastFailure(t *testing.T) {
	bad, good := NewFakeSink(), NewFakeSink()
	bad.SetErr(errors.New("i2c write failed"))

	err := Multi{bad, good}.BeginAlert()
	assert.ErrorIs(t, err, ErrFault)
	assert.Equal(t, 1, good.Count("BeginAlert"), "later sinks still run")
}

func TestMultiKeepsFaultKind(t *testing.T) {
	bad := NewFakeSink()
	bad.SetErr(ErrFault)
	err := Multi{bad}.EndAlert()
	assert.ErrorIs(t, err, ErrFault)
}

func TestEmptyMulti(t *testing.T) {
	assert.NoError(t, Multi{}.BeginAlert())
}

func TestDisplayLogsChangesOnly(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	d := NewDisplay(zap.New(core))

	d.Show("Monitoring...")
	d.Show("Monitoring...")
	d.BeginAlert()
	d.BeginAlert()
	d.EndAlert()
	d.EndAlert()
	d.Show("Buzzing now!")

	var got []string
	for _, e := range logs.All() {
		got = append(got, e.Message)
	}
	assert.Equal(t, []string{"display", "alert started", "alert ended", "display"}, got)
	assert.Equal(t, "Buzzing now!", logs.FilterMessage("display").All()[1].ContextMap()["text"])
}

func TestDisplayConcurrentAccess(t *testing.T) {
	d := NewDisplay(zap.NewNop())
	var wg sync.WaitGroup

	wg.Add(2)
	for g := 0; g < 2; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				d.Show("Countdown")
				d.BeginAlert()
				d.EndAlert()
			}
		}()
	}
	wg.Wait()
}
