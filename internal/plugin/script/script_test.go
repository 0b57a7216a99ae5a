package script

import (
	"context"
	"testing"

	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/port"
	"github.com/rakunlabs/purple/internal/engine/value"
)

func TestScriptAddsTwoInputs(t *testing.T) {
	desc, err := New(Options{
		Name: "script-add",
		Inputs: []plugin.InputSpec{
			{Name: "a", Type: value.KindReal64},
			{Name: "b", Type: value.KindReal64},
		},
		Output: value.KindReal64,
		Code:   "return a + b;",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, b, out := &port.Port{}, &port.Port{}, &port.Port{}
	a.Set(value.Real64(2))
	b.Set(value.Real64(3))

	st := desc.State.New()
	status, err := desc.Compute(context.Background(), []*port.Port{a, b}, out, st)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if status != plugin.StatusDone {
		t.Fatalf("status = %v, want Done", status)
	}
	if got := out.Get(value.KindReal64).Real64(); got != 5 {
		t.Fatalf("output = %v, want 5", got)
	}
}

func TestScriptStatePersistsAcrossAgainCalls(t *testing.T) {
	desc, err := New(Options{
		Name:   "script-countdown",
		Output: value.KindBool,
		Code: `
			if (typeof counter === 'undefined') { counter = 0; }
			counter++;
			if (counter < 3) { return {status: 'again'}; }
			return {status: 'done', value: true};
		`,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := &port.Port{}
	st := desc.State.New()

	for i := 0; i < 2; i++ {
		status, err := desc.Compute(context.Background(), nil, out, st)
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if status != plugin.StatusAgain {
			t.Fatalf("call %d: status = %v, want Again", i, status)
		}
	}

	status, err := desc.Compute(context.Background(), nil, out, st)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if status != plugin.StatusDone {
		t.Fatalf("status = %v, want Done", status)
	}
	if !out.Get(value.KindBool).Bool() {
		t.Fatal("expected output true")
	}
}

func TestScriptFailureStatusReturnsError(t *testing.T) {
	desc, err := New(Options{
		Name:   "script-fail",
		Output: value.KindBool,
		Code:   `return {status: 'failure', error: 'boom'};`,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	out := &port.Port{}
	status, err := desc.Compute(context.Background(), nil, out, desc.State.New())
	if status != plugin.StatusFailure {
		t.Fatalf("status = %v, want Failure", status)
	}
	if err == nil {
		t.Fatal("expected a non-nil error on failure")
	}
}

func TestScriptRejectsEmptyCode(t *testing.T) {
	if _, err := New(Options{Name: "empty"}); err == nil {
		t.Fatal("expected New to reject an empty code body")
	}
}
