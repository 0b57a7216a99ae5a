// Package script builds a plug-in descriptor whose compute step runs
// JavaScript through goja, standing in for the on-disk dynamically
// loaded plug-in libraries spec.md §4.2 otherwise leaves unspecified.
// The runtime setup (global helper functions, input binding) is
// grounded on internal/service/workflow's SetupGojaVM/scriptNode
// pattern, trimmed to what a compute-bound engine plug-in needs: no
// HTTP helpers, since compute must never block the engine loop
// (spec.md §5).
package script

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/port"
	"github.com/rakunlabs/purple/internal/engine/value"
)

// Options configures a scripted plug-in descriptor.
type Options struct {
	Name   string
	Inputs []plugin.InputSpec
	Output value.Kind
	Code   string
}

// state is the instance's persisted blob: a single goja.Runtime kept
// alive across AGAIN calls so global variables the script assigns
// (outside any var/let/const in its body) behave like the plug-in's
// private state
// (spec.md §4.3: "its state blob is preserved across calls").
type state struct {
	vm *goja.Runtime
}

// result is the shape a script may return instead of a bare value, to
// drive AGAIN / INPUT_MISSING / FAILURE explicitly. A bare returned
// value is equivalent to {status: "done", value: <it>}.
type result struct {
	Status string `json:"status"`
	Value  any    `json:"value"`
	Error  string `json:"error"`
}

// New builds a registrable plug-in descriptor that evaluates opts.Code
// on every compute call. The code is wrapped in an IIFE so a bare
// `return` produces the compute result, matching scriptNode's
// convention in the workflow engine this is grounded on.
func New(opts Options) (*plugin.Descriptor, error) {
	if opts.Code == "" {
		return nil, fmt.Errorf("script: %q: code is required", opts.Name)
	}
	program, err := goja.Compile(opts.Name, "(function(){"+opts.Code+"})()", false)
	if err != nil {
		return nil, fmt.Errorf("script: %q: compile: %w", opts.Name, err)
	}

	builder := plugin.NewBuilder(opts.Name)
	for _, spec := range opts.Inputs {
		builder = builder.Input(spec)
	}

	return builder.
		State(plugin.StateFactory{
			New: func() any { return &state{vm: newRuntime()} },
		}).
		Compute(func(ctx context.Context, inputs []*port.Port, output *port.Port, raw any) (plugin.Status, error) {
			st, ok := raw.(*state)
			if !ok || st == nil {
				return plugin.StatusFailure, fmt.Errorf("script: %q: missing runtime state", opts.Name)
			}

			for i, spec := range opts.Inputs {
				if i >= len(inputs) || inputs[i] == nil {
					continue
				}
				if err := st.vm.Set(spec.Name, inputs[i].Get(spec.Type).Native()); err != nil {
					return plugin.StatusFailure, fmt.Errorf("script: %q: bind input %q: %w", opts.Name, spec.Name, err)
				}
			}

			val, err := st.vm.RunProgram(program)
			if err != nil {
				return plugin.StatusFailure, fmt.Errorf("script: %q: run: %w", opts.Name, err)
			}

			exported := val.Export()
			r := interpretResult(exported)

			switch r.Status {
			case "again":
				return plugin.StatusAgain, nil
			case "input-missing", "input_missing":
				return plugin.StatusInputMissing, nil
			case "failure":
				if r.Error == "" {
					r.Error = "script reported failure"
				}
				return plugin.StatusFailure, fmt.Errorf("script: %q: %s", opts.Name, r.Error)
			default:
				output.Set(value.FromNative(opts.Output, r.Value))
				return plugin.StatusDone, nil
			}
		}).
		Build()
}

// interpretResult recognizes the {status, value, error} control
// envelope; anything else is treated as a bare done-value.
func interpretResult(exported any) result {
	m, ok := exported.(map[string]any)
	if !ok {
		return result{Status: "done", Value: exported}
	}
	status, _ := m["status"].(string)
	if status == "" {
		return result{Status: "done", Value: exported}
	}
	errMsg, _ := m["error"].(string)
	return result{Status: status, Value: m["value"], Error: errMsg}
}

// newRuntime builds a goja.Runtime with the subset of
// internal/service/workflow's global helpers that make sense for a
// pure compute step: toString, jsonParse, btoa, atob.
func newRuntime() *goja.Runtime {
	vm := goja.New()

	vm.Set("toString", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return vm.ToValue("")
		}
		switch v := call.Arguments[0].Export().(type) {
		case []byte:
			return vm.ToValue(string(v))
		default:
			return vm.ToValue(fmt.Sprintf("%v", v))
		}
	})

	vm.Set("jsonParse", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		var raw []byte
		switch v := call.Arguments[0].Export().(type) {
		case []byte:
			raw = v
		case string:
			raw = []byte(v)
		default:
			panic(vm.NewTypeError("jsonParse: expected string or bytes"))
		}
		var parsed any
		if err := json.Unmarshal(raw, &parsed); err != nil {
			panic(vm.NewTypeError("jsonParse: " + err.Error()))
		}
		return vm.ToValue(parsed)
	})

	vm.Set("btoa", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return vm.ToValue("")
		}
		var raw []byte
		switch v := call.Arguments[0].Export().(type) {
		case []byte:
			raw = v
		case string:
			raw = []byte(v)
		}
		return vm.ToValue(base64.StdEncoding.EncodeToString(raw))
	})

	vm.Set("atob", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return vm.ToValue([]byte{})
		}
		decoded, err := base64.StdEncoding.DecodeString(call.Arguments[0].String())
		if err != nil {
			panic(vm.NewTypeError("atob: " + err.Error()))
		}
		return vm.ToValue(decoded)
	})

	return vm
}
