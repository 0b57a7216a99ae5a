package fixture

import (
	"context"
	"strings"
	"testing"

	"github.com/rakunlabs/purple/internal/engine/graph"
	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/port"
	"github.com/rakunlabs/purple/internal/engine/value"
)

func testRegistry(t *testing.T) *plugin.Registry {
	t.Helper()
	reg := plugin.NewRegistry()

	passthrough, err := plugin.NewBuilder("const-real64").
		Input(plugin.InputSpec{Name: "value", Type: value.KindReal64, Required: true}).
		Compute(func(ctx context.Context, inputs []*port.Port, output *port.Port, state any) (plugin.Status, error) {
			output.Set(inputs[0].Get(value.KindReal64))
			return plugin.StatusDone, nil
		}).
		Build()
	if err != nil {
		t.Fatalf("build const-real64: %v", err)
	}
	if err := reg.Register(passthrough); err != nil {
		t.Fatalf("register const-real64: %v", err)
	}

	sum, err := plugin.NewBuilder("sum-real64").
		Input(plugin.InputSpec{Name: "a", Type: value.KindReal64, Required: true}).
		Input(plugin.InputSpec{Name: "b", Type: value.KindReal64, Required: true}).
		Compute(func(ctx context.Context, inputs []*port.Port, output *port.Port, state any) (plugin.Status, error) {
			a := inputs[0].Get(value.KindReal64).Real64()
			b := inputs[1].Get(value.KindReal64).Real64()
			output.Set(value.Real64(a + b))
			return plugin.StatusDone, nil
		}).
		Build()
	if err != nil {
		t.Fatalf("build sum-real64: %v", err)
	}
	if err := reg.Register(sum); err != nil {
		t.Fatalf("register sum-real64: %v", err)
	}

	label, err := plugin.NewBuilder("label").
		Input(plugin.InputSpec{Name: "text", Type: value.KindString, Required: true}).
		Compute(func(ctx context.Context, inputs []*port.Port, output *port.Port, state any) (plugin.Status, error) {
			output.Set(inputs[0].Get(value.KindString))
			return plugin.StatusDone, nil
		}).
		Build()
	if err != nil {
		t.Fatalf("build label: %v", err)
	}
	if err := reg.Register(label); err != nil {
		t.Fatalf("register label: %v", err)
	}

	return reg
}

func noopLookup(string, node.Kind) (node.ID, bool) { return "", false }

const sample = `
name: demo
anchor:
  node_id: "01J000000000000000000NODE"
  buffer_id: 1
modules:
  - id: left
    plugin: const-real64
    inputs:
      value: {value: 2}
  - id: right
    plugin: const-real64
    inputs:
      value: {value: 3}
  - id: total
    plugin: sum-real64
    inputs:
      a: {link: left}
      b: {link: right}
  - id: title
    plugin: label
    inputs:
      text: {string: "demo graph"}
`

func TestApplyWiresModulesAndLinks(t *testing.T) {
	g, err := Load(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if g.Name != "demo" || len(g.Modules) != 4 {
		t.Fatalf("unexpected decode: %+v", g)
	}

	reg := testRegistry(t)
	gr := graph.New("g1", g.Name, graph.Anchor{}, reg, nil, noopLookup)

	if err := g.Apply(gr, reg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	total, ok := gr.Module("total")
	if !ok {
		t.Fatal("expected module \"total\" to exist")
	}
	if ref, isRef := total.Ports.ModuleReference(0); !isRef || ref != "left" {
		t.Fatalf("expected input 0 linked to \"left\", got %q isRef=%v", ref, isRef)
	}

	title, ok := gr.Module("title")
	if !ok {
		t.Fatal("expected module \"title\" to exist")
	}
	if got := title.Ports.Port(0).Get(value.KindString).String(); got != "demo graph" {
		t.Fatalf("title input = %q, want %q", got, "demo graph")
	}
}

func TestApplyRejectsUnknownPlugin(t *testing.T) {
	g, err := Load(strings.NewReader(`
modules:
  - id: m1
    plugin: does-not-exist
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	reg := testRegistry(t)
	gr := graph.New("g1", "g", graph.Anchor{}, reg, nil, noopLookup)

	if err := g.Apply(gr, reg); err == nil {
		t.Fatal("expected error for unknown plugin")
	}
}

func TestApplyRejectsUnknownInput(t *testing.T) {
	g, err := Load(strings.NewReader(`
modules:
  - id: m1
    plugin: const-real64
    inputs:
      nope: {value: 1}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	reg := testRegistry(t)
	gr := graph.New("g1", "g", graph.Anchor{}, reg, nil, noopLookup)

	if err := g.Apply(gr, reg); err == nil {
		t.Fatal("expected error for unknown input name")
	}
}
