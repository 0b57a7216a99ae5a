// Package fixture loads a local YAML stand-in for a graph, letting the
// engine be exercised without a live Verse connection (spec.md §6's
// remote persistence format stays an external collaborator contract;
// this is just a convenient local seed used by tests and by
// cmd/purple's fixture_path setting). The fixture types are decoded
// from YAML via yaml struct tags.
package fixture

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rakunlabs/purple/internal/engine/graph"
	"github.com/rakunlabs/purple/internal/engine/plugin"
	"github.com/rakunlabs/purple/internal/engine/value"
)

// Graph is the on-disk shape of one fixture graph: a named anchor plus
// its modules and their wiring.
type Graph struct {
	Name   string  `yaml:"name"`
	Anchor Anchor  `yaml:"anchor"`
	Modules []Module `yaml:"modules"`
}

// Anchor mirrors graph.Anchor in a form yaml can decode directly.
type Anchor struct {
	NodeID   string `yaml:"node_id"`
	BufferID int    `yaml:"buffer_id"`
}

// Module names one module instance by a fixture-local id (reused as
// the graph's module id) and the plug-in it instantiates.
type Module struct {
	ID     string           `yaml:"id"`
	Plugin string           `yaml:"plugin"`
	Inputs map[string]Input `yaml:"inputs"`
}

// Input is a tagged union over the ways a fixture can supply one input
// value: a link to another module's output, a scalar, a short vector,
// or a string literal. At most one field should be set; Link wins if
// present, then String, then Vector, then Value.
type Input struct {
	Link   string    `yaml:"link,omitempty"`
	Value  float64   `yaml:"value,omitempty"`
	Vector []float64 `yaml:"vector,omitempty"`
	String string    `yaml:"string,omitempty"`
}

// Load decodes a fixture graph from r.
func Load(r io.Reader) (*Graph, error) {
	var g Graph
	if err := yaml.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("fixture: decode: %w", err)
	}
	return &g, nil
}

// LoadFile opens path and decodes it as a fixture graph.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Apply instantiates every module in g against dst, in file order, then
// wires inputs in a second pass so forward references between modules
// resolve regardless of declaration order. Module ids are taken
// verbatim from the fixture rather than minted fresh, so later fixture
// entries can link to earlier ones by name.
func (g *Graph) Apply(dst *graph.Graph, registry *plugin.Registry) error {
	descs := make(map[string]*plugin.Descriptor, len(g.Modules))

	for _, m := range g.Modules {
		desc, ok := registry.ByName(m.Plugin)
		if !ok {
			return fmt.Errorf("fixture: module %q references unknown plugin %q", m.ID, m.Plugin)
		}
		descs[m.ID] = desc

		id := m.ID
		if _, err := dst.ModuleCreate(desc.ID, func() string { return id }); err != nil {
			return fmt.Errorf("fixture: create module %q: %w", m.ID, err)
		}
	}

	for _, m := range g.Modules {
		desc := descs[m.ID]
		for name, in := range m.Inputs {
			idx := inputIndex(desc, name)
			if idx < 0 {
				return fmt.Errorf("fixture: module %q plug-in %q has no input %q", m.ID, m.Plugin, name)
			}

			switch {
			case in.Link != "":
				if _, ok := descs[in.Link]; !ok {
					return fmt.Errorf("fixture: module %q input %q links to unknown module %q", m.ID, name, in.Link)
				}
				if err := dst.InputSetModuleReference(m.ID, idx, in.Link); err != nil {
					return fmt.Errorf("fixture: link module %q input %q: %w", m.ID, name, err)
				}
			case in.String != "":
				if err := dst.InputSet(m.ID, idx, value.String(in.String)); err != nil {
					return fmt.Errorf("fixture: set module %q input %q: %w", m.ID, name, err)
				}
			case len(in.Vector) > 0:
				v, err := vectorValue(desc.Inputs[idx].Type, in.Vector)
				if err != nil {
					return fmt.Errorf("fixture: module %q input %q: %w", m.ID, name, err)
				}
				if err := dst.InputSet(m.ID, idx, v); err != nil {
					return fmt.Errorf("fixture: set module %q input %q: %w", m.ID, name, err)
				}
			default:
				v, err := scalarValue(desc.Inputs[idx].Type, in.Value)
				if err != nil {
					return fmt.Errorf("fixture: module %q input %q: %w", m.ID, name, err)
				}
				if err := dst.InputSet(m.ID, idx, v); err != nil {
					return fmt.Errorf("fixture: set module %q input %q: %w", m.ID, name, err)
				}
			}
		}
	}

	return nil
}

func inputIndex(desc *plugin.Descriptor, name string) int {
	for i, spec := range desc.Inputs {
		if spec.Name == name {
			return i
		}
	}
	return -1
}

func scalarValue(kind value.Kind, f float64) (value.Value, error) {
	switch kind {
	case value.KindBool:
		return value.Bool(f != 0), nil
	case value.KindInt32:
		return value.Int32(int32(f)), nil
	case value.KindUint32:
		return value.Uint32(uint32(f)), nil
	case value.KindReal32:
		return value.Real32(float32(f)), nil
	case value.KindReal64:
		return value.Real64(f), nil
	default:
		return value.Value{}, fmt.Errorf("kind %s is not a scalar fixture input", kind)
	}
}

func vectorValue(kind value.Kind, f []float64) (value.Value, error) {
	switch kind {
	case value.KindReal32Vec2:
		if len(f) != 2 {
			return value.Value{}, fmt.Errorf("kind %s needs 2 components, got %d", kind, len(f))
		}
		return value.Real32Vec2([2]float32{float32(f[0]), float32(f[1])}), nil
	case value.KindReal32Vec3:
		if len(f) != 3 {
			return value.Value{}, fmt.Errorf("kind %s needs 3 components, got %d", kind, len(f))
		}
		return value.Real32Vec3([3]float32{float32(f[0]), float32(f[1]), float32(f[2])}), nil
	case value.KindReal32Vec4:
		if len(f) != 4 {
			return value.Value{}, fmt.Errorf("kind %s needs 4 components, got %d", kind, len(f))
		}
		return value.Real32Vec4([4]float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}), nil
	case value.KindReal64Vec2:
		if len(f) != 2 {
			return value.Value{}, fmt.Errorf("kind %s needs 2 components, got %d", kind, len(f))
		}
		return value.Real64Vec2([2]float64{f[0], f[1]}), nil
	case value.KindReal64Vec3:
		if len(f) != 3 {
			return value.Value{}, fmt.Errorf("kind %s needs 3 components, got %d", kind, len(f))
		}
		return value.Real64Vec3([3]float64{f[0], f[1], f[2]}), nil
	case value.KindReal64Vec4:
		if len(f) != 4 {
			return value.Value{}, fmt.Errorf("kind %s needs 4 components, got %d", kind, len(f))
		}
		return value.Real64Vec4([4]float64{f[0], f[1], f[2], f[3]}), nil
	default:
		return value.Value{}, fmt.Errorf("kind %s is not a vector fixture input", kind)
	}
}
