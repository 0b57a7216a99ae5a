// Package port implements the Port abstraction (spec.md §3, §4.1): a
// typed value slot that holds a written payload, an append-only cache
// of type conversions, and an optional node set for node-valued ports.
package port

import (
	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/engine/value"
)

// Port is the typed slot inputs read and outputs write.
type Port struct {
	written value.Value
	cache   [value.KindString + 2]*value.Value // sized past the highest scalar Kind
	nodes   node.Set
	hasNode bool
}

// Set replaces the written payload with (kind, payload's Value) and
// clears the conversion cache, per spec.md §4.1.
func (p *Port) Set(v value.Value) {
	p.written = v
	p.clearCache()
	p.hasNode = false
}

// SetFromString parses text into kind and sets it, used by the
// port-set "set-from-string" operation (spec.md §4.3).
func (p *Port) SetFromString(kind value.Kind, text string) {
	if kind == value.KindString {
		p.Set(value.String(text))
		return
	}
	p.Set(value.ParseNumeric(kind, text))
}

// SetNodes sets the port's node-set payload (used by output writers
// that produce nodes rather than scalars). Clears the scalar written
// value and cache, matching "writing to the port clears cache."
func (p *Port) SetNodes(s node.Set) {
	p.nodes = s
	p.hasNode = true
	p.written = value.Value{}
	p.clearCache()
}

// Clear resets the port to fully unset (used before reverting to a
// default, by the caller, per spec.md §4.3's "clear" operation).
func (p *Port) Clear() {
	p.written = value.Value{}
	p.hasNode = false
	p.nodes = node.Set{}
	p.clearCache()
}

func (p *Port) clearCache() {
	for i := range p.cache {
		p.cache[i] = nil
	}
}

// Present reports whether the port currently holds a payload of kind
// (as the written value; the cache is not "presence", only a faster
// path to the converted form).
func (p *Port) Present(kind value.Kind) bool {
	if p.hasNode {
		return false
	}
	return p.written.Kind() == kind
}

// HasNodes reports whether the port currently holds a node-set payload.
func (p *Port) HasNodes() bool { return p.hasNode }

// Nodes returns the port's node set (zero value if the port holds a
// scalar payload instead).
func (p *Port) Nodes() node.Set { return p.nodes }

// Get returns the port's value as kind: the written value if it
// already matches; else a cached conversion if present; else a freshly
// computed conversion (stored in cache); else that kind's default.
// Reads never fail (spec.md §4.1).
func (p *Port) Get(kind value.Kind) value.Value {
	if p.hasNode {
		str := value.String(value.FormatNodeSetString(p.nodes))
		if kind == value.KindString {
			return str
		}
		return str.Convert(kind)
	}

	if p.written.Kind() == kind {
		return p.written
	}

	if !p.written.IsSet() {
		return value.Default(kind)
	}

	idx := int(kind)
	if idx >= 0 && idx < len(p.cache) && p.cache[idx] != nil {
		return *p.cache[idx]
	}

	converted := p.written.Convert(kind)
	if idx >= 0 && idx < len(p.cache) {
		p.cache[idx] = &converted
	}
	return converted
}

// WrittenKind returns the kind of the currently written scalar value
// (KindNone if the port is empty or holds a node set).
func (p *Port) WrittenKind() value.Kind {
	if p.hasNode {
		return value.KindNone
	}
	return p.written.Kind()
}

// IsEmpty reports whether the port holds neither a scalar value nor a
// node set.
func (p *Port) IsEmpty() bool {
	return !p.hasNode && !p.written.IsSet()
}
