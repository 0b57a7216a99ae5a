// Package content defines the per-node-kind structural content the
// synchronizer's differs compare (spec.md §4.7). The actual node
// databases that own this content for real scene data are external
// collaborators (spec.md §1); this package is the "uniform node
// abstraction... and the diff hooks the synchronizer needs" that
// spec.md says we specify in their place.
package content

import "github.com/rakunlabs/purple/internal/engine/node"

// Link is a module-reference-backed link pending resolution to a
// remote id (spec.md §4.7 Object differ: "pending local link").
type Link struct {
	Label   int
	Target  node.ID
	Pending bool
}

// Object is the content of a KindObject node.
type Object struct {
	LightColor [3]float64
	Links      []Link
}

// VertexLayer holds per-vertex positions.
type VertexLayer struct {
	Name     string
	Vertices [][3]float64
}

// PolygonLayer holds per-polygon vertex-index tuples (a zero in the
// fourth slot means a triangle).
type PolygonLayer struct {
	Name     string
	Polygons [][4]uint32
}

// Crease describes crease weighting for a geometry layer pair (spec.md
// §4.7 Geometry differ: "Crease settings... compared separately").
type Crease struct {
	VertexLayerName string
	VertexDefault   float64
	EdgeLayerName   string
	EdgeDefault     float64
}

// Geometry is the content of a KindGeometry node.
type Geometry struct {
	VertexLayers  []VertexLayer
	PolygonLayers []PolygonLayer
	Crease        Crease
}

// BitmapLayer holds one layer's pixel tiles, row-major, uint8 depth
// (the common case for a differ example; the format generalizes).
type BitmapLayer struct {
	Name string
	Data []byte // len == Width*Height
}

// Bitmap is the content of a KindBitmap node.
type Bitmap struct {
	Width, Height int
	Layers        []BitmapLayer
}

// Text is the content of a KindText node: named buffers of text.
type Text struct {
	Buffers map[string]string
}

// Tangent is a (position, value) pair describing a curve key's
// incoming or outgoing tangent.
type Tangent struct {
	Pos   float64
	Value float64
}

// Key is one keyframe on a curve, identified by Pos.
type Key struct {
	Pos         float64
	Dimensions  []float64
	PreTangent  Tangent
	PostTangent Tangent
}

// Curve is a single named curve within a KindCurve node.
type Curve struct {
	Name string
	Keys []Key
}

// Curves is the content of a KindCurve node.
type Curves struct {
	Curves []Curve
}

// LayerRef names another node's layer by name (spec.md §4.7 Material
// differ: fragments "referencing another node's layer by name").
type LayerRef struct {
	NodeName  string
	LayerName string
}

// Fragment is one node in a material's fragment DAG.
type Fragment struct {
	ID        int
	Type      string
	Scalars   map[string]float64
	Refs      []int // ids of referenced fragments, resolved within the same Material
	LayerRef  *LayerRef
	RemoteID  int // 0 until this fragment has been created remotely
}

// Material is the content of a KindMaterial node.
type Material struct {
	Fragments []Fragment
}
