package sync

import (
	"testing"

	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/sync/content"
)

func TestDiffHeadEmitsNameAndTagCommands(t *testing.T) {
	n := node.New(node.KindObject, "local-name", node.Creator{})
	n.BindRemoteID("r1")
	n.EnsureTagGroup("visibility").Tags = []node.Tag{{Name: "hidden", Type: "bool", Value: true}}

	remote := newFakeRemote()
	remote.heads["r1"] = fakeHead{name: "remote-name"}

	cmds, inSync := DiffHead(n, remote)
	if inSync {
		t.Fatal("expected name/tag mismatch to report out of sync")
	}

	var sawNameSet, sawTagSet bool
	for _, c := range cmds {
		switch c.Op {
		case "name-set":
			sawNameSet = true
		case "tag-set":
			sawTagSet = true
		}
	}
	if !sawNameSet || !sawTagSet {
		t.Fatalf("expected name-set and tag-set, got %v", cmds)
	}
}

func TestDiffHeadUnknownRemoteIsInSync(t *testing.T) {
	n := node.New(node.KindObject, "a", node.Creator{})
	n.BindRemoteID("r1")
	remote := newFakeRemote()

	_, inSync := DiffHead(n, remote)
	if !inSync {
		t.Fatal("a node the remote doesn't know yet should not block on the Head differ")
	}
}

func TestDiffObjectDropsAcknowledgedPendingLinks(t *testing.T) {
	n := node.New(node.KindObject, "a", node.Creator{})
	n.BindRemoteID("r1")
	n.Content = content.Object{
		LightColor: [3]float64{1, 1, 1},
		Links: []content.Link{
			{Label: 0, Target: "target-remote", Pending: true},
			{Label: 1, Target: node.UnknownID, Pending: true},
		},
	}

	remote := newFakeRemote()
	remote.contents["r1"] = content.Object{LightColor: [3]float64{1, 1, 1}}

	cmds, inSync := DiffObject(n, remote)
	if inSync {
		t.Fatal("expected a link-set command to report out of sync")
	}
	if len(cmds) != 1 || cmds[0].Op != "link-set" {
		t.Fatalf("expected exactly one link-set, got %v", cmds)
	}

	updated := n.Content.(content.Object)
	if len(updated.Links) != 1 || updated.Links[0].Label != 1 {
		t.Fatalf("expected resolved link removed, remaining %v", updated.Links)
	}
}

func TestDiffGeometryDeletesTrailingVerticesOneByOne(t *testing.T) {
	n := node.New(node.KindGeometry, "g", node.Creator{})
	n.BindRemoteID("r1")
	n.Content = content.Geometry{
		VertexLayers: []content.VertexLayer{{Name: "P", Vertices: [][3]float64{{0, 0, 0}, {1, 1, 1}}}},
	}
	remote := newFakeRemote()
	remote.contents["r1"] = content.Geometry{
		VertexLayers: []content.VertexLayer{{Name: "P", Vertices: [][3]float64{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}, {3, 3, 3}}}},
	}

	cmds, inSync := DiffGeometry(n, remote)
	if inSync {
		t.Fatal("expected tail mismatch to report out of sync")
	}
	var deleteIndexes []int
	for _, c := range cmds {
		if c.Op == "vertex-delete" {
			deleteIndexes = append(deleteIndexes, c.Fields["index"].(int))
		}
	}
	if len(deleteIndexes) != 2 || deleteIndexes[0] != 2 || deleteIndexes[1] != 3 {
		t.Fatalf("expected one vertex-delete per trailing index (2, 3), got %v from %v", deleteIndexes, cmds)
	}
}

func TestDiffGeometryCreaseHalvesComparedIndependently(t *testing.T) {
	n := node.New(node.KindGeometry, "g", node.Creator{})
	n.BindRemoteID("r1")
	n.Content = content.Geometry{
		Crease: content.Crease{VertexLayerName: "crease", VertexDefault: 1, EdgeLayerName: "edge-crease", EdgeDefault: 0},
	}
	remote := newFakeRemote()
	remote.contents["r1"] = content.Geometry{
		Crease: content.Crease{VertexLayerName: "crease", VertexDefault: 0, EdgeLayerName: "edge-crease", EdgeDefault: 0},
	}

	cmds, inSync := DiffGeometry(n, remote)
	if inSync {
		t.Fatal("expected vertex-crease mismatch to report out of sync")
	}
	if len(cmds) != 1 || cmds[0].Op != "crease-vertex-set" {
		t.Fatalf("expected only crease-vertex-set when only the vertex crease differs, got %v", cmds)
	}
}

func TestDiffGeometryCreatesMissingLayer(t *testing.T) {
	n := node.New(node.KindGeometry, "g", node.Creator{})
	n.BindRemoteID("r1")
	n.Content = content.Geometry{
		PolygonLayers: []content.PolygonLayer{{Name: "Q", Polygons: [][4]uint32{{0, 1, 2, 3}}}},
	}
	remote := newFakeRemote()
	remote.contents["r1"] = content.Geometry{}

	cmds, inSync := DiffGeometry(n, remote)
	if inSync {
		t.Fatal("expected missing layer to report out of sync")
	}
	if cmds[0].Op != "polygon-layer-create" {
		t.Fatalf("expected the first command to create the layer, got %v", cmds)
	}
}

func TestDiffBitmapStopsAfterDimensionsMismatch(t *testing.T) {
	n := node.New(node.KindBitmap, "b", node.Creator{})
	n.BindRemoteID("r1")
	n.Content = content.Bitmap{Width: 4, Height: 4, Layers: []content.BitmapLayer{{Name: "RGB", Data: make([]byte, 16)}}}
	remote := newFakeRemote()
	remote.contents["r1"] = content.Bitmap{Width: 2, Height: 2}

	cmds, inSync := DiffBitmap(n, remote)
	if inSync {
		t.Fatal("expected dimension mismatch to report out of sync")
	}
	if len(cmds) != 1 || cmds[0].Op != "dimensions-set" {
		t.Fatalf("expected exactly one dimensions-set and nothing else, got %v", cmds)
	}
}

func TestDiffBitmapEmitsTileSetOnByteDifference(t *testing.T) {
	n := node.New(node.KindBitmap, "b", node.Creator{})
	n.BindRemoteID("r1")
	local := make([]byte, 4)
	local[0] = 0xFF
	n.Content = content.Bitmap{Width: 2, Height: 2, Layers: []content.BitmapLayer{{Name: "RGB", Data: local}}}
	remote := newFakeRemote()
	remote.contents["r1"] = content.Bitmap{Width: 2, Height: 2, Layers: []content.BitmapLayer{{Name: "RGB", Data: make([]byte, 4)}}}

	cmds, inSync := DiffBitmap(n, remote)
	if inSync || len(cmds) != 1 || cmds[0].Op != "tile-set" {
		t.Fatalf("expected a single tile-set command, got %v inSync=%v", cmds, inSync)
	}
}

func TestDiffTextEmitsEditOps(t *testing.T) {
	n := node.New(node.KindText, "t", node.Creator{})
	n.BindRemoteID("r1")
	n.Content = content.Text{Buffers: map[string]string{"body": "hello world"}}
	remote := newFakeRemote()
	remote.contents["r1"] = content.Text{Buffers: map[string]string{"body": "hello there"}}

	cmds, inSync := DiffText(n, remote)
	if inSync {
		t.Fatal("expected text mismatch to report out of sync")
	}
	for _, c := range cmds {
		if c.Op != "text-edit" {
			t.Fatalf("expected only text-edit ops, got %v", c.Op)
		}
	}
}

func TestDiffCurveCreatesAndDeletesKeys(t *testing.T) {
	n := node.New(node.KindCurve, "c", node.Creator{})
	n.BindRemoteID("r1")
	n.Content = content.Curves{Curves: []content.Curve{{Name: "X", Keys: []content.Key{{Pos: 1, Dimensions: []float64{2}}}}}}
	remote := newFakeRemote()
	remote.contents["r1"] = content.Curves{Curves: []content.Curve{{Name: "X", Keys: []content.Key{{Pos: 9, Dimensions: []float64{0}}}}}}

	cmds, inSync := DiffCurve(n, remote)
	if inSync {
		t.Fatal("expected key mismatch to report out of sync")
	}
	var sawSet, sawDelete bool
	for _, c := range cmds {
		switch c.Op {
		case "key-set":
			sawSet = true
		case "key-delete":
			sawDelete = true
		}
	}
	if !sawSet || !sawDelete {
		t.Fatalf("expected both key-set and key-delete, got %v", cmds)
	}
}

func TestDiffMaterialDefersUnresolvedReferences(t *testing.T) {
	n := node.New(node.KindMaterial, "m", node.Creator{})
	n.BindRemoteID("r1")
	n.Content = content.Material{
		Fragments: []content.Fragment{
			{ID: 1, Type: "mix", Refs: []int{2}},
			{ID: 2, Type: "constant", Scalars: map[string]float64{"v": 1}},
		},
	}
	remote := newFakeRemote()
	remote.contents["r1"] = content.Material{}

	cmds, inSync := DiffMaterial(n, remote)
	if inSync {
		t.Fatal("expected unresolved fragments to report out of sync")
	}
	if len(cmds) != 1 || cmds[0].Fields["fragment"] != 2 {
		t.Fatalf("expected only the leaf fragment (id 2) attempted first, got %v", cmds)
	}
}
