package sync

import (
	"github.com/rakunlabs/purple/internal/engine/node"
	"github.com/rakunlabs/purple/internal/sync/content"
	"github.com/rakunlabs/purple/internal/sync/difftext"
)

// bitmapTileSide is a placeholder for "a fixed side length provided by
// the transport" (spec.md §4.7 Bitmap differ). It is a compile-time
// constant; it is not read from the transport's negotiated limits.
const bitmapTileSide = 64

// textChunkBytes bounds a single text-edit command's insert length
// (spec.md §4.7: "Long inserts are chunked to fit the transport's
// per-command byte limit").
const textChunkBytes = 4096

func cmd(n *node.Node, op string, fields map[string]any) Command {
	return Command{NodeID: n.ID, Kind: n.Type, Op: op, Fields: fields}
}

// DiffHead implements the Head differ: name and tag groups are
// compared on every node regardless of kind (spec.md §4.7).
func DiffHead(n *node.Node, remote RemoteView) ([]Command, bool) {
	remoteName, remoteGroups, ok := remote.Head(n.ID)
	if !ok {
		return nil, true // remote doesn't know this node yet; kind differ will create it
	}

	var cmds []Command
	if n.Name != remoteName {
		cmds = append(cmds, cmd(n, "name-set", map[string]any{"name": n.Name}))
	}

	for _, g := range n.TagGroups {
		rg := findTagGroup(remoteGroups, g.Name)
		if rg == nil {
			cmds = append(cmds, cmd(n, "tag-group-ensure", map[string]any{"group": g.Name}))
			for _, t := range g.Tags {
				cmds = append(cmds, cmd(n, "tag-set", map[string]any{"group": g.Name, "tag": t.Name, "type": t.Type, "value": t.Value}))
			}
			continue
		}
		for _, t := range g.Tags {
			rt := findTag(rg.Tags, t.Name)
			if rt == nil || rt.Type != t.Type || rt.Value != t.Value {
				cmds = append(cmds, cmd(n, "tag-set", map[string]any{"group": g.Name, "tag": t.Name, "type": t.Type, "value": t.Value}))
			}
		}
	}

	return cmds, len(cmds) == 0
}

func findTagGroup(groups []node.TagGroup, name string) *node.TagGroup {
	for i := range groups {
		if groups[i].Name == name {
			return &groups[i]
		}
	}
	return nil
}

func findTag(tags []node.Tag, name string) *node.Tag {
	for i := range tags {
		if tags[i].Name == name {
			return &tags[i]
		}
	}
	return nil
}

// DiffObject implements the Object differ (spec.md §4.7).
func DiffObject(n *node.Node, remote RemoteView) ([]Command, bool) {
	local, ok := n.Content.(content.Object)
	if !ok {
		return nil, true
	}
	raw, hasRemote := remote.Content(n.ID)
	var remoteObj content.Object
	if hasRemote {
		remoteObj, _ = raw.(content.Object)
	}

	var cmds []Command
	if !hasRemote || local.LightColor != remoteObj.LightColor {
		cmds = append(cmds, cmd(n, "light-color-set", map[string]any{"color": local.LightColor}))
	}

	remaining := local.Links[:0]
	for _, link := range local.Links {
		if link.Pending && link.Target != node.UnknownID {
			cmds = append(cmds, cmd(n, "link-set", map[string]any{"label": link.Label, "target": string(link.Target)}))
			continue
		}
		remaining = append(remaining, link)
	}
	local.Links = remaining
	n.Content = local

	return cmds, len(cmds) == 0
}

// DiffGeometry implements the Geometry differ (spec.md §4.7).
func DiffGeometry(n *node.Node, remote RemoteView) ([]Command, bool) {
	local, ok := n.Content.(content.Geometry)
	if !ok {
		return nil, true
	}
	raw, hasRemote := remote.Content(n.ID)
	var remoteGeo content.Geometry
	if hasRemote {
		remoteGeo, _ = raw.(content.Geometry)
	}

	var cmds []Command

	for _, layer := range local.VertexLayers {
		rl := findVertexLayer(remoteGeo.VertexLayers, layer.Name)
		if rl == nil {
			cmds = append(cmds, cmd(n, "vertex-layer-create", map[string]any{"layer": layer.Name}))
			for i, v := range layer.Vertices {
				cmds = append(cmds, cmd(n, "vertex-set", map[string]any{"layer": layer.Name, "index": i, "v": v}))
			}
			continue
		}
		common := len(layer.Vertices)
		if len(rl.Vertices) < common {
			common = len(rl.Vertices)
		}
		for i := 0; i < common; i++ {
			if layer.Vertices[i] != rl.Vertices[i] {
				cmds = append(cmds, cmd(n, "vertex-set", map[string]any{"layer": layer.Name, "index": i, "v": layer.Vertices[i]}))
			}
		}
		for i := common; i < len(layer.Vertices); i++ {
			cmds = append(cmds, cmd(n, "vertex-set", map[string]any{"layer": layer.Name, "index": i, "v": layer.Vertices[i]}))
		}
		for i := len(layer.Vertices); i < len(rl.Vertices); i++ {
			cmds = append(cmds, cmd(n, "vertex-delete", map[string]any{"layer": layer.Name, "index": i}))
		}
	}

	for _, layer := range local.PolygonLayers {
		rl := findPolygonLayer(remoteGeo.PolygonLayers, layer.Name)
		if rl == nil {
			cmds = append(cmds, cmd(n, "polygon-layer-create", map[string]any{"layer": layer.Name}))
			for i, p := range layer.Polygons {
				cmds = append(cmds, cmd(n, "polygon-set", map[string]any{"layer": layer.Name, "index": i, "p": p}))
			}
			continue
		}
		common := len(layer.Polygons)
		if len(rl.Polygons) < common {
			common = len(rl.Polygons)
		}
		for i := 0; i < common; i++ {
			if layer.Polygons[i] != rl.Polygons[i] {
				cmds = append(cmds, cmd(n, "polygon-set", map[string]any{"layer": layer.Name, "index": i, "p": layer.Polygons[i]}))
			}
		}
		for i := common; i < len(layer.Polygons); i++ {
			cmds = append(cmds, cmd(n, "polygon-set", map[string]any{"layer": layer.Name, "index": i, "p": layer.Polygons[i]}))
		}
		for i := len(layer.Polygons); i < len(rl.Polygons); i++ {
			cmds = append(cmds, cmd(n, "polygon-delete", map[string]any{"layer": layer.Name, "index": i}))
		}
	}

	if local.Crease.VertexLayerName != remoteGeo.Crease.VertexLayerName || local.Crease.VertexDefault != remoteGeo.Crease.VertexDefault {
		cmds = append(cmds, cmd(n, "crease-vertex-set", map[string]any{
			"layer": local.Crease.VertexLayerName, "default": local.Crease.VertexDefault,
		}))
	}
	if local.Crease.EdgeLayerName != remoteGeo.Crease.EdgeLayerName || local.Crease.EdgeDefault != remoteGeo.Crease.EdgeDefault {
		cmds = append(cmds, cmd(n, "crease-edge-set", map[string]any{
			"layer": local.Crease.EdgeLayerName, "default": local.Crease.EdgeDefault,
		}))
	}

	return cmds, len(cmds) == 0
}

func findVertexLayer(layers []content.VertexLayer, name string) *content.VertexLayer {
	for i := range layers {
		if layers[i].Name == name {
			return &layers[i]
		}
	}
	return nil
}

func findPolygonLayer(layers []content.PolygonLayer, name string) *content.PolygonLayer {
	for i := range layers {
		if layers[i].Name == name {
			return &layers[i]
		}
	}
	return nil
}

// DiffBitmap implements the Bitmap differ (spec.md §4.7).
func DiffBitmap(n *node.Node, remote RemoteView) ([]Command, bool) {
	local, ok := n.Content.(content.Bitmap)
	if !ok {
		return nil, true
	}
	raw, hasRemote := remote.Content(n.ID)
	var remoteBmp content.Bitmap
	if hasRemote {
		remoteBmp, _ = raw.(content.Bitmap)
	}

	if !hasRemote || local.Width != remoteBmp.Width || local.Height != remoteBmp.Height {
		return []Command{cmd(n, "dimensions-set", map[string]any{"width": local.Width, "height": local.Height})}, false
	}

	var cmds []Command
	for _, layer := range local.Layers {
		rl := findBitmapLayer(remoteBmp.Layers, layer.Name)
		if rl == nil {
			cmds = append(cmds, cmd(n, "bitmap-layer-create", map[string]any{"layer": layer.Name}))
			cmds = append(cmds, tileCommands(n, layer.Name, local.Width, local.Height, layer.Data, nil)...)
			continue
		}
		cmds = append(cmds, tileCommands(n, layer.Name, local.Width, local.Height, layer.Data, rl.Data)...)
	}

	return cmds, len(cmds) == 0
}

func findBitmapLayer(layers []content.BitmapLayer, name string) *content.BitmapLayer {
	for i := range layers {
		if layers[i].Name == name {
			return &layers[i]
		}
	}
	return nil
}

// tileCommands compares local against remote (which may be nil,
// meaning "no data yet") in bitmapTileSide x bitmapTileSide tiles,
// row by row within a tile, emitting one opaque tile-set whenever any
// byte in the tile differs (spec.md §4.7).
func tileCommands(n *node.Node, layerName string, width, height int, local, remote []byte) []Command {
	var cmds []Command
	for tileY := 0; tileY < height; tileY += bitmapTileSide {
		for tileX := 0; tileX < width; tileX += bitmapTileSide {
			tileW := minInt(bitmapTileSide, width-tileX)
			tileH := minInt(bitmapTileSide, height-tileY)

			differs := false
			tile := make([]byte, 0, tileW*tileH)
			for row := 0; row < tileH; row++ {
				localOff := (tileY+row)*width + tileX
				localRow := local[localOff : localOff+tileW]
				tile = append(tile, localRow...)

				if remote == nil {
					differs = true
					continue
				}
				remoteOff := (tileY+row)*width + tileX
				if remoteOff+tileW > len(remote) {
					differs = true
					continue
				}
				remoteRow := remote[remoteOff : remoteOff+tileW]
				for i := range localRow {
					if localRow[i] != remoteRow[i] {
						differs = true
						break
					}
				}
			}

			if differs {
				cmds = append(cmds, cmd(n, "tile-set", map[string]any{
					"layer": layerName, "x": tileX, "y": tileY, "w": tileW, "h": tileH, "data": tile,
				}))
			}
		}
	}
	return cmds
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// DiffText implements the Text differ (spec.md §4.7), delegating the
// edit-script computation to package difftext.
func DiffText(n *node.Node, remote RemoteView) ([]Command, bool) {
	local, ok := n.Content.(content.Text)
	if !ok {
		return nil, true
	}
	raw, hasRemote := remote.Content(n.ID)
	var remoteText content.Text
	if hasRemote {
		remoteText, _ = raw.(content.Text)
	}

	var cmds []Command
	for name, buf := range local.Buffers {
		remoteBuf, exists := remoteText.Buffers[name]
		if !exists {
			cmds = append(cmds, cmd(n, "buffer-create", map[string]any{"buffer": name}))
			remoteBuf = ""
		}
		ops := difftext.Diff(remoteBuf, buf, textChunkBytes)
		for _, op := range ops {
			cmds = append(cmds, cmd(n, "text-edit", map[string]any{
				"buffer": name, "position": op.Position, "delete": op.Delete, "insert": op.Insert,
			}))
		}
	}

	return cmds, len(cmds) == 0
}

// DiffCurve implements the Curve differ (spec.md §4.7).
func DiffCurve(n *node.Node, remote RemoteView) ([]Command, bool) {
	local, ok := n.Content.(content.Curves)
	if !ok {
		return nil, true
	}
	raw, hasRemote := remote.Content(n.ID)
	var remoteCurves content.Curves
	if hasRemote {
		remoteCurves, _ = raw.(content.Curves)
	}

	var cmds []Command
	for _, curve := range local.Curves {
		rc := findCurve(remoteCurves.Curves, curve.Name)
		if rc == nil {
			cmds = append(cmds, cmd(n, "curve-create", map[string]any{"curve": curve.Name}))
			for _, k := range curve.Keys {
				cmds = append(cmds, cmd(n, "key-set", map[string]any{"curve": curve.Name, "key": k}))
			}
			continue
		}
		for _, k := range curve.Keys {
			rk := findKey(rc.Keys, k.Pos)
			if rk == nil || !keyEqual(k, *rk) {
				cmds = append(cmds, cmd(n, "key-set", map[string]any{"curve": curve.Name, "key": k}))
			}
		}
		for _, rk := range rc.Keys {
			if findKey(curve.Keys, rk.Pos) == nil {
				cmds = append(cmds, cmd(n, "key-delete", map[string]any{"curve": curve.Name, "pos": rk.Pos}))
			}
		}
	}

	return cmds, len(cmds) == 0
}

func findCurve(curves []content.Curve, name string) *content.Curve {
	for i := range curves {
		if curves[i].Name == name {
			return &curves[i]
		}
	}
	return nil
}

func findKey(keys []content.Key, pos float64) *content.Key {
	for i := range keys {
		if keys[i].Pos == pos {
			return &keys[i]
		}
	}
	return nil
}

func keyEqual(a, b content.Key) bool {
	if len(a.Dimensions) != len(b.Dimensions) {
		return false
	}
	for i := range a.Dimensions {
		if a.Dimensions[i] != b.Dimensions[i] {
			return false
		}
	}
	return a.PreTangent == b.PreTangent && a.PostTangent == b.PostTangent
}

// DiffMaterial implements the Material differ (spec.md §4.7): creates
// are attempted bottom-up, deferring any fragment whose references
// are not yet all resolved to remote ids.
func DiffMaterial(n *node.Node, remote RemoteView) ([]Command, bool) {
	local, ok := n.Content.(content.Material)
	if !ok {
		return nil, true
	}
	raw, hasRemote := remote.Content(n.ID)
	var remoteMat content.Material
	if hasRemote {
		remoteMat, _ = raw.(content.Material)
	}

	byID := make(map[int]*content.Fragment, len(local.Fragments))
	for i := range local.Fragments {
		byID[local.Fragments[i].ID] = &local.Fragments[i]
	}

	var cmds []Command
	for i := range local.Fragments {
		f := &local.Fragments[i]
		if f.RemoteID != 0 {
			continue
		}
		if remoteFragmentEqual(f, byID, remoteMat.Fragments) {
			continue
		}
		if !refsResolved(f, byID) {
			continue
		}
		cmds = append(cmds, cmd(n, "fragment-create", map[string]any{"fragment": f.ID, "type": f.Type}))
	}

	return cmds, len(cmds) == 0
}

func refsResolved(f *content.Fragment, byID map[int]*content.Fragment) bool {
	for _, refID := range f.Refs {
		ref, ok := byID[refID]
		if !ok || ref.RemoteID == 0 {
			return false
		}
	}
	return true
}

// remoteFragmentEqual implements the Material differ's structural
// equality (spec.md §4.7): equal iff types match and either all
// scalars + all referenced fragments recursively equal, or (for a
// layer-ref fragment) the layer names match.
func remoteFragmentEqual(f *content.Fragment, byID map[int]*content.Fragment, remoteFragments []content.Fragment) bool {
	var rf *content.Fragment
	for i := range remoteFragments {
		if remoteFragments[i].ID == f.ID {
			rf = &remoteFragments[i]
			break
		}
	}
	if rf == nil {
		return false
	}
	if rf.Type != f.Type {
		return false
	}
	if f.LayerRef != nil || rf.LayerRef != nil {
		return f.LayerRef != nil && rf.LayerRef != nil && *f.LayerRef == *rf.LayerRef
	}
	if len(f.Scalars) != len(rf.Scalars) {
		return false
	}
	for k, v := range f.Scalars {
		if rf.Scalars[k] != v {
			return false
		}
	}
	if len(f.Refs) != len(rf.Refs) {
		return false
	}
	for _, refID := range f.Refs {
		ref, ok := byID[refID]
		if !ok {
			return false
		}
		if !remoteFragmentEqual(ref, byID, remoteFragments) {
			return false
		}
	}
	return true
}
