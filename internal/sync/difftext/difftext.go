// Package difftext produces the edit-script the Text differ emits
// (spec.md §4.7): a Myers diff between the local and remote buffer
// contents, translated into (position, delete-length, insert-text)
// operations, chunked to fit a transport byte limit.
package difftext

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Op is one edit operation against the remote buffer, expressed as a
// byte position into the *remote's current* text.
type Op struct {
	Position int
	Delete   int
	Insert   string
}

var dmp = diffmatchpatch.New()

// Diff computes the edit script turning remote into local. Long
// inserts are split so no single Op's Insert exceeds maxInsertBytes
// (spec.md §4.7: "Long inserts are chunked to fit the transport's
// per-command byte limit"). maxInsertBytes <= 0 disables chunking.
func Diff(remote, local string, maxInsertBytes int) []Op {
	diffs := dmp.DiffMain(remote, local, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var ops []Op
	pos := 0 // position within the (evolving) remote buffer

	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += len(d.Text)
		case diffmatchpatch.DiffDelete:
			// Pair a delete immediately followed by an insert into one op.
			insertText := ""
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				insertText = diffs[i+1].Text
				i++
			}
			ops = append(ops, chunk(pos, len(d.Text), insertText, maxInsertBytes)...)
			pos += len(insertText)
		case diffmatchpatch.DiffInsert:
			ops = append(ops, chunk(pos, 0, d.Text, maxInsertBytes)...)
			pos += len(d.Text)
		}
	}

	return ops
}

// chunk splits one logical (position, deleteLen, insert) edit into
// multiple Ops if insert exceeds maxInsertBytes. Only the first
// chunk carries the delete; subsequent chunks are pure inserts
// immediately following it.
func chunk(pos, deleteLen int, insert string, maxInsertBytes int) []Op {
	if maxInsertBytes <= 0 || len(insert) <= maxInsertBytes {
		if deleteLen == 0 && insert == "" {
			return nil
		}
		return []Op{{Position: pos, Delete: deleteLen, Insert: insert}}
	}

	var ops []Op
	first := true
	for len(insert) > 0 {
		n := maxInsertBytes
		if n > len(insert) {
			n = len(insert)
		}
		op := Op{Position: pos, Insert: insert[:n]}
		if first {
			op.Delete = deleteLen
			first = false
		}
		ops = append(ops, op)
		insert = insert[n:]
		pos += n // subsequent chunks insert after the previous chunk
	}
	return ops
}

// Apply mechanically replays ops against remote, for tests asserting
// the diff-then-apply round trip (spec.md §8).
func Apply(remote string, ops []Op) string {
	for _, op := range ops {
		end := op.Position + op.Delete
		if end > len(remote) {
			end = len(remote)
		}
		remote = remote[:op.Position] + op.Insert + remote[end:]
	}
	return remote
}
