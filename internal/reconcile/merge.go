// Package reconcile merges a remote scene snapshot into the local one.
//
// The merge is last-writer-wins per element: the copy with the higher
// version survives whole, and equal versions are ordered by the lower
// versionNonce. Every peer applies the same rule, so independent merges of
// the same pair of copies pick the same winner whichever side is local.
// Concurrent edits to one element are never blended.
package reconcile

import (
	"bytes"
	"encoding/json"

	"github.com/golang/glog"

	"LocalBoard/internal/state"
)

// Merge returns the reconciled scene. It is pure: inputs are not modified
// and the result depends only on the arguments.
//
// Elements whose id is in excluded keep their local copy. Ids known to the
// remote side appear in remote order; local-only elements follow in their
// local order.
func Merge(local, remote []state.Element, excluded map[string]struct{}) []state.Element {
	localByID := make(map[string]state.Element, len(local))
	for _, el := range local {
		localByID[el.ID] = el
	}

	out := make([]state.Element, 0, len(local)+len(remote))
	seen := make(map[string]bool, len(remote))
	for _, r := range remote {
		if r.ID == "" {
			glog.Warningf("[Reconcile] skipping remote element without id (type %q)", r.Type)
			continue
		}
		if seen[r.ID] {
			glog.Warningf("[Reconcile] skipping duplicate remote element %s", r.ID)
			continue
		}
		seen[r.ID] = true

		l, known := localByID[r.ID]
		switch {
		case !known:
			out = append(out, r.Clone())
		case isExcluded(excluded, r.ID):
			out = append(out, l.Clone())
		default:
			out = append(out, Winner(l, r).Clone())
		}
	}

	for _, l := range local {
		if seen[l.ID] {
			continue
		}
		out = append(out, l.Clone())
	}
	return out
}

func isExcluded(excluded map[string]struct{}, id string) bool {
	_, ok := excluded[id]
	return ok
}

// Winner picks between two copies of the same element. It is symmetric:
// Winner(a, b) and Winner(b, a) return the same copy.
func Winner(a, b state.Element) state.Element {
	switch {
	case a.Version > b.Version:
		return a
	case a.Version < b.Version:
		return b
	case a.VersionNonce < b.VersionNonce:
		return a
	case a.VersionNonce > b.VersionNonce:
		return b
	}
	// Identical versioning but different content should not happen; fall
	// back to a content order so the choice stays total and symmetric.
	if canonicalLess(b, a) {
		return b
	}
	return a
}

func canonicalLess(a, b state.Element) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Compare(ab, bb) < 0
}
