package state

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
)

var (
	ErrNotFound    = errors.New("element not found")
	ErrDuplicateID = errors.New("duplicate element id")
)

// Scene is the ordered element store. Slice order is z-order: later elements
// are drawn on top and hit-tested first.
//
// Scene is not safe for concurrent use. Its owner (board.Board) serializes
// every writer.
type Scene struct {
	elements []Element
	index    map[string]int
	synced   map[string]bool
	// pruned keeps the versions of dropped tombstones so DrawingVersion never
	// goes backwards.
	pruned int64
	// retired is the last version of every element dropped from the scene.
	retired map[string]int64
}

// NewScene creates a scene holding a copy of elements.
func NewScene(elements ...Element) *Scene {
	s := &Scene{synced: make(map[string]bool), retired: make(map[string]int64)}
	s.set(elements)
	return s
}

func (s *Scene) set(elements []Element) {
	s.elements = make([]Element, 0, len(elements))
	s.index = make(map[string]int, len(elements))
	for _, el := range elements {
		if _, dup := s.index[el.ID]; dup {
			glog.Warningf("[Scene] dropping duplicate element %s", el.ID)
			continue
		}
		s.index[el.ID] = len(s.elements)
		s.elements = append(s.elements, el.Clone())
	}
}

// Len returns the number of elements, tombstones included.
func (s *Scene) Len() int { return len(s.elements) }

// Elements returns a copy of every element, tombstones included.
func (s *Scene) Elements() []Element {
	out := make([]Element, len(s.elements))
	for i, el := range s.elements {
		out[i] = el.Clone()
	}
	return out
}

// Visible returns a copy of the non-deleted elements in z-order.
func (s *Scene) Visible() []Element {
	out := make([]Element, 0, len(s.elements))
	for _, el := range s.elements {
		if !el.IsDeleted {
			out = append(out, el.Clone())
		}
	}
	return out
}

// Get returns a copy of the element with the given id.
func (s *Scene) Get(id string) (Element, bool) {
	i, ok := s.index[id]
	if !ok {
		return Element{}, false
	}
	return s.elements[i].Clone(), true
}

// IndexOf returns the z-position of id, or -1.
func (s *Scene) IndexOf(id string) int {
	if i, ok := s.index[id]; ok {
		return i
	}
	return -1
}

// Append adds a new element on top of the scene. A zero version is raised to
// 1 and a missing nonce is generated.
func (s *Scene) Append(el Element) error {
	if el.ID == "" {
		return fmt.Errorf("append: %w: empty id", ErrNotFound)
	}
	if _, ok := s.index[el.ID]; ok {
		return fmt.Errorf("append %s: %w", el.ID, ErrDuplicateID)
	}
	if el.Version < 1 {
		el.Version = 1
	}
	if el.VersionNonce == 0 {
		el.VersionNonce = NewNonce()
	}
	s.index[el.ID] = len(s.elements)
	s.elements = append(s.elements, el.Clone())
	return nil
}

// Mutate replaces the element with a patched copy at the same position,
// bumping Version and regenerating VersionNonce. The patch must not change
// the element's ID.
func (s *Scene) Mutate(id string, patch func(*Element)) (Element, error) {
	i, ok := s.index[id]
	if !ok {
		return Element{}, fmt.Errorf("mutate %s: %w", id, ErrNotFound)
	}
	next := s.elements[i].Clone()
	if patch != nil {
		patch(&next)
	}
	next.ID = id
	next.Version = s.elements[i].Version + 1
	next.VersionNonce = NewNonce()
	s.elements[i] = next
	return next.Clone(), nil
}

// Remove tombstones the element. An invisibly small element that never left
// this peer is dropped outright since nobody else can know about it.
func (s *Scene) Remove(id string) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	el := s.elements[i]
	if !s.synced[id] && IsInvisiblySmall(el) {
		s.pruned += el.Version
		s.retire(el)
		s.elements = append(s.elements[:i], s.elements[i+1:]...)
		s.reindex()
		return nil
	}
	_, err := s.Mutate(id, func(e *Element) { e.IsDeleted = true })
	return err
}

// Replace swaps the whole content in one step. Elements listed in synced are
// recorded as known to other peers.
func (s *Scene) Replace(elements []Element, synced ...string) {
	before := s.sum()
	kept := make(map[string]bool, len(elements))
	for _, el := range elements {
		kept[el.ID] = true
	}
	for _, el := range s.elements {
		if !kept[el.ID] {
			s.retire(el)
		}
	}
	s.set(elements)
	for _, id := range synced {
		s.synced[id] = true
	}
	// Elements that disappeared still count towards the drawing version.
	if after := s.sum(); after < before {
		s.pruned += before - after
	}
}

// Prune permanently drops tombstones and returns how many were dropped.
func (s *Scene) Prune() int {
	kept := s.elements[:0]
	dropped := 0
	for _, el := range s.elements {
		if el.IsDeleted {
			s.pruned += el.Version
			s.retire(el)
			delete(s.synced, el.ID)
			dropped++
			continue
		}
		kept = append(kept, el)
	}
	s.elements = kept
	s.reindex()
	return dropped
}

func (s *Scene) retire(el Element) {
	s.retired[el.ID] = max(s.retired[el.ID], el.Version)
}

// VersionFloor returns the highest version id had in this scene, including
// versions of elements that were since dropped. Zero for unknown ids.
func (s *Scene) VersionFloor(id string) int64 {
	v := s.retired[id]
	if i, ok := s.index[id]; ok {
		v = max(v, s.elements[i].Version)
	}
	return v
}

// Syncable returns the elements worth sending to peers: neither tombstoned
// nor invisibly small. They are marked as synced.
func (s *Scene) Syncable() []Element {
	out := make([]Element, 0, len(s.elements))
	for _, el := range s.elements {
		if el.IsDeleted || IsInvisiblySmall(el) {
			continue
		}
		s.synced[el.ID] = true
		out = append(out, el.Clone())
	}
	return out
}

// DrawingVersion is a scalar that grows whenever any element is mutated. It
// is used to decide whether local state advanced since the last broadcast.
func (s *Scene) DrawingVersion() int64 {
	return s.sum() + s.pruned
}

func (s *Scene) sum() int64 {
	var v int64
	for _, el := range s.elements {
		v += el.Version
	}
	return v
}

func (s *Scene) reindex() {
	s.index = make(map[string]int, len(s.elements))
	for i, el := range s.elements {
		s.index[el.ID] = i
	}
}

// DrawingVersion computes the drawing version of a bare element slice.
func DrawingVersion(elements []Element) int64 {
	var v int64
	for _, el := range elements {
		v += el.Version
	}
	return v
}

// Restore normalizes elements loaded from persistence or an untrusted source:
// unknown types and empty ids are dropped, versions start at 1 and nonces
// are regenerated when missing.
func Restore(elements []Element) []Element {
	out := make([]Element, 0, len(elements))
	for _, el := range elements {
		if el.ID == "" || !el.Type.Valid() || el.Type == TypeSelection {
			continue
		}
		el = el.Clone()
		if el.Version < 1 {
			el.Version = 1
		}
		if el.VersionNonce == 0 {
			el.VersionNonce = NewNonce()
		}
		if el.Opacity == 0 {
			el.Opacity = DefaultStyle.Opacity
		}
		if el.Type.IsLinear() && len(el.Points) == 0 {
			el.Points = []Point{{0, 0}, {el.Width, el.Height}}
		}
		out = append(out, el)
	}
	return out
}
