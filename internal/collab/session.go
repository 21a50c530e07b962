// Package collab is the sync adapter between a board and a room relay.
//
// Scene and pointer payloads are encrypted with the room key before they
// reach the transport. Inbound scene updates are decrypted, decoded and
// handed to the board's reconciliation in one call; anything that fails on
// the way is dropped and logged.
package collab

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang/glog"

	"LocalBoard/internal/state"
)

// Transport delivers relay events. data is the JSON of the event body.
// Handlers may run on any goroutine.
type Transport interface {
	Broadcast(ctx context.Context, event string, data []byte) error
	Subscribe(event string, handler func(data []byte))
}

// Scene is the board side of a session.
type Scene interface {
	Syncable() []state.Element
	DrawingVersion() int64
	Reconcile(remote []state.Element) (localVersion, remoteVersion int64)
	// Prune drops tombstones. Called only while this peer is alone in the
	// room, when nobody can send an older copy of a deleted element.
	Prune() int
}

// Collaborator is another peer in the room.
type Collaborator struct {
	SocketID string
	Pointer  *state.Point
}

type Session struct {
	scene     Scene
	transport Transport
	cipher    Cipher
	roomID    string

	mu            sync.Mutex
	ctx           context.Context
	key           string
	socketID      string
	loaded        bool
	lastVersion   int64
	collaborators map[string]*Collaborator
	onPresence    func()

	notify chan struct{}
}

type SessionOption func(*Session)

// WithCipher replaces the default AES-GCM cipher.
func WithCipher(c Cipher) SessionOption {
	return func(s *Session) { s.cipher = c }
}

// WithPresenceHook is called whenever collaborators or their pointers change.
func WithPresenceHook(fn func()) SessionOption {
	return func(s *Session) { s.onPresence = fn }
}

func NewSession(scene Scene, transport Transport, link Link, opts ...SessionOption) *Session {
	s := &Session{
		scene:         scene,
		transport:     transport,
		cipher:        AESGCM{},
		roomID:        link.RoomID,
		key:           link.Key,
		ctx:           context.Background(),
		collaborators: make(map[string]*Collaborator),
		notify:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the relay events. ctx bounds the sends triggered by
// inbound events.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.transport.Subscribe(EventInitRoom, s.onInitRoom)
	s.transport.Subscribe(EventFirstInRoom, func([]byte) {
		s.mu.Lock()
		s.loaded = true
		s.mu.Unlock()
		glog.Infof("[Session] first in room %s", s.roomID)
		s.prune()
	})
	s.transport.Subscribe(EventNewUser, s.onNewUser)
	s.transport.Subscribe(EventRoomUserChange, s.onRoomUserChange)
	s.transport.Subscribe(EventClientBroadcast, func(data []byte) {
		if err := s.receive(data); err != nil {
			glog.V(1).Infof("[Session] dropped message: %v", err)
		}
	})
}

func (s *Session) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Session) RoomID() string { return s.roomID }

func (s *Session) SocketID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.socketID
}

// Loaded reports whether the relay said this peer opened the room.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Collaborators returns the other peers sorted by socket id.
func (s *Session) Collaborators() []Collaborator {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Collaborator, 0, len(s.collaborators))
	for _, c := range s.collaborators {
		cp := *c
		if c.Pointer != nil {
			p := *c.Pointer
			cp.Pointer = &p
		}
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b Collaborator) int { return cmp.Compare(a.SocketID, b.SocketID) })
	return out
}

func (s *Session) onInitRoom(data []byte) {
	var msg InitRoom
	if err := json.Unmarshal(data, &msg); err != nil {
		glog.Warningf("[Session] bad init-room: %v", err)
		return
	}
	s.mu.Lock()
	s.socketID = msg.SocketID
	s.mu.Unlock()

	room, _ := json.Marshal(s.roomID)
	if err := s.transport.Broadcast(s.baseContext(), EventJoinRoom, room); err != nil {
		glog.Warningf("[Session] join %s: %v", s.roomID, err)
		return
	}
	glog.Infof("[Session] joined room %s as %s", s.roomID, msg.SocketID)
}

func (s *Session) onNewUser(data []byte) {
	var id string
	_ = json.Unmarshal(data, &id)
	glog.V(1).Infof("[Session] new user %s", id)
	if err := s.broadcastScene(s.baseContext()); err != nil {
		glog.Warningf("[Session] scene for new user: %v", err)
	}
}

func (s *Session) onRoomUserChange(data []byte) {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		glog.Warningf("[Session] bad room-user-change: %v", err)
		return
	}
	s.mu.Lock()
	next := make(map[string]*Collaborator, len(ids))
	member := false
	for _, id := range ids {
		if id == s.socketID {
			member = true
			continue
		}
		if c, ok := s.collaborators[id]; ok {
			next[id] = c
			continue
		}
		next[id] = &Collaborator{SocketID: id}
	}
	s.collaborators = next
	hook := s.onPresence
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if member && len(next) == 0 {
		s.prune()
	}
}

func (s *Session) prune() {
	if n := s.scene.Prune(); n > 0 {
		glog.V(1).Infof("[Session] alone in room %s, pruned %d tombstones", s.roomID, n)
	}
}

// receive decrypts and dispatches one client-broadcast body.
func (s *Session) receive(data []byte) error {
	var msg EncryptedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	s.mu.Lock()
	key := s.key
	s.mu.Unlock()
	if key == "" {
		return ErrNoKey
	}
	plain, err := s.cipher.Decrypt(msg.Ciphertext, key, msg.IV)
	if err != nil {
		return err
	}
	typ, body, err := Decode(plain)
	if err != nil {
		return err
	}

	switch typ {
	case TypeSceneUpdate:
		s.applyScene(body.(*SceneUpdate).Elements)
	case TypeMouseLocation:
		s.applyPointer(body.(*MouseLocation))
	}
	return nil
}

func (s *Session) applyScene(elements []state.Element) {
	valid := make([]state.Element, 0, len(elements))
	for _, el := range elements {
		if !el.Type.Valid() || el.Type == state.TypeSelection {
			glog.V(1).Infof("[Session] skipping element %s of type %q", el.ID, el.Type)
			continue
		}
		valid = append(valid, el)
	}
	local, remote := s.scene.Reconcile(valid)

	s.mu.Lock()
	s.lastVersion = max(s.lastVersion, local, remote)
	s.mu.Unlock()
	glog.V(1).Infof("[Session] applied %d elements", len(valid))
}

func (s *Session) applyPointer(m *MouseLocation) {
	s.mu.Lock()
	if m.SocketID == s.socketID {
		s.mu.Unlock()
		return
	}
	c, ok := s.collaborators[m.SocketID]
	if !ok {
		c = &Collaborator{SocketID: m.SocketID}
		s.collaborators[m.SocketID] = c
	}
	p := m.PointerCoords
	c.Pointer = &p
	hook := s.onPresence
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// SyncScene broadcasts the scene when its drawing version moved past the
// last version broadcast or received.
func (s *Session) SyncScene(ctx context.Context) error {
	v := s.scene.DrawingVersion()
	s.mu.Lock()
	stale := v <= s.lastVersion
	s.mu.Unlock()
	if stale {
		return nil
	}
	return s.broadcastScene(ctx)
}

// Notify asks Run to check the scene now. It never blocks; calls that
// arrive while a check is pending are folded into it.
func (s *Session) Notify() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Run calls SyncScene on every Notify and every interval until ctx is done.
func (s *Session) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.notify:
		case <-t.C:
		}
		if err := s.SyncScene(ctx); err != nil {
			glog.V(1).Infof("[Session] sync: %v", err)
		}
	}
}

func (s *Session) broadcastScene(ctx context.Context) error {
	v := s.scene.DrawingVersion()
	elements := s.scene.Syncable()
	plain, err := EncodeSceneUpdate(elements)
	if err != nil {
		return err
	}
	if err := s.send(ctx, EventServerBroadcast, plain); err != nil {
		return fmt.Errorf("broadcast scene: %w", err)
	}
	s.mu.Lock()
	s.lastVersion = max(s.lastVersion, v)
	s.mu.Unlock()
	glog.V(2).Infof("[Session] broadcast %d elements at v%d", len(elements), v)
	return nil
}

// BroadcastPointer sends the local pointer position. Delivery is best
// effort.
func (s *Session) BroadcastPointer(ctx context.Context, p state.Point) error {
	plain, err := EncodeMouseLocation(s.SocketID(), p)
	if err != nil {
		return err
	}
	return s.send(ctx, EventServerVolatile, plain)
}

func (s *Session) send(ctx context.Context, event string, plain []byte) error {
	s.mu.Lock()
	key := s.key
	s.mu.Unlock()
	ciphertext, iv, err := s.cipher.Encrypt(plain, key)
	if err != nil {
		return err
	}
	body, err := json.Marshal(EncryptedMessage{RoomID: s.roomID, Ciphertext: ciphertext, IV: iv})
	if err != nil {
		return err
	}
	return s.transport.Broadcast(ctx, event, body)
}
