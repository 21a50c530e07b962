package net

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"

	"LocalBoard/internal/collab"
)

// Path is where the relay accepts websocket connections.
const Path = "/socket"

// Frame is one websocket message in either direction.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type RelayConfig struct {
	// QueueSize bounds the messages waiting for one socket.
	QueueSize int
	// WriteTimeout bounds a single write and the wait for room in a full
	// queue. A socket that cannot keep up is disconnected.
	WriteTimeout time.Duration
	// ReadLimit is the largest frame accepted from a socket.
	ReadLimit int64
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		QueueSize:    64,
		WriteTimeout: 10 * time.Second,
		ReadLimit:    16 << 20,
	}
}

// Relay forwards encrypted room traffic between sockets. It never sees
// plaintext scenes.
type Relay struct {
	cfg      RelayConfig
	upgrader websocket.Upgrader

	mu    sync.Mutex
	peers map[string]*peer
	rooms map[string]map[string]*peer
}

type peer struct {
	id    string
	conn  *websocket.Conn
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	rooms map[string]struct{}
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

func NewRelay(cfg RelayConfig) *Relay {
	return &Relay{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		peers: make(map[string]*peer),
		rooms: make(map[string]map[string]*peer),
	}
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		glog.Warningf("[Relay] upgrade from %s: %v", req.RemoteAddr, err)
		return
	}
	conn.SetReadLimit(r.cfg.ReadLimit)

	p := &peer{
		id:    ulid.Make().String(),
		conn:  conn,
		send:  make(chan []byte, r.cfg.QueueSize),
		done:  make(chan struct{}),
		rooms: make(map[string]struct{}),
	}
	r.mu.Lock()
	r.peers[p.id] = p
	r.mu.Unlock()
	glog.Infof("[Relay] socket %s connected from %s", p.id, req.RemoteAddr)

	go r.writeLoop(p)
	r.emit(p, collab.EventInitRoom, collab.InitRoom{SocketID: p.id}, false)
	r.readLoop(p)

	p.close()
	r.leave(p)
	glog.Infof("[Relay] socket %s disconnected", p.id)
}

func (r *Relay) readLoop(p *peer) {
	for {
		_, buf, err := p.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				glog.V(1).Infof("[Relay] read %s: %v", p.id, err)
			}
			return
		}
		var f Frame
		if err := json.Unmarshal(buf, &f); err != nil {
			glog.V(1).Infof("[Relay] bad frame from %s: %v", p.id, err)
			continue
		}
		switch f.Event {
		case collab.EventJoinRoom:
			var room string
			if err := json.Unmarshal(f.Data, &room); err != nil || room == "" {
				glog.V(1).Infof("[Relay] bad join from %s", p.id)
				continue
			}
			r.join(p, room)
		case collab.EventServerBroadcast:
			r.forward(p, f.Data, false)
		case collab.EventServerVolatile:
			r.forward(p, f.Data, true)
		default:
			glog.V(1).Infof("[Relay] unknown event %q from %s", f.Event, p.id)
		}
	}
}

func (r *Relay) writeLoop(p *peer) {
	for {
		select {
		case msg := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				glog.V(1).Infof("[Relay] write %s: %v", p.id, err)
				p.close()
				return
			}
			glog.V(2).Infof("[Relay] %s <- %d bytes", p.id, len(msg))
		case <-p.done:
			return
		}
	}
}

func (r *Relay) join(p *peer, room string) {
	r.mu.Lock()
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*peer)
		r.rooms[room] = members
	}
	if _, already := members[p.id]; already {
		r.mu.Unlock()
		return
	}
	others := roomPeers(members)
	members[p.id] = p
	p.rooms[room] = struct{}{}
	all := roomPeers(members)
	r.mu.Unlock()

	glog.Infof("[Relay] %s joined room %s (%d members)", p.id, room, len(all))
	if len(others) == 0 {
		r.emit(p, collab.EventFirstInRoom, nil, false)
	} else {
		for _, o := range others {
			r.emit(o, collab.EventNewUser, p.id, false)
		}
	}
	r.announce(all)
}

func (r *Relay) leave(p *peer) {
	r.mu.Lock()
	delete(r.peers, p.id)
	var changed [][]*peer
	for room := range p.rooms {
		members := r.rooms[room]
		delete(members, p.id)
		if len(members) == 0 {
			delete(r.rooms, room)
			glog.V(1).Infof("[Relay] room %s closed", room)
			continue
		}
		changed = append(changed, roomPeers(members))
	}
	r.mu.Unlock()

	for _, members := range changed {
		r.announce(members)
	}
}

// announce sends the member list of a room to every member.
func (r *Relay) announce(members []*peer) {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.id
	}
	for _, m := range members {
		r.emit(m, collab.EventRoomUserChange, ids, false)
	}
}

// forward relays an encrypted message to the rest of the sender's room.
func (r *Relay) forward(p *peer, data []byte, volatile bool) {
	var msg collab.EncryptedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		glog.V(1).Infof("[Relay] bad broadcast from %s: %v", p.id, err)
		return
	}
	r.mu.Lock()
	members, ok := r.rooms[msg.RoomID]
	_, joined := members[p.id]
	if !ok || !joined {
		r.mu.Unlock()
		glog.V(1).Infof("[Relay] %s is not in room %q", p.id, msg.RoomID)
		return
	}
	targets := make([]*peer, 0, len(members)-1)
	for _, m := range roomPeers(members) {
		if m != p {
			targets = append(targets, m)
		}
	}
	r.mu.Unlock()

	msg.RoomID = ""
	for _, t := range targets {
		r.emit(t, collab.EventClientBroadcast, msg, volatile)
	}
}

// emit queues an event for p. Volatile events are dropped when the queue is
// full. Other events wait up to the write timeout, then the socket is closed.
func (r *Relay) emit(p *peer, event string, data any, volatile bool) {
	f := Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			glog.Errorf("[Relay] encode %s: %v", event, err)
			return
		}
		f.Data = raw
	}
	buf, err := json.Marshal(f)
	if err != nil {
		glog.Errorf("[Relay] encode frame %s: %v", event, err)
		return
	}

	if volatile {
		select {
		case p.send <- buf:
		case <-p.done:
		default:
			glog.V(2).Infof("[Relay] drop volatile for %s", p.id)
		}
		return
	}

	t := time.NewTimer(r.cfg.WriteTimeout)
	defer t.Stop()
	select {
	case p.send <- buf:
	case <-p.done:
	case <-t.C:
		glog.Warningf("[Relay] %s is too slow, disconnecting", p.id)
		p.close()
	}
}

// Rooms returns the number of open rooms.
func (r *Relay) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func roomPeers(members map[string]*peer) []*peer {
	out := make([]*peer, 0, len(members))
	for _, m := range members {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b *peer) int { return cmp.Compare(a.id, b.id) })
	return out
}

// Serve runs the relay on addr until ctx is done.
func Serve(ctx context.Context, addr string, relay *Relay) error {
	mux := http.NewServeMux()
	mux.Handle(Path, relay)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	glog.Infof("[Relay] listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
