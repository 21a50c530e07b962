package collab

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the URL scheme of collaboration links.
const Scheme = "localboard"

var ErrInvalidLink = errors.New("invalid collaboration link")

const roomIDBytes = 10

// Link identifies a room on a relay and carries the room key. The key lives
// in the fragment so it is never sent to the relay.
type Link struct {
	Relay  string
	RoomID string
	Key    string
}

// GenerateLink creates a link to a new random room on relay (host:port).
func GenerateLink(relay string) (Link, error) {
	raw := make([]byte, roomIDBytes)
	if _, err := rand.Read(raw); err != nil {
		return Link{}, fmt.Errorf("generate room id: %w", err)
	}
	key, err := NewKey()
	if err != nil {
		return Link{}, err
	}
	return Link{Relay: relay, RoomID: hex.EncodeToString(raw), Key: key}, nil
}

func (l Link) String() string {
	return fmt.Sprintf("%s://%s/#room=%s,%s", Scheme, l.Relay, l.RoomID, l.Key)
}

// ParseLink parses localboard://<host:port>/#room=<roomId>,<key>.
func ParseLink(s string) (Link, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if u.Scheme != Scheme || u.Host == "" {
		return Link{}, fmt.Errorf("%w: want %s://host:port", ErrInvalidLink, Scheme)
	}
	frag, ok := strings.CutPrefix(u.Fragment, "room=")
	if !ok {
		return Link{}, fmt.Errorf("%w: missing room", ErrInvalidLink)
	}
	room, key, ok := strings.Cut(frag, ",")
	if !ok {
		return Link{}, fmt.Errorf("%w: missing key", ErrInvalidLink)
	}
	if b, err := hex.DecodeString(room); err != nil || len(b) != roomIDBytes {
		return Link{}, fmt.Errorf("%w: bad room id %q", ErrInvalidLink, room)
	}
	if b, err := base64.RawURLEncoding.DecodeString(key); err != nil || len(b) != keySize {
		return Link{}, fmt.Errorf("%w: bad key", ErrInvalidLink)
	}
	return Link{Relay: u.Host, RoomID: room, Key: key}, nil
}
