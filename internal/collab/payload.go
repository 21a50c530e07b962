package collab

import (
	"encoding/json"
	"errors"
	"fmt"

	"LocalBoard/internal/state"
)

// Relay events.
const (
	EventInitRoom        = "init-room"
	EventJoinRoom        = "join-room"
	EventFirstInRoom     = "first-in-room"
	EventNewUser         = "new-user"
	EventRoomUserChange  = "room-user-change"
	EventClientBroadcast = "client-broadcast"
	EventServerBroadcast = "server-broadcast"
	EventServerVolatile  = "server-volatile-broadcast"
)

// Decrypted payload types.
const (
	TypeSceneUpdate     = "SCENE_UPDATE"
	TypeMouseLocation   = "MOUSE_LOCATION"
	TypeInvalidResponse = "INVALID_RESPONSE"
)

var ErrMalformed = errors.New("malformed payload")

// InitRoom is sent by the relay right after a socket connects.
type InitRoom struct {
	SocketID string `json:"socketId"`
}

// EncryptedMessage travels through the relay. RoomID is only set on the
// way in.
type EncryptedMessage struct {
	RoomID     string `json:"roomId,omitempty"`
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SceneUpdate struct {
	Elements []state.Element `json:"elements"`
}

type MouseLocation struct {
	SocketID      string      `json:"socketId"`
	PointerCoords state.Point `json:"pointerCoords"`
}

func encode(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: typ, Payload: raw})
}

func EncodeSceneUpdate(elements []state.Element) ([]byte, error) {
	if elements == nil {
		elements = []state.Element{}
	}
	return encode(TypeSceneUpdate, SceneUpdate{Elements: elements})
}

func EncodeMouseLocation(socketID string, p state.Point) ([]byte, error) {
	return encode(TypeMouseLocation, MouseLocation{SocketID: socketID, PointerCoords: p})
}

// Decode parses a decrypted payload and returns its type with the decoded
// body: *SceneUpdate, *MouseLocation, or nil for INVALID_RESPONSE.
func Decode(data []byte) (string, any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.Type {
	case TypeSceneUpdate:
		var u SceneUpdate
		if err := json.Unmarshal(env.Payload, &u); err != nil {
			return env.Type, nil, fmt.Errorf("%w: scene update: %v", ErrMalformed, err)
		}
		return env.Type, &u, nil
	case TypeMouseLocation:
		var m MouseLocation
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return env.Type, nil, fmt.Errorf("%w: mouse location: %v", ErrMalformed, err)
		}
		if m.SocketID == "" {
			return env.Type, nil, fmt.Errorf("%w: mouse location without socket id", ErrMalformed)
		}
		return env.Type, &m, nil
	case TypeInvalidResponse:
		return env.Type, nil, nil
	}
	return env.Type, nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
}
