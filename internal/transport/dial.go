package transport

import (
	"context"
	"errors"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrRoomNotFound means no host answered on the room's derived address
// within the join window.
var ErrRoomNotFound = errors.New("room not found")

// Dial connects to the host of a room. ctx should carry the join timeout;
// an unreachable or unresponsive host surfaces as ErrRoomNotFound.
func Dial(ctx context.Context, hostIP, roomCode string) (*Peer, error) {
	addr := DialAddr(hostIP, roomCode)
	logrus.WithFields(logrus.Fields{
		"room": roomCode,
		"addr": addr,
	}).Info("dialing room host")

	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		logrus.WithError(err).WithField("room", roomCode).Warn("dial failed")
		return nil, ErrRoomNotFound
	}
	return NewPeer(uuid.NewString(), conn), nil
}
