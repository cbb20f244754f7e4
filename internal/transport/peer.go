package transport

import (
	"context"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"slave/internal/protocol"
)

// sendTimeout bounds a single outbound write. Sends are fire-and-forget:
// a failed write is logged by the caller and the health monitor deals with
// the peer.
const sendTimeout = 5 * time.Second

// Peer is one live websocket link, inbound (host side) or outbound
// (client side).
type Peer struct {
	ConnID string
	conn   *websocket.Conn
	log    *logrus.Entry
}

// NewPeer wraps an accepted or dialed connection.
func NewPeer(connID string, conn *websocket.Conn) *Peer {
	return &Peer{
		ConnID: connID,
		conn:   conn,
		log:    logrus.WithField("conn_id", connID),
	}
}

// Send writes one envelope. It never blocks longer than sendTimeout.
func (p *Peer) Send(ctx context.Context, env protocol.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return wsjson.Write(ctx, p.conn, env)
}

// ReadLoop delivers inbound envelopes to handle until the connection drops
// or ctx is cancelled. It always returns a non-nil error describing why the
// loop ended; a normal remote close is reported as net.ErrClosed-like
// websocket status, which callers treat as a plain disconnect.
func (p *Peer) ReadLoop(ctx context.Context, handle func(protocol.Envelope)) error {
	for {
		var env protocol.Envelope
		if err := wsjson.Read(ctx, p.conn, &env); err != nil {
			return err
		}
		handle(env)
	}
}

// Close tears the link down. Safe to call more than once.
func (p *Peer) Close() {
	err := p.conn.Close(websocket.StatusNormalClosure, "bye")
	if err != nil && !errors.Is(err, context.Canceled) {
		p.log.WithError(err).Debug("close peer link")
	}
}

// CloseWithReason closes the link with a policy status, used when a peer is
// rejected (room full, bad join).
func (p *Peer) CloseWithReason(reason string) {
	_ = p.conn.Close(websocket.StatusPolicyViolation, reason)
}
