package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// ErrRoomInUse means the room-code port is already bound on this machine:
// somebody is hosting that code here.
var ErrRoomInUse = errors.New("room already in use")

// RoomInfo is served on the host's /room route so a browser (or a curious
// peer) can inspect the lobby without joining.
type RoomInfo struct {
	RoomCode   string `json:"roomCode"`
	Status     string `json:"status"`
	SeatsTaken int    `json:"seatsTaken"`
	Capacity   int    `json:"capacity"`
}

// Listener accepts peer links for a hosted room.
type Listener struct {
	roomCode string
	ln       net.Listener
	srv      *http.Server
	onPeer   func(*Peer)
	info     func() RoomInfo
	log      *logrus.Entry
}

// NewListener binds the room's derived port. onPeer is invoked once per
// accepted websocket, from that connection's serving goroutine; info backs
// the /room route.
func NewListener(roomCode string, onPeer func(*Peer), info func() RoomInfo) (*Listener, error) {
	ln, err := net.Listen("tcp", ListenAddr(roomCode))
	if err != nil {
		return nil, ErrRoomInUse
	}

	l := &Listener{
		roomCode: roomCode,
		ln:       ln,
		onPeer:   onPeer,
		info:     info,
		log:      logrus.WithField("room", roomCode),
	}

	r := mux.NewRouter()
	r.HandleFunc("/ws", l.handleWS).Methods("GET")
	r.HandleFunc("/room", l.handleRoomInfo).Methods("GET")
	l.srv = &http.Server{Handler: r}
	return l, nil
}

// Serve blocks until the listener is shut down.
func (l *Listener) Serve() error {
	l.log.WithField("addr", l.ln.Addr().String()).Info("room listener up")
	err := l.srv.Serve(l.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting and closes the listener.
func (l *Listener) Shutdown(ctx context.Context) error {
	return l.srv.Shutdown(ctx)
}

func (l *Listener) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // peers connect cross-origin by design
	})
	if err != nil {
		l.log.WithError(err).Warn("websocket accept failed")
		return
	}
	l.onPeer(NewPeer(uuid.NewString(), conn))
}

func (l *Listener) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(l.info()); err != nil {
		l.log.WithError(err).Debug("write room info")
	}
}
