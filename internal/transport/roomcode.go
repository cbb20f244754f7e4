package transport

import (
	"fmt"
	"hash/fnv"
)

// Room codes map deterministically onto a TCP port so clients can dial the
// host directly without any lookup service. Two different codes may collide
// on a port; the loser of the bind race sees "room already in use".
const (
	portBase  = 42000
	portRange = 1000
)

// PortForRoom derives the host listen port for a room code.
func PortForRoom(code string) int {
	h := fnv.New32a()
	h.Write([]byte(code))
	return portBase + int(h.Sum32()%portRange)
}

// ListenAddr is the address the host binds for a room code.
func ListenAddr(code string) string {
	return fmt.Sprintf(":%d", PortForRoom(code))
}

// DialAddr is the address a client dials to reach the room host.
func DialAddr(hostIP, code string) string {
	return fmt.Sprintf("ws://%s:%d/ws", hostIP, PortForRoom(code))
}
