package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slave/internal/config"
	"slave/internal/domain"
	"slave/internal/protocol"
)

// recordConn captures outbound envelopes instead of writing to a socket.
type recordConn struct {
	sent   []protocol.Envelope
	closed bool
}

func (c *recordConn) Send(_ context.Context, env protocol.Envelope) error {
	c.sent = append(c.sent, env)
	return nil
}

func (c *recordConn) Close()                 { c.closed = true }
func (c *recordConn) CloseWithReason(string) { c.closed = true }

func (c *recordConn) last(t protocol.Type) (protocol.Envelope, bool) {
	for i := len(c.sent) - 1; i >= 0; i-- {
		if c.sent[i].Type == t {
			return c.sent[i], true
		}
	}
	return protocol.Envelope{}, false
}

func testConfig() *config.GameConfig {
	return &config.GameConfig{
		TurnSeconds:          30,
		PingIntervalSeconds:  3,
		UnstableAfterSeconds: 6,
		OfflineAfterSeconds:  12,
		StaleAfterSeconds:    8,
		DisconnectedSeconds:  15,
		JoinTimeoutSeconds:   10,
		BotDelayMinSeconds:   0,
		BotDelayMaxSeconds:   0,
		TokenSecret:          "test-secret",
	}
}

func newTestHost(t *testing.T) *HostSession {
	t.Helper()
	s := NewHostSession(testConfig(), "KHAO", "Arthit", 1)
	t.Cleanup(s.cancel)
	return s
}

// seatRemote registers a link and runs the join handshake synchronously.
func seatRemote(t *testing.T, s *HostSession, connID, playerID, name string) *recordConn {
	t.Helper()
	conn := &recordConn{}
	s.peers[connID] = conn
	env, err := protocol.NewEnvelope(protocol.TypeJoin, playerID, protocol.JoinPayload{
		Player: protocol.PeerInfo{PlayerID: playerID, Name: name},
	})
	require.NoError(t, err)
	s.handleJoin(connID, env)
	return conn
}

func TestJoinSeatsPlayerAndSendsToken(t *testing.T) {
	s := newTestHost(t)
	conn := seatRemote(t, s, "c1", "p1", "Beam")

	require.Len(t, s.room.Players, 2)
	env, ok := conn.last(protocol.TypeRosterSync)
	require.True(t, ok)

	var roster protocol.RosterSyncPayload
	require.NoError(t, env.Decode(&roster))
	assert.Len(t, roster.Players, 2)
	assert.NotEmpty(t, roster.ReconnectToken)
}

func TestJoinRejectsFifthPlayer(t *testing.T) {
	s := newTestHost(t)
	seatRemote(t, s, "c1", "p1", "Beam")
	seatRemote(t, s, "c2", "p2", "Chai")
	seatRemote(t, s, "c3", "p3", "Dao")

	conn := seatRemote(t, s, "c4", "p4", "Ek")

	env, ok := conn.last(protocol.TypeError)
	require.True(t, ok)
	var e protocol.ErrorPayload
	require.NoError(t, env.Decode(&e))
	assert.Equal(t, protocol.ErrCodeRoomFull, e.Code)
	assert.True(t, conn.closed)
	assert.Len(t, s.room.Players, 4)
}

func readyRoom(t *testing.T, s *HostSession) (map[string]*recordConn, []string) {
	t.Helper()
	ids := []string{"p1", "p2", "p3"}
	names := []string{"Beam", "Chai", "Dao"}
	conns := make(map[string]*recordConn, 3)
	for i, id := range ids {
		connID := "conn-" + id
		conns[id] = seatRemote(t, s, connID, id, names[i])
		env, err := protocol.NewEnvelope(protocol.TypeReady, id, nil)
		require.NoError(t, err)
		s.handleMessage(connID, env)
	}
	s.room.SetReady(s.self.PlayerID, true)
	return conns, ids
}

func TestStartGameDealsToEachClient(t *testing.T) {
	s := newTestHost(t)
	conns, ids := readyRoom(t, s)

	require.NoError(t, s.startGame())
	assert.Equal(t, StatusPlaying, s.room.Status)

	starter := s.game.CurrentIndex
	for _, id := range ids {
		env, ok := conns[id].last(protocol.TypeDealCards)
		require.True(t, ok, "client %s got no deal", id)

		var deal protocol.DealCardsPayload
		require.NoError(t, env.Decode(&deal))
		assert.Len(t, deal.Hand, domain.HandSize)
		assert.Equal(t, starter, deal.StartingPlayerIndex)
		assert.Equal(t, []int{13, 13, 13, 13}, deal.AllHandCounts)
		assert.Len(t, deal.AllPlayers, 4)
		assert.Equal(t, s.game.Players[deal.PlayerIndex].ID, id)
	}
}

func TestForcedOpeningCarriesAuthoritativeIndex(t *testing.T) {
	s := newTestHost(t)
	conns, _ := readyRoom(t, s)
	require.NoError(t, s.startGame())

	current := s.game.CurrentPlayer()
	require.NotNil(t, current)
	s.forceAction(current.ID)

	// The opening force always plays a hand containing the three of clubs.
	for _, conn := range conns {
		env, ok := conn.last(protocol.TypeAutoAction)
		require.True(t, ok)

		var auto protocol.AutoActionPayload
		require.NoError(t, env.Decode(&auto))
		assert.Equal(t, protocol.AutoPlay, auto.ActionType)
		assert.Equal(t, current.ID, auto.PlayerID)
		assert.True(t, domain.ContainsCard(auto.Cards, domain.ThreeOfClubs))
		require.NotNil(t, auto.NextPlayerIndex)
		assert.Equal(t, s.game.CurrentIndex, *auto.NextPlayerIndex)
	}
	assert.False(t, s.game.FirstTurn)
}

func TestOutOfTurnPlayGetsErrorNotRelay(t *testing.T) {
	s := newTestHost(t)
	conns, ids := readyRoom(t, s)
	require.NoError(t, s.startGame())

	// Pick a remote player who is not on turn.
	var offTurn string
	for _, id := range ids {
		if s.game.CurrentPlayer().ID != id {
			offTurn = id
			break
		}
	}
	require.NotEmpty(t, offTurn)
	p, _ := s.game.PlayerByID(offTurn)

	env, err := protocol.NewEnvelope(protocol.TypePlayCards, offTurn, protocol.PlayCardsPayload{
		PlayerID: offTurn,
		Cards:    p.Hand[:1],
	})
	require.NoError(t, err)
	s.handleMessage("conn-"+offTurn, env)

	errEnv, ok := conns[offTurn].last(protocol.TypeError)
	require.True(t, ok)
	var e protocol.ErrorPayload
	require.NoError(t, errEnv.Decode(&e))
	assert.Equal(t, protocol.ErrCodeIllegalMove, e.Code)

	// Nobody else saw a play relay.
	for _, id := range ids {
		if id == offTurn {
			continue
		}
		_, saw := conns[id].last(protocol.TypePlayCards)
		assert.False(t, saw)
	}
}

func TestStaleTurnTokenIsIgnored(t *testing.T) {
	s := newTestHost(t)
	_, _ = readyRoom(t, s)
	require.NoError(t, s.startGame())

	stale := s.turnToken
	current := s.game.CurrentPlayer()
	s.forceAction(current.ID) // advances the turn, bumps the token

	idxAfter := s.game.CurrentIndex
	s.handleTurnExpiry(stale)
	assert.Equal(t, idxAfter, s.game.CurrentIndex, "stale expiry must not force another action")
}

func TestChatRelayedVerbatim(t *testing.T) {
	s := newTestHost(t)
	conns, _ := readyRoom(t, s)

	env, err := protocol.NewEnvelope(protocol.TypeChat, "p1", protocol.ChatPayload{
		PlayerID: "p1", Name: "Beam", Text: "sawasdee",
	})
	require.NoError(t, err)
	s.handleMessage("conn-p1", env)

	_, sawOwn := conns["p1"].last(protocol.TypeChat)
	assert.False(t, sawOwn, "chat must not echo to its sender")
	for _, id := range []string{"p2", "p3"} {
		got, ok := conns[id].last(protocol.TypeChat)
		require.True(t, ok)
		assert.Equal(t, env.Payload, got.Payload, "chat payload must be untouched")
		assert.Equal(t, "p1", got.SenderID)
	}
}

func TestSyncRequestGetsScopedSnapshot(t *testing.T) {
	s := newTestHost(t)
	conns, _ := readyRoom(t, s)
	require.NoError(t, s.startGame())

	env, err := protocol.NewEnvelope(protocol.TypeSyncRequest, "p2", protocol.SyncRequestPayload{PlayerID: "p2"})
	require.NoError(t, err)
	s.handleMessage("conn-p2", env)

	got, ok := conns["p2"].last(protocol.TypeSyncGameState)
	require.True(t, ok)
	var sync protocol.SyncGameStatePayload
	require.NoError(t, got.Decode(&sync))

	p2, _ := s.game.PlayerByID("p2")
	assert.Len(t, sync.GameState.Hand, len(p2.Hand))
	for _, ps := range sync.GameState.Players {
		assert.Equal(t, 13, ps.HandCount)
	}
}

func TestMidGameReconnectShipsResume(t *testing.T) {
	s := newTestHost(t)
	_, _ = readyRoom(t, s)
	require.NoError(t, s.startGame())

	// Drop p3, then have them come back under a new connection id.
	s.handleDrop("conn-p3")
	p3 := s.room.FindPlayer("p3")
	require.NotNil(t, p3, "seat must survive a mid-game drop")
	assert.False(t, p3.Connected)

	fresh := &recordConn{}
	s.peers["conn-p3b"] = fresh
	env, err := protocol.NewEnvelope(protocol.TypeJoin, "p3-new", protocol.JoinPayload{
		Player: protocol.PeerInfo{PlayerID: "p3-new", Name: "Dao"},
	})
	require.NoError(t, err)
	s.handleJoin("conn-p3b", env)

	resume, ok := fresh.last(protocol.TypeResumeGame)
	require.True(t, ok)
	var payload protocol.ResumeGamePayload
	require.NoError(t, resume.Decode(&payload))
	assert.Equal(t, domain.PhasePlaying, payload.GameState.Phase)
	assert.NotEmpty(t, payload.GameState.Hand)
	assert.Len(t, s.room.Players, 4)
}
