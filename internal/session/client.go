package session

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"slave/internal/config"
	"slave/internal/domain"
	"slave/internal/protocol"
	"slave/internal/transport"
)

// ClientSession mirrors host-confirmed state on a non-host peer. Local
// actions are applied provisionally and sent to the host; whatever the host
// relays back, including the authoritative next index, overwrites the
// local guess.
type ClientSession struct {
	cfg  *config.GameConfig
	log  *logrus.Entry
	room *RoomState
	game *domain.Game
	self protocol.PeerInfo

	conn           Conn
	reconnectToken string
	lastFromHost   time.Time
	linkState      LinkState

	msgs  chan protocol.Envelope
	drops chan struct{}
	calls chan func()

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// Join dials the room host and sends the join message. An unreachable host
// surfaces as transport.ErrRoomNotFound.
func Join(cfg *config.GameConfig, hostIP, roomCode, name string, avatar int) (*ClientSession, error) {
	dialCtx, dialCancel := context.WithTimeout(context.Background(), cfg.JoinTimeout())
	defer dialCancel()
	peer, err := transport.Dial(dialCtx, hostIP, roomCode)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &ClientSession{
		cfg:  cfg,
		log:  logrus.WithFields(logrus.Fields{"room": roomCode, "role": "client"}),
		room: NewRoomState(roomCode, false),
		self: protocol.PeerInfo{
			ConnID:    peer.ConnID,
			PlayerID:  uuid.NewString(),
			Name:      name,
			Avatar:    avatar,
			Connected: true,
		},
		conn:         peer,
		lastFromHost: time.Now(),
		msgs:         make(chan protocol.Envelope, 64),
		drops:        make(chan struct{}, 1),
		calls:        make(chan func(), 16),
		events:       make(chan Event, 64),
		ctx:          ctx,
		cancel:       cancel,
	}

	if err := s.sendJoin(); err != nil {
		cancel()
		peer.Close()
		return nil, err
	}

	go func() {
		err := peer.ReadLoop(ctx, func(env protocol.Envelope) {
			select {
			case s.msgs <- env:
			case <-ctx.Done():
			}
		})
		s.log.WithError(err).Debug("host link closed")
		select {
		case s.drops <- struct{}{}:
		default:
		}
	}()
	return s, nil
}

func (s *ClientSession) sendJoin() error {
	env, err := protocol.NewEnvelope(protocol.TypeJoin, s.self.PlayerID, protocol.JoinPayload{
		Player:         s.self,
		ReconnectToken: s.reconnectToken,
	})
	if err != nil {
		return err
	}
	return s.conn.Send(s.ctx, env)
}

// Events is the stream of user-visible happenings for the UI layer.
func (s *ClientSession) Events() <-chan Event { return s.events }

// SelfID is this player's stable id.
func (s *ClientSession) SelfID() string { return s.self.PlayerID }

// Run drives the session until Leave. The loop is the sole owner of room
// and game state.
func (s *ClientSession) Run() {
	check := time.NewTicker(time.Second)
	defer check.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case env := <-s.msgs:
			s.lastFromHost = time.Now()
			s.handleMessage(env)
		case fn := <-s.calls:
			fn()
		case <-check.C:
			s.checkLink()
		case <-s.drops:
			s.setLinkState(LinkDisconnected)
		}
	}
}

// Leave tells the host goodbye and tears the session down.
func (s *ClientSession) Leave() {
	if env, err := protocol.NewEnvelope(protocol.TypeLeave, s.self.PlayerID, nil); err == nil {
		_ = s.conn.Send(s.ctx, env)
	}
	s.cancel()
	s.conn.Close()
}

// ---- local actions ----

func (s *ClientSession) call(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case s.calls <- func() { errc <- fn() }:
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	select {
	case err := <-errc:
		return err
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// PlayCards validates against the local mirror, applies provisionally and
// sends the action to the host. The host's relay does not come back to the
// origin; the local application stands unless a resync replaces it.
func (s *ClientSession) PlayCards(cards []domain.Card) error {
	return s.call(func() error {
		if s.game == nil {
			return domain.ErrNotPlaying
		}
		if _, err := s.game.PlayCards(s.self.PlayerID, cards); err != nil {
			return err
		}
		env, err := protocol.NewEnvelope(protocol.TypePlayCards, s.self.PlayerID, protocol.PlayCardsPayload{
			PlayerID: s.self.PlayerID,
			Cards:    cards,
		})
		if err != nil {
			return err
		}
		return s.conn.Send(s.ctx, env)
	})
}

func (s *ClientSession) Pass() error {
	return s.call(func() error {
		if s.game == nil {
			return domain.ErrNotPlaying
		}
		if _, err := s.game.Pass(s.self.PlayerID); err != nil {
			return err
		}
		env, err := protocol.NewEnvelope(protocol.TypePassTurn, s.self.PlayerID, protocol.PassTurnPayload{
			PlayerID: s.self.PlayerID,
		})
		if err != nil {
			return err
		}
		return s.conn.Send(s.ctx, env)
	})
}

func (s *ClientSession) SetReady(ready bool) error {
	return s.call(func() error {
		t := protocol.TypeReady
		if !ready {
			t = protocol.TypeUnready
		}
		env, err := protocol.NewEnvelope(t, s.self.PlayerID, nil)
		if err != nil {
			return err
		}
		return s.conn.Send(s.ctx, env)
	})
}

func (s *ClientSession) Chat(text string) error {
	return s.call(func() error {
		env, err := protocol.NewEnvelope(protocol.TypeChat, s.self.PlayerID, protocol.ChatPayload{
			PlayerID: s.self.PlayerID,
			Name:     s.self.Name,
			Text:     text,
		})
		if err != nil {
			return err
		}
		return s.conn.Send(s.ctx, env)
	})
}

// RequestSync explicitly asks the host for a fresh snapshot.
func (s *ClientSession) RequestSync() error {
	return s.call(func() error { return s.sendSyncRequest() })
}

func (s *ClientSession) sendSyncRequest() error {
	env, err := protocol.NewEnvelope(protocol.TypeSyncRequest, s.self.PlayerID, protocol.SyncRequestPayload{
		PlayerID: s.self.PlayerID,
	})
	if err != nil {
		return err
	}
	return s.conn.Send(s.ctx, env)
}

// ---- inbound handling ----

func (s *ClientSession) handleMessage(env protocol.Envelope) {
	switch env.Type {
	case protocol.TypePing:
		if pong, err := protocol.NewEnvelope(protocol.TypePong, s.self.PlayerID, nil); err == nil {
			if err := s.conn.Send(s.ctx, pong); err != nil {
				s.log.WithError(err).Debug("pong send failed")
			}
		}
	case protocol.TypeRosterSync:
		s.handleRosterSync(env)
	case protocol.TypeDealCards:
		s.handleDeal(env)
	case protocol.TypePlayCards:
		s.handlePlay(env)
	case protocol.TypePassTurn:
		s.handlePass(env)
	case protocol.TypeAllPassed:
		s.handleAllPassed(env)
	case protocol.TypeTurnTimerSync:
		s.handleTimerSync(env)
	case protocol.TypeAutoAction:
		s.handleAutoAction(env)
	case protocol.TypeSyncGameState:
		s.handleSyncState(env)
	case protocol.TypeResumeGame:
		s.handleResume(env)
	case protocol.TypeGameEnd:
		s.handleGameEnd(env)
	case protocol.TypeChat:
		var chat protocol.ChatPayload
		if env.Decode(&chat) == nil {
			s.emit(Event{Kind: EventChat, PlayerID: chat.PlayerID, Name: chat.Name, Text: chat.Text})
		}
	case protocol.TypeDisconnectNotice:
		var n protocol.DisconnectNoticePayload
		if env.Decode(&n) == nil {
			s.room.MarkDisconnected(n.PlayerID)
			s.emit(Event{Kind: EventDisconnect, PlayerID: n.PlayerID, Name: n.Name})
		}
	case protocol.TypeReconnectNotice:
		var n protocol.ReconnectNoticePayload
		if env.Decode(&n) == nil {
			if p := s.room.FindPlayer(n.PlayerID); p != nil {
				p.Connected = true
			}
			s.emit(Event{Kind: EventReconnect, PlayerID: n.PlayerID, Name: n.Name})
		}
	case protocol.TypeError:
		var e protocol.ErrorPayload
		if env.Decode(&e) == nil {
			s.log.WithFields(logrus.Fields{"code": e.Code, "message": e.Message}).Warn("host rejected action")
			s.emit(Event{Kind: EventError, Text: e.Message})
		}
	default:
		s.log.WithField("type", env.Type).Debug("ignoring unexpected message")
	}
}

func (s *ClientSession) handleRosterSync(env protocol.Envelope) {
	var roster protocol.RosterSyncPayload
	if err := env.Decode(&roster); err != nil {
		s.log.WithError(err).Warn("bad roster sync")
		return
	}
	s.room.Status = roster.Status
	s.room.Players = s.room.Players[:0]
	for i := range roster.Players {
		p := roster.Players[i]
		s.room.Players = append(s.room.Players, &p)
	}
	if roster.ReconnectToken != "" {
		s.reconnectToken = roster.ReconnectToken
	}
	// A name-match rejoin keeps the seat's original stable id; adopt it.
	if p := s.room.FindPlayerByName(s.self.Name); p != nil && p.PlayerID != s.self.PlayerID {
		s.self.PlayerID = p.PlayerID
	}
	s.emit(Event{Kind: EventRoster})
}

func (s *ClientSession) handleDeal(env protocol.Envelope) {
	var deal protocol.DealCardsPayload
	if err := env.Decode(&deal); err != nil {
		s.log.WithError(err).Warn("bad deal")
		return
	}
	players := make([]*domain.Player, 0, len(deal.AllPlayers))
	for _, p := range deal.AllPlayers {
		players = append(players, &domain.Player{
			ID:     p.PlayerID,
			Name:   p.Name,
			Avatar: p.Avatar,
			IsBot:  p.Bot,
		})
	}
	game, err := domain.NewGame(players, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		s.log.WithError(err).Error("deal with bad roster")
		return
	}
	game.DealLocal(s.self.PlayerID, deal.Hand, deal.AllHandCounts, deal.StartingPlayerIndex)
	s.game = game
	s.room.Status = StatusPlaying
	s.emit(Event{Kind: EventDeal, PlayerID: s.self.PlayerID, Cards: deal.Hand})
}

func (s *ClientSession) handlePlay(env protocol.Envelope) {
	var play protocol.PlayCardsPayload
	if err := env.Decode(&play); err != nil || s.game == nil {
		return
	}
	if play.PlayedHand == nil || play.NextPlayerIndex == nil {
		s.log.Warn("relayed play missing authoritative fields, requesting sync")
		if err := s.sendSyncRequest(); err != nil {
			s.log.WithError(err).Debug("sync request failed")
		}
		return
	}
	s.game.ApplyRemotePlay(play.PlayerID, *play.PlayedHand, *play.NextPlayerIndex)
	s.emit(Event{Kind: EventPlay, PlayerID: play.PlayerID, Cards: play.Cards})
}

func (s *ClientSession) handlePass(env protocol.Envelope) {
	var pass protocol.PassTurnPayload
	if err := env.Decode(&pass); err != nil || s.game == nil {
		return
	}
	next := -1
	if pass.NextPlayerIndex != nil {
		next = *pass.NextPlayerIndex
	}
	s.game.ApplyRemotePass(pass.PlayerID, next)
	s.emit(Event{Kind: EventPass, PlayerID: pass.PlayerID})
}

func (s *ClientSession) handleAllPassed(env protocol.Envelope) {
	var reset protocol.AllPassedPayload
	if err := env.Decode(&reset); err != nil || s.game == nil {
		return
	}
	s.game.ApplyRoundReset(reset.NextPlayerID, reset.RoundNumber)
	s.emit(Event{Kind: EventRoundReset, PlayerID: reset.NextPlayerID})
}

func (s *ClientSession) handleTimerSync(env protocol.Envelope) {
	var sync protocol.TurnTimerSyncPayload
	if err := env.Decode(&sync); err != nil || s.game == nil {
		return
	}
	s.game.TurnDeadline = time.UnixMilli(sync.TurnDeadline)
	// The host's view of whose turn it is always wins.
	if idx := s.indexOf(sync.CurrentPlayerID); idx >= 0 {
		s.game.ApplyTurnSync(idx)
	}
	s.emit(Event{Kind: EventTurn, PlayerID: sync.CurrentPlayerID})
}

func (s *ClientSession) handleAutoAction(env protocol.Envelope) {
	var auto protocol.AutoActionPayload
	if err := env.Decode(&auto); err != nil || s.game == nil {
		return
	}
	switch auto.ActionType {
	case protocol.AutoPlay:
		if auto.PlayedHand != nil && auto.NextPlayerIndex != nil {
			s.game.ApplyRemotePlay(auto.PlayerID, *auto.PlayedHand, *auto.NextPlayerIndex)
		}
	case protocol.AutoPass:
		next := -1
		if auto.NextPlayerIndex != nil {
			next = *auto.NextPlayerIndex
		}
		s.game.ApplyRemotePass(auto.PlayerID, next)
	}
	s.emit(Event{Kind: EventAutoAction, PlayerID: auto.PlayerID, Cards: auto.Cards})
}

func (s *ClientSession) handleSyncState(env protocol.Envelope) {
	var sync protocol.SyncGameStatePayload
	if err := env.Decode(&sync); err != nil || s.game == nil {
		return
	}
	if !s.game.ApplySnapshot(s.self.PlayerID, sync.GameState) {
		s.log.Info("discarded stale snapshot")
		return
	}
	s.emit(Event{Kind: EventTurn, PlayerID: s.currentPlayerID()})
}

func (s *ClientSession) handleResume(env protocol.Envelope) {
	var resume protocol.ResumeGamePayload
	if err := env.Decode(&resume); err != nil {
		return
	}
	if resume.ReconnectToken != "" {
		s.reconnectToken = resume.ReconnectToken
	}
	// The snapshot names our seat; adopt its stable id before applying so
	// the real hand lands on the right player.
	if idx := resume.GameState.PlayerIndex; idx >= 0 && idx < len(resume.GameState.Players) {
		s.self.PlayerID = resume.GameState.Players[idx].ID
	}
	if s.game == nil {
		players := make([]*domain.Player, 0, len(resume.GameState.Players))
		for _, p := range resume.GameState.Players {
			players = append(players, &domain.Player{
				ID:     p.ID,
				Name:   p.Name,
				Avatar: p.Avatar,
				IsBot:  p.IsBot,
			})
		}
		// Fresh mirror still in the waiting phase: the snapshot's phase and
		// hands take over wholesale, no staleness possible.
		game, err := domain.NewGame(players, rand.New(rand.NewSource(time.Now().UnixNano())))
		if err != nil {
			s.log.WithError(err).Error("resume with bad roster")
			return
		}
		s.game = game
	}
	s.room.Status = StatusPlaying
	s.game.ApplySnapshot(s.self.PlayerID, resume.GameState)
	s.emit(Event{Kind: EventReconnect, PlayerID: s.self.PlayerID})
}

func (s *ClientSession) handleGameEnd(env protocol.Envelope) {
	var end protocol.GameEndPayload
	if err := env.Decode(&end); err != nil {
		return
	}
	if s.game != nil {
		s.game.Phase = domain.PhaseGameEnd
	}
	s.room.Status = StatusFinished
	s.emit(Event{Kind: EventGameEnd})
}

// ---- link health ----

// checkLink runs once a second; thresholds only matter while a match is in
// the playing phase, so lobby silences never false-positive.
func (s *ClientSession) checkLink() {
	if s.room.Status != StatusPlaying {
		return
	}
	state := LinkStateAt(s.lastFromHost, time.Now(), s.cfg.StaleAfter(), s.cfg.DisconnectedAfter())
	if state == s.linkState {
		return
	}
	prev := s.linkState
	s.setLinkState(state)
	if state == LinkStale && prev == LinkHealthy {
		s.log.Warn("host link stale, requesting sync")
		if err := s.sendSyncRequest(); err != nil {
			s.log.WithError(err).Debug("sync request failed")
		}
	}
}

func (s *ClientSession) setLinkState(state LinkState) {
	if state == s.linkState {
		return
	}
	s.linkState = state
	s.emit(Event{Kind: EventLinkState, Text: state.String()})
}

func (s *ClientSession) indexOf(playerID string) int {
	for i, p := range s.game.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (s *ClientSession) currentPlayerID() string {
	if p := s.game.CurrentPlayer(); p != nil {
		return p.ID
	}
	return ""
}

func (s *ClientSession) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}
