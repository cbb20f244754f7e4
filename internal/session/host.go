package session

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"slave/internal/bot"
	"slave/internal/config"
	"slave/internal/domain"
	"slave/internal/protocol"
	"slave/internal/transport"
)

type inboundMsg struct {
	connID string
	env    protocol.Envelope
}

type peerJoin struct {
	connID string
	conn   Conn
}

// HostSession runs the authoritative side of a room. The run loop owns all
// state (roster, engine, peer map, health); every mutation
// arrives over a channel, so there is a single writer and no locks.
type HostSession struct {
	cfg    *config.GameConfig
	log    *logrus.Entry
	room   *RoomState
	game   *domain.Game
	tokens *TokenService
	self   protocol.PeerInfo

	peers  map[string]Conn              // conn id -> link
	health map[string]*PlayerConnection // player id -> liveness

	joins chan peerJoin
	drops chan string
	msgs  chan inboundMsg
	calls chan func()

	// turnToken identifies the current logical turn; delayed timer and bot
	// callbacks carry the token they were scheduled under and are dropped
	// when it no longer matches.
	turnToken int
	timerC    chan int
	botC      chan int
	turnTimer *time.Timer

	brains map[string]bot.Brain
	rng    *rand.Rand

	events chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHostSession creates a host for the room. The host's own seat is taken
// immediately.
func NewHostSession(cfg *config.GameConfig, roomCode, name string, avatar int) *HostSession {
	ctx, cancel := context.WithCancel(context.Background())
	self := protocol.PeerInfo{
		ConnID:    uuid.NewString(),
		PlayerID:  uuid.NewString(),
		Name:      name,
		Avatar:    avatar,
		Host:      true,
		Connected: true,
	}
	s := &HostSession{
		cfg:    cfg,
		log:    logrus.WithFields(logrus.Fields{"room": roomCode, "role": "host"}),
		room:   NewRoomState(roomCode, true),
		tokens: NewTokenService(cfg.TokenSecret),
		self:   self,
		peers:  make(map[string]Conn),
		health: make(map[string]*PlayerConnection),
		joins:  make(chan peerJoin, 8),
		drops:  make(chan string, 8),
		msgs:   make(chan inboundMsg, 64),
		calls:  make(chan func(), 16),
		timerC: make(chan int, 4),
		botC:   make(chan int, 4),
		brains: make(map[string]bot.Brain),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		events: make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}
	s.room.Players = append(s.room.Players, &s.self)
	return s
}

// Events is the stream of user-visible happenings for the UI layer.
func (s *HostSession) Events() <-chan Event { return s.events }

// SelfID is the host player's stable id.
func (s *HostSession) SelfID() string { return s.self.PlayerID }

// RoomInfo backs the /room HTTP route.
func (s *HostSession) RoomInfo() transport.RoomInfo {
	done := make(chan transport.RoomInfo, 1)
	s.calls <- func() {
		done <- transport.RoomInfo{
			RoomCode:   s.room.Code,
			Status:     s.room.Status,
			SeatsTaken: len(s.room.Players),
			Capacity:   RoomCapacity,
		}
	}
	return <-done
}

// Accept registers a freshly accepted link and starts its read pump.
func (s *HostSession) Accept(p *transport.Peer) {
	select {
	case s.joins <- peerJoin{connID: p.ConnID, conn: p}:
	case <-s.ctx.Done():
		p.Close()
		return
	}
	go func() {
		err := p.ReadLoop(s.ctx, func(env protocol.Envelope) {
			select {
			case s.msgs <- inboundMsg{connID: p.ConnID, env: env}:
			case <-s.ctx.Done():
			}
		})
		s.log.WithError(err).WithField("conn_id", p.ConnID).Debug("peer read loop ended")
		select {
		case s.drops <- p.ConnID:
		case <-s.ctx.Done():
		}
	}()
}

// Run drives the session until Shutdown. It is the sole goroutine that
// touches room, game and peer state.
func (s *HostSession) Run() {
	ping := time.NewTicker(s.cfg.PingInterval())
	defer ping.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case j := <-s.joins:
			s.peers[j.connID] = j.conn
		case connID := <-s.drops:
			s.handleDrop(connID)
		case m := <-s.msgs:
			s.handleMessage(m.connID, m.env)
		case fn := <-s.calls:
			fn()
		case <-ping.C:
			s.pingPeers()
		case token := <-s.timerC:
			s.handleTurnExpiry(token)
		case token := <-s.botC:
			s.handleBotTurn(token)
		}
	}
}

// Shutdown tears the session down and closes all peer links.
func (s *HostSession) Shutdown() {
	s.calls <- func() {
		for _, c := range s.peers {
			c.Close()
		}
	}
	s.cancel()
}

// ---- local (host player / UI) actions ----

func (s *HostSession) call(fn func() error) error {
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

func (s *HostSession) PlayCards(cards []domain.Card) error {
	return s.call(func() error { return s.commitPlay(s.self.PlayerID, cards, "") })
}

func (s *HostSession) Pass() error {
	return s.call(func() error { return s.commitPass(s.self.PlayerID, "") })
}

func (s *HostSession) SetReady(ready bool) error {
	return s.call(func() error {
		s.room.SetReady(s.self.PlayerID, ready)
		s.broadcastRoster()
		return nil
	})
}

func (s *HostSession) Chat(text string) error {
	return s.call(func() error {
		env, err := protocol.NewEnvelope(protocol.TypeChat, s.self.PlayerID, protocol.ChatPayload{
			PlayerID: s.self.PlayerID,
			Name:     s.self.Name,
			Text:     text,
		})
		if err != nil {
			return err
		}
		s.broadcastExcept(env, "")
		return nil
	})
}

// FillWithBots seats simulated players until the room is at capacity.
func (s *HostSession) FillWithBots(difficulty bot.Difficulty) error {
	return s.call(func() error {
		for i := len(s.room.Players); i < RoomCapacity; i++ {
			brain, err := bot.NewBrain(difficulty)
			if err != nil {
				return err
			}
			id := uuid.NewString()
			s.brains[id] = brain
			s.room.Players = append(s.room.Players, &protocol.PeerInfo{
				ConnID:    id,
				PlayerID:  id,
				Name:      botNames[len(s.room.Players)%len(botNames)],
				Avatar:    s.rng.Intn(8),
				Ready:     true,
				Connected: true,
				Bot:       true,
			})
		}
		s.room.refreshStatus()
		s.broadcastRoster()
		return nil
	})
}

var botNames = []string{"Somchai", "Malee", "Anong", "Prasert"}

var ErrNotAllReady = errors.New("not every seat is ready")

// StartGame deals and opens the match. Every seat must be taken and ready.
func (s *HostSession) StartGame() error {
	return s.call(func() error { return s.startGame() })
}

func (s *HostSession) startGame() error {
	if !s.room.AllReady() {
		return ErrNotAllReady
	}
	players := make([]*domain.Player, 0, RoomCapacity)
	for _, p := range s.room.Players {
		players = append(players, &domain.Player{
			ID:     p.PlayerID,
			Name:   p.Name,
			Avatar: p.Avatar,
			IsBot:  p.Bot,
		})
	}
	game, err := domain.NewGame(players, s.rng)
	if err != nil {
		return err
	}
	s.game = game
	startIndex := game.Start()
	s.room.Status = StatusPlaying

	counts := game.HandCounts()
	roster := s.room.Roster()
	for i, p := range s.room.Players {
		if p.PlayerID == s.self.PlayerID || p.Bot {
			continue
		}
		payload := protocol.DealCardsPayload{
			Hand:                game.Players[i].Hand,
			PlayerIndex:         i,
			StartingPlayerIndex: startIndex,
			AllHandCounts:       counts,
			AllPlayers:          roster,
		}
		s.sendToPlayer(p.PlayerID, protocol.TypeDealCards, payload)
	}
	s.emit(Event{Kind: EventDeal, PlayerID: game.Players[startIndex].ID})
	s.log.WithField("starter", game.Players[startIndex].Name).Info("match started")
	s.beginTurn()
	return nil
}

// ---- inbound handling ----

func (s *HostSession) handleMessage(connID string, env protocol.Envelope) {
	switch env.Type {
	case protocol.TypeJoin:
		s.handleJoin(connID, env)
	case protocol.TypeLeave:
		s.handleLeave(connID)
	case protocol.TypeReady, protocol.TypeUnready:
		if p := s.room.FindByConn(connID); p != nil {
			s.room.SetReady(p.PlayerID, env.Type == protocol.TypeReady)
			s.broadcastRoster()
		}
	case protocol.TypePong:
		if p := s.room.FindByConn(connID); p != nil {
			if pc, ok := s.health[p.PlayerID]; ok {
				pc.Pong(time.Now())
			}
		}
	case protocol.TypePlayCards:
		s.handleRemotePlay(connID, env)
	case protocol.TypePassTurn:
		s.handleRemotePass(connID, env)
	case protocol.TypeChat:
		// The one verbatim relay.
		s.broadcastExcept(env, connID)
		var chat protocol.ChatPayload
		if env.Decode(&chat) == nil {
			s.emit(Event{Kind: EventChat, PlayerID: chat.PlayerID, Name: chat.Name, Text: chat.Text})
		}
	case protocol.TypeSyncRequest:
		s.handleSyncRequest(connID, env)
	default:
		s.log.WithField("type", env.Type).Debug("ignoring unexpected message")
	}
}

func (s *HostSession) handleJoin(connID string, env protocol.Envelope) {
	conn, ok := s.peers[connID]
	if !ok {
		return
	}
	var join protocol.JoinPayload
	if err := env.Decode(&join); err != nil {
		s.sendError(connID, protocol.ErrCodeBadMessage, err.Error())
		return
	}
	join.Player.ConnID = connID
	join.Player.Host = false
	join.Player.Bot = false

	if join.ReconnectToken != "" {
		if pid, err := s.tokens.VerifyToken(join.ReconnectToken, s.room.Code); err == nil {
			join.Player.PlayerID = pid
		} else {
			s.log.WithError(err).Warn("bad reconnect token, falling back to name match")
		}
	}

	known := s.room.FindPlayer(join.Player.PlayerID) != nil ||
		s.room.FindPlayerByName(join.Player.Name) != nil ||
		s.gameKnows(join.Player.Name)

	seated, err := s.room.AddPlayer(join.Player)
	if err != nil {
		s.sendError(connID, protocol.ErrCodeRoomFull, err.Error())
		conn.CloseWithReason("room is full")
		delete(s.peers, connID)
		return
	}
	s.health[seated.PlayerID] = &PlayerConnection{PlayerID: seated.PlayerID, LastPong: time.Now()}

	token, err := s.tokens.GenerateToken(seated.PlayerID, s.room.Code)
	if err != nil {
		s.log.WithError(err).Warn("could not sign reconnect token")
	}

	if s.room.Status == StatusPlaying && known {
		s.reinstate(seated, token)
		return
	}

	s.log.WithField("player", seated.Name).Info("player joined")
	s.broadcastRosterWithToken(seated.PlayerID, token)
	s.emit(Event{Kind: EventRoster, PlayerID: seated.PlayerID, Name: seated.Name})
}

// gameKnows reports whether the running match has a seat for the name,
// meaning the joiner was dropped mid-game.
func (s *HostSession) gameKnows(name string) bool {
	if s.game == nil {
		return false
	}
	for _, p := range s.game.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// reinstate ships a resume snapshot to a reconnected peer and announces the
// comeback to everyone else.
func (s *HostSession) reinstate(seated *protocol.PeerInfo, token string) {
	s.log.WithField("player", seated.Name).Info("player reconnected")
	snap := s.game.Snapshot(seated.PlayerID)
	s.sendToPlayer(seated.PlayerID, protocol.TypeResumeGame, protocol.ResumeGamePayload{
		GameState:      snap,
		ReconnectToken: token,
	})
	notice := protocol.ReconnectNoticePayload{PlayerID: seated.PlayerID, Name: seated.Name}
	if env, err := protocol.NewEnvelope(protocol.TypeReconnectNotice, s.self.PlayerID, notice); err == nil {
		s.broadcastExcept(env, seated.ConnID)
	}
	s.broadcastRoster()
	s.emit(Event{Kind: EventReconnect, PlayerID: seated.PlayerID, Name: seated.Name})
}

func (s *HostSession) handleLeave(connID string) {
	p := s.room.FindByConn(connID)
	if p == nil {
		return
	}
	if s.room.Status == StatusPlaying {
		// Keep the seat for a reconnect.
		s.markOffline(p)
		return
	}
	s.room.RemovePlayer(p.PlayerID)
	delete(s.health, p.PlayerID)
	s.log.WithField("player", p.Name).Info("player left")
	s.broadcastRoster()
	s.emit(Event{Kind: EventRoster, PlayerID: p.PlayerID, Name: p.Name})
}

func (s *HostSession) handleDrop(connID string) {
	delete(s.peers, connID)
	p := s.room.FindByConn(connID)
	if p == nil {
		return
	}
	if s.room.Status == StatusPlaying {
		s.markOffline(p)
		return
	}
	s.room.RemovePlayer(p.PlayerID)
	delete(s.health, p.PlayerID)
	s.broadcastRoster()
}

func (s *HostSession) handleRemotePlay(connID string, env protocol.Envelope) {
	var play protocol.PlayCardsPayload
	if err := env.Decode(&play); err != nil {
		s.sendError(connID, protocol.ErrCodeBadMessage, err.Error())
		return
	}
	p := s.room.FindByConn(connID)
	if p == nil || p.PlayerID != play.PlayerID {
		s.sendError(connID, protocol.ErrCodeNotInRoom, "unknown player")
		return
	}
	if err := s.commitPlay(play.PlayerID, play.Cards, connID); err != nil {
		s.log.WithError(err).WithField("player", p.Name).Warn("rejected play")
		s.sendError(connID, protocol.ErrCodeIllegalMove, err.Error())
	}
}

func (s *HostSession) handleRemotePass(connID string, env protocol.Envelope) {
	var pass protocol.PassTurnPayload
	if err := env.Decode(&pass); err != nil {
		s.sendError(connID, protocol.ErrCodeBadMessage, err.Error())
		return
	}
	p := s.room.FindByConn(connID)
	if p == nil || p.PlayerID != pass.PlayerID {
		s.sendError(connID, protocol.ErrCodeNotInRoom, "unknown player")
		return
	}
	if err := s.commitPass(pass.PlayerID, connID); err != nil {
		s.log.WithError(err).WithField("player", p.Name).Warn("rejected pass")
		s.sendError(connID, protocol.ErrCodeIllegalMove, err.Error())
	}
}

func (s *HostSession) handleSyncRequest(connID string, env protocol.Envelope) {
	if s.game == nil {
		return
	}
	p := s.room.FindByConn(connID)
	if p == nil {
		return
	}
	snap := s.game.Snapshot(p.PlayerID)
	s.sendToPlayer(p.PlayerID, protocol.TypeSyncGameState, protocol.SyncGameStatePayload{GameState: snap})
}

// ---- the authoritative commit path ----

// commitPlay applies a play to the engine first, then relays the outcome,
// carrying the host-derived next index, to every client except the origin.
func (s *HostSession) commitPlay(playerID string, cards []domain.Card, originConn string) error {
	if s.game == nil {
		return domain.ErrNotPlaying
	}
	res, err := s.game.PlayCards(playerID, cards)
	if err != nil {
		return err
	}

	next := res.NextIndex
	hand := res.Hand
	env, err := protocol.NewEnvelope(protocol.TypePlayCards, s.self.PlayerID, protocol.PlayCardsPayload{
		PlayerID:        playerID,
		Cards:           cards,
		PlayedHand:      &hand,
		NextPlayerIndex: &next,
	})
	if err != nil {
		return err
	}
	s.broadcastExcept(env, originConn)
	s.emit(Event{Kind: EventPlay, PlayerID: playerID, Cards: cards})

	s.afterAction(res.NewRound, res.GameEnded)
	return nil
}

func (s *HostSession) commitPass(playerID string, originConn string) error {
	if s.game == nil {
		return domain.ErrNotPlaying
	}
	res, err := s.game.Pass(playerID)
	if err != nil {
		return err
	}

	payload := protocol.PassTurnPayload{PlayerID: playerID}
	if !res.NewRound {
		next := res.NextIndex
		payload.NextPlayerIndex = &next
	}
	env, err := protocol.NewEnvelope(protocol.TypePassTurn, s.self.PlayerID, payload)
	if err != nil {
		return err
	}
	s.broadcastExcept(env, originConn)
	s.emit(Event{Kind: EventPass, PlayerID: playerID})

	s.afterAction(res.NewRound, false)
	return nil
}

// afterAction announces round resets and game end, then opens the next
// logical turn.
func (s *HostSession) afterAction(newRound, gameEnded bool) {
	if gameEnded {
		s.finishGame()
		return
	}
	if newRound {
		lead := s.game.Players[s.game.CurrentIndex]
		payload := protocol.AllPassedPayload{NextPlayerID: lead.ID, RoundNumber: s.game.Round}
		if env, err := protocol.NewEnvelope(protocol.TypeAllPassed, s.self.PlayerID, payload); err == nil {
			s.broadcastExcept(env, "")
		}
		s.emit(Event{Kind: EventRoundReset, PlayerID: lead.ID})
	}
	s.beginTurn()
}

func (s *HostSession) finishGame() {
	s.room.Status = StatusFinished
	if s.turnTimer != nil {
		s.turnTimer.Stop()
	}
	snap := s.game.Snapshot(s.self.PlayerID)
	payload := protocol.GameEndPayload{FinishOrder: s.game.FinishOrder, Players: snap.Players}
	if env, err := protocol.NewEnvelope(protocol.TypeGameEnd, s.self.PlayerID, payload); err == nil {
		s.broadcastExcept(env, "")
	}
	s.emit(Event{Kind: EventGameEnd})
	s.log.WithField("order", s.game.FinishOrder).Info("game over")
}

// beginTurn opens a new logical turn: bumps the generation token, arms the
// forced-move timer, broadcasts the deadline and pokes the bot driver when
// the seat is simulated.
func (s *HostSession) beginTurn() {
	s.turnToken++
	token := s.turnToken

	d := s.cfg.TurnDuration()
	deadline := time.Now().Add(d)
	s.game.TurnDeadline = deadline

	if s.turnTimer != nil {
		s.turnTimer.Stop()
	}
	s.turnTimer = time.AfterFunc(d, func() {
		select {
		case s.timerC <- token:
		case <-s.ctx.Done():
		}
	})

	current := s.game.CurrentPlayer()
	if current == nil {
		return
	}
	payload := protocol.TurnTimerSyncPayload{
		TurnDeadline:    deadline.UnixMilli(),
		CurrentPlayerID: current.ID,
	}
	if env, err := protocol.NewEnvelope(protocol.TypeTurnTimerSync, s.self.PlayerID, payload); err == nil {
		s.broadcastExcept(env, "")
	}
	s.emit(Event{Kind: EventTurn, PlayerID: current.ID, Name: current.Name})

	if _, isBot := s.brains[current.ID]; isBot {
		delay := s.botDelay()
		time.AfterFunc(delay, func() {
			select {
			case s.botC <- token:
			case <-s.ctx.Done():
			}
		})
	}
}

func (s *HostSession) botDelay() time.Duration {
	min, max := s.cfg.BotDelayMin(), s.cfg.BotDelayMax()
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

// handleTurnExpiry forces a move on the stalled current player.
func (s *HostSession) handleTurnExpiry(token int) {
	if token != s.turnToken || s.game == nil || s.game.Phase != domain.PhasePlaying {
		return
	}
	current := s.game.CurrentPlayer()
	if current == nil {
		return
	}
	s.log.WithField("player", current.Name).Info("turn timer expired, forcing action")
	s.forceAction(current.ID)
}

// forceAction performs the stalled player's move (opening three of clubs,
// lowest card on a clear table, otherwise a pass) and broadcasts it as an
// auto action.
func (s *HostSession) forceAction(playerID string) {
	cards := s.game.ForcedAction()
	if cards == nil {
		res, err := s.game.Pass(playerID)
		if err != nil {
			s.log.WithError(err).Error("forced pass rejected")
			return
		}
		payload := protocol.AutoActionPayload{PlayerID: playerID, ActionType: protocol.AutoPass}
		if !res.NewRound {
			next := res.NextIndex
			payload.NextPlayerIndex = &next
		}
		if env, err := protocol.NewEnvelope(protocol.TypeAutoAction, s.self.PlayerID, payload); err == nil {
			s.broadcastExcept(env, "")
		}
		s.emit(Event{Kind: EventAutoAction, PlayerID: playerID})
		s.afterAction(res.NewRound, false)
		return
	}

	res, err := s.game.PlayCards(playerID, cards)
	if err != nil {
		s.log.WithError(err).Error("forced play rejected")
		return
	}
	next := res.NextIndex
	hand := res.Hand
	payload := protocol.AutoActionPayload{
		PlayerID:        playerID,
		ActionType:      protocol.AutoPlay,
		Cards:           cards,
		PlayedHand:      &hand,
		NextPlayerIndex: &next,
	}
	if env, err := protocol.NewEnvelope(protocol.TypeAutoAction, s.self.PlayerID, payload); err == nil {
		s.broadcastExcept(env, "")
	}
	s.emit(Event{Kind: EventAutoAction, PlayerID: playerID, Cards: cards})
	s.afterAction(res.NewRound, res.GameEnded)
}

// handleBotTurn asks the brain for a move. The token guard means a delayed
// decision for a turn that already moved on is silently dropped.
func (s *HostSession) handleBotTurn(token int) {
	if token != s.turnToken || s.game == nil || s.game.Phase != domain.PhasePlaying {
		return
	}
	current := s.game.CurrentPlayer()
	if current == nil {
		return
	}
	brain, ok := s.brains[current.ID]
	if !ok {
		return
	}

	move, err := brain.CalculateMove(s.game, current)
	if err != nil {
		s.log.WithError(err).Warn("bot brain failed, forcing action")
		s.forceAction(current.ID)
		return
	}
	// Must-play override: a pass is never honored on the opening turn or a
	// clear table.
	if move.Pass && (s.game.FirstTurn || s.game.TableHand == nil) {
		s.forceAction(current.ID)
		return
	}
	if move.Pass {
		if err := s.commitPass(current.ID, ""); err != nil {
			s.forceAction(current.ID)
		}
		return
	}
	if err := s.commitPlay(current.ID, move.Cards, ""); err != nil {
		s.log.WithError(err).Warn("bot move rejected, forcing action")
		s.forceAction(current.ID)
	}
}

// ---- heartbeats ----

func (s *HostSession) pingPeers() {
	now := time.Now()
	for _, p := range s.room.Players {
		if p.Bot || p.Host {
			continue
		}
		conn, ok := s.peers[p.ConnID]
		if !ok {
			continue
		}
		if env, err := protocol.NewEnvelope(protocol.TypePing, s.self.PlayerID, nil); err == nil {
			if err := conn.Send(s.ctx, env); err != nil {
				s.log.WithError(err).WithField("player", p.Name).Debug("ping send failed")
			}
		}

		pc, ok := s.health[p.PlayerID]
		if !ok {
			continue
		}
		if pc.HealthAt(now, s.cfg.UnstableAfter(), s.cfg.OfflineAfter()) == HealthOffline && p.Connected {
			s.log.WithField("player", p.Name).Warn("peer went offline")
			conn.Close()
			delete(s.peers, p.ConnID)
			s.markOffline(p)
		}
	}
}

// markOffline flags the seat, tells the room and keeps the seat reserved
// for a reconnect.
func (s *HostSession) markOffline(p *protocol.PeerInfo) {
	s.room.MarkDisconnected(p.PlayerID)
	notice := protocol.DisconnectNoticePayload{PlayerID: p.PlayerID, Name: p.Name}
	if env, err := protocol.NewEnvelope(protocol.TypeDisconnectNotice, s.self.PlayerID, notice); err == nil {
		s.broadcastExcept(env, p.ConnID)
	}
	s.emit(Event{Kind: EventDisconnect, PlayerID: p.PlayerID, Name: p.Name})
}

// ---- send helpers ----

func (s *HostSession) broadcastExcept(env protocol.Envelope, exceptConn string) {
	for connID, conn := range s.peers {
		if connID == exceptConn {
			continue
		}
		if err := conn.Send(s.ctx, env); err != nil {
			s.log.WithError(err).WithField("conn_id", connID).Debug("broadcast send failed")
		}
	}
}

func (s *HostSession) sendToPlayer(playerID string, t protocol.Type, payload any) {
	p := s.room.FindPlayer(playerID)
	if p == nil {
		return
	}
	conn, ok := s.peers[p.ConnID]
	if !ok {
		return
	}
	env, err := protocol.NewEnvelope(t, s.self.PlayerID, payload)
	if err != nil {
		s.log.WithError(err).Error("encode payload")
		return
	}
	if err := conn.Send(s.ctx, env); err != nil {
		s.log.WithError(err).WithField("player", p.Name).Debug("send failed")
	}
}

func (s *HostSession) sendError(connID, code, msg string) {
	conn, ok := s.peers[connID]
	if !ok {
		return
	}
	env, err := protocol.NewEnvelope(protocol.TypeError, s.self.PlayerID, protocol.ErrorPayload{
		Code:    code,
		Message: msg,
	})
	if err != nil {
		return
	}
	if err := conn.Send(s.ctx, env); err != nil {
		s.log.WithError(err).Debug("error send failed")
	}
}

func (s *HostSession) broadcastRoster() {
	s.broadcastRosterWithToken("", "")
}

// broadcastRosterWithToken sends the roster to everyone; the named player's
// copy additionally carries their fresh reconnect token.
func (s *HostSession) broadcastRosterWithToken(tokenPlayerID, token string) {
	base := protocol.RosterSyncPayload{
		RoomCode: s.room.Code,
		Status:   s.room.Status,
		Players:  s.room.Roster(),
	}
	for _, p := range s.room.Players {
		if p.Bot || p.Host {
			continue
		}
		conn, ok := s.peers[p.ConnID]
		if !ok {
			continue
		}
		payload := base
		if p.PlayerID == tokenPlayerID {
			payload.ReconnectToken = token
		}
		env, err := protocol.NewEnvelope(protocol.TypeRosterSync, s.self.PlayerID, payload)
		if err != nil {
			continue
		}
		if err := conn.Send(s.ctx, env); err != nil {
			s.log.WithError(err).WithField("player", p.Name).Debug("roster send failed")
		}
	}
}

func (s *HostSession) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}
