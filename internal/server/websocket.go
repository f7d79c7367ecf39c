package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// errStale marks a timer callback whose precondition no longer holds.
// Stale races are silently aborted, never reported.
var errStale = errors.New("stale state")

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 64
)

// wsClient pairs a connection with its outbound queue. One writer
// goroutine drains the queue, so no two goroutines ever write to the
// same connection. A client that stops draining fills its queue and
// is dropped instead of blocking the sender.
type wsClient struct {
	code string
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

type wsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]*wsClient
	groups  map[string]map[*websocket.Conn]int
	members map[string]map[int]*websocket.Conn
}

func newWSHub() *wsHub {
	return &wsHub{
		clients: make(map[*websocket.Conn]*wsClient),
		groups:  make(map[string]map[*websocket.Conn]int),
		members: make(map[string]map[int]*websocket.Conn),
	}
}

// Add registers conn as the member's current connection handle and
// starts its writer. A previous handle for the same member is dropped.
func (h *wsHub) Add(code string, conn *websocket.Conn, memberID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.groups[code]
	if group == nil {
		group = make(map[*websocket.Conn]int)
		h.groups[code] = group
	}
	byMember := h.members[code]
	if byMember == nil {
		byMember = make(map[int]*websocket.Conn)
		h.members[code] = byMember
	}
	if old, ok := byMember[memberID]; ok && old != conn {
		h.dropLocked(code, old)
	}
	client := &wsClient{
		code: code,
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	h.clients[conn] = client
	group[conn] = memberID
	byMember[memberID] = conn
	go client.writeLoop()
}

// dropLocked closes a client's queue and removes it from its group.
// The member entry is left alone so the read loop's exit still gets
// disconnection treatment. Caller holds the hub lock; enqueues happen
// under the same lock, so the close cannot race a send.
func (h *wsHub) dropLocked(code string, conn *websocket.Conn) {
	if client, ok := h.clients[conn]; ok {
		close(client.send)
		delete(h.clients, conn)
	}
	_ = conn.Close()
	if group := h.groups[code]; group != nil {
		delete(group, conn)
		if len(group) == 0 {
			delete(h.groups, code)
		}
	}
}

// Remove drops conn from its room group. The second return reports
// whether conn was still the member's current handle; a stale handle
// must not trigger disconnection treatment.
func (h *wsHub) Remove(code string, conn *websocket.Conn) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	memberID, ok := h.groups[code][conn]
	if !ok {
		h.dropLocked(code, conn)
		return 0, false
	}
	current := false
	if byMember := h.members[code]; byMember != nil && byMember[memberID] == conn {
		delete(byMember, memberID)
		current = true
		if len(byMember) == 0 {
			delete(h.members, code)
		}
	}
	h.dropLocked(code, conn)
	return memberID, current
}

func (h *wsHub) Send(conn *websocket.Conn, payload any) {
	if conn == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[conn]
	if !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		h.dropLocked(client.code, conn)
	}
}

// Broadcast enqueues the payload for every connection in the room.
// Enqueueing happens under the hub lock, so broadcasts issued in
// sequence land on every queue in the same sequence; callers inside
// the store's serialized section therefore deliver room events in
// mutation-completion order.
func (h *wsHub) Broadcast(code string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.groups[code] {
		client, ok := h.clients[conn]
		if !ok {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.dropLocked(code, conn)
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	memberID, err := strconv.Atoi(r.URL.Query().Get("member_id"))
	if err != nil {
		http.Error(w, "member_id required", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("token")
	if _, _, ok := s.store.FindMemberByToken(code, memberID, token); !ok {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	log.Printf("ws connected room=%s member_id=%d remote=%s", code, memberID, r.RemoteAddr)
	s.ws.Add(code, conn, memberID)
	s.handleConnect(code, memberID)
	go s.readLoop(code, conn, memberID)
}

// handleConnect marks the member connected, cancels pending
// disconnection remediation and, on reconnection, restores control
// from the bot.
func (s *Server) handleConnect(code string, memberID int) {
	var (
		wasDisconnected bool
		restoredFromBot bool
		botPlayerID     int
		memberName      string
	)
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		member := room.findMember(memberID)
		if member == nil || !member.Active {
			return errStale
		}
		memberName = member.Name
		wasDisconnected = member.ConnStatus == connDisconnected
		member.ConnStatus = connConnected
		member.DisconnectedAt = time.Time{}
		if wasDisconnected {
			if round := room.currentRound(); round != nil {
				if player := round.playerByMember(memberID); player != nil && player.BotControlled {
					player.BotControlled = false
					restoredFromBot = true
					botPlayerID = player.ID
				}
			}
		}
		return nil
	}, func(room *Room) {
		session := s.sessions.get(code)
		session.cancelGraceTimer(memberID)
		if session.clearVote(memberID) {
			s.ws.Broadcast(code, voteKickCancelledEvent{
				Type:     "vote_kick_cancelled",
				MemberID: memberID,
				Message:  "Vote cancelled - " + memberName + " reconnected",
			})
		}
		if restoredFromBot {
			session.cancelBotTimer(botPlayerID)
			s.ws.Broadcast(code, playerReconnectedEvent{
				Type:         "player_reconnected_from_bot",
				MemberID:     memberID,
				MemberName:   memberName,
				Message:      memberName + " reconnected and resumed control",
				RoundPlayers: roundPlayersData(room),
			})
		}
		s.ws.Broadcast(code, playerConnectedEvent{
			Type:           "player_connected",
			MemberID:       memberID,
			MemberName:     memberName,
			IsReconnection: wasDisconnected,
			Members:        membersData(room),
			RoundPlayers:   roundPlayersData(room),
		})
	})
	if err != nil {
		return
	}
	if restoredFromBot {
		s.persistBotControlled(room, botPlayerID, false)
	}
	s.persistMemberStatus(room, memberID)
}

// readLoop processes one inbound message at a time for its connection,
// so a single client can never have two in-flight operations.
func (s *Server) readLoop(code string, conn *websocket.Conn, memberID int) {
	defer func() {
		if id, current := s.ws.Remove(code, conn); current {
			s.handleDisconnect(code, id)
		}
	}()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected room=%s member_id=%d error=%v", code, memberID, err)
			return
		}
		s.dispatch(code, conn, memberID, payload)
	}
}

// handleDisconnect converts an unexpected drop into a grace period.
// An intentional leave already deactivated the membership, in which
// case there is nothing to remediate.
func (s *Server) handleDisconnect(code string, memberID int) {
	var (
		memberName  string
		gracePeriod int
		deadline    time.Time
	)
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		member := room.findMember(memberID)
		if member == nil || !member.Active {
			return errStale
		}
		memberName = member.Name
		member.ConnStatus = connDisconnected
		member.DisconnectedAt = timeNowUTC()
		gracePeriod = room.Settings.GracePeriod
		deadline = timeNowUTC().Add(time.Duration(gracePeriod) * time.Second)
		return nil
	}, func(room *Room) {
		s.ws.Broadcast(code, playerDisconnectedEvent{
			Type:        "player_disconnected",
			MemberID:    memberID,
			MemberName:  memberName,
			GracePeriod: gracePeriod,
			Deadline:    deadline.Format(time.RFC3339),
		})
	})
	if err != nil {
		return
	}
	s.persistMemberStatus(room, memberID)
	s.startGraceTimer(code, memberID, gracePeriod)
}

// graceExpired fires when a disconnected member's grace period runs
// out. It re-validates against reconnection, then branches on phase:
// bot takeover mid-game, vote-kick otherwise.
func (s *Server) graceExpired(code string, memberID int) {
	session := s.sessions.get(code)
	session.cancelGraceTimer(memberID)

	var (
		memberName  string
		botPlayerID int
		botTurn     bool
		startVote   bool
	)
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		member := room.findMember(memberID)
		if member == nil || !member.Active || member.ConnStatus != connDisconnected {
			return errStale
		}
		memberName = member.Name
		round := room.currentRound()
		if round != nil && round.Status == roundPlaying {
			player := round.playerByMember(memberID)
			if player == nil {
				return errStale
			}
			player.BotControlled = true
			botPlayerID = player.ID
			botTurn = round.CurrentTurn == player.ID
			return nil
		}
		startVote = true
		return nil
	}, func(room *Room) {
		if startVote {
			return
		}
		s.ws.Broadcast(code, playerBotControlledEvent{
			Type:         "player_bot_controlled",
			MemberID:     memberID,
			MemberName:   memberName,
			Message:      memberName + " is now controlled by bot",
			RoundPlayers: roundPlayersData(room),
		})
	})
	if err != nil {
		return
	}
	if startVote {
		s.initiateVoteKick(code, memberID)
		return
	}
	s.persistBotControlled(room, botPlayerID, true)
	if botTurn {
		s.scheduleBotPlay(code, botPlayerID)
	}
}
