package server

import (
	"errors"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
)

var errRoomNotFound = errors.New("room not found")

// Store is the authoritative in-memory state for every active room.
// All mutations run under the store mutex, which serializes
// room-mutating operations and gives broadcasts their per-room order.
type Store struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{
		rooms: make(map[string]*Room),
	}
}

func (s *Store) CreateRoom(settings RoomSettings, visibility string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	if visibility != visibilityPrivate {
		visibility = visibilityPublic
	}
	code := newJoinCode()
	for s.rooms[code] != nil {
		code = newJoinCode()
	}
	room := &Room{
		Code:         code,
		Active:       true,
		Visibility:   visibility,
		Settings:     settings,
		nextMemberID: 1,
		nextPlayerID: 1,
	}
	s.rooms[code] = room
	return room
}

func (s *Store) GetRoom(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	return room, ok
}

// UpdateRoom runs update with the store locked. An error from update
// leaves no trace: callers treat it as a rejected precondition.
func (s *Store) UpdateRoom(code string, update func(room *Room) error) (*Room, error) {
	return s.UpdateRoomThen(code, update, nil)
}

// UpdateRoomThen runs update and, if it succeeds, publish while the
// store lock is still held. Broadcasts enqueued from publish go out
// in the order the mutations completed, which is the delivery order
// clients rely on.
func (s *Store) UpdateRoomThen(code string, update func(room *Room) error, publish func(room *Room)) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, errRoomNotFound
	}
	if err := update(room); err != nil {
		return nil, err
	}
	if publish != nil {
		publish(room)
	}
	return room, nil
}

// JoinRoom resolves or creates a membership. A returning identity is
// reactivated under its new display name; a fresh identity must pass
// the name-taken and can-join gates. While the current round is still
// waiting the member also gets a round player.
func (s *Store) JoinRoom(code, name, userRef, token string, asHost bool) (*Room, *Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[code]
	if !ok {
		return nil, nil, errRoomNotFound
	}

	var existing *Member
	for i := range room.Members {
		member := &room.Members[i]
		if userRef != "" && member.UserRef == userRef {
			existing = member
			break
		}
		if userRef == "" && token != "" && member.Token == token {
			existing = member
			break
		}
	}
	if existing != nil && existing.Active {
		return room, existing, nil
	}

	for i := range room.Members {
		member := &room.Members[i]
		if member.Active && strings.EqualFold(member.Name, name) {
			return nil, nil, errors.New("name already taken")
		}
	}
	if ok, reason := room.canJoin(); !ok {
		return nil, nil, errors.New(reason)
	}

	var member *Member
	if existing != nil {
		existing.Active = true
		existing.Name = name
		existing.Role = rolePlayer
		existing.ConnStatus = connConnected
		existing.DisconnectedAt = time.Time{}
		member = existing
	} else {
		role := rolePlayer
		if asHost {
			role = roleHost
		}
		room.Members = append(room.Members, Member{
			ID:         room.nextMemberID,
			Name:       name,
			Token:      token,
			UserRef:    userRef,
			Role:       role,
			Active:     true,
			ConnStatus: connConnected,
			JoinedAt:   timeNowUTC(),
		})
		room.nextMemberID++
		member = &room.Members[len(room.Members)-1]
	}

	if round := room.currentRound(); round != nil && round.Status == roundWaiting {
		ensureRoundPlayer(room, round, member.ID)
	}
	return room, member, nil
}

// FindMemberByToken authenticates a connecting participant.
func (s *Store) FindMemberByToken(code string, memberID int, token string) (*Room, *Member, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, nil, false
	}
	member := room.findMember(memberID)
	if member == nil || !member.Active || member.Token != token {
		return room, nil, false
	}
	return room, member, true
}

func (s *Store) ListRoomSummaries() []RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]RoomSummary, 0, len(s.rooms))
	for _, room := range s.rooms {
		if !room.Active || room.Visibility != visibilityPublic {
			continue
		}
		status := roundWaiting
		if round := room.currentRound(); round != nil {
			status = round.Status
		}
		list = append(list, RoomSummary{
			Code:       room.Code,
			Visibility: room.Visibility,
			Status:     status,
			Players:    room.activeMemberCount(),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Code < list[j].Code
	})
	return list
}

// ensureRoundPlayer creates the member's round player if missing,
// with a fresh board and the next turn-order rank. Caller holds the
// store lock.
func ensureRoundPlayer(room *Room, round *Round, memberID int) *RoundPlayer {
	if player := round.playerByMember(memberID); player != nil {
		return player
	}
	maxOrder := 0
	for i := range round.Players {
		if round.Players[i].TurnOrder > maxOrder {
			maxOrder = round.Players[i].TurnOrder
		}
	}
	round.Players = append(round.Players, RoundPlayer{
		ID:        room.nextPlayerID,
		MemberID:  memberID,
		Board:     generateBoard(room.Settings.BoardSize),
		TurnOrder: maxOrder + 1,
		JoinedAt:  timeNowUTC(),
	})
	room.nextPlayerID++
	return &round.Players[len(round.Players)-1]
}

// createRound appends the next round with one player per active
// member, turn order randomized at creation. Caller holds the store
// lock.
func createRound(room *Room) *Round {
	number := 1
	if last := room.currentRound(); last != nil {
		number = last.Number + 1
	}
	room.Rounds = append(room.Rounds, Round{
		Number: number,
		Status: roundWaiting,
	})
	round := &room.Rounds[len(room.Rounds)-1]

	var active []*Member
	for i := range room.Members {
		if room.Members[i].Active {
			active = append(active, &room.Members[i])
		}
	}
	rand.Shuffle(len(active), func(i, j int) {
		active[i], active[j] = active[j], active[i]
	})
	for order, member := range active {
		round.Players = append(round.Players, RoundPlayer{
			ID:        room.nextPlayerID,
			MemberID:  member.ID,
			Board:     generateBoard(room.Settings.BoardSize),
			TurnOrder: order + 1,
			JoinedAt:  timeNowUTC(),
		})
		room.nextPlayerID++
	}
	return round
}
