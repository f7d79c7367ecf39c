package server

import (
	"testing"
	"time"
)

func TestNextTurnPlayerCycles(t *testing.T) {
	round := &Round{
		Status: roundPlaying,
		Players: []RoundPlayer{
			{ID: 10, MemberID: 1, TurnOrder: 2},
			{ID: 11, MemberID: 2, TurnOrder: 1},
			{ID: 12, MemberID: 3, TurnOrder: 3},
		},
	}
	if next := round.nextTurnPlayer(); next.ID != 11 {
		t.Fatalf("unset turn should pick lowest order, got player %d", next.ID)
	}
	round.CurrentTurn = 11
	if next := round.nextTurnPlayer(); next.ID != 10 {
		t.Fatalf("after order 1 expected order 2, got player %d", next.ID)
	}
	round.CurrentTurn = 12
	if next := round.nextTurnPlayer(); next.ID != 11 {
		t.Fatalf("highest order should wrap to lowest, got player %d", next.ID)
	}
}

func TestNextTurnPlayerSkipsRemovedPlayers(t *testing.T) {
	round := &Round{
		Status: roundPlaying,
		Players: []RoundPlayer{
			{ID: 10, MemberID: 1, TurnOrder: 1},
			{ID: 11, MemberID: 2, TurnOrder: 2},
			{ID: 12, MemberID: 3, TurnOrder: 3},
		},
		CurrentTurn: 10,
	}
	round.removePlayerByMember(2)
	if next := round.nextTurnPlayer(); next.ID != 12 {
		t.Fatalf("removed player must not take a turn, got player %d", next.ID)
	}
	// Turn orders keep their original values.
	if round.findPlayer(12).TurnOrder != 3 {
		t.Fatal("turn order must never be renumbered")
	}
}

func TestTransferHostPicksEarliestJoinedPlayer(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	room := &Room{
		Active: true,
		Members: []Member{
			{ID: 1, Role: roleHost, Active: true, JoinedAt: base},
			{ID: 2, Role: rolePlayer, Active: true, JoinedAt: base.Add(2 * time.Minute)},
			{ID: 3, Role: rolePlayer, Active: true, JoinedAt: base.Add(1 * time.Minute)},
			{ID: 4, Role: rolePlayer, Active: false, JoinedAt: base.Add(30 * time.Second)},
		},
	}
	promoted := room.transferHost(1)
	if promoted == nil || promoted.ID != 3 {
		t.Fatalf("expected member 3 promoted, got %+v", promoted)
	}
	if promoted.Role != roleCoHost {
		t.Fatalf("promoted member should be co-host, got %s", promoted.Role)
	}
}

func TestHostFallsBackToCoHost(t *testing.T) {
	room := &Room{
		Members: []Member{
			{ID: 1, Role: roleHost, Active: false},
			{ID: 2, Role: roleCoHost, Active: true},
			{ID: 3, Role: rolePlayer, Active: true},
		},
	}
	host := room.host()
	if host == nil || host.ID != 2 {
		t.Fatalf("expected co-host fallback, got %+v", host)
	}
}

func TestCanJoinGates(t *testing.T) {
	room := &Room{
		Active:   true,
		Settings: RoomSettings{MaxPlayers: 2, BoardSize: 5},
		Members: []Member{
			{ID: 1, Active: true},
		},
	}
	if ok, _ := room.canJoin(); !ok {
		t.Fatal("waiting room with space should be joinable")
	}

	room.Rounds = []Round{{Number: 1, Status: roundPlaying}}
	if ok, reason := room.canJoin(); ok || reason != "Game in progress, please wait" {
		t.Fatalf("playing round should block joins, got ok=%v reason=%q", ok, reason)
	}

	room.Rounds[0].Status = roundFinished
	room.Members = append(room.Members, Member{ID: 2, Active: true})
	if ok, reason := room.canJoin(); ok || reason != "Room is full" {
		t.Fatalf("full room should block joins, got ok=%v reason=%q", ok, reason)
	}

	room.Active = false
	if ok, reason := room.canJoin(); ok || reason != "Room is no longer active" {
		t.Fatalf("inactive room should block joins, got ok=%v reason=%q", ok, reason)
	}
}
