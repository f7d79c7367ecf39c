package server

import (
	"strings"
	"testing"
)

func testSettings() RoomSettings {
	return RoomSettings{
		SetupDuration: 60,
		TurnDuration:  20,
		MaxPlayers:    8,
		ShowScore:     false,
		GracePeriod:   15,
		BoardSize:     5,
	}
}

func TestCreateRoomAssignsUniqueCode(t *testing.T) {
	store := NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		room := store.CreateRoom(testSettings(), visibilityPublic)
		if len(room.Code) != 6 {
			t.Fatalf("join code %q has wrong length", room.Code)
		}
		if seen[room.Code] {
			t.Fatalf("duplicate join code %q", room.Code)
		}
		seen[room.Code] = true
	}
}

func TestJoinRoomNameTakenCaseInsensitive(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings(), visibilityPublic)
	if _, _, err := store.JoinRoom(room.Code, "Ada", "", newMemberToken(), true); err != nil {
		t.Fatalf("host join: %v", err)
	}
	if _, _, err := store.JoinRoom(room.Code, "ada", "", newMemberToken(), false); err == nil {
		t.Fatal("expected name-taken error")
	} else if !strings.Contains(err.Error(), "name") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJoinRoomFull(t *testing.T) {
	settings := testSettings()
	settings.MaxPlayers = 2
	store := NewStore()
	room := store.CreateRoom(settings, visibilityPublic)
	if _, _, err := store.JoinRoom(room.Code, "Ada", "", newMemberToken(), true); err != nil {
		t.Fatalf("host join: %v", err)
	}
	if _, _, err := store.JoinRoom(room.Code, "Bob", "", newMemberToken(), false); err != nil {
		t.Fatalf("second join: %v", err)
	}
	if _, _, err := store.JoinRoom(room.Code, "Cal", "", newMemberToken(), false); err == nil {
		t.Fatal("expected room-full error")
	}
}

func TestJoinRoomBlockedDuringPlay(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings(), visibilityPublic)
	if _, _, err := store.JoinRoom(room.Code, "Ada", "", newMemberToken(), true); err != nil {
		t.Fatalf("host join: %v", err)
	}
	if _, err := store.UpdateRoom(room.Code, func(room *Room) error {
		round := createRound(room)
		round.Status = roundPlaying
		return nil
	}); err != nil {
		t.Fatalf("update room: %v", err)
	}
	if _, _, err := store.JoinRoom(room.Code, "Bob", "", newMemberToken(), false); err == nil {
		t.Fatal("expected game-in-progress error")
	}
}

func TestJoinRoomReactivatesReturningIdentity(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings(), visibilityPublic)
	if _, _, err := store.JoinRoom(room.Code, "Host", "", newMemberToken(), true); err != nil {
		t.Fatalf("host join: %v", err)
	}
	_, member, err := store.JoinRoom(room.Code, "Ada", "user-ada", newMemberToken(), false)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := store.UpdateRoom(room.Code, func(room *Room) error {
		left := room.findMember(member.ID)
		left.Active = false
		left.ConnStatus = connLeft
		return nil
	}); err != nil {
		t.Fatalf("update room: %v", err)
	}

	_, rejoined, err := store.JoinRoom(room.Code, "Ada Again", "user-ada", newMemberToken(), false)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if rejoined.ID != member.ID {
		t.Fatalf("expected same membership, got %d and %d", member.ID, rejoined.ID)
	}
	if !rejoined.Active || rejoined.ConnStatus != connConnected {
		t.Fatalf("rejoined member not reactivated: active=%v status=%s", rejoined.Active, rejoined.ConnStatus)
	}
	if rejoined.Name != "Ada Again" {
		t.Fatalf("rejoin should adopt the new name, got %q", rejoined.Name)
	}
	if rejoined.Role != rolePlayer {
		t.Fatalf("rejoin must reset role to player, got %q", rejoined.Role)
	}
}

func TestJoinDuringWaitingCreatesRoundPlayer(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings(), visibilityPublic)
	if _, _, err := store.JoinRoom(room.Code, "Host", "", newMemberToken(), true); err != nil {
		t.Fatalf("host join: %v", err)
	}
	if _, err := store.UpdateRoom(room.Code, func(room *Room) error {
		createRound(room)
		return nil
	}); err != nil {
		t.Fatalf("create round: %v", err)
	}
	_, member, err := store.JoinRoom(room.Code, "Ada", "", newMemberToken(), false)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	room, _ = store.GetRoom(room.Code)
	round := room.currentRound()
	player := round.playerByMember(member.ID)
	if player == nil {
		t.Fatal("expected a round player for the joining member")
	}
	if player.TurnOrder != 2 {
		t.Fatalf("late joiner should take the last turn order, got %d", player.TurnOrder)
	}
	if !validateBoard(player.Board, room.Settings.BoardSize) {
		t.Fatal("round player board is invalid")
	}
}

func TestListRoomSummariesSkipsPrivateAndInactive(t *testing.T) {
	store := NewStore()
	public := store.CreateRoom(testSettings(), visibilityPublic)
	store.CreateRoom(testSettings(), visibilityPrivate)
	inactive := store.CreateRoom(testSettings(), visibilityPublic)
	if _, err := store.UpdateRoom(inactive.Code, func(room *Room) error {
		room.Active = false
		return nil
	}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	summaries := store.ListRoomSummaries()
	if len(summaries) != 1 {
		t.Fatalf("expected one public room, got %d", len(summaries))
	}
	if summaries[0].Code != public.Code {
		t.Fatalf("expected %s, got %s", public.Code, summaries[0].Code)
	}
}

func TestCreateRoundShufflesTurnOrder(t *testing.T) {
	store := NewStore()
	room := store.CreateRoom(testSettings(), visibilityPublic)
	names := []string{"Ada", "Bob", "Cal", "Dot"}
	for i, name := range names {
		if _, _, err := store.JoinRoom(room.Code, name, "", newMemberToken(), i == 0); err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
	}
	if _, err := store.UpdateRoom(room.Code, func(room *Room) error {
		createRound(room)
		return nil
	}); err != nil {
		t.Fatalf("create round: %v", err)
	}
	room, _ = store.GetRoom(room.Code)
	round := room.currentRound()
	if len(round.Players) != len(names) {
		t.Fatalf("expected %d players, got %d", len(names), len(round.Players))
	}
	orders := make(map[int]bool)
	for i := range round.Players {
		orders[round.Players[i].TurnOrder] = true
	}
	for order := 1; order <= len(names); order++ {
		if !orders[order] {
			t.Fatalf("turn order %d missing", order)
		}
	}
}
