package server

import (
	"testing"

	"bingo-live/internal/config"
)

func disconnectMember(t *testing.T, s *Server, code string, memberID int) {
	t.Helper()
	if _, err := s.store.UpdateRoom(code, func(room *Room) error {
		member := room.findMember(memberID)
		member.ConnStatus = connDisconnected
		member.DisconnectedAt = timeNowUTC()
		return nil
	}); err != nil {
		t.Fatalf("disconnect member %d: %v", memberID, err)
	}
}

func TestInitiateVoteKickFreezesEligibility(t *testing.T) {
	s := New(nil, config.Default())
	code, ids := seedRoom(t, s, "Ada", "Bob", "Cal", "Dot")
	target := ids[3]
	disconnectMember(t, s, code, target)
	disconnectMember(t, s, code, ids[2])

	s.initiateVoteKick(code, target)
	vote := s.sessions.get(code).getVote(target)
	if vote == nil {
		t.Fatal("expected a vote session")
	}
	// Cal is disconnected too, so only Ada and Bob are eligible.
	if vote.Eligible != 2 {
		t.Fatalf("eligible voters = %d", vote.Eligible)
	}
}

func TestInitiateVoteKickWithNoVotersRestartsGrace(t *testing.T) {
	s := New(nil, config.Default())
	code, ids := seedRoom(t, s, "Ada", "Bob")
	disconnectMember(t, s, code, ids[0])
	disconnectMember(t, s, code, ids[1])

	s.initiateVoteKick(code, ids[1])
	session := s.sessions.get(code)
	if session.getVote(ids[1]) != nil {
		t.Fatal("vote must not start without eligible voters")
	}
	session.mu.Lock()
	_, armed := session.graceTimers[ids[1]]
	session.mu.Unlock()
	if !armed {
		t.Fatal("grace period should restart when nobody can vote")
	}
}

func TestCastVoteSideSwitchCountsOnce(t *testing.T) {
	s := New(nil, config.Default())
	code, ids := seedRoom(t, s, "Ada", "Bob", "Cal", "Dot")
	target := ids[3]
	disconnectMember(t, s, code, target)
	s.initiateVoteKick(code, target)

	if err := s.castVote(code, ids[0], target, voteKick); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.castVote(code, ids[0], target, voteKeep); err != nil {
		t.Fatalf("switch vote: %v", err)
	}
	vote := s.sessions.get(code).getVote(target)
	if vote == nil {
		t.Fatal("vote resolved too early")
	}
	if len(vote.Kick) != 0 || len(vote.Keep) != 1 {
		t.Fatalf("switched vote must count once: kick=%d keep=%d", len(vote.Kick), len(vote.Keep))
	}
}

func TestCastVoteValidations(t *testing.T) {
	s := New(nil, config.Default())
	code, ids := seedRoom(t, s, "Ada", "Bob", "Cal")
	target := ids[2]
	disconnectMember(t, s, code, target)

	if err := s.castVote(code, ids[0], target, voteKick); err == nil {
		t.Fatal("vote without a session should fail")
	}
	s.initiateVoteKick(code, target)
	if err := s.castVote(code, ids[0], target, "maybe"); err == nil {
		t.Fatal("invalid vote value should fail")
	}
	if err := s.castVote(code, target, target, voteKick); err == nil {
		t.Fatal("target voting on itself should fail")
	}
}

func TestVoteKickMajorityKicks(t *testing.T) {
	s := New(nil, config.Default())
	code, ids := seedRoom(t, s, "Ada", "Bob", "Cal", "Dot")
	target := ids[3]
	disconnectMember(t, s, code, target)
	s.initiateVoteKick(code, target)

	if err := s.castVote(code, ids[0], target, voteKick); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.castVote(code, ids[1], target, voteKick); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.castVote(code, ids[2], target, voteKeep); err != nil {
		t.Fatalf("vote: %v", err)
	}

	room, _ := s.store.GetRoom(code)
	kicked := room.findMember(target)
	if kicked.Active || kicked.ConnStatus != connKicked {
		t.Fatalf("target state after kick: active=%v status=%s", kicked.Active, kicked.ConnStatus)
	}
	if kicked.KickedCount != 1 {
		t.Fatalf("kicked count = %d", kicked.KickedCount)
	}
	if room.currentRound().playerByMember(target) != nil {
		t.Fatal("kicked member should lose their round player")
	}
	if s.sessions.get(code).getVote(target) != nil {
		t.Fatal("vote session should be cleared")
	}
}

func TestVoteKickTieKeepsAndRestartsGrace(t *testing.T) {
	s := New(nil, config.Default())
	code, ids := seedRoom(t, s, "Ada", "Bob", "Cal")
	target := ids[2]
	disconnectMember(t, s, code, target)
	s.initiateVoteKick(code, target)

	if err := s.castVote(code, ids[0], target, voteKick); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := s.castVote(code, ids[1], target, voteKeep); err != nil {
		t.Fatalf("vote: %v", err)
	}

	room, _ := s.store.GetRoom(code)
	kept := room.findMember(target)
	if !kept.Active {
		t.Fatal("tie must keep the member")
	}
	session := s.sessions.get(code)
	if session.getVote(target) != nil {
		t.Fatal("vote session should be cleared")
	}
	session.mu.Lock()
	_, armed := session.graceTimers[target]
	session.mu.Unlock()
	if !armed {
		t.Fatal("keep result should restart the grace period")
	}
}
