package server

import (
	"errors"
	"log"
	"time"
)

// voteSession is one pending vote-kick. Eligibility is frozen at vote
// start; members joining or dropping later never change the quorum.
type voteSession struct {
	TargetName string
	Eligible   int
	Kick       map[int]struct{}
	Keep       map[int]struct{}
}

func (v *voteSession) totalVoted() int {
	return len(v.Kick) + len(v.Keep)
}

// initiateVoteKick opens a vote against a member whose grace period
// expired outside of active play. With nobody eligible to vote the
// member is kept automatically and the grace period restarts.
func (s *Server) initiateVoteKick(code string, targetID int) {
	var (
		targetName  string
		eligible    int
		gracePeriod int
	)
	_, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		target := room.findMember(targetID)
		if target == nil || !target.Active || target.ConnStatus != connDisconnected {
			return errStale
		}
		targetName = target.Name
		for i := range room.Members {
			member := &room.Members[i]
			if member.ID == targetID || !member.Active || member.ConnStatus != connConnected {
				continue
			}
			eligible++
		}
		gracePeriod = room.Settings.GracePeriod
		return nil
	}, func(room *Room) {
		if eligible == 0 {
			return
		}
		s.sessions.get(code).startVote(targetID, targetName, eligible)
		s.ws.Broadcast(code, voteKickStartedEvent{
			Type:             "vote_kick_started",
			TargetMemberID:   targetID,
			TargetMemberName: targetName,
			TotalVoters:      eligible,
		})
	})
	if err != nil {
		return
	}
	if eligible == 0 {
		log.Printf("vote kick skipped room=%s target_id=%d no_voters=true", code, targetID)
		s.startGraceTimer(code, targetID, gracePeriod)
		return
	}
	log.Printf("vote kick started room=%s target_id=%d voters=%d", code, targetID, eligible)
}

// castVote records or switches a voter's side. The vote resolves as
// soon as every eligible voter has voted.
func (s *Server) castVote(code string, voterID, targetID int, vote string) error {
	if vote != voteKick && vote != voteKeep {
		return errors.New("invalid vote")
	}
	if voterID == targetID {
		return errors.New("cannot vote on yourself")
	}
	session := s.sessions.get(code)
	voteState := session.getVote(targetID)
	if voteState == nil {
		return errors.New("no vote in progress")
	}
	if _, err := s.store.UpdateRoom(code, func(room *Room) error {
		voter := room.findMember(voterID)
		if voter == nil || !voter.Active {
			return errors.New("member not found")
		}
		return nil
	}); err != nil {
		return err
	}

	// The tally broadcast goes out under the session lock so clients
	// see tallies in the order votes landed.
	session.mu.Lock()
	delete(voteState.Kick, voterID)
	delete(voteState.Keep, voterID)
	if vote == voteKick {
		voteState.Kick[voterID] = struct{}{}
	} else {
		voteState.Keep[voterID] = struct{}{}
	}
	kick := len(voteState.Kick)
	keep := len(voteState.Keep)
	eligible := voteState.Eligible
	s.ws.Broadcast(code, voteUpdatedEvent{
		Type:           "vote_updated",
		TargetMemberID: targetID,
		Votes:          voteTally{Kick: kick, Keep: keep},
		TotalVoters:    eligible,
		TotalVoted:     kick + keep,
	})
	session.mu.Unlock()

	if kick+keep >= eligible {
		s.completeVoteKick(code, targetID, kick, keep)
	}
	return nil
}

// completeVoteKick resolves a finished vote. A strict kick majority
// removes the member; a tie or a keep majority keeps them and restarts
// the grace period.
func (s *Server) completeVoteKick(code string, targetID, kick, keep int) {
	session := s.sessions.get(code)
	voteState := session.getVote(targetID)
	if voteState == nil {
		return
	}
	session.clearVote(targetID)
	targetName := voteState.TargetName

	if kick > keep {
		room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
			target := room.findMember(targetID)
			if target == nil || !target.Active {
				return errStale
			}
			target.Active = false
			target.ConnStatus = connKicked
			target.KickedCount++
			target.DisconnectedAt = time.Time{}
			if target.Role == roleHost {
				room.transferHost(targetID)
			}
			if round := room.currentRound(); round != nil {
				round.removePlayerByMember(targetID)
			}
			return nil
		}, func(room *Room) {
			session.cancelGraceTimer(targetID)
			s.ws.Broadcast(code, voteKickResultEvent{
				Type:             "vote_kick_result",
				Result:           "kicked",
				TargetMemberID:   targetID,
				TargetMemberName: targetName,
				KickCount:        kick,
				KeepCount:        keep,
				Members:          membersData(room),
				RoundPlayers:     roundPlayersData(room),
			})
		})
		if err != nil {
			return
		}
		s.persistMemberStatus(room, targetID)
		s.persistRoundState(room)
		log.Printf("vote kick resolved room=%s target_id=%d result=kicked kick=%d keep=%d", code, targetID, kick, keep)
		return
	}

	var gracePeriod int
	_, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		target := room.findMember(targetID)
		if target == nil || !target.Active || target.ConnStatus != connDisconnected {
			return errStale
		}
		gracePeriod = room.Settings.GracePeriod
		return nil
	}, func(room *Room) {
		s.ws.Broadcast(code, voteKickResultEvent{
			Type:             "vote_kick_result",
			Result:           "kept",
			TargetMemberID:   targetID,
			TargetMemberName: targetName,
			KickCount:        kick,
			KeepCount:        keep,
			GracePeriod:      gracePeriod,
		})
	})
	if err != nil {
		return
	}
	log.Printf("vote kick resolved room=%s target_id=%d result=kept kick=%d keep=%d", code, targetID, kick, keep)
	s.startGraceTimer(code, targetID, gracePeriod)
}
