package server

import (
	"log"
	"math/rand/v2"
	"time"
)

// scheduleBotPlay arms a one-shot timer that makes the bot-controlled
// player's next call after a short randomized delay. Rescheduling the
// same player replaces the pending timer.
func (s *Server) scheduleBotPlay(code string, playerID int) {
	min := s.cfg.BotDelayMinMillis
	max := s.cfg.BotDelayMaxMillis
	delay := time.Duration(min) * time.Millisecond
	if max > min {
		delay += time.Duration(rand.IntN(max-min)) * time.Millisecond
	}
	session := s.sessions.get(code)
	timer := time.AfterFunc(delay, func() {
		s.executeBotPlay(code, playerID)
	})
	session.setBotTimer(playerID, timer)
}

// executeBotPlay re-validates before acting: the round must still be
// playing, the turn must still belong to the player, and the player
// must still be bot-controlled. Any mismatch means the timer fired
// against stale state and the play is silently dropped.
func (s *Server) executeBotPlay(code string, playerID int) {
	s.sessions.get(code).cancelBotTimer(playerID)

	var number int
	_, err := s.store.UpdateRoom(code, func(room *Room) error {
		round := room.currentRound()
		if round == nil || round.Status != roundPlaying {
			return errStale
		}
		player := round.findPlayer(playerID)
		if player == nil || !player.BotControlled {
			return errStale
		}
		if round.CurrentTurn != player.ID {
			return errStale
		}
		uncalled := uncalledBoardNumbers(player, round)
		if len(uncalled) == 0 {
			return errStale
		}
		number = uncalled[rand.IntN(len(uncalled))]
		return nil
	})
	if err != nil {
		return
	}
	log.Printf("bot call room=%s player_id=%d number=%d", code, playerID, number)
	if err := s.performCall(code, playerID, number, true); err != nil {
		log.Printf("bot call failed room=%s player_id=%d error=%v", code, playerID, err)
	}
}
