package server

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Settings clamps. Board size is fixed at creation, everything else is
// host-editable between rounds.
const (
	minSetupDuration = 15
	maxSetupDuration = 120
	minTurnDuration  = 10
	maxTurnDuration  = 60
	minMaxPlayers    = 2
	maxMaxPlayers    = 15
	minGracePeriod   = 5
	maxGracePeriod   = 60
	minBoardSize     = 5
	maxBoardSize     = 10
)

type settingsPatch struct {
	SetupDuration *int  `json:"setup_duration"`
	TurnDuration  *int  `json:"turn_duration"`
	MaxPlayers    *int  `json:"max_players"`
	ShowScore     *bool `json:"show_score"`
	GracePeriod   *int  `json:"grace_period"`
}

func clampInt(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// startGame moves the current round from waiting to setup. Host only,
// at least two round players, nobody mid-grace-period.
func (s *Server) startGame(code string, memberID int) error {
	var (
		duration int
		deadline time.Time
	)
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		member := room.findMember(memberID)
		if member == nil || !member.Active {
			return errors.New("member not found")
		}
		if member.Role != roleHost {
			return errors.New("only host can start the game")
		}
		round := room.currentRound()
		if round == nil || round.Status != roundWaiting {
			return errors.New("cannot start game now")
		}
		if len(round.Players) < 2 {
			return errors.New("need at least 2 players")
		}
		if names := room.disconnectedMemberNames(); len(names) > 0 {
			return fmt.Errorf("cannot start: %s disconnected", strings.Join(names, ", "))
		}
		duration = room.Settings.SetupDuration
		deadline = timeNowUTC().Add(time.Duration(duration) * time.Second)
		round.Status = roundSetup
		round.TurnDeadline = deadline
		round.StartedAt = timeNowUTC()
		return nil
	}, func(room *Room) {
		s.ws.Broadcast(code, gameStartingEvent{
			Type:         "game_starting",
			Status:       roundSetup,
			Duration:     duration,
			Deadline:     deadline.Format(time.RFC3339),
			Message:      fmt.Sprintf("Arrange your board! You have %d seconds.", duration),
			RoundPlayers: roundPlayersData(room),
		})
	})
	if err != nil {
		return err
	}
	s.persistRoundState(room)
	log.Printf("game starting room=%s setup_seconds=%d", code, duration)
	return nil
}

// markReady flips the member's ready flag; the instant every player is
// ready the round starts playing with the lowest turn-order player up.
func (s *Server) markReady(code string, memberID int) error {
	var (
		memberName  string
		allReady    bool
		firstTurnID int
		firstIsBot  bool
	)
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		member := room.findMember(memberID)
		round := room.currentRound()
		if member == nil || round == nil {
			return errors.New("member not found")
		}
		if round.Status != roundSetup {
			return errors.New("not in setup phase")
		}
		player := round.playerByMember(memberID)
		if player == nil {
			return errors.New("not playing this round")
		}
		memberName = member.Name
		player.Ready = true
		if round.allReady() {
			allReady = true
			round.Status = roundPlaying
			first := round.nextTurnPlayer()
			round.CurrentTurn = first.ID
			round.TurnDeadline = timeNowUTC().Add(time.Duration(room.Settings.TurnDuration) * time.Second)
			firstTurnID = first.ID
			firstIsBot = first.BotControlled
		}
		return nil
	}, func(room *Room) {
		round := room.currentRound()
		players := roundPlayersData(room)
		ready := 0
		for _, player := range players {
			if player.IsReady {
				ready++
			}
		}
		s.ws.Broadcast(code, playerReadyEvent{
			Type:         "player_ready",
			MemberID:     memberID,
			MemberName:   memberName,
			ReadyCount:   ready,
			TotalCount:   len(players),
			RoundPlayers: players,
		})
		if allReady {
			s.ws.Broadcast(code, gameStartedEvent{
				Type:         "game_started",
				Status:       roundPlaying,
				CurrentTurn:  turnInfoFor(room, round, firstTurnID),
				Duration:     room.Settings.TurnDuration,
				Deadline:     round.TurnDeadline.Format(time.RFC3339),
				RoundPlayers: players,
				ShowScore:    room.Settings.ShowScore,
			})
		}
	})
	if err != nil {
		return err
	}
	s.persistRoundState(room)
	if allReady {
		log.Printf("game started room=%s first_turn=%d", code, firstTurnID)
		if firstIsBot {
			s.scheduleBotPlay(code, firstTurnID)
		}
	}
	return nil
}

// updateBoard replaces a player's board during setup, before they are
// ready. The acknowledgment goes only to the acting connection.
func (s *Server) updateBoard(code string, conn *websocket.Conn, memberID int, board [][]int) error {
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		round := room.currentRound()
		if round == nil || room.findMember(memberID) == nil {
			return errors.New("member not found")
		}
		if round.Status != roundSetup {
			return errors.New("cannot update board now")
		}
		player := round.playerByMember(memberID)
		if player == nil {
			return errors.New("not playing this round")
		}
		if player.Ready {
			return errors.New("already marked ready")
		}
		if !validateBoard(board, room.Settings.BoardSize) {
			return errors.New("invalid board")
		}
		player.Board = board
		return nil
	}, func(room *Room) {
		s.ws.Send(conn, boardUpdatedEvent{Type: "board_updated", Success: true})
	})
	if err != nil {
		return err
	}
	s.persistBoard(room, memberID)
	return nil
}

// callNumber is the human call path: resolves the member's round
// player and enforces the turn before running the shared call core.
func (s *Server) callNumber(code string, memberID int, number int) error {
	var playerID int
	_, err := s.store.UpdateRoom(code, func(room *Room) error {
		round := room.currentRound()
		if round == nil || room.findMember(memberID) == nil {
			return errors.New("member not found")
		}
		if round.Status != roundPlaying {
			return errors.New("game not in progress")
		}
		player := round.playerByMember(memberID)
		if player == nil {
			return errors.New("not playing this round")
		}
		if round.CurrentTurn != player.ID {
			return errors.New("not your turn")
		}
		playerID = player.ID
		return nil
	})
	if err != nil {
		return err
	}
	return s.performCall(code, playerID, number, false)
}

// performCall is the single path every number call takes, human or
// bot: validate, record, detect winners with caller priority, advance
// the turn, then fan out. A bot next on turn is scheduled at the end,
// chaining through consecutive bot players.
func (s *Server) performCall(code string, playerID int, number int, isBot bool) error {
	var (
		caller   callerInfo
		nextTurn *turnInfo
		winners  []winnerInfo
		deadline time.Time
		duration int
	)
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		round := room.currentRound()
		if round == nil {
			return errors.New("round not started")
		}
		if round.Status != roundPlaying {
			return errors.New("game not in progress")
		}
		player := round.findPlayer(playerID)
		if player == nil {
			return errors.New("player not found")
		}
		if round.CurrentTurn != player.ID {
			return errors.New("not your turn")
		}
		size := room.Settings.BoardSize
		if number < 1 || number > size*size {
			return errors.New("invalid number")
		}
		if round.numberCalled(number) {
			return errors.New("number already called")
		}
		round.CalledNumbers = append(round.CalledNumbers, number)

		caller = callerInfo{ID: player.ID, MemberID: player.MemberID, IsBot: isBot}
		if member := room.findMember(player.MemberID); member != nil {
			caller.Name = member.Name
		}

		won := determineWinners(round, player, size)
		next := round.nextTurnPlayer()
		duration = room.Settings.TurnDuration
		deadline = timeNowUTC().Add(time.Duration(duration) * time.Second)
		if next != nil {
			round.CurrentTurn = next.ID
			round.TurnDeadline = deadline
			nextTurn = turnInfoFor(room, round, next.ID)
		}
		if len(won) > 0 {
			round.Status = roundFinished
			round.TurnDeadline = time.Time{}
			round.FinishedAt = timeNowUTC()
			round.Winners = round.Winners[:0]
			for _, winner := range won {
				round.Winners = append(round.Winners, winner.ID)
				info := winnerInfo{
					ID:             winner.ID,
					MemberID:       winner.MemberID,
					CompletedLines: len(winner.FinishedLines),
				}
				if member := room.findMember(winner.MemberID); member != nil {
					info.Name = member.Name
				}
				winners = append(winners, info)
			}
		}
		return nil
	}, func(room *Room) {
		round := room.currentRound()
		players := roundPlayersData(room)
		s.ws.Broadcast(code, numberCalledEvent{
			Type:          "number_called",
			Number:        number,
			CalledBy:      caller,
			CalledNumbers: append([]int(nil), round.CalledNumbers...),
			NextTurn:      nextTurn,
			Duration:      duration,
			Deadline:      deadline.Format(time.RFC3339),
			RoundPlayers:  players,
			ShowScore:     room.Settings.ShowScore,
		})
		if len(winners) > 0 {
			s.ws.Broadcast(code, gameWonEvent{
				Type:         "game_won",
				Winners:      winners,
				IsTie:        len(winners) > 1,
				RoundPlayers: players,
			})
		}
	})
	if err != nil {
		return err
	}

	s.persistCall(room, playerID, number, isBot)
	if len(winners) > 0 {
		s.sessions.get(code).cancelAllBotTimers()
		s.persistRoundState(room)
		log.Printf("game won room=%s winners=%d", code, len(winners))
		return nil
	}
	if nextTurn != nil && nextTurn.IsBotControlled {
		s.scheduleBotPlay(code, nextTurn.ID)
	}
	return nil
}

// updateSettings applies a clamped settings patch. Host only, and only
// while the current round is waiting or finished.
func (s *Server) updateSettings(code string, memberID int, patch settingsPatch) error {
	var (
		updatedBy string
		applied   settingsInfo
	)
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		member := room.findMember(memberID)
		if member == nil || !member.Active {
			return errors.New("member not found")
		}
		if member.Role != roleHost {
			return errors.New("only host can change settings")
		}
		if round := room.currentRound(); round != nil && round.Status != roundWaiting && round.Status != roundFinished {
			return errors.New("cannot change settings during game")
		}
		if patch.SetupDuration != nil {
			room.Settings.SetupDuration = clampInt(*patch.SetupDuration, minSetupDuration, maxSetupDuration)
		}
		if patch.TurnDuration != nil {
			room.Settings.TurnDuration = clampInt(*patch.TurnDuration, minTurnDuration, maxTurnDuration)
		}
		if patch.MaxPlayers != nil {
			room.Settings.MaxPlayers = clampInt(*patch.MaxPlayers, minMaxPlayers, maxMaxPlayers)
		}
		if patch.ShowScore != nil {
			room.Settings.ShowScore = *patch.ShowScore
		}
		if patch.GracePeriod != nil {
			room.Settings.GracePeriod = clampInt(*patch.GracePeriod, minGracePeriod, maxGracePeriod)
		}
		updatedBy = member.Name
		applied = settingsInfo{
			SetupDuration: room.Settings.SetupDuration,
			TurnDuration:  room.Settings.TurnDuration,
			MaxPlayers:    room.Settings.MaxPlayers,
			ShowScore:     room.Settings.ShowScore,
			GracePeriod:   room.Settings.GracePeriod,
			BoardSize:     room.Settings.BoardSize,
		}
		return nil
	}, func(room *Room) {
		s.ws.Broadcast(code, settingsUpdatedEvent{
			Type:      "settings_updated",
			Settings:  applied,
			UpdatedBy: updatedBy,
		})
	})
	if err != nil {
		return err
	}
	s.persistSettings(room)
	return nil
}

// kickPlayer is the host's direct kick, allowed only between games.
func (s *Server) kickPlayer(code string, memberID, targetID int) error {
	var targetName string
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		member := room.findMember(memberID)
		if member == nil || !member.Active {
			return errors.New("member not found")
		}
		if member.Role != roleHost {
			return errors.New("only host can kick players")
		}
		if round := room.currentRound(); round != nil && round.Status != roundWaiting && round.Status != roundFinished {
			return errors.New("cannot kick during game")
		}
		target := room.findMember(targetID)
		if target == nil || !target.Active {
			return errors.New("player not found")
		}
		if target.Role == roleHost {
			return errors.New("cannot kick the host")
		}
		targetName = target.Name
		target.Active = false
		target.ConnStatus = connKicked
		target.KickedCount++
		if round := room.currentRound(); round != nil {
			round.removePlayerByMember(targetID)
		}
		return nil
	}, func(room *Room) {
		session := s.sessions.get(code)
		session.cancelGraceTimer(targetID)
		session.clearVote(targetID)
		s.ws.Broadcast(code, playerKickedEvent{
			Type:           "player_kicked",
			KickedMemberID: targetID,
			KickedName:     targetName,
			Members:        membersData(room),
			RoundPlayers:   roundPlayersData(room),
		})
	})
	if err != nil {
		return err
	}
	s.persistMemberStatus(room, targetID)
	s.persistRoundState(room)
	log.Printf("player kicked room=%s member_id=%d", code, targetID)
	return nil
}

// newRound spins up the next round once the current one has finished:
// fresh boards, shuffled turn order, bot control cleared.
func (s *Server) newRound(code string, memberID int) error {
	var roundNumber int
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		if room.findMember(memberID) == nil {
			return errors.New("member not found")
		}
		if round := room.currentRound(); round != nil && round.Status != roundFinished {
			return errors.New("current round not finished")
		}
		round := createRound(room)
		roundNumber = round.Number
		return nil
	}, func(room *Room) {
		s.ws.Broadcast(code, newRoundCreatedEvent{
			Type:        "new_round_created",
			RoundNumber: roundNumber,
			Message:     "New round started! Returning to lobby.",
		})
	})
	if err != nil {
		return err
	}
	s.sessions.get(code).cancelAllBotTimers()
	s.persistNewRound(room)
	log.Printf("new round room=%s round=%d", code, roundNumber)
	return nil
}

// leaveRoom is the intentional exit: membership deactivates at once,
// the round player is dropped, and no grace period ever starts. A
// leaver who held the turn mid-game passes it to the next surviving
// player so the round keeps moving. The last active member out
// deactivates the room and tears down its timers.
func (s *Server) leaveRoom(code string, conn *websocket.Conn, memberID int) error {
	var (
		memberName   string
		wasHost      bool
		newHostName  string
		deactivated  bool
		turnPassed   bool
		nextTurnID   int
		nextIsBot    bool
		turnDuration int
		turnDeadline time.Time
	)
	room, err := s.store.UpdateRoomThen(code, func(room *Room) error {
		member := room.findMember(memberID)
		if member == nil || !member.Active {
			return errors.New("member not found")
		}
		memberName = member.Name
		wasHost = member.Role == roleHost
		member.Active = false
		member.ConnStatus = connLeft
		member.DisconnectedAt = time.Time{}
		if round := room.currentRound(); round != nil {
			if player := round.playerByMember(memberID); player != nil {
				if round.Status == roundPlaying && round.CurrentTurn == player.ID {
					if next := round.nextTurnPlayer(); next != nil && next.ID != player.ID {
						turnDuration = room.Settings.TurnDuration
						turnDeadline = timeNowUTC().Add(time.Duration(turnDuration) * time.Second)
						round.CurrentTurn = next.ID
						round.TurnDeadline = turnDeadline
						turnPassed = true
						nextTurnID = next.ID
						nextIsBot = next.BotControlled
					} else {
						round.CurrentTurn = 0
						round.TurnDeadline = time.Time{}
					}
				}
				round.removePlayerByMember(memberID)
			}
		}
		if wasHost {
			if promoted := room.transferHost(memberID); promoted != nil {
				newHostName = promoted.Name
			}
		}
		if room.activeMemberCount() == 0 {
			room.Active = false
			deactivated = true
		}
		return nil
	}, func(room *Room) {
		session := s.sessions.get(code)
		session.cancelGraceTimer(memberID)
		session.clearVote(memberID)
		event := playerLeftEvent{
			Type:         "player_left",
			MemberID:     memberID,
			MemberName:   memberName,
			WasHost:      wasHost,
			NewHostName:  newHostName,
			Members:      membersData(room),
			RoundPlayers: roundPlayersData(room),
		}
		if turnPassed {
			event.NextTurn = turnInfoFor(room, room.currentRound(), nextTurnID)
			event.Duration = turnDuration
			event.Deadline = turnDeadline.Format(time.RFC3339)
		}
		s.ws.Send(conn, leaveConfirmedEvent{Type: "leave_confirmed"})
		s.ws.Broadcast(code, event)
	})
	if err != nil {
		return err
	}
	s.persistMemberStatus(room, memberID)
	s.persistRoundState(room)
	s.persistRoomActive(room)
	if turnPassed && nextIsBot {
		s.scheduleBotPlay(code, nextTurnID)
	}
	if deactivated {
		log.Printf("room deactivated room=%s", code)
		s.sessions.teardown(code)
	}
	return nil
}
