package server

import (
	"encoding/json"
	"log"
	"time"

	"bingo-live/internal/db"

	"gorm.io/datatypes"
)

// Write-through persistence. The in-memory store is authoritative;
// these helpers mirror changes into Postgres after the fact. With a
// nil handle (tests, local runs without DATABASE_URL) every helper is
// a no-op. Persistence failures are logged and never block play.

func toJSON(value any) datatypes.JSON {
	data, err := json.Marshal(value)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// persistRoomCreate inserts the room row and remembers its id.
func (s *Server) persistRoomCreate(room *Room) {
	if s.db == nil || room == nil {
		return
	}
	record := db.Room{
		Code:          room.Code,
		IsActive:      room.Active,
		Visibility:    room.Visibility,
		SetupDuration: room.Settings.SetupDuration,
		TurnDuration:  room.Settings.TurnDuration,
		MaxPlayers:    room.Settings.MaxPlayers,
		ShowScore:     room.Settings.ShowScore,
		GracePeriod:   room.Settings.GracePeriod,
		BoardSize:     room.Settings.BoardSize,
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("persist room create failed room=%s error=%v", room.Code, err)
		return
	}
	room.DBID = record.ID
}

// persistMember inserts or updates one membership row.
func (s *Server) persistMember(room *Room, memberID int) {
	if s.db == nil || room == nil || room.DBID == 0 {
		return
	}
	member := room.findMember(memberID)
	if member == nil {
		return
	}
	record := db.RoomMember{
		ID:               member.DBID,
		RoomID:           room.DBID,
		UserRef:          member.UserRef,
		SessionToken:     member.Token,
		DisplayName:      member.Name,
		Role:             member.Role,
		IsActive:         member.Active,
		ConnectionStatus: member.ConnStatus,
		DisconnectedAt:   timePtr(member.DisconnectedAt),
		KickedCount:      member.KickedCount,
		JoinedAt:         member.JoinedAt,
	}
	if err := s.db.Save(&record).Error; err != nil {
		log.Printf("persist member failed room=%s member_id=%d error=%v", room.Code, memberID, err)
		return
	}
	member.DBID = record.ID
}

func (s *Server) persistMemberStatus(room *Room, memberID int) {
	s.persistMember(room, memberID)
}

// persistNewRound inserts the current round with its player rows.
func (s *Server) persistNewRound(room *Room) {
	if s.db == nil || room == nil || room.DBID == 0 {
		return
	}
	round := room.currentRound()
	if round == nil {
		return
	}
	record := db.GameRound{
		RoomID:        room.DBID,
		Number:        round.Number,
		Status:        round.Status,
		CalledNumbers: toJSON(round.CalledNumbers),
		Winners:       toJSON([]uint{}),
	}
	if err := s.db.Create(&record).Error; err != nil {
		log.Printf("persist round create failed room=%s round=%d error=%v", room.Code, round.Number, err)
		return
	}
	round.DBID = record.ID
	for i := range round.Players {
		s.persistRoundPlayer(room, round, &round.Players[i])
	}
}

func (s *Server) persistRoundPlayer(room *Room, round *Round, player *RoundPlayer) {
	if s.db == nil || round.DBID == 0 {
		return
	}
	member := room.findMember(player.MemberID)
	if member == nil || member.DBID == 0 {
		return
	}
	record := db.RoundPlayer{
		ID:              player.DBID,
		GameRoundID:     round.DBID,
		RoomMemberID:    member.DBID,
		Board:           toJSON(player.Board),
		IsReady:         player.Ready,
		FinishedLines:   toJSON(player.FinishedLines),
		TurnOrder:       player.TurnOrder,
		IsBotControlled: player.BotControlled,
		JoinedAt:        player.JoinedAt,
	}
	if err := s.db.Save(&record).Error; err != nil {
		log.Printf("persist round player failed room=%s player_id=%d error=%v", room.Code, player.ID, err)
		return
	}
	player.DBID = record.ID
}

// persistRoundState mirrors the current round and all of its players,
// and prunes rows for players removed from the round.
func (s *Server) persistRoundState(room *Room) {
	if s.db == nil || room == nil || room.DBID == 0 {
		return
	}
	round := room.currentRound()
	if round == nil || round.DBID == 0 {
		return
	}
	for i := range round.Players {
		s.persistRoundPlayer(room, round, &round.Players[i])
	}

	var currentTurnID *uint
	if player := round.findPlayer(round.CurrentTurn); player != nil && player.DBID != 0 {
		id := player.DBID
		currentTurnID = &id
	}
	winnerIDs := make([]uint, 0, len(round.Winners))
	for _, id := range round.Winners {
		if player := round.findPlayer(id); player != nil && player.DBID != 0 {
			winnerIDs = append(winnerIDs, player.DBID)
		}
	}
	updates := map[string]any{
		"status":          round.Status,
		"called_numbers":  toJSON(round.CalledNumbers),
		"current_turn_id": currentTurnID,
		"turn_deadline":   timePtr(round.TurnDeadline),
		"winners":         toJSON(winnerIDs),
		"started_at":      timePtr(round.StartedAt),
		"finished_at":     timePtr(round.FinishedAt),
	}
	if err := s.db.Model(&db.GameRound{}).Where("id = ?", round.DBID).Updates(updates).Error; err != nil {
		log.Printf("persist round failed room=%s round=%d error=%v", room.Code, round.Number, err)
	}

	keep := make([]uint, 0, len(round.Players))
	for i := range round.Players {
		if round.Players[i].DBID != 0 {
			keep = append(keep, round.Players[i].DBID)
		}
	}
	query := s.db.Where("game_round_id = ?", round.DBID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	if err := query.Delete(&db.RoundPlayer{}).Error; err != nil {
		log.Printf("persist round player prune failed room=%s round=%d error=%v", room.Code, round.Number, err)
	}
}

func (s *Server) persistBoard(room *Room, memberID int) {
	if s.db == nil || room == nil {
		return
	}
	round := room.currentRound()
	if round == nil {
		return
	}
	if player := round.playerByMember(memberID); player != nil {
		s.persistRoundPlayer(room, round, player)
	}
}

func (s *Server) persistBotControlled(room *Room, playerID int, controlled bool) {
	if s.db == nil || room == nil {
		return
	}
	round := room.currentRound()
	if round == nil {
		return
	}
	player := round.findPlayer(playerID)
	if player == nil || player.DBID == 0 {
		return
	}
	err := s.db.Model(&db.RoundPlayer{}).
		Where("id = ?", player.DBID).
		Update("is_bot_controlled", controlled).Error
	if err != nil {
		log.Printf("persist bot control failed room=%s player_id=%d error=%v", room.Code, playerID, err)
	}
}

// persistCall appends the audit row and refreshes the round state.
func (s *Server) persistCall(room *Room, playerID int, number int, isBot bool) {
	if s.db == nil || room == nil {
		return
	}
	round := room.currentRound()
	if round == nil || round.DBID == 0 {
		return
	}
	if player := round.findPlayer(playerID); player != nil && player.DBID != 0 {
		record := db.CalledNumberHistory{
			GameRoundID: round.DBID,
			Number:      number,
			CalledByID:  player.DBID,
			IsBotCall:   isBot,
			CalledAt:    timeNowUTC(),
		}
		if err := s.db.Create(&record).Error; err != nil {
			log.Printf("persist call failed room=%s number=%d error=%v", room.Code, number, err)
		}
	}
	s.persistRoundState(room)
}

func (s *Server) persistSettings(room *Room) {
	if s.db == nil || room == nil || room.DBID == 0 {
		return
	}
	updates := map[string]any{
		"setup_duration": room.Settings.SetupDuration,
		"turn_duration":  room.Settings.TurnDuration,
		"max_players":    room.Settings.MaxPlayers,
		"show_score":     room.Settings.ShowScore,
		"grace_period":   room.Settings.GracePeriod,
	}
	if err := s.db.Model(&db.Room{}).Where("id = ?", room.DBID).Updates(updates).Error; err != nil {
		log.Printf("persist settings failed room=%s error=%v", room.Code, err)
	}
}

func (s *Server) persistRoomActive(room *Room) {
	if s.db == nil || room == nil || room.DBID == 0 {
		return
	}
	err := s.db.Model(&db.Room{}).
		Where("id = ?", room.DBID).
		Update("is_active", room.Active).Error
	if err != nil {
		log.Printf("persist room active failed room=%s error=%v", room.Code, err)
	}
}
