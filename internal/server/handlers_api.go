package server

import (
	"log"
	"net/http"
	"strings"
)

type createRoomRequest struct {
	Name       string `json:"name"`
	UserRef    string `json:"user_ref"`
	Visibility string `json:"visibility"`
	BoardSize  int    `json:"board_size"`
}

type joinRoomRequest struct {
	Name    string `json:"name"`
	UserRef string `json:"user_ref"`
}

type leaveRoomRequest struct {
	MemberID int    `json:"member_id"`
	Token    string `json:"token"`
}

type settingsRequest struct {
	MemberID int           `json:"member_id"`
	Token    string        `json:"token"`
	Settings settingsPatch `json:"settings"`
}

func validDisplayName(name string) bool {
	return name != "" && len(name) <= 30
}

// handleCreateRoom creates a room with its first round and registers
// the caller as host.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if !validDisplayName(name) {
		writeError(w, http.StatusBadRequest, "name must be 1-30 characters")
		return
	}
	settings := s.defaultSettings()
	if req.BoardSize != 0 {
		settings.BoardSize = clampInt(req.BoardSize, minBoardSize, maxBoardSize)
	}
	room := s.store.CreateRoom(settings, req.Visibility)
	token := newMemberToken()
	room, member, err := s.store.JoinRoom(room.Code, name, req.UserRef, token, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	room, err = s.store.UpdateRoom(room.Code, func(room *Room) error {
		createRound(room)
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	s.persistRoomCreate(room)
	s.persistMember(room, member.ID)
	s.persistNewRound(room)
	log.Printf("room created room=%s host=%s board_size=%d", room.Code, name, settings.BoardSize)
	writeJSON(w, http.StatusCreated, map[string]any{
		"room_code": room.Code,
		"member_id": member.ID,
		"token":     member.Token,
	})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	summaries := s.store.ListRoomSummaries()
	rooms := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		rooms = append(rooms, map[string]any{
			"room_code":  summary.Code,
			"visibility": summary.Visibility,
			"status":     summary.Status,
			"players":    summary.Players,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *Server) handleRoomStatus(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var payload map[string]any
	if _, err := s.store.UpdateRoom(code, func(room *Room) error {
		status := roundWaiting
		if round := room.currentRound(); round != nil {
			status = round.Status
		}
		joinable, reason := room.canJoin()
		payload = map[string]any{
			"room_code":  room.Code,
			"is_active":  room.Active,
			"visibility": room.Visibility,
			"status":     status,
			"players":    room.activeMemberCount(),
			"can_join":   joinable,
			"reason":     reason,
			"settings": settingsInfo{
				SetupDuration: room.Settings.SetupDuration,
				TurnDuration:  room.Settings.TurnDuration,
				MaxPlayers:    room.Settings.MaxPlayers,
				ShowScore:     room.Settings.ShowScore,
				GracePeriod:   room.Settings.GracePeriod,
				BoardSize:     room.Settings.BoardSize,
			},
		}
		return nil
	}); err != nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleJoinRoom resolves or creates a membership via the join gates.
func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var req joinRoomRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if !validDisplayName(name) {
		writeError(w, http.StatusBadRequest, "name must be 1-30 characters")
		return
	}
	token := newMemberToken()
	room, member, err := s.store.JoinRoom(code, name, req.UserRef, token, false)
	if err != nil {
		if err == errRoomNotFound {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.persistMember(room, member.ID)
	s.persistRoundState(room)
	log.Printf("member joined room=%s member_id=%d name=%s", code, member.ID, name)
	writeJSON(w, http.StatusOK, map[string]any{
		"room_code": room.Code,
		"member_id": member.ID,
		"token":     member.Token,
	})
}

func (s *Server) handleLeaveRoom(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var req leaveRoomRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, _, ok := s.store.FindMemberByToken(code, req.MemberID, req.Token); !ok {
		writeError(w, http.StatusUnauthorized, "invalid member credentials")
		return
	}
	if err := s.leaveRoom(code, nil, req.MemberID); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"left": true})
}

// handleRoomSettings is the HTTP entry to the same settings path the
// websocket uses.
func (s *Server) handleRoomSettings(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	var req settingsRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, _, ok := s.store.FindMemberByToken(code, req.MemberID, req.Token); !ok {
		writeError(w, http.StatusUnauthorized, "invalid member credentials")
		return
	}
	if err := s.updateSettings(code, req.MemberID, req.Settings); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}
