package server

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// clientMessage is the union of every inbound websocket message. The
// type tag selects the handler; unused fields stay zero.
type clientMessage struct {
	Type           string         `json:"type"`
	Board          [][]int        `json:"board,omitempty"`
	Number         int            `json:"number,omitempty"`
	Settings       *settingsPatch `json:"settings,omitempty"`
	TargetMemberID int            `json:"target_member_id,omitempty"`
	Vote           string         `json:"vote,omitempty"`
}

// dispatch routes one inbound message. Handler errors are rejected
// preconditions: they go back to the sender only, never the room.
func (s *Server) dispatch(code string, conn *websocket.Conn, memberID int, payload []byte) {
	var msg clientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		s.ws.Send(conn, errorMessage("invalid message"))
		return
	}

	var err error
	switch msg.Type {
	case "start_game":
		err = s.startGame(code, memberID)
	case "player_ready":
		err = s.markReady(code, memberID)
	case "update_board":
		err = s.updateBoard(code, conn, memberID, msg.Board)
	case "call_number":
		err = s.callNumber(code, memberID, msg.Number)
	case "update_settings":
		if msg.Settings == nil {
			err = s.updateSettings(code, memberID, settingsPatch{})
		} else {
			err = s.updateSettings(code, memberID, *msg.Settings)
		}
	case "kick_player":
		err = s.kickPlayer(code, memberID, msg.TargetMemberID)
	case "new_round":
		err = s.newRound(code, memberID)
	case "leave_room":
		err = s.leaveRoom(code, conn, memberID)
	case "cast_vote":
		err = s.castVote(code, memberID, msg.TargetMemberID, msg.Vote)
	default:
		s.ws.Send(conn, errorMessage("unknown message type: "+msg.Type))
		return
	}
	if err != nil {
		s.ws.Send(conn, errorMessage(err.Error()))
	}
}
