package server

import (
	"net/http"

	"bingo-live/internal/config"

	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	ws       *wsHub
	cfg      config.Config
	sessions *sessionRegistry
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	return &Server{
		store:    NewStore(),
		db:       conn,
		ws:       newWSHub(),
		cfg:      cfg,
		sessions: newSessionRegistry(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{code}", s.handleRoomStatus)
	mux.HandleFunc("POST /api/rooms/{code}/join", s.handleJoinRoom)
	mux.HandleFunc("POST /api/rooms/{code}/leave", s.handleLeaveRoom)
	mux.HandleFunc("POST /api/rooms/{code}/settings", s.handleRoomSettings)
	mux.HandleFunc("GET /ws/rooms/{code}", s.handleWebsocket)
	return mux
}

func (s *Server) defaultSettings() RoomSettings {
	return RoomSettings{
		SetupDuration: s.cfg.SetupDurationSeconds,
		TurnDuration:  s.cfg.TurnDurationSeconds,
		MaxPlayers:    s.cfg.MaxPlayers,
		ShowScore:     s.cfg.ShowScore,
		GracePeriod:   s.cfg.GracePeriodSeconds,
		BoardSize:     s.cfg.BoardSize,
	}
}
