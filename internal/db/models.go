package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID         uint      `gorm:"primaryKey"`
	Code       string    `gorm:"size:6;uniqueIndex;not null"`
	IsActive   bool      `gorm:"not null;default:true"`
	Visibility string    `gorm:"size:10;not null;default:'public'"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`

	SetupDuration int  `gorm:"not null;default:60"`
	TurnDuration  int  `gorm:"not null;default:20"`
	MaxPlayers    int  `gorm:"not null;default:8"`
	ShowScore     bool `gorm:"not null;default:false"`
	GracePeriod   int  `gorm:"not null;default:15"`
	BoardSize     int  `gorm:"not null;default:5"`

	Members []RoomMember
	Rounds  []GameRound
}

type RoomMember struct {
	ID               uint       `gorm:"primaryKey"`
	RoomID           uint       `gorm:"index;not null"`
	UserRef          string     `gorm:"size:64;index"`
	SessionToken     string     `gorm:"size:40;index"`
	DisplayName      string     `gorm:"size:30;not null"`
	Role             string     `gorm:"size:10;not null;default:'player'"`
	IsActive         bool       `gorm:"not null;default:true"`
	ConnectionStatus string     `gorm:"size:15;not null;default:'connected'"`
	DisconnectedAt   *time.Time `gorm:""`
	KickedCount      int        `gorm:"not null;default:0"`
	JoinedAt         time.Time  `gorm:"not null"`
	CreatedAt        time.Time  `gorm:"not null"`
	UpdatedAt        time.Time  `gorm:"not null"`

	RoundPlayers []RoundPlayer `gorm:"foreignKey:RoomMemberID"`
}

type GameRound struct {
	ID            uint           `gorm:"primaryKey"`
	RoomID        uint           `gorm:"index;not null;uniqueIndex:idx_rounds_room_number"`
	Number        int            `gorm:"not null;uniqueIndex:idx_rounds_room_number"`
	Status        string         `gorm:"size:10;not null;default:'waiting'"`
	CalledNumbers datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	CurrentTurnID *uint          `gorm:"index"`
	TurnDeadline  *time.Time     `gorm:""`
	Winners       datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	StartedAt     *time.Time     `gorm:""`
	FinishedAt    *time.Time     `gorm:""`
	CreatedAt     time.Time      `gorm:"not null"`
	UpdatedAt     time.Time      `gorm:"not null"`

	Players []RoundPlayer         `gorm:"foreignKey:GameRoundID"`
	Calls   []CalledNumberHistory `gorm:"foreignKey:GameRoundID"`
}

type RoundPlayer struct {
	ID              uint           `gorm:"primaryKey"`
	GameRoundID     uint           `gorm:"index;not null;uniqueIndex:idx_round_players_round_member"`
	RoomMemberID    uint           `gorm:"index;not null;uniqueIndex:idx_round_players_round_member"`
	Board           datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	IsReady         bool           `gorm:"not null;default:false"`
	FinishedLines   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	TurnOrder       int            `gorm:"not null;default:0"`
	IsBotControlled bool           `gorm:"not null;default:false"`
	JoinedAt        time.Time      `gorm:"not null"`
	CreatedAt       time.Time      `gorm:"not null"`
	UpdatedAt       time.Time      `gorm:"not null"`
}

type CalledNumberHistory struct {
	ID          uint      `gorm:"primaryKey"`
	GameRoundID uint      `gorm:"index;not null;uniqueIndex:idx_calls_round_number"`
	Number      int       `gorm:"not null;uniqueIndex:idx_calls_round_number"`
	CalledByID  uint      `gorm:"index;not null"`
	IsBotCall   bool      `gorm:"not null;default:false"`
	CalledAt    time.Time `gorm:"not null"`
}
