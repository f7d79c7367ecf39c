package server

import "time"

const (
	roundWaiting  = "waiting"
	roundSetup    = "setup"
	roundPlaying  = "playing"
	roundFinished = "finished"
)

const (
	roleHost   = "host"
	roleCoHost = "co-host"
	rolePlayer = "player"
)

const (
	connConnected    = "connected"
	connDisconnected = "disconnected"
	connLeft         = "left"
	connKicked       = "kicked"
)

const (
	visibilityPublic  = "public"
	visibilityPrivate = "private"
)

const (
	voteKick = "kick"
	voteKeep = "keep"
)

// RoomSettings are mutable only while the current round is waiting or
// finished. BoardSize is fixed at room creation.
type RoomSettings struct {
	SetupDuration int
	TurnDuration  int
	MaxPlayers    int
	ShowScore     bool
	GracePeriod   int
	BoardSize     int
}

type Room struct {
	Code       string
	DBID       uint
	Active     bool
	Visibility string
	Settings   RoomSettings
	Members    []Member
	Rounds     []Round

	nextMemberID int
	nextPlayerID int
}

// Member is a durable membership, independent of any single
// connection. It is deactivated, never deleted.
type Member struct {
	ID             int
	DBID           uint
	Name           string
	Token          string
	UserRef        string
	Role           string
	Active         bool
	ConnStatus     string
	DisconnectedAt time.Time
	JoinedAt       time.Time
	KickedCount    int
}

type Round struct {
	Number        int
	DBID          uint
	Status        string
	CalledNumbers []int
	CurrentTurn   int // round-player id, 0 when unset
	TurnDeadline  time.Time
	Winners       []int // round-player ids
	StartedAt     time.Time
	FinishedAt    time.Time
	Players       []RoundPlayer
}

type RoundPlayer struct {
	ID            int
	DBID          uint
	MemberID      int
	Board         [][]int
	Ready         bool
	FinishedLines []int
	TurnOrder     int
	BotControlled bool
	JoinedAt      time.Time
}

type RoomSummary struct {
	Code       string
	Visibility string
	Status     string
	Players    int
}

func (r *Room) linesToWin() int {
	return r.Settings.BoardSize
}

func (r *Room) currentRound() *Round {
	if len(r.Rounds) == 0 {
		return nil
	}
	return &r.Rounds[len(r.Rounds)-1]
}

func (r *Room) findMember(id int) *Member {
	for i := range r.Members {
		if r.Members[i].ID == id {
			return &r.Members[i]
		}
	}
	return nil
}

func (r *Room) activeMemberCount() int {
	count := 0
	for i := range r.Members {
		if r.Members[i].Active {
			count++
		}
	}
	return count
}

func (r *Room) host() *Member {
	for i := range r.Members {
		if r.Members[i].Active && r.Members[i].Role == roleHost {
			return &r.Members[i]
		}
	}
	for i := range r.Members {
		if r.Members[i].Active && r.Members[i].Role == roleCoHost {
			return &r.Members[i]
		}
	}
	return nil
}

// transferHost promotes the earliest-joined active player to co-host,
// excluding the departing member. Returns the promoted member, if any.
func (r *Room) transferHost(excludeID int) *Member {
	var candidate *Member
	for i := range r.Members {
		member := &r.Members[i]
		if !member.Active || member.ID == excludeID || member.Role != rolePlayer {
			continue
		}
		if candidate == nil || member.JoinedAt.Before(candidate.JoinedAt) {
			candidate = member
		}
	}
	if candidate != nil {
		candidate.Role = roleCoHost
	}
	return candidate
}

func (r *Room) disconnectedMemberNames() []string {
	var names []string
	for i := range r.Members {
		if r.Members[i].Active && r.Members[i].ConnStatus == connDisconnected {
			names = append(names, r.Members[i].Name)
		}
	}
	return names
}

func (r *Room) canJoin() (bool, string) {
	if !r.Active {
		return false, "Room is no longer active"
	}
	if round := r.currentRound(); round != nil && round.Status != roundWaiting && round.Status != roundFinished {
		return false, "Game in progress, please wait"
	}
	if r.activeMemberCount() >= r.Settings.MaxPlayers {
		return false, "Room is full"
	}
	return true, "OK"
}

func (rd *Round) findPlayer(id int) *RoundPlayer {
	for i := range rd.Players {
		if rd.Players[i].ID == id {
			return &rd.Players[i]
		}
	}
	return nil
}

func (rd *Round) playerByMember(memberID int) *RoundPlayer {
	for i := range rd.Players {
		if rd.Players[i].MemberID == memberID {
			return &rd.Players[i]
		}
	}
	return nil
}

func (rd *Round) removePlayerByMember(memberID int) bool {
	for i := range rd.Players {
		if rd.Players[i].MemberID == memberID {
			rd.Players = append(rd.Players[:i], rd.Players[i+1:]...)
			return true
		}
	}
	return false
}

func (rd *Round) allReady() bool {
	if len(rd.Players) == 0 {
		return false
	}
	for i := range rd.Players {
		if !rd.Players[i].Ready {
			return false
		}
	}
	return true
}

func (rd *Round) readyCount() int {
	count := 0
	for i := range rd.Players {
		if rd.Players[i].Ready {
			count++
		}
	}
	return count
}

func (rd *Round) numberCalled(number int) bool {
	for _, called := range rd.CalledNumbers {
		if called == number {
			return true
		}
	}
	return false
}

// nextTurnPlayer walks the surviving players in turn_order sequence and
// wraps. Turn-order values are never renumbered, so departed players
// simply stop appearing in the cycle. With no current turn it returns
// the lowest-order player.
func (rd *Round) nextTurnPlayer() *RoundPlayer {
	if len(rd.Players) == 0 {
		return nil
	}
	ordered := make([]*RoundPlayer, 0, len(rd.Players))
	for i := range rd.Players {
		ordered = append(ordered, &rd.Players[i])
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].TurnOrder < ordered[j-1].TurnOrder; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	if rd.CurrentTurn == 0 {
		return ordered[0]
	}
	for i, player := range ordered {
		if player.ID == rd.CurrentTurn {
			return ordered[(i+1)%len(ordered)]
		}
	}
	return ordered[0]
}

func timeNowUTC() time.Time {
	return time.Now().UTC()
}
