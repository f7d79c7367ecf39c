package server

// Outbound broadcast events. Every message carries a type tag and only
// what clients need to re-render: rosters, called numbers, turn and
// deadline info, settings, vote tallies.

type memberInfo struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	IsHost           bool   `json:"is_host"`
	ConnectionStatus string `json:"connection_status"`
	IsDisconnected   bool   `json:"is_disconnected"`
}

type roundPlayerInfo struct {
	ID              int    `json:"id"`
	MemberID        int    `json:"member_id"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	IsHost          bool   `json:"is_host"`
	IsCoHost        bool   `json:"is_co_host"`
	IsReady         bool   `json:"is_ready"`
	CompletedLines  int    `json:"completed_lines"`
	IsBotControlled bool   `json:"is_bot_controlled"`
	IsDisconnected  bool   `json:"is_disconnected"`
}

type turnInfo struct {
	ID              int    `json:"id"`
	MemberID        int    `json:"member_id"`
	Name            string `json:"name"`
	IsBotControlled bool   `json:"is_bot_controlled"`
}

type callerInfo struct {
	ID       int    `json:"id"`
	MemberID int    `json:"member_id"`
	Name     string `json:"name"`
	IsBot    bool   `json:"is_bot"`
}

type settingsInfo struct {
	SetupDuration int  `json:"setup_duration"`
	TurnDuration  int  `json:"turn_duration"`
	MaxPlayers    int  `json:"max_players"`
	ShowScore     bool `json:"show_score"`
	GracePeriod   int  `json:"grace_period"`
	BoardSize     int  `json:"board_size"`
}

type playerConnectedEvent struct {
	Type           string            `json:"type"`
	MemberID       int               `json:"member_id"`
	MemberName     string            `json:"member_name"`
	IsReconnection bool              `json:"is_reconnection"`
	Members        []memberInfo      `json:"members"`
	RoundPlayers   []roundPlayerInfo `json:"round_players"`
}

type playerDisconnectedEvent struct {
	Type        string `json:"type"`
	MemberID    int    `json:"member_id"`
	MemberName  string `json:"member_name"`
	GracePeriod int    `json:"grace_period"`
	Deadline    string `json:"deadline"`
}

type playerLeftEvent struct {
	Type         string            `json:"type"`
	MemberID     int               `json:"member_id"`
	MemberName   string            `json:"member_name"`
	WasHost      bool              `json:"was_host"`
	NewHostName  string            `json:"new_host_name,omitempty"`
	NextTurn     *turnInfo         `json:"next_turn,omitempty"`
	Duration     int               `json:"duration,omitempty"`
	Deadline     string            `json:"deadline,omitempty"`
	Members      []memberInfo      `json:"members"`
	RoundPlayers []roundPlayerInfo `json:"round_players"`
}

type playerBotControlledEvent struct {
	Type         string            `json:"type"`
	MemberID     int               `json:"member_id"`
	MemberName   string            `json:"member_name"`
	Message      string            `json:"message"`
	RoundPlayers []roundPlayerInfo `json:"round_players"`
}

type playerReconnectedEvent struct {
	Type         string            `json:"type"`
	MemberID     int               `json:"member_id"`
	MemberName   string            `json:"member_name"`
	Message      string            `json:"message"`
	RoundPlayers []roundPlayerInfo `json:"round_players"`
}

type voteKickStartedEvent struct {
	Type             string `json:"type"`
	TargetMemberID   int    `json:"target_member_id"`
	TargetMemberName string `json:"target_member_name"`
	TotalVoters      int    `json:"total_voters"`
}

type voteTally struct {
	Kick int `json:"kick"`
	Keep int `json:"keep"`
}

type voteUpdatedEvent struct {
	Type           string    `json:"type"`
	TargetMemberID int       `json:"target_member_id"`
	Votes          voteTally `json:"votes"`
	TotalVoters    int       `json:"total_voters"`
	TotalVoted     int       `json:"total_voted"`
}

type voteKickResultEvent struct {
	Type             string            `json:"type"`
	Result           string            `json:"result"`
	TargetMemberID   int               `json:"target_member_id"`
	TargetMemberName string            `json:"target_member_name"`
	KickCount        int               `json:"kick_count"`
	KeepCount        int               `json:"keep_count"`
	GracePeriod      int               `json:"grace_period,omitempty"`
	Members          []memberInfo      `json:"members,omitempty"`
	RoundPlayers     []roundPlayerInfo `json:"round_players,omitempty"`
}

type voteKickCancelledEvent struct {
	Type     string `json:"type"`
	MemberID int    `json:"member_id"`
	Message  string `json:"message"`
}

type gameStartingEvent struct {
	Type         string            `json:"type"`
	Status       string            `json:"status"`
	Duration     int               `json:"duration"`
	Deadline     string            `json:"deadline"`
	Message      string            `json:"message"`
	RoundPlayers []roundPlayerInfo `json:"round_players"`
}

type playerReadyEvent struct {
	Type         string            `json:"type"`
	MemberID     int               `json:"member_id"`
	MemberName   string            `json:"member_name"`
	ReadyCount   int               `json:"ready_count"`
	TotalCount   int               `json:"total_count"`
	RoundPlayers []roundPlayerInfo `json:"round_players"`
}

type gameStartedEvent struct {
	Type         string            `json:"type"`
	Status       string            `json:"status"`
	CurrentTurn  *turnInfo         `json:"current_turn"`
	Duration     int               `json:"duration"`
	Deadline     string            `json:"deadline"`
	RoundPlayers []roundPlayerInfo `json:"round_players"`
	ShowScore    bool              `json:"show_score"`
}

type numberCalledEvent struct {
	Type          string            `json:"type"`
	Number        int               `json:"number"`
	CalledBy      callerInfo        `json:"called_by"`
	CalledNumbers []int             `json:"called_numbers"`
	NextTurn      *turnInfo         `json:"next_turn"`
	Duration      int               `json:"duration"`
	Deadline      string            `json:"deadline"`
	RoundPlayers  []roundPlayerInfo `json:"round_players"`
	ShowScore     bool              `json:"show_score"`
}

type winnerInfo struct {
	ID             int    `json:"id"`
	MemberID       int    `json:"member_id"`
	Name           string `json:"name"`
	CompletedLines int    `json:"completed_lines"`
}

type gameWonEvent struct {
	Type         string            `json:"type"`
	Winners      []winnerInfo      `json:"winners"`
	IsTie        bool              `json:"is_tie"`
	RoundPlayers []roundPlayerInfo `json:"round_players"`
}

type settingsUpdatedEvent struct {
	Type      string       `json:"type"`
	Settings  settingsInfo `json:"settings"`
	UpdatedBy string       `json:"updated_by"`
}

type playerKickedEvent struct {
	Type           string            `json:"type"`
	KickedMemberID int               `json:"kicked_member_id"`
	KickedName     string            `json:"kicked_name"`
	Members        []memberInfo      `json:"members"`
	RoundPlayers   []roundPlayerInfo `json:"round_players"`
}

type newRoundCreatedEvent struct {
	Type        string `json:"type"`
	RoundNumber int    `json:"round_number"`
	Message     string `json:"message"`
}

type boardUpdatedEvent struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
}

type leaveConfirmedEvent struct {
	Type string `json:"type"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorMessage(message string) errorEvent {
	return errorEvent{Type: "error", Message: message}
}

func membersData(room *Room) []memberInfo {
	list := make([]memberInfo, 0, len(room.Members))
	for i := range room.Members {
		member := &room.Members[i]
		if !member.Active {
			continue
		}
		list = append(list, memberInfo{
			ID:               member.ID,
			Name:             member.Name,
			Role:             member.Role,
			IsHost:           member.Role == roleHost,
			ConnectionStatus: member.ConnStatus,
			IsDisconnected:   member.ConnStatus == connDisconnected,
		})
	}
	return list
}

func roundPlayersData(room *Room) []roundPlayerInfo {
	round := room.currentRound()
	if round == nil {
		return []roundPlayerInfo{}
	}
	list := make([]roundPlayerInfo, 0, len(round.Players))
	for i := range round.Players {
		player := &round.Players[i]
		info := roundPlayerInfo{
			ID:              player.ID,
			MemberID:        player.MemberID,
			IsReady:         player.Ready,
			CompletedLines:  len(player.FinishedLines),
			IsBotControlled: player.BotControlled,
		}
		if member := room.findMember(player.MemberID); member != nil {
			info.Name = member.Name
			info.Role = member.Role
			info.IsHost = member.Role == roleHost
			info.IsCoHost = member.Role == roleCoHost
			info.IsDisconnected = member.ConnStatus == connDisconnected
		}
		list = append(list, info)
	}
	return list
}

func turnInfoFor(room *Room, round *Round, playerID int) *turnInfo {
	player := round.findPlayer(playerID)
	if player == nil {
		return nil
	}
	info := &turnInfo{
		ID:              player.ID,
		MemberID:        player.MemberID,
		IsBotControlled: player.BotControlled,
	}
	if member := room.findMember(player.MemberID); member != nil {
		info.Name = member.Name
	}
	return info
}
