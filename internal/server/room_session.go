package server

import (
	"sync"
	"time"
)

// roomSession owns a room's transient state: disconnection grace
// timers, bot-play timers and vote-kick sessions. It is created when
// the room's first connection arrives and torn down, with every timer
// cancelled, when the room deactivates. Timer callbacks re-validate
// room state before acting; a cancelled timer never runs its callback
// effects because cancellation stops it before firing.
type roomSession struct {
	mu          sync.Mutex
	graceTimers map[int]*time.Timer // keyed by member id
	botTimers   map[int]*time.Timer // keyed by round-player id
	votes       map[int]*voteSession
}

type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*roomSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*roomSession),
	}
}

func (r *sessionRegistry) get(code string) *roomSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[code]
	if !ok {
		session = &roomSession{
			graceTimers: make(map[int]*time.Timer),
			botTimers:   make(map[int]*time.Timer),
			votes:       make(map[int]*voteSession),
		}
		r.sessions[code] = session
	}
	return session
}

// teardown cancels every timer and discards the room's session.
func (r *sessionRegistry) teardown(code string) {
	r.mu.Lock()
	session, ok := r.sessions[code]
	delete(r.sessions, code)
	r.mu.Unlock()
	if !ok {
		return
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	for _, timer := range session.graceTimers {
		timer.Stop()
	}
	for _, timer := range session.botTimers {
		timer.Stop()
	}
	session.graceTimers = make(map[int]*time.Timer)
	session.botTimers = make(map[int]*time.Timer)
	session.votes = make(map[int]*voteSession)
}

func (s *roomSession) setGraceTimer(memberID int, timer *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.graceTimers[memberID]; ok {
		existing.Stop()
	}
	s.graceTimers[memberID] = timer
}

func (s *roomSession) cancelGraceTimer(memberID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.graceTimers[memberID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.graceTimers, memberID)
	return true
}

func (s *roomSession) setBotTimer(playerID int, timer *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.botTimers[playerID]; ok {
		existing.Stop()
	}
	s.botTimers[playerID] = timer
}

func (s *roomSession) cancelBotTimer(playerID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer, ok := s.botTimers[playerID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(s.botTimers, playerID)
	return true
}

func (s *roomSession) cancelAllBotTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.botTimers {
		timer.Stop()
		delete(s.botTimers, id)
	}
}

func (s *roomSession) startVote(targetID int, targetName string, eligible int) *voteSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	vote := &voteSession{
		TargetName: targetName,
		Eligible:   eligible,
		Kick:       make(map[int]struct{}),
		Keep:       make(map[int]struct{}),
	}
	s.votes[targetID] = vote
	return vote
}

func (s *roomSession) getVote(targetID int) *voteSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.votes[targetID]
}

func (s *roomSession) clearVote(targetID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.votes[targetID]; !ok {
		return false
	}
	delete(s.votes, targetID)
	return true
}

// startGraceTimer arms the disconnection grace period for a member.
// On expiry the handler re-checks that the member is still
// disconnected before remediating.
func (s *Server) startGraceTimer(code string, memberID int, seconds int) {
	session := s.sessions.get(code)
	timer := time.AfterFunc(time.Duration(seconds)*time.Second, func() {
		s.graceExpired(code, memberID)
	})
	session.setGraceTimer(memberID, timer)
}
