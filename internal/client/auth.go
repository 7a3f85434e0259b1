package client

import "sync"

// AuthSession holds the signed-in identity. It is created empty, filled by
// Login and cleared by Logout or by a 401 from the API.
type AuthSession struct {
	mu           sync.RWMutex
	token        string
	userID       string
	onInvalidate func()
}

func NewAuthSession() *AuthSession {
	return &AuthSession{}
}

// OnInvalidate registers fn to run when a 401 clears the session
func (s *AuthSession) OnInvalidate(fn func()) {
	s.mu.Lock()
	s.onInvalidate = fn
	s.mu.Unlock()
}

func (s *AuthSession) Login(token, userID string) {
	s.mu.Lock()
	s.token = token
	s.userID = userID
	s.mu.Unlock()
}

func (s *AuthSession) Logout() {
	s.mu.Lock()
	s.token = ""
	s.userID = ""
	s.mu.Unlock()
}

// Invalidate clears the session and notifies the OnInvalidate hook once per
// signed-in session.
func (s *AuthSession) Invalidate() {
	s.mu.Lock()
	wasActive := s.token != ""
	s.token = ""
	s.userID = ""
	hook := s.onInvalidate
	s.mu.Unlock()

	if wasActive && hook != nil {
		hook()
	}
}

// Token returns the bearer token and whether a session is active
func (s *AuthSession) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *AuthSession) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *AuthSession) Active() bool {
	_, ok := s.Token()
	return ok
}
