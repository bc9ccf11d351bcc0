package oauth

import "sync"

// flowState is the bookkeeping a single in-flight login needs between
// Start and the callback handler.
type flowState struct {
	pkce        PKCE
	state       string
	redirectURI string
	accountName string
}

// singleFlowSlot allows exactly one login flow at a time. claim takes the
// slot and returns false if one is already in progress; release empties it
// once the flow resolves (success, error, or timeout). The mutex is never
// held across a blocking receive: callers hold it only to read or replace
// the stored state.
type singleFlowSlot struct {
	mu      sync.Mutex
	current *flowState
}

var flowSlot singleFlowSlot

func (s *singleFlowSlot) claim(fs flowState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return false
	}
	s.current = &fs
	return true
}

func (s *singleFlowSlot) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func (s *singleFlowSlot) snapshot() (flowState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return flowState{}, false
	}
	return *s.current, true
}
