// Package conversation tracks which task a pronoun like "this" refers to,
// per user, across a chat session.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tagtalk/tagtalk/internal/classifier"
)

// State is the context machine state for one user
type State string

const (
	// StateIdle means no task reference is active; "this" cannot resolve
	StateIdle State = "idle"
	// StateActive means a last task id is set and "this" resolves to it
	StateActive State = "active"
)

// Context is one user's conversational context. State == StateIdle implies
// LastTaskID is the zero UUID.
type Context struct {
	UserID       string
	State        State
	LastTaskID   uuid.UUID
	LastIntent   classifier.Intent
	LastActivity time.Time
}

// resetIntents clear the active reference: they change what the user is
// looking at, so a later "this" would be ambiguous.
var resetIntents = map[classifier.Intent]struct{}{
	classifier.IntentList:   {},
	classifier.IntentCreate: {},
}

// Tracker maintains per-user conversational context. Contexts live for the
// length of the session and are never persisted.
type Tracker struct {
	mu       sync.RWMutex
	contexts map[string]*Context
	now      func() time.Time
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		contexts: make(map[string]*Context),
		now:      time.Now,
	}
}

// ResolveThis resolves a "this" reference for the user. The second return is
// false while the user's context is idle or absent.
func (t *Tracker) ResolveThis(userID string) (uuid.UUID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ctx, ok := t.contexts[userID]
	if !ok || ctx.State != StateActive {
		return uuid.Nil, false
	}
	return ctx.LastTaskID, true
}

// Update applies a processed intent to the user's context. Reset intents
// always clear the active reference regardless of prior state; any other
// intent that returned a task id activates the reference; the rest leave the
// state unchanged.
func (t *Tracker) Update(userID string, intent classifier.Intent, taskID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, ok := t.contexts[userID]
	if !ok {
		ctx = &Context{UserID: userID, State: StateIdle}
		t.contexts[userID] = ctx
	}

	if _, reset := resetIntents[intent]; reset {
		ctx.State = StateIdle
		ctx.LastTaskID = uuid.Nil
	} else if taskID != uuid.Nil {
		ctx.State = StateActive
		ctx.LastTaskID = taskID
	}

	ctx.LastIntent = intent
	ctx.LastActivity = t.now()
}

// Reset clears the user's context entirely
func (t *Tracker) Reset(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.contexts, userID)
}

// StateOf returns the user's current state, StateIdle when no context exists
func (t *Tracker) StateOf(userID string) State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if ctx, ok := t.contexts[userID]; ok {
		return ctx.State
	}
	return StateIdle
}
