package command

import (
	"github.com/tagtalk/tagtalk/internal/classifier"
	"github.com/tagtalk/tagtalk/internal/models"
)

// ResponseKind discriminates the Response union
type ResponseKind string

const (
	// ResponseAnswer carries a completed result
	ResponseAnswer ResponseKind = "answer"
	// ResponseClarification asks the user to disambiguate instead of guessing
	ResponseClarification ResponseKind = "clarification"
	// ResponseError carries a user-facing failure
	ResponseError ResponseKind = "error"
)

// Answer is a successful command result
type Answer struct {
	Text  string        `json:"text"`
	Tags  []string      `json:"tags,omitempty"`
	Tasks []models.Task `json:"tasks,omitempty"`
	Task  *models.Task  `json:"task,omitempty"`
}

// Clarification asks the user to restate or narrow a command
type Clarification struct {
	Prompt     string            `json:"prompt"`
	Candidates []string          `json:"candidates,omitempty"`
	Intent     classifier.Intent `json:"intent,omitempty"`
}

// ErrorKind categorizes a command failure
type ErrorKind string

const (
	// ErrorValidation covers malformed tags, tag-count overflow, and bad input
	ErrorValidation ErrorKind = "validation"
	// ErrorUpstreamUnavailable means the task service failed twice in a row
	ErrorUpstreamUnavailable ErrorKind = "upstream_unavailable"
	// ErrorAuth is an upstream 401/403, passed through unchanged
	ErrorAuth ErrorKind = "auth"
	// ErrorUnexpected is anything uncategorized, reduced to a generic apology
	ErrorUnexpected ErrorKind = "unexpected"
)

// CommandError is a user-facing command failure. StatusCode is only set for
// auth errors, where the upstream status must pass through unchanged.
type CommandError struct {
	Kind        ErrorKind `json:"kind"`
	UserMessage string    `json:"user_message"`
	StatusCode  int       `json:"-"`
}

// Response is the tagged union returned for every handled utterance. Exactly
// one of Answer, Clarification, and Err is set, matching Kind.
type Response struct {
	Kind          ResponseKind   `json:"kind"`
	Answer        *Answer        `json:"answer,omitempty"`
	Clarification *Clarification `json:"clarification,omitempty"`
	Err           *CommandError  `json:"error,omitempty"`
}

func answer(a Answer) Response {
	return Response{Kind: ResponseAnswer, Answer: &a}
}

func clarify(prompt string, candidates []string, intent classifier.Intent) Response {
	return Response{
		Kind: ResponseClarification,
		Clarification: &Clarification{
			Prompt:     prompt,
			Candidates: candidates,
			Intent:     intent,
		},
	}
}

func failWith(kind ErrorKind, userMessage string) Response {
	return Response{
		Kind: ResponseError,
		Err:  &CommandError{Kind: kind, UserMessage: userMessage},
	}
}
