// Package transport is the request/response collaborator: a thin JSON/HTTP
// client for the game server. The server is the source of truth; every
// successful call returns its authoritative room representation (or the
// relevant slice of it) for the engine to merge.
package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/mcdev12/quizroom/internal/room"
)

// Rejection reasons the server encodes in error responses.
const (
	ReasonNotHost             = "not-host"
	ReasonInsufficientPlayers = "insufficient-players"
	ReasonRoomNotFound        = "room-not-found"
	ReasonRoomFull            = "room-full"
	ReasonPasscodeRequired    = "passcode-required"
	ReasonBadPasscode         = "bad-passcode"
)

// Error is a transport-level failure, carrying the server's rejection
// reason when one was given.
type Error struct {
	Status  int    `json:"-"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("server rejected request (%s): %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// NotFound reports whether the error means the room no longer exists.
func (e *Error) NotFound() bool {
	return e.Reason == ReasonRoomNotFound || e.Status == 404
}

// StartResult is the response to a successful start-game request.
type StartResult struct {
	CurrentQuestion room.Question `json:"current_question"`
}

// AdvanceResult is the response to a successful advance-round request.
type AdvanceResult struct {
	CurrentRound    int            `json:"current_round"`
	CurrentQuestion *room.Question `json:"current_question,omitempty"`
	Status          room.Status    `json:"status"`
}

// API is the game-server surface the engine depends on.
type API interface {
	FetchRoom(ctx context.Context, roomID string) (*room.Room, error)
	JoinRoom(ctx context.Context, roomID, userID, passcode string) (*room.Room, error)
	LeaveRoom(ctx context.Context, roomID, userID string) error
	StartGame(ctx context.Context, roomID, userID string) (*StartResult, error)
	SubmitAnswer(ctx context.Context, roomID, userID string, answer bool, elapsed time.Duration) error
	AdvanceRound(ctx context.Context, roomID, userID string) (*AdvanceResult, error)
}
