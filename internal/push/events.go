package push

import (
	"encoding/json"
	"time"

	"github.com/mcdev12/quizroom/internal/room"
)

// EventName identifies a push event kind.
type EventName string

const (
	EventPlayerJoined   EventName = "player-joined"
	EventPlayerLeft     EventName = "player-left"
	EventHostChanged    EventName = "host-changed"
	EventGameStarted    EventName = "game-started"
	EventRoundStarted   EventName = "round-started"
	EventPlayerAnswered EventName = "player-answered"
	EventAllAnswered    EventName = "all-players-answered"
	EventGameEnded      EventName = "game-ended"
	EventRoomClosed     EventName = "room-closed"
	EventError          EventName = "error"
)

// Event is the envelope every push transport delivers. Delivery is
// at-least-once and unordered across event types; consumers must dedup.
type Event struct {
	ID         string          `json:"id"`
	RoomID     string          `json:"room_id"`
	Name       EventName       `json:"event"`
	Data       json.RawMessage `json:"payload,omitempty"`
	ReceivedAt time.Time       `json:"-"`
}

// PlayerJoinedPayload announces a new roster member.
type PlayerJoinedPayload struct {
	Player room.Player `json:"player"`
}

// PlayerLeftPayload announces a departure.
type PlayerLeftPayload struct {
	UserID string `json:"user_id"`
}

// HostChangedPayload announces host reassignment after the host left.
type HostChangedPayload struct {
	NewHostID string     `json:"new_host_id"`
	NewHost   *room.User `json:"new_host,omitempty"`
}

// GameStartedPayload carries the first question.
type GameStartedPayload struct {
	CurrentQuestion room.Question `json:"current_question"`
}

// RoundStartedPayload carries the next round's question.
type RoundStartedPayload struct {
	CurrentRound    int           `json:"current_round"`
	CurrentQuestion room.Question `json:"current_question"`
}

// PlayerAnsweredPayload echoes a recorded answer, including the sender's own.
type PlayerAnsweredPayload struct {
	UserID     string  `json:"user_id"`
	QuestionID string  `json:"question_id,omitempty"`
	Answer     bool    `json:"answer"`
	ElapsedSec float64 `json:"elapsed_sec,omitempty"`
}

// AllAnsweredPayload is the server-computed round summary.
type AllAnsweredPayload struct {
	YesCount int           `json:"yes_count"`
	NoCount  int           `json:"no_count"`
	Question room.Question `json:"question"`
}

// ErrorPayload carries a server-side error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ParsePayload decodes the event payload into its concrete type. Events
// without payloads (game-ended, room-closed) return nil, nil, as do
// unknown event names so a newer server cannot break an older client.
func ParsePayload(ev Event) (any, error) {
	switch ev.Name {
	case EventPlayerJoined:
		var p PlayerJoinedPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventPlayerLeft:
		var p PlayerLeftPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventHostChanged:
		var p HostChangedPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventGameStarted:
		var p GameStartedPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventRoundStarted:
		var p RoundStartedPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventPlayerAnswered:
		var p PlayerAnsweredPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventAllAnswered:
		var p AllAnsweredPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	case EventError:
		var p ErrorPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, nil
	}
}
