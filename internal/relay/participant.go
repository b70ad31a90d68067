package relay

import (
	"github.com/google/uuid"

	"github.com/1ureka/duocall/internal/util"
)

// frame is one WebSocket message, kept verbatim: kind is the WebSocket
// message type (text or binary), data the payload.
type frame struct {
	kind int
	data []byte
}

// participant is a connected transport endpoint. The id is assigned by the
// relay and lives only as long as the connection.
type participant struct {
	id     string
	room   string
	outbox *util.Queue[frame]
}

func newParticipant(roomID string) *participant {
	return &participant{
		id:     uuid.NewString(),
		room:   roomID,
		outbox: util.NewQueue[frame](),
	}
}
