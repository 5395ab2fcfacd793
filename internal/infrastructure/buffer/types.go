package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const KindDeletedTask = "deleted_task"

// Item is a write that could not reach the primary store and waits for replay.
type Item struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
