package controller

import "github.com/google/uuid"

// ClientContext identifies a shell session. Its ids are stamped on every entry it appends.
type ClientContext struct {
	ClientID uuid.UUID
	ThreadID int64
}

func NewClientContext(threadID int64) *ClientContext {
	return &ClientContext{
		ClientID: uuid.New(),
		ThreadID: threadID,
	}
}
