package triage

import (
	"github.com/mymmrac/telego"
)

// Gate admits updates from a single authorized chat.
type Gate struct {
	AuthorizedChatID int64
}

// Check returns StageRejected for updates without a message or from any
// other chat, StageIgnored for messages carrying neither text nor voice,
// and StageValidated otherwise. It performs no I/O.
func (g Gate) Check(update *telego.Update) Stage {
	if update == nil || update.Message == nil {
		return StageRejected
	}
	if update.Message.Chat.ID != g.AuthorizedChatID {
		return StageRejected
	}
	if update.Message.Text == "" && update.Message.Voice == nil {
		return StageIgnored
	}
	return StageValidated
}
