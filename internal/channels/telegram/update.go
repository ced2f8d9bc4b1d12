package telegram

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mymmrac/telego"
)

// maxUpdateBytes caps a webhook body; real updates are a few KB.
const maxUpdateBytes = 1 << 20

// DecodeUpdate reads one webhook update from r.
func DecodeUpdate(r io.Reader) (*telego.Update, error) {
	var update telego.Update
	if err := json.NewDecoder(io.LimitReader(r, maxUpdateBytes)).Decode(&update); err != nil {
		return nil, fmt.Errorf("decode telegram update: %w", err)
	}
	return &update, nil
}

// ChatID returns the originating chat of update, if any.
func ChatID(update *telego.Update) (int64, bool) {
	if update == nil || update.Message == nil {
		return 0, false
	}
	return update.Message.Chat.ID, true
}

// VoiceFileID returns the voice attachment's file_id, or "".
func VoiceFileID(msg *telego.Message) string {
	if msg == nil || msg.Voice == nil {
		return ""
	}
	return msg.Voice.FileID
}

// FirstName returns the sender's first name, or "".
func FirstName(msg *telego.Message) string {
	if msg == nil || msg.From == nil {
		return ""
	}
	return msg.From.FirstName
}
