package telegram

import (
	"bytes"
	"encoding/json"

	"github.com/mymmrac/telego"
)

// ParseUpdate decodes a webhook body. An empty body yields an empty update;
// callers treat both that and a decode error as nothing to do.
func ParseUpdate(body []byte) (*telego.Update, error) {
	var u telego.Update
	if len(bytes.TrimSpace(body)) == 0 {
		return &u, nil
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CallbackTarget returns the chat and message carrying the pressed button.
// ok is false when Telegram did not include the message or its chat.
func CallbackTarget(cb *telego.CallbackQuery) (chatID int64, messageID int, ok bool) {
	if cb == nil || cb.Message == nil {
		return 0, 0, false
	}
	chat := cb.Message.GetChat()
	if chat.ID == 0 {
		return 0, 0, false
	}
	return chat.ID, cb.Message.GetMessageID(), true
}
