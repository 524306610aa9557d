package relay

import (
	"context"

	"relaygo/pkg/logger"
	"relaygo/pkg/msglog"
	"relaygo/pkg/telegram"
)

// send delivers msg and records the returned id under the bot role. Failures
// are logged only; the chat user sees silence.
func (s *Service) send(ctx context.Context, msg telegram.OutboundMessage) (int, bool) {
	id, err := s.client.Send(ctx, msg)
	if err != nil {
		logger.WarnCF("relay", "Failed to send message", map[string]interface{}{
			logger.FieldChatID: msg.ChatID,
			logger.FieldError:  err.Error(),
		})
		return 0, false
	}
	s.store.Append(msg.ChatID, msglog.RoleBot, id)
	return id, true
}

func (s *Service) Reply(ctx context.Context, chatID int64, text string) (int, bool) {
	return s.send(ctx, telegram.OutboundMessage{ChatID: chatID, Text: text})
}

// DeleteLast removes the newest n bot ids and then the newest n user ids from
// the log, asking Telegram to delete each one. It returns how many deletes
// Telegram accepted.
func (s *Service) DeleteLast(ctx context.Context, chatID int64, n int) int {
	deleted := 0
	for _, role := range []msglog.Role{msglog.RoleBot, msglog.RoleUser} {
		for _, id := range s.store.TrimLast(chatID, role, n) {
			if err := s.client.DeleteMessage(ctx, chatID, id); err != nil {
				logger.WarnCF("relay", "Failed to delete message", map[string]interface{}{
					logger.FieldChatID:    chatID,
					logger.FieldMessageID: id,
					"role":                string(role),
					logger.FieldError:     err.Error(),
				})
				continue
			}
			deleted++
		}
	}

	logger.InfoCF("relay", "Deleted recent messages", map[string]interface{}{
		logger.FieldChatID: chatID,
		"deleted":          deleted,
	})
	return deleted
}

func (s *Service) ShowPanel(ctx context.Context, chatID int64) (int, bool) {
	return s.send(ctx, telegram.OutboundMessage{
		ChatID:   chatID,
		Text:     PanelCaption(),
		PhotoURL: s.cfg.PanelPhotoURL,
		Buttons:  PanelButtons(),
	})
}

// ClosePanel deletes the message carrying the pressed button.
func (s *Service) ClosePanel(ctx context.Context, chatID int64, messageID int) {
	if err := s.client.DeleteMessage(ctx, chatID, messageID); err != nil {
		logger.WarnCF("relay", "Failed to delete panel message", map[string]interface{}{
			logger.FieldChatID:    chatID,
			logger.FieldMessageID: messageID,
			logger.FieldError:     err.Error(),
		})
	}
	if s.cfg.PruneClosedPanels {
		s.store.Remove(chatID, messageID)
	}
}
