package relay

import (
	"context"
	"errors"

	"github.com/mymmrac/telego"

	"relaygo/pkg/config"
	"relaygo/pkg/logger"
	"relaygo/pkg/msglog"
	"relaygo/pkg/telegram"
	"relaygo/pkg/worker"
)

// Messenger is the outbound half of the Bot API the handlers need.
type Messenger interface {
	Send(ctx context.Context, msg telegram.OutboundMessage) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Submitter runs handler work in the background. Work sharing a key must run
// in submission order.
type Submitter interface {
	Submit(key int64, name string, t worker.Task) error
}

type Service struct {
	client Messenger
	store  *msglog.Store
	async  Submitter
	cfg    config.RelayConfig
}

// NewService wires the router. A nil async submitter makes every command run
// inside the inbound request.
func NewService(client Messenger, store *msglog.Store, async Submitter, cfg config.RelayConfig) *Service {
	if cfg.DeleteCount <= 0 {
		cfg.DeleteCount = 5
	}
	return &Service{
		client: client,
		store:  store,
		async:  async,
		cfg:    cfg,
	}
}

// HandleUpdate routes one webhook body. Anything it cannot use is acknowledged
// and dropped; an error means the relay itself is unable to accept work.
func (s *Service) HandleUpdate(ctx context.Context, body []byte) error {
	update, err := telegram.ParseUpdate(body)
	if err != nil {
		logger.WarnCF("relay", "Ignoring malformed update", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
		return nil
	}

	switch {
	case update.Message != nil:
		return s.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		return s.handleCallback(ctx, update.CallbackQuery)
	case len(body) == 0:
		logger.DebugC("relay", "Ignoring empty webhook body")
		return nil
	default:
		logger.DebugCF("relay", "Ignoring update without message or callback", map[string]interface{}{
			logger.FieldUpdateID: update.UpdateID,
		})
		return nil
	}
}

func (s *Service) handleMessage(ctx context.Context, msg *telego.Message) error {
	if msg.Chat.ID == 0 {
		logger.WarnCF("relay", "Ignoring message without chat", map[string]interface{}{
			logger.FieldMessageID: msg.MessageID,
		})
		return nil
	}
	chatID := msg.Chat.ID
	s.store.Append(chatID, msglog.RoleUser, msg.MessageID)

	logger.InfoCF("relay", "Message received", map[string]interface{}{
		logger.FieldChatID:    chatID,
		logger.FieldMessageID: msg.MessageID,
		logger.FieldPreview:   truncate(msg.Text, 50),
	})

	switch {
	case msg.Text == CommandDeleteMessages:
		return s.run(ctx, chatID, "delete_messages", func(ctx context.Context) {
			s.DeleteLast(ctx, chatID, s.cfg.DeleteCount)
			s.Reply(ctx, chatID, DeleteConfirmation)
		})
	case msg.Text == CommandPanel && s.cfg.PanelEnabled:
		return s.run(ctx, chatID, "show_panel", func(ctx context.Context) {
			s.ShowPanel(ctx, chatID)
		})
	default:
		text := msg.Text
		return s.run(ctx, chatID, "echo", func(ctx context.Context) {
			s.Reply(ctx, chatID, EchoPrefix+text)
		})
	}
}

func (s *Service) handleCallback(ctx context.Context, cb *telego.CallbackQuery) error {
	if cb.Data == "" {
		logger.DebugC("relay", "Ignoring callback without data")
		return nil
	}
	chatID, messageID, ok := telegram.CallbackTarget(cb)
	if !ok {
		logger.DebugCF("relay", "Ignoring callback without message", map[string]interface{}{
			"callback_id": cb.ID,
		})
		return nil
	}

	switch cb.Data {
	case CallbackClosePanel:
		return s.run(ctx, chatID, "close_panel", func(ctx context.Context) {
			s.ClosePanel(ctx, chatID, messageID)
		})
	case CallbackNoop:
		return nil
	default:
		logger.DebugCF("relay", "Ignoring unknown callback data", map[string]interface{}{
			logger.FieldChatID: chatID,
			"data":             truncate(cb.Data, 64),
		})
		return nil
	}
}

// run executes fn inline or hands it to the background submitter, keyed by
// chat so one conversation's commands never overtake each other. A full queue
// drops the work; a closed one is reported to the caller.
func (s *Service) run(ctx context.Context, chatID int64, name string, fn worker.Task) error {
	if s.async == nil {
		fn(ctx)
		return nil
	}

	err := s.async.Submit(chatID, name, fn)
	if errors.Is(err, worker.ErrQueueFull) {
		logger.ErrorCF("relay", "Dropping command, send queue full", map[string]interface{}{
			logger.FieldChatID:  chatID,
			logger.FieldCommand: name,
		})
		return nil
	}
	if errors.Is(err, worker.ErrPoolClosed) {
		logger.ErrorC("relay", "Send pool stopped, rejecting update")
	}
	return err
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
