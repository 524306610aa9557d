package logger

const (
	FieldChatID    = "chat_id"
	FieldMessageID = "message_id"
	FieldUpdateID  = "update_id"
	FieldCommand   = "command"
	FieldURL       = "url"
	FieldTask      = "task"
	FieldRemote    = "remote"
	FieldPreview   = "preview"
	FieldError     = "error"
)
