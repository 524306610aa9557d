package relay

import "relaygo/pkg/telegram"

// Message texts that trigger commands. Matching is exact and case-sensitive.
const (
	CommandDeleteMessages = "حذف پیام ها"
	CommandPanel          = "پنل"
)

// Callback data carried by panel buttons.
const (
	CallbackClosePanel = "close_panel"
	CallbackNoop       = "noop"
)

const (
	EchoPrefix         = "دریافت شد: "
	DeleteConfirmation = "تمام پیام‌ها حذف شدند ✅"
	PanelTitle         = "پنل مدیریت"
	PanelCloseLabel    = "❌ بستن"
	panelPadding       = "\n\n\n"
	panelSpacerLabel   = "⠀" // Telegram rejects empty or whitespace-only button text.
)

func PanelCaption() string {
	return panelPadding + PanelTitle + panelPadding
}

// PanelButtons is a spacer row, the close row and another spacer row.
func PanelButtons() [][]telegram.Button {
	return [][]telegram.Button{
		{{Text: panelSpacerLabel, Data: CallbackNoop}},
		{{Text: PanelCloseLabel, Data: CallbackClosePanel}},
		{{Text: panelSpacerLabel, Data: CallbackNoop}},
	}
}
