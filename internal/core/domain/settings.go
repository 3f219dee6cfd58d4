package domain

const (
	ThemeDark  = "Dark"
	ThemeLight = "Light"
	ThemeAuto  = "Auto"
)

// Settings are the persisted dashboard preferences.
type Settings struct {
	Theme              string `json:"theme"`
	DisplayName        string `json:"display_name"`
	EmailNotifications bool   `json:"email_notifications"`
}

// DefaultSettings is returned when nothing has been saved yet.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeDark}
}
