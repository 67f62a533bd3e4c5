package settings

// Settings son las preferencias de la app. NotificationsEnabled lo lee
// el scheduler en cada pase de reschedule; DarkMode y Language son solo
// de presentación, el core no los interpreta.
type Settings struct {
	NotificationsEnabled bool
	DarkMode             bool
	Language             string // "en", "de", "es", "fr"
}

// Defaults replica los valores iniciales de la app.
func Defaults() Settings {
	return Settings{
		NotificationsEnabled: true,
		DarkMode:             true,
		Language:             "en",
	}
}
