package config

// Default values for configuration.
const (
	// Telegram API defaults
	DefaultSessionFile = "exporter.session"

	// Export defaults
	DefaultExportDir        = "export"
	DefaultProgressEvery    = 20
	DefaultParticipantLimit = 200

	// Security defaults
	DefaultCredentialsFile = "config.tge"

	// Logging defaults
	DefaultLogLevel = "info"
)
