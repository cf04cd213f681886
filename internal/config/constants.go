package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./shelfmark.db"

	// DefaultMirrorDir is the default directory for the plain-text
	// library mirror
	DefaultMirrorDir = "./library"
)
