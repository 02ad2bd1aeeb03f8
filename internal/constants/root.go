package constants

const (
	AppName            = "goaltrack"
	DefaultKeyringUser = "database-connection"
	DefaultConfigPath  = "~/.config/goaltrack/goaltrack.db"
	Version            = "v0.3.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// DefaultPlanningHorizonDays spreads the remaining amount of a goal without a
	// yearly target over this many days.
	DefaultPlanningHorizonDays = 30

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "goaltrack-"
	BackupFileSuffix = ".db"

	// Driver names as registered with database/sql
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	// Environment variables
	EnvDBConnection = "GOALTRACK_DB_CONNECTION"

	// Settings keys
	SettingWeekConvention = "week_convention"
	SettingTimezone       = "timezone"

	// Week conventions
	WeekConventionISO = "iso"
	WeekConventionUS  = "us"

	DefaultWeekConvention = WeekConventionISO
	DefaultTimezone       = "Local"
)
