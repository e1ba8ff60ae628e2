package utils

const (
	// ApplicationName is the command name and the prefix of configuration artifacts.
	ApplicationName = "jobfolder"
	// ConfigFileName is the name of the configuration file in both global and local locations.
	ConfigFileName = "config.yaml"
	// LocalConfigFileName is the project-local configuration file looked up in the working directory.
	LocalConfigFileName = ".jobfolder.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding global state.
	GlobalConfigDirectoryName = ".jobfolder"
	// StoreFileName is the default SQLite database file name inside the global directory.
	StoreFileName = "jobs.db"
	// JobsDirectoryName is the default directory holding per-job output directories.
	JobsDirectoryName = "jobs"

	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal command errors.
	ApplicationExecutionFailedMessage = "jobfolder failed"
)
