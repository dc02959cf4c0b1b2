package config

import "time"

// this holds the resolved configuration values from CLI
//
//nolint:lll // readablity
var (
	DB                 string        // connection string for the database
	Storage            string        // storage backend: file or postgres
	DataDir            string        // root directory for the file storage backend
	CurrentSeason      string        // season used when ingesting without explicit season
	WaitForServices    string        // duration to wait for other services to be ready
	LogLevel           string        // sets the log level (zap log level values)
	SQLLogLevel        string        // sets the log level for sql subsystem
	LogFormat          string        // text vs json
	LogFilter          string        // zapfilter rules applied to log output
	MigrationSourceURL string        // location of migration files
	EnableTelemetry    bool          // enable telemetry
	TelemetryEndpoint  string        // endpoint for telemetry
	NatsURL            string        // nats server receiving season change notifications
	NatsSubject        string        // subject used for season change notifications
	NotifyTimeout      string        // max duration for delivering a notification
	Addr               string        // listen addr for the http server
	InboxDir           string        // directory watched for new result files
	CareerCacheTTL     time.Duration // caching of the career view, 0 disables
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)
