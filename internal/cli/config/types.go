// Package config provides configuration management for the roadsync CLI.
//
// Values are layered with koanf: built-in defaults, then roadsync.yaml, then
// a .env file, then ROADSYNC_ environment variables, then explicitly set
// flags.
package config

// Default values.
const (
	DefaultConfigFile = "roadsync.yaml"
	DefaultEnvFile    = ".env"
	DefaultLogFile    = "roadsync.log"
	DefaultPrefix     = "dorgis_"
	DefaultSchema     = "dorgis"
	DefaultPort       = 5432
	DefaultSSLMode    = "disable"

	// EnvPrefix prefixes every environment variable read by roadsync.
	// Nested keys use a double underscore: ROADSYNC_DATABASE__HOST.
	EnvPrefix = "ROADSYNC_"
)

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `koanf:"host" yaml:"host"`
	Port     int    `koanf:"port" yaml:"port"`
	Name     string `koanf:"name" yaml:"name,omitempty"`
	User     string `koanf:"user" yaml:"user"`
	Password string `koanf:"password" yaml:"password"`
	SSLMode  string `koanf:"sslmode" yaml:"sslmode"`
	// Prefix is prepended to the project name when Name is empty.
	Prefix string `koanf:"prefix" yaml:"prefix"`
	// Schema holds the road and object tables.
	Schema string `koanf:"schema" yaml:"schema"`
}

// TaskFlags selects the pipeline tasks of the run command.
type TaskFlags struct {
	All              bool `koanf:"all" yaml:"all"`
	Import           bool `koanf:"import" yaml:"import"`
	Roadways         bool `koanf:"roadways" yaml:"roadways"`
	Width            bool `koanf:"width" yaml:"width"`
	TransverseSlopes bool `koanf:"transverse_slopes" yaml:"transverse_slopes"`
	Latprofile       bool `koanf:"latprofile" yaml:"latprofile"`
	Curves           bool `koanf:"curves" yaml:"curves"`
	Defects          bool `koanf:"defects" yaml:"defects"`
	Rut              bool `koanf:"rut" yaml:"rut"`
	IRI              bool `koanf:"iri" yaml:"iri"`
}

// Config holds all CLI configuration options.
type Config struct {
	Project   string         `koanf:"project" yaml:"project"`
	Database  DatabaseConfig `koanf:"database" yaml:"database"`
	SRID      int            `koanf:"srid" yaml:"srid,omitempty"`
	RoadCodes []string       `koanf:"road_codes" yaml:"road_codes"`
	Tasks     TaskFlags      `koanf:"tasks" yaml:"tasks"`
	// KmBeg is kept as text so that "not set" and "not a number" can be told apart.
	KmBeg       string   `koanf:"km_beg" yaml:"km_beg,omitempty"`
	Layers      []string `koanf:"layers" yaml:"layers,omitempty"`
	Logfile     string   `koanf:"logfile" yaml:"logfile"`
	Quiet       bool     `koanf:"quiet" yaml:"quiet"`
	Verbose     bool     `koanf:"verbose" yaml:"verbose"`
	Yes         bool     `koanf:"yes" yaml:"yes"`
	Journal     string   `koanf:"journal" yaml:"journal,omitempty"`
	Pushgateway string   `koanf:"pushgateway" yaml:"pushgateway,omitempty"`

	// File is the config file that was read, if any.
	File string `koanf:"-" yaml:"-"`
}

func defaults() map[string]any {
	return map[string]any{
		"database.host":    "localhost",
		"database.port":    DefaultPort,
		"database.sslmode": DefaultSSLMode,
		"database.prefix":  DefaultPrefix,
		"database.schema":  DefaultSchema,
		"logfile":          DefaultLogFile,
	}
}
