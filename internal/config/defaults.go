package config

// Default configuration values.
const (
	DefaultStateFile = ".leapdump/state.db"
	DefaultOutput    = "auto"
	DefaultHost      = "localhost"
	DefaultPort      = 5432
	DefaultSSLMode   = "disable"
	DefaultJobs      = 1
)

// ApplySourceDefaults fills in unset connection settings.
func ApplySourceDefaults(s *SourceConfig) {
	if s == nil {
		return
	}
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.SSLMode == "" {
		s.SSLMode = DefaultSSLMode
	}
}

// ApplyDumpDefaults fills in unset run switches.
func ApplyDumpDefaults(d *DumpConfig) {
	if d == nil {
		return
	}
	if d.Jobs == 0 {
		d.Jobs = DefaultJobs
	}
}
