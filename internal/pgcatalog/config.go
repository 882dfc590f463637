package pgcatalog

import "fmt"

// Config holds connection settings for the source database.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	// SSLMode defaults to "disable".
	SSLMode string
}

// Source renders the connection target as "host:port/database".
func (c Config) Source() string {
	host, port := c.hostPort()
	return fmt.Sprintf("%s:%d/%s", host, port, c.Database)
}

func (c Config) hostPort() (string, int) {
	host := c.Host
	if host == "" {
		host = "localhost"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return host, port
}

// buildDSN constructs a key=value connection string.
func buildDSN(cfg Config) string {
	host, port := cfg.hostPort()

	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}
