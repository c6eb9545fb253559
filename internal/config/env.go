package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// DotenvFile is read from the working directory when present. Variables
// already set in the process environment win over its entries.
const DotenvFile = ".env"

// Environment overrides.
const (
	EnvBind           = "SAMARTH_BIND"
	EnvDBPath         = "SAMARTH_DB_PATH"
	EnvLogLevel       = "SAMARTH_LOG_LEVEL"
	EnvLogFile        = "SAMARTH_LOG_FILE"
	EnvSessionBackend = "SAMARTH_SESSION_BACKEND"
	EnvRedisAddr      = "SAMARTH_REDIS_ADDR"
	EnvRedisPassword  = "SAMARTH_REDIS_PASSWORD"
	EnvPython         = "SAMARTH_PYTHON"
)

func (c *Config) applyEnv() error {
	fileEnv, err := godotenv.Read(DotenvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", DotenvFile, err)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}

	for _, o := range []struct {
		key string
		dst *string
	}{
		{EnvBind, &c.Server.Bind},
		{EnvDBPath, &c.Server.DBPath},
		{EnvLogLevel, &c.Logging.Level},
		{EnvLogFile, &c.Logging.File},
		{EnvSessionBackend, &c.Sessions.Backend},
		{EnvRedisAddr, &c.Sessions.RedisAddr},
		{EnvRedisPassword, &c.Sessions.RedisPassword},
		{EnvPython, &c.Detector.PythonPath},
	} {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.dst = v
		}
	}
	return nil
}
