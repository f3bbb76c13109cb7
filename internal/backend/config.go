package backend

import (
	"errors"
	"fmt"
	"strings"

	"spendlog/internal/config"
)

// Types lists every backend in the order they appear in help text.
func Types() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}
}

func typeList() string {
	names := make([]string, 0, len(Types()))
	for _, t := range Types() {
		names = append(names, t.String())
	}
	return strings.Join(names, ", ")
}

// FromAppConfig picks the backend fields out of the process configuration.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("app config is nil")
	}
	t := BackendType(cfg.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("unknown DATA_BACKEND %q (want one of %s)", cfg.DataBackend, typeList())
	}
	return Config{
		Type:         t,
		SQLiteDBPath: cfg.SQLiteDBPath,
		DatabaseURL:  cfg.DatabaseURL,
		SeedFile:     cfg.SeedFile,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	}, nil
}

// Validate checks the settings the chosen backend cannot start without.
// AMQP is optional everywhere and the memory seed file is optional.
func (c Config) Validate() error {
	switch c.Type {
	case MemoryBackend:
		return nil
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("sqlite backend needs SQLITE_DB_PATH")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("postgres backend needs DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown backend %q (want one of %s)", c.Type, typeList())
	}
	return nil
}
