package backend

import (
	"errors"
	"fmt"
	"strings"

	"financas/internal/config"
)

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("no application config")
	}
	bt := BackendType(strings.ToLower(strings.TrimSpace(app.DataBackend)))
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("unknown data backend %q: want one of %s",
			app.DataBackend, strings.Join(BackendTypeNames(), ", "))
	}
	return Config{
		Type:         bt,
		SQLiteDBPath: app.SQLiteDBPath,
		PollInterval: app.PollInterval,
		AMQPURL:      app.AMQPURL,
		AMQPExchange: app.AMQPExchange,
	}, nil
}

// Validate checks the settings the chosen backend needs. AMQP is optional
// for sqlite and meaningless for memory, whose data lives in one process.
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("sqlite backend needs a database path")
		}
		if c.PollInterval < 0 {
			return fmt.Errorf("negative poll interval %v", c.PollInterval)
		}
		if c.AMQPURL != "" && c.AMQPExchange == "" {
			return errors.New("AMQP change fan-out needs an exchange name")
		}
	case MemoryBackend:
		if c.AMQPURL != "" {
			return errors.New("memory backend cannot share changes over AMQP")
		}
	default:
		return fmt.Errorf("unknown backend type %q", c.Type)
	}
	return nil
}

// BackendTypeNames lists the accepted DATA_BACKEND values, default first.
func BackendTypeNames() []string {
	return []string{SQLiteBackend.String(), MemoryBackend.String()}
}
