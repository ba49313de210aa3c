package connectors

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/agentstation/catalogd/pkg/config"
	"github.com/agentstation/catalogd/pkg/constants"
	"github.com/agentstation/catalogd/pkg/errors"
	"github.com/agentstation/catalogd/pkg/sources/database"
)

// Connection properties understood by the postgresql factory.
const (
	PropertyConnectionURL      = "connection-url"
	PropertyConnectionUser     = "connection-user"
	PropertyConnectionPassword = "connection-password"
)

// Noop returns a factory whose connectors hold no resources.
func Noop() Factory {
	return func(context.Context, string, map[string]string) (Connector, error) {
		return noopConnector{}, nil
	}
}

type noopConnector struct{}

func (noopConnector) Close() error { return nil }

// Postgres returns a factory that opens and pings the database named by the
// connection-url property. open defaults to sql.Open with the lib/pq driver.
func Postgres(open database.Opener) Factory {
	if open == nil {
		open = sql.Open
	}
	return func(ctx context.Context, catalog string, properties map[string]string) (Connector, error) {
		url := properties[PropertyConnectionURL]
		if url == "" {
			return nil, errors.NewValidationError(PropertyConnectionURL, nil, "connection-url is required")
		}
		dsn, err := database.DSN(config.DatabaseConfig{
			URL:      url,
			User:     properties[PropertyConnectionUser],
			Password: properties[PropertyConnectionPassword],
		})
		if err != nil {
			return nil, err
		}

		db, err := open("postgres", dsn)
		if err != nil {
			return nil, errors.WrapResource("open", "database", catalog, err)
		}

		pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultConnectTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, errors.WrapResource("ping", "database", catalog, err)
		}

		db.SetConnMaxIdleTime(5 * time.Minute)
		return &sqlConnector{db: db}, nil
	}
}

type sqlConnector struct {
	db *sql.DB
}

func (c *sqlConnector) Close() error {
	return c.db.Close()
}

// Builtin returns a registry with the postgresql factory registered and the
// no-op factory as fallback.
func Builtin(r *Registry) *Registry {
	r.Register("postgresql", Postgres(nil))
	r.SetFallback(Noop())
	return r
}
