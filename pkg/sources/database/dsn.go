package database

import (
	"net/url"
	"strings"

	"github.com/agentstation/catalogd/pkg/config"
)

// DSN builds the driver connection string from cfg. A leading "jdbc:" is
// dropped so JDBC-style registry URLs keep working. User and password
// override any credentials in the URL; for key=value style DSNs they are
// appended.
func DSN(cfg config.DatabaseConfig) (string, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(cfg.URL), "jdbc:")
	if cfg.User == "" && cfg.Password == "" {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		var b strings.Builder
		b.WriteString(raw)
		if cfg.User != "" {
			b.WriteString(" user=" + quoteValue(cfg.User))
		}
		if cfg.Password != "" {
			b.WriteString(" password=" + quoteValue(cfg.Password))
		}
		return strings.TrimSpace(b.String()), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	user := cfg.User
	if user == "" && u.User != nil {
		user = u.User.Username()
	}
	password := cfg.Password
	if password == "" && u.User != nil {
		password, _ = u.User.Password()
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String(), nil
}

// quoteValue quotes a libpq key=value parameter when needed.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
