// Package mysql provides the database handle the installer drives. Each
// provisioning batch works on one pinned connection because switching the
// active database is connection-wide state.
package mysql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/edvin/siteinstaller/internal/config"
)

const tlsConfigName = "installer"

// DriverConfig builds the go-sql-driver configuration from the service
// config. MYSQL_DSN wins over the DB_* fields. Multi-statement execution is
// always enabled since seed files are imported in one round-trip.
func DriverConfig(cfg *config.Config) (*mysqldrv.Config, error) {
	var dc *mysqldrv.Config
	if cfg.MySQLDSN != "" {
		parsed, err := mysqldrv.ParseDSN(cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("parse mysql DSN: %w", err)
		}
		dc = parsed
	} else {
		dc = mysqldrv.NewConfig()
		dc.User = cfg.MySQLUser
		dc.Passwd = cfg.MySQLPassword
		dc.Net = "tcp"
		dc.Addr = cfg.MySQLAddr()
	}
	dc.MultiStatements = true

	tlsCfg, err := cfg.MySQLTLS()
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil {
		if err := mysqldrv.RegisterTLSConfig(tlsConfigName, tlsCfg); err != nil {
			return nil, fmt.Errorf("register mysql TLS config: %w", err)
		}
		dc.TLSConfig = tlsConfigName
	}

	return dc, nil
}

// Pool hands out per-batch sessions backed by a shared *sql.DB.
type Pool struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open creates a Pool. No connection is made until a session connects.
func Open(logger zerolog.Logger, dc *mysqldrv.Config) (*Pool, error) {
	connector, err := mysqldrv.NewConnector(dc)
	if err != nil {
		return nil, fmt.Errorf("create mysql connector: %w", err)
	}
	return NewPool(logger, sql.OpenDB(connector)), nil
}

// NewPool wraps an existing *sql.DB.
func NewPool(logger zerolog.Logger, db *sql.DB) *Pool {
	return &Pool{
		db:     db,
		logger: logger.With().Str("component", "mysql").Logger(),
	}
}

// DB exposes the underlying handle for pool statistics.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Ping checks that the server is reachable.
func (p *Pool) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes every pooled connection.
func (p *Pool) Close() error {
	return p.db.Close()
}

// Session returns an unconnected session. Callers must Close it.
func (p *Pool) Session() *Conn {
	return &Conn{pool: p, logger: p.logger}
}

// Conn is one pinned server connection.
type Conn struct {
	pool   *Pool
	conn   *sql.Conn
	logger zerolog.Logger
	dirty  bool
}

// Connect establishes the session's connection, or verifies it if one is
// already held.
func (c *Conn) Connect(ctx context.Context) error {
	if c.conn != nil {
		return c.conn.PingContext(ctx)
	}
	conn, err := c.pool.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire mysql connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("ping mysql: %w", err)
	}
	c.conn = conn
	c.logger.Debug().Msg("connected to mysql")
	return nil
}

// Exec runs sqlText, which may hold several statements.
func (c *Conn) Exec(ctx context.Context, sqlText string) error {
	if c.conn == nil {
		return errNotConnected
	}
	c.dirty = true
	if _, err := c.conn.ExecContext(ctx, sqlText); err != nil {
		return err
	}
	return nil
}

// UseDatabase switches the session's active database.
func (c *Conn) UseDatabase(ctx context.Context, name string) error {
	if c.conn == nil {
		return errNotConnected
	}
	c.dirty = true
	if _, err := c.conn.ExecContext(ctx, "USE "+QuoteIdent(name)); err != nil {
		return fmt.Errorf("use database %s: %w", name, err)
	}
	return nil
}

// Close releases the connection. A connection that ran statements is
// discarded instead of returned to the pool, since its active database and
// session variables now belong to a tenant.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	conn := c.conn
	c.conn = nil
	if c.dirty {
		err := conn.Raw(func(any) error { return driver.ErrBadConn })
		if err != nil && !errors.Is(err, driver.ErrBadConn) {
			return err
		}
		return nil
	}
	return conn.Close()
}

var errNotConnected = errors.New("mysql session is not connected")

// QuoteIdent quotes a schema identifier with backticks.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteString quotes a string literal for statements that cannot take
// placeholders, such as CREATE USER.
func QuoteString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\x00", `\0`, "\n", `\n`, "\r", `\r`, "\x1a", `\Z`)
	return "'" + r.Replace(s) + "'"
}
