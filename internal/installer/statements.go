package installer

import (
	"github.com/edvin/siteinstaller/internal/mysql"
)

// Statement builders. Callers must validate names first; quoting here keeps
// the SQL well-formed but is not the injection defence.

func createDatabaseSQL(name string) string {
	return "CREATE DATABASE IF NOT EXISTS " + mysql.QuoteIdent(name)
}

func createUserSQL(username, password string) string {
	return "CREATE USER " + account(username) + " IDENTIFIED BY " + mysql.QuoteString(password)
}

func grantAllSQL(dbName, username string) string {
	return "GRANT ALL PRIVILEGES ON " + mysql.QuoteIdent(dbName) + ".* TO " + account(username)
}

const flushPrivilegesSQL = "FLUSH PRIVILEGES"

func account(username string) string {
	return mysql.QuoteString(username) + "@'%'"
}
