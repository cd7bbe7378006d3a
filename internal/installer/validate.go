package installer

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/edvin/siteinstaller/internal/model"
)

var (
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidFile     = errors.New("invalid file name")
)

// validNameRe matches only alphanumeric characters and underscores.
// Database names, usernames and tenant identifiers are interpolated into SQL
// and filesystem paths, so nothing else is accepted.
var validNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// validPasswordRe allows printable ASCII except quotes and backslash, which
// would break out of the single-quoted literals in SQL and wp-config.php.
var validPasswordRe = regexp.MustCompile(`^[\x21\x23-\x26\x28-\x5B\x5D-\x7E]+$`)

// validSeedRe matches a seed SQL base name.
var validSeedRe = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$`)

const (
	maxDatabaseNameLen = 64
	maxUsernameLen     = 32
	maxPasswordLen     = 128
	maxFileNameLen     = 255
)

func validateName(kind, name string, maxLen int) error {
	if !validNameRe.MatchString(name) {
		return fmt.Errorf("%w: %s %q: only alphanumeric and underscore allowed", ErrInvalidName, kind, name)
	}
	if len(name) > maxLen {
		return fmt.Errorf("%w: %s %q: longer than %d characters", ErrInvalidName, kind, name, maxLen)
	}
	return nil
}

// ValidateIdentifier checks a tenant identifier. The limit is the MySQL
// username length so an identifier can double as every credential.
func ValidateIdentifier(id string) error {
	return validateName("identifier", id, maxUsernameLen)
}

// ValidateDatabaseName checks a MySQL database name.
func ValidateDatabaseName(name string) error {
	return validateName("database", name, maxDatabaseNameLen)
}

// ValidatePassword checks a database password.
func ValidatePassword(password string) error {
	if !validPasswordRe.MatchString(password) {
		return fmt.Errorf("%w: must be printable ASCII without quotes or backslashes", ErrInvalidPassword)
	}
	if len(password) > maxPasswordLen {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidPassword, maxPasswordLen)
	}
	return nil
}

// ValidateSeedName checks the base name of the seed SQL file.
func ValidateSeedName(name string) error {
	if !validSeedRe.MatchString(name) || len(name) > maxFileNameLen {
		return fmt.Errorf("%w: seed %q", ErrInvalidFile, name)
	}
	return nil
}

// ValidateArchiveName checks that the archive is a plain file name inside the
// staging directory.
func ValidateArchiveName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || len(name) > maxFileNameLen {
		return fmt.Errorf("%w: archive %q", ErrInvalidFile, name)
	}
	return nil
}

// ValidateRequest applies every allow-list check to a provisioning request.
func ValidateRequest(req model.ProvisionRequest) error {
	if err := ValidateArchiveName(req.ArchiveFile); err != nil {
		return err
	}
	if err := ValidateSeedName(req.SeedFile); err != nil {
		return err
	}
	if err := ValidateIdentifier(req.Identifier); err != nil {
		return err
	}
	if err := ValidateDatabaseName(req.DBName); err != nil {
		return err
	}
	if err := validateName("username", req.DBUser, maxUsernameLen); err != nil {
		return err
	}
	return ValidatePassword(req.DBPassword)
}
