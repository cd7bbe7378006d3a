package installer

import (
	"context"
	"strings"

	"github.com/edvin/siteinstaller/internal/metrics"
	"github.com/edvin/siteinstaller/internal/model"
	"github.com/edvin/siteinstaller/internal/platform"
)

// CredentialFunc builds the provisioning request for one identifier of a batch.
type CredentialFunc func(archiveFile, seedFile, identifier string) model.ProvisionRequest

// SameAsIdentifier uses the identifier as database name, username and password.
func SameAsIdentifier(archiveFile, seedFile, identifier string) model.ProvisionRequest {
	return model.ProvisionRequest{
		ArchiveFile: archiveFile,
		SeedFile:    seedFile,
		Identifier:  identifier,
		DBName:      identifier,
		DBUser:      identifier,
		DBPassword:  identifier,
	}
}

// RunBatch provisions each identifier in order on db, one at a time. Every
// identifier is attempted regardless of earlier failures. The caller must
// reject empty lists, empty identifiers and a missing seed name beforehand.
func (p *Pipeline) RunBatch(ctx context.Context, db DB, archiveFile, seedFile string, identifiers []string) model.BatchResult {
	batchID := platform.NewID()
	logger := p.logger.With().Str("batch_id", batchID).Logger()
	result := model.NewBatchResult()

	metrics.BatchesInFlight.Inc()
	defer metrics.BatchesInFlight.Dec()

	logger.Info().
		Str("archive", archiveFile).
		Str("seed", seedFile).
		Int("accounts", len(identifiers)).
		Msg("starting provisioning batch")

	for _, id := range identifiers {
		code := p.provision(ctx, db, batchID, p.credentials(archiveFile, seedFile, id))
		if code.OK() {
			result.Created = append(result.Created, id)
			logger.Info().Str("identifier", id).Msg("account provisioned")
		} else {
			result.Canceled = append(result.Canceled, id)
			logger.Warn().Str("identifier", id).Str("code", code.String()).Msg("account canceled")
		}
	}

	logger.Info().
		Int("created", len(result.Created)).
		Int("canceled", len(result.Canceled)).
		Msg("provisioning batch finished")
	return result
}

// ParseAccounts splits a comma-separated account list. Whitespace around
// entries is trimmed; empty entries are kept so validation can reject them.
func ParseAccounts(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// GeneratedPassword uses the identifier as database name and username and a
// random password. The password only ends up in the site configuration.
func GeneratedPassword(archiveFile, seedFile, identifier string) model.ProvisionRequest {
	req := SameAsIdentifier(archiveFile, seedFile, identifier)
	req.DBPassword = platform.NewPassword(24)
	return req
}
