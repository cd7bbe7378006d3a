package request

import (
	"net/http"

	"github.com/edvin/siteinstaller/internal/installer"
)

// Multipart field names accepted by the provisioning endpoint.
const (
	FieldArchive  = "zipFile"
	FieldAccounts = "accounts"
	FieldSeed     = "sqlFileName"
)

// Provision is the non-file part of a provisioning upload.
type Provision struct {
	Accounts    []string `validate:"required,min=1,dive,tenant"`
	SQLFileName string   `validate:"required,seedname"`
}

// ParseProvision reads the account list and seed name from a parsed form.
func ParseProvision(r *http.Request) Provision {
	return Provision{
		Accounts:    installer.ParseAccounts(r.FormValue(FieldAccounts)),
		SQLFileName: r.FormValue(FieldSeed),
	}
}
