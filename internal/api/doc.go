// Package api provides the site installer HTTP API.
//
//	@title			Site Installer API
//	@version		1.0
//	@description	Provisions self-hosted sites from uploaded archives
//	@BasePath		/api/v1
package api
