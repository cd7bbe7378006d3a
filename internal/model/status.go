package model

// Provision attempt status constants.
const (
	StatusProvisioning = "provisioning"
	StatusSucceeded    = "succeeded"
	StatusFailed       = "failed"
)
