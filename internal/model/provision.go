package model

import (
	"fmt"
	"time"
)

// ResultCode is the outcome of a single tenant provisioning run. The numeric
// values are part of the HTTP contract and must not be renumbered.
type ResultCode int

const (
	CodeSuccess           ResultCode = 1000
	CodeFileNotFound      ResultCode = 1001
	CodeInternalError     ResultCode = 1002
	CodeDBConnectError    ResultCode = 1003
	CodeDBCreationError   ResultCode = 1004
	CodeDBChangeError     ResultCode = 1005
	CodeSQLFileNotFound   ResultCode = 1006
	CodeSQLReadError      ResultCode = 1007
	CodeSQLExecutionError ResultCode = 1008
	CodeConfigReadError   ResultCode = 1009
	CodeConfigWriteError  ResultCode = 1010
	CodeUserCreationError ResultCode = 1011
	CodeInvalidRequest    ResultCode = 1012
	CodeExtractionError   ResultCode = 1013
)

var codeNames = map[ResultCode]string{
	CodeSuccess:           "success",
	CodeFileNotFound:      "file_not_found",
	CodeInternalError:     "internal_error",
	CodeDBConnectError:    "db_connect_error",
	CodeDBCreationError:   "db_creation_error",
	CodeDBChangeError:     "db_change_error",
	CodeSQLFileNotFound:   "sql_file_not_found",
	CodeSQLReadError:      "sql_read_error",
	CodeSQLExecutionError: "sql_execution_error",
	CodeConfigReadError:   "config_read_error",
	CodeConfigWriteError:  "config_write_error",
	CodeUserCreationError: "user_creation_error",
	CodeInvalidRequest:    "invalid_request",
	CodeExtractionError:   "extraction_error",
}

// String returns the snake_case name used in logs, metric labels and history rows.
func (c ResultCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code_%d", int(c))
}

// OK reports whether the run completed every step.
func (c ResultCode) OK() bool {
	return c == CodeSuccess
}

// StatusForCode maps a finished run's code to its attempt status.
func StatusForCode(c ResultCode) string {
	if c.OK() {
		return StatusSucceeded
	}
	return StatusFailed
}

// ProvisionRequest holds the inputs of one pipeline run. The four tenant
// strings are independent even though callers usually derive them from the
// same identifier.
type ProvisionRequest struct {
	ArchiveFile string
	SeedFile    string
	Identifier  string
	DBName      string
	DBUser      string
	DBPassword  string
}

// BatchResult splits the identifiers of one batch by outcome, in processing order.
type BatchResult struct {
	Created  []string `json:"createdAccounts"`
	Canceled []string `json:"canceledAccounts"`
}

// NewBatchResult returns a BatchResult whose lists encode as [] rather than null.
func NewBatchResult() BatchResult {
	return BatchResult{Created: []string{}, Canceled: []string{}}
}

// ProvisionAttempt is one recorded pipeline run.
type ProvisionAttempt struct {
	ID          string     `json:"id"`
	BatchID     string     `json:"batch_id"`
	Identifier  string     `json:"identifier"`
	ArchiveFile string     `json:"archive_file"`
	SeedFile    string     `json:"seed_file"`
	Status      string     `json:"status"`
	Code        *int       `json:"code,omitempty"`
	CodeName    string     `json:"code_name,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
