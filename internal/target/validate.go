package target

import (
	"regexp"

	"airflow-mcp/internal/toolerr"
)

// Identifier charsets follow Airflow's own key validation: DAG ids allow
// letters, numbers, underscore, dot, dash; run ids additionally allow colon
// and plus (timestamps); task ids allow plus.
var (
	dagIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	dagRunIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:+-]+$`)
	taskIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_.+-]+$`)
	datasetPattern  = regexp.MustCompile(`^[A-Za-z0-9_.:/+-]+$`)
	keyPattern      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)
)

func validateOptional(field, value string, pattern *regexp.Regexp) (string, error) {
	if value == "" {
		return "", nil
	}
	if !pattern.MatchString(value) {
		return "", toolerr.Newf(toolerr.CodeInvalidInput, "Invalid %s", field).
			WithContext("field", field).
			WithContext("value", value)
	}
	return value, nil
}

// ValidateInstanceKey checks a caller-supplied instance key. An empty key is
// INVALID_INPUT; existence in the registry is checked separately.
func ValidateInstanceKey(value string) (string, error) {
	if value == "" {
		return "", toolerr.New(toolerr.CodeInvalidInput, "Missing instance").
			WithContext("field", "instance")
	}
	if !keyPattern.MatchString(value) {
		return "", toolerr.New(toolerr.CodeInvalidInput, "Invalid instance").
			WithContext("field", "instance").
			WithContext("value", value)
	}
	return value, nil
}

// ValidateDagID checks an optional DAG id.
func ValidateDagID(value string) (string, error) {
	return validateOptional("dag_id", value, dagIDPattern)
}

// ValidateDagRunID checks an optional DAG run id.
func ValidateDagRunID(value string) (string, error) {
	return validateOptional("dag_run_id", value, dagRunIDPattern)
}

// ValidateTaskID checks an optional task id.
func ValidateTaskID(value string) (string, error) {
	return validateOptional("task_id", value, taskIDPattern)
}

// ValidateDatasetURI checks a required dataset URI.
func ValidateDatasetURI(value string) (string, error) {
	if value == "" {
		return "", toolerr.New(toolerr.CodeInvalidInput, "Missing dataset_uri").
			WithContext("field", "dataset_uri")
	}
	if !datasetPattern.MatchString(value) {
		return "", toolerr.New(toolerr.CodeInvalidInput, "Invalid dataset_uri").
			WithContext("field", "dataset_uri").
			WithContext("value", value)
	}
	return value, nil
}
