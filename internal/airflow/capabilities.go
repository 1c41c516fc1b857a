package airflow

// Capabilities describes which optional API features a deployment supports.
// It is resolved once per instance from declared configuration rather than
// probed at runtime, so two facade processes pointed at the same deployment
// always agree on what they send.
type Capabilities struct {
	// LogFullContent reports whether the logs endpoint accepts
	// full_content=true to bypass server-side truncation.
	LogFullContent bool `json:"log_full_content"`

	// ExtendedClearParams reports whether clearTaskInstances accepts the
	// Airflow 2.6+ flags (include_upstream, include_downstream,
	// include_future, include_past). Older deployments reject unknown
	// request fields, so the flags are withheld unless enabled.
	ExtendedClearParams bool `json:"extended_clear_params"`
}

func capabilitiesFor(apiVersion string, extendedClear bool) Capabilities {
	return Capabilities{
		LogFullContent:      apiVersion == "v1",
		ExtendedClearParams: extendedClear,
	}
}
