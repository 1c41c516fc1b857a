package target

import (
	"airflow-mcp/internal/registry"
	"airflow-mcp/internal/toolerr"
)

// Resolve pins down a single deployment (and any identifiers) from the
// caller's explicit instance key and/or UI URL.
//
// Rules:
//   - both given: the URL's deployment must equal the explicit key, or the
//     resolution fails with INSTANCE_MISMATCH
//   - only a URL: parse it (UNKNOWN_HOST guard applies)
//   - only a key: confirm registry membership, no URL work
//   - neither: INVALID_INPUT
func Resolve(reg *registry.Registry, instance, uiURL string) (Resolved, error) {
	if instance != "" {
		var err error
		instance, err = ValidateInstanceKey(instance)
		if err != nil {
			return Resolved{}, err
		}
	}

	if uiURL != "" {
		parsed, err := ParseUIURL(reg, uiURL)
		if err != nil {
			return Resolved{}, err
		}
		if instance != "" && parsed.Instance != instance {
			return Resolved{}, toolerr.Newf(toolerr.CodeInstanceMismatch,
				"ui_url resolves to instance '%s' but instance '%s' was requested",
				parsed.Instance, instance).
				WithContext("ui_url_instance", parsed.Instance).
				WithContext("param_instance", instance)
		}
		return parsed, nil
	}

	if instance != "" {
		if _, err := reg.Get(instance); err != nil {
			return Resolved{}, err
		}
		return Resolved{Instance: instance, Route: RouteUnknown}, nil
	}

	return Resolved{}, toolerr.New(toolerr.CodeInvalidInput,
		"Provide either 'instance' or 'ui_url' to select a deployment")
}
