package registry

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envPattern = regexp.MustCompile(`\$\{([A-Z0-9_]+)\}`)

// expandEnvValue replaces every ${NAME} token in value with the process
// environment variable NAME. An unset variable is an error: failing at load
// time beats leaking a literal template into a live credential.
func expandEnvValue(value string) (string, error) {
	if !strings.Contains(value, "${") {
		return value, nil
	}

	var missing string
	expanded := envPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		v, ok := os.LookupEnv(name)
		if !ok {
			if missing == "" {
				missing = name
			}
			return match
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("missing required environment variable '%s' referenced in registry YAML", missing)
	}
	return expanded, nil
}

// expandEnvNode walks a parsed YAML tree and expands placeholders in every
// scalar string value in place.
func expandEnvNode(node *yaml.Node) error {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!str" {
		expanded, err := expandEnvValue(node.Value)
		if err != nil {
			return err
		}
		node.Value = expanded
		return nil
	}
	for _, child := range node.Content {
		if err := expandEnvNode(child); err != nil {
			return err
		}
	}
	return nil
}
