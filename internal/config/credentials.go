package config

import (
	"os"
	"strings"

	"github.com/mrz1836/docgen/internal/errors"
)

// Secret reads the credential stored in the environment variable envName.
// An unset or blank variable wraps errors.ErrMissingCredential.
func Secret(envName string) (string, error) {
	if envName == "" {
		return "", errors.Wrap(errors.ErrMissingCredential, "no environment variable configured")
	}
	value := strings.TrimSpace(os.Getenv(envName))
	if value == "" {
		return "", errors.Wrapf(errors.ErrMissingCredential, "%s is not set", envName)
	}
	return value, nil
}
