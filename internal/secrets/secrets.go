// Package secrets resolves credentials from config values, environment
// variable references and mounted secret files.
package secrets

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// maxFileSize bounds a secret file; secrets are passwords and DSNs.
const maxFileSize = 64 * 1024

func secretError(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Build()
}

// Expand replaces ${VAR} and ${VAR:-fallback} references with environment
// values. A reference without a fallback to an unset variable is an error.
func Expand(s string) (string, error) {
	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if !hasFallback {
			missing = append(missing, name)
		}
		return fallback
	})
	if len(missing) > 0 {
		return "", secretError("missing environment variable(s): %s", strings.Join(missing, ", "))
	}
	return expanded, nil
}

// ReadFile reads a secret file such as a Docker or Kubernetes mounted
// secret. Trailing newlines are dropped. Files readable by group or others
// are accepted with a warning.
func ReadFile(path string) (string, error) {
	clean := filepath.Clean(path)
	info, err := os.Stat(clean)
	if err != nil {
		return "", errors.New(err).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Context("path", clean).
			Build()
	}
	if !info.Mode().IsRegular() {
		return "", secretError("secret path is not a regular file: %s", clean)
	}
	if info.Size() > maxFileSize {
		return "", secretError("secret file larger than %d bytes: %s", maxFileSize, clean)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Module("secrets").Warn("secret file is readable by group or others",
			logger.String("path", clean),
			logger.String("mode", perm.String()))
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", errors.New(err).
			Component("secrets").
			Category(errors.CategoryFileIO).
			FileContext(clean, info.Size()).
			Build()
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", secretError("secret file is empty: %s", clean)
	}
	return secret, nil
}

// Resolve returns the secret from filePath when set, otherwise value with
// environment references expanded. Both empty resolves to "".
func Resolve(filePath, value string) (string, error) {
	if filePath != "" {
		return ReadFile(filePath)
	}
	if value == "" {
		return "", nil
	}
	return Expand(value)
}
