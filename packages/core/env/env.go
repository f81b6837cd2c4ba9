// Package env loads dotenv files so runs can be seeded with local
// configuration (hosts, credentials) that does not belong in testset
// YAML.
package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Load parses a dotenv file into variables ready to seed a Context.
// Lines are KEY=VALUE; blank lines and # comments are skipped; single
// or double quotes around a value are stripped.
func Load(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening env file: %w", err)
	}
	defer f.Close()

	vars := make(map[string]any)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = unquote(strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	return vars, nil
}

// LoadAndExport additionally exports the values into the process
// environment so the env() builtin resolves them. Values already set in
// the environment win over the file; the returned map carries the
// effective values, so ${KEY} and env(KEY) always agree.
func LoadAndExport(path string) (map[string]any, error) {
	vars, err := Load(path)
	if err != nil {
		return nil, err
	}
	for key, value := range vars {
		if existing := os.Getenv(key); existing != "" {
			vars[key] = existing
			continue
		}
		_ = os.Setenv(key, value.(string))
	}
	return vars, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
