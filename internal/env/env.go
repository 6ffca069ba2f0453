// Package env loads KEY=VALUE pairs from a .env file into the process environment,
// so gateway API keys can live outside config.yaml.
package env

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Load reads ./.env if present. Values in the file win over the inherited environment.
func Load() error {
	return LoadFile(".env")
}

// LoadFile reads path and sets each variable it defines. A missing file is not an error.
//
// Accepted lines:
//
//	KEY=VALUE
//	export KEY="VALUE"
//	# comment
func LoadFile(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for n := 1; sc.Scan(); n++ {
		key, value, ok := parseLine(sc.Text())
		if !ok {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("%s:%d: %w", path, n, err)
		}
	}
	return sc.Err()
}

func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(value)
	if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
		value = value[1 : len(value)-1]
	}
	return key, value, true
}
