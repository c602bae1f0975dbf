// Reads KEY=value files and assembles the layered configuration.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LoadDotEnv parses the .env file at path. A missing file yields an empty
// map. Values may be wrapped in double quotes; single quotes are rejected.
func LoadDotEnv(path string) (map[string]string, error) {
	env := make(map[string]string)
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is derived from the data-dir flag
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return nil, err
	}
	for line := range strings.SplitSeq(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "'") || strings.HasSuffix(val, "'") {
			if len(val) > 1 && strings.HasPrefix(val, "'") && strings.HasSuffix(val, "'") {
				return nil, fmt.Errorf("single quotes are not supported for wrapping in .env: %s", key)
			}
			return nil, fmt.Errorf("unbalanced single quotes in .env: %s", key)
		}
		if strings.HasPrefix(val, "\"") {
			unquoted, err := strconv.Unquote(val)
			if err != nil {
				return nil, fmt.Errorf("failed to unquote %s: %w", key, err)
			}
			val = unquoted
		}
		env[key] = val
	}
	return env, nil
}

// Load builds the configuration from defaults, the optional YAML file at
// file, the process environment env and the .env file at dotenv. It does
// not validate.
func Load(file string, env map[string]string, dotenv string) (*Config, error) {
	c := Default()
	if file != "" {
		if err := c.LoadFile(file); err != nil {
			return nil, err
		}
	}
	if err := c.ApplyEnv(env); err != nil {
		return nil, err
	}
	if dotenv != "" {
		de, err := LoadDotEnv(dotenv)
		if err != nil {
			return nil, err
		}
		if err := c.ApplyEnv(de); err != nil {
			return nil, fmt.Errorf("%s: %w", dotenv, err)
		}
	}
	return c, nil
}
