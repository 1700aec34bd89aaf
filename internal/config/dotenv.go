package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// EnvVar is one assignment of a .env file.
type EnvVar struct {
	Key   string
	Value string
}

// ParseDotenv reads KEY=value lines in file order. Blank lines, comments
// and lines without '=' are skipped. An "export " prefix is dropped, as are
// matching quotes around the value. Unquoted values end at " #".
func ParseDotenv(r io.Reader) ([]EnvVar, error) {
	var vars []EnvVar
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		vars = append(vars, EnvVar{Key: strings.TrimSpace(key), Value: envValue(strings.TrimSpace(value))})
	}
	return vars, scanner.Err()
}

func envValue(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	if i := strings.Index(s, " #"); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// LoadDotenv applies the .env file at path to the process environment and
// returns the keys it set. Variables already defined are kept unless
// override is true. A missing file sets nothing.
func LoadDotenv(path string, override bool) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	vars, err := ParseDotenv(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var set []string
	for _, v := range vars {
		if _, exists := os.LookupEnv(v.Key); exists && !override {
			continue
		}
		if err := os.Setenv(v.Key, v.Value); err != nil {
			return set, fmt.Errorf("set %s: %w", v.Key, err)
		}
		set = append(set, v.Key)
	}
	return set, nil
}
