// Package secrets resolves {{ENV:KEY}} and {{DOTENV:KEY}} placeholder
// tokens embedded in serialized JSON. A placeholder is only recognized
// when it is the entire string value of a field; a token embedded inside
// a larger string is left alone. That is a documented limitation of the
// format, not something to paper over here.
package secrets

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// placeholderPattern matches a quoted placeholder occupying a whole JSON
// string value, e.g. "{{ENV:API_KEY}}".
var placeholderPattern = regexp.MustCompile(`"\{\{(ENV|DOTENV):([A-Za-z0-9_]+)\}\}"`)

// Resolve substitutes every whole-field placeholder in jsonText with its
// value from env (for ENV) or dotenv with env fallback (for DOTENV).
// Missing or empty values resolve to the empty string and produce a
// warning; resolution never fails. The returned text is always valid JSON
// when the input was: values are inserted via a JSON string encoder, never
// raw concatenation. Secret values themselves are never included in
// warnings, only key names.
func Resolve(jsonText string, env, dotenv map[string]string) (string, []string) {
	var warnings []string
	memo := make(map[string]string)

	// A single pass over the original text: a resolved value that happens
	// to look like a placeholder itself is never re-scanned.
	out := placeholderPattern.ReplaceAllStringFunc(jsonText, func(token string) string {
		if encoded, ok := memo[token]; ok {
			return encoded
		}
		m := placeholderPattern.FindStringSubmatch(token)
		kind, key := m[1], m[2]

		value, ok := lookup(kind, key, env, dotenv)
		if !ok || value == "" {
			warnings = append(warnings, fmt.Sprintf("placeholder %s:%s has no value, substituting empty string", kind, key))
			value = ""
		}

		encoded, err := json.Marshal(value)
		if err != nil {
			// json.Marshal on a string cannot fail; guard anyway.
			warnings = append(warnings, fmt.Sprintf("placeholder %s:%s could not be encoded, substituting empty string", kind, key))
			encoded = []byte(`""`)
		}
		memo[token] = string(encoded)
		return memo[token]
	})
	return out, warnings
}

func lookup(kind, key string, env, dotenv map[string]string) (string, bool) {
	if kind == "DOTENV" {
		if v, ok := dotenv[key]; ok && v != "" {
			return v, true
		}
	}
	v, ok := env[key]
	return v, ok
}

// LoadDotenv parses a .env file (KEY=VALUE lines, # comments, blanks).
// A missing file yields an empty map; a malformed one is an error.
func LoadDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return values, nil
}

// EnvSnapshot captures the current process environment as a map, so the
// resolver never reads the live environment directly.
func EnvSnapshot() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}
