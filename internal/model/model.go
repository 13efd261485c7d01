// Package model defines the documents mcpswap reads and writes: server
// definitions, profiles, and the managed application's config file.
package model

import "encoding/json"

// ManagedKey is the single key in the target config this tool is allowed
// to modify. Everything else in the file is passed through untouched.
const ManagedKey = "mcpServers"

// ReservedSnapshotName is the profile name reserved for the rollback
// snapshot; it can never name a stored profile.
const ReservedSnapshotName = "last"

// Profile is an ordered list of server definition names. Order matters:
// during activation later duplicates overwrite earlier ones.
type Profile struct {
	Servers []string `json:"servers"`
}

// Contains reports whether the profile references the given server name.
func (p *Profile) Contains(name string) bool {
	for _, s := range p.Servers {
		if s == name {
			return true
		}
	}
	return false
}

// Remove deletes the first occurrence of name from the server list and
// reports whether anything was removed.
func (p *Profile) Remove(name string) bool {
	for i, s := range p.Servers {
		if s == name {
			p.Servers = append(p.Servers[:i], p.Servers[i+1:]...)
			return true
		}
	}
	return false
}

// ServerDefinition is one named service endpoint. The body is kept as raw
// JSON so unknown fields survive a load/store round trip verbatim; Summary
// decodes the handful of fields the CLI displays.
type ServerDefinition struct {
	Name string
	Raw  json.RawMessage
}

// ServerSummary is the decoded view of the fields mcpswap displays in
// listings. Fields absent from the definition stay zero.
type ServerSummary struct {
	Command  string            `json:"command"`
	Args     []string          `json:"args"`
	Env      map[string]string `json:"env"`
	URL      string            `json:"url"`
	Disabled bool              `json:"disabled"`
}

// Summary decodes the displayable fields of the definition body.
func (d ServerDefinition) Summary() (ServerSummary, error) {
	var s ServerSummary
	err := json.Unmarshal(d.Raw, &s)
	return s, err
}
