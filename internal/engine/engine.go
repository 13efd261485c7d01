// Package engine orchestrates profile activation: load the profile and its
// server definitions, resolve secret placeholders, merge the result into
// the target application's config under the managed key, persist the
// rollback snapshot and loaded-profile marker, and restart the app.
//
// No file is mutated until every load and validation step has passed, and
// every write is atomic, so a failed activation leaves the target config
// and marker exactly as they were.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"

	"mcpswap/internal/logger"
	"mcpswap/internal/model"
	"mcpswap/internal/process"
	"mcpswap/internal/secrets"
	"mcpswap/internal/store"
)

// ErrTargetMissing indicates the managed application's config file does not
// exist, which means the application has never been run.
var ErrTargetMissing = errors.New("target config not found")

// MissingServerError aborts an activation when a profile references a
// server definition that is absent or unreadable. Activation is all or
// nothing: one bad reference fails the whole profile.
type MissingServerError struct {
	Name  string
	Cause error
}

func (e *MissingServerError) Error() string {
	return fmt.Sprintf("profile references missing server %q: %v", e.Name, e.Cause)
}

func (e *MissingServerError) Unwrap() error {
	return e.Cause
}

// Outcome describes what an activation actually did.
type Outcome string

const (
	// OutcomeApplied means the target config was rewritten and the app
	// restarted.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadyActive means the profile was already active with
	// identical content; nothing was written and the app was left alone.
	OutcomeAlreadyActive Outcome = "already-active"
	// OutcomeRefreshed means the content matched but the profile file was
	// newer than the marker, so the key was rewritten without refreshing
	// the rollback snapshot.
	OutcomeRefreshed Outcome = "refreshed"
)

// Result reports the outcome of an activation plus any non-fatal warnings
// (unresolved placeholders, process-control failures).
type Result struct {
	Profile  string
	Outcome  Outcome
	Warnings []string
}

// Engine wires the store, placeholder resolution inputs, and process
// controller together. Env and Dotenv are snapshots taken by the caller so
// activation never reads the live environment.
type Engine struct {
	Store      *store.Store
	Proc       process.Controller
	TargetPath string
	AppName    string
	Env        map[string]string
	Dotenv     map[string]string
}

// Activate applies the named profile to the target config. The reserved
// name "last" restores the rollback snapshot instead of a stored profile.
func (e *Engine) Activate(name string) (*Result, error) {
	isLast := name == model.ReservedSnapshotName

	var (
		resolved json.RawMessage
		warnings []string
	)
	if isLast {
		snap, err := e.Store.LoadSnapshot()
		if err != nil {
			return nil, fmt.Errorf("no rollback snapshot recorded: %w", err)
		}
		// The snapshot was captured from the target, so its placeholders
		// were already resolved; restore it verbatim for an exact
		// round trip.
		resolved = snap
	} else {
		var err error
		resolved, warnings, err = e.assemble(name)
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			logger.Warnf("%s", w)
		}
	}

	target, current, err := e.readTarget()
	if err != nil {
		return nil, err
	}

	marker := e.Store.LoadedProfile()
	if marker == name && jsonEqual(current, resolved) {
		if !e.markerOlderThan(e.sourcePath(name, isLast)) {
			logger.Debugf("profile %s already active, skipping write and restart", name)
			return &Result{Profile: name, Outcome: OutcomeAlreadyActive, Warnings: warnings}, nil
		}
		// Content matches but the profile file changed since the marker
		// was written. Rewrite the key so formatting follows the profile,
		// but leave the rollback snapshot pointing at the older state.
		if err := e.writeTarget(target, resolved); err != nil {
			return nil, err
		}
		if err := e.Store.SetLoadedProfile(name); err != nil {
			return nil, err
		}
		warnings = append(warnings, e.restart()...)
		return &Result{Profile: name, Outcome: OutcomeRefreshed, Warnings: warnings}, nil
	}

	if !isLast {
		if err := e.Store.SaveSnapshot(current); err != nil {
			return nil, fmt.Errorf("failed to save rollback snapshot: %w", err)
		}
	}

	if err := e.writeTarget(target, resolved); err != nil {
		return nil, err
	}

	markerName := name
	if isLast {
		markerName = e.matchProfileForSnapshot(resolved)
	}
	if err := e.Store.SetLoadedProfile(markerName); err != nil {
		return nil, err
	}

	warnings = append(warnings, e.restart()...)
	return &Result{Profile: markerName, Outcome: OutcomeApplied, Warnings: warnings}, nil
}

// assemble loads the profile's server definitions in list order, merges
// them under their names (later duplicates overwrite earlier ones), and
// resolves secret placeholders in the serialized result.
func (e *Engine) assemble(name string) (json.RawMessage, []string, error) {
	profile, err := e.Store.LoadProfile(name)
	if err != nil {
		return nil, nil, err
	}

	assembled := make(map[string]json.RawMessage, len(profile.Servers))
	for _, srv := range profile.Servers {
		def, err := e.Store.LoadServer(srv)
		if err != nil {
			return nil, nil, &MissingServerError{Name: srv, Cause: err}
		}
		assembled[srv] = def.Raw
	}

	text, err := json.Marshal(assembled)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to assemble %s block: %w", model.ManagedKey, err)
	}

	resolvedText, warnings := secrets.Resolve(string(text), e.Env, e.Dotenv)
	if !json.Valid([]byte(resolvedText)) {
		return nil, nil, fmt.Errorf("placeholder resolution produced invalid JSON for profile %s", name)
	}
	return json.RawMessage(resolvedText), warnings, nil
}

// readTarget parses the target config into its top-level keys and returns
// the current managed-key content (an empty object when the key is absent).
func (e *Engine) readTarget() (map[string]json.RawMessage, json.RawMessage, error) {
	data, err := os.ReadFile(e.TargetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s (has the application ever been run?)", ErrTargetMissing, e.TargetPath)
		}
		return nil, nil, fmt.Errorf("failed to read target config: %w", err)
	}

	var target map[string]json.RawMessage
	if err := json.Unmarshal(data, &target); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", store.ErrInvalidJSON, e.TargetPath)
	}
	// A top-level null decodes to a nil map; treat it like an empty config.
	if target == nil {
		target = map[string]json.RawMessage{}
	}

	current, ok := target[model.ManagedKey]
	if !ok {
		current = json.RawMessage(`{}`)
	}
	return target, current, nil
}

// writeTarget replaces only the managed key and writes the whole document
// atomically. All other top-level values are raw JSON carried through
// untouched.
func (e *Engine) writeTarget(target map[string]json.RawMessage, content json.RawMessage) error {
	target[model.ManagedKey] = content
	data, err := json.MarshalIndent(target, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal target config: %w", err)
	}
	return store.WriteDocument(e.TargetPath, append(data, '\n'))
}

// sourcePath returns the file whose mtime is compared against the marker
// for the idempotence check.
func (e *Engine) sourcePath(name string, isLast bool) string {
	if isLast {
		return e.Store.SnapshotPath()
	}
	return e.Store.ProfilePath(name)
}

// markerOlderThan reports whether the marker file is strictly older than
// the given source file. Missing files count as older.
func (e *Engine) markerOlderThan(source string) bool {
	mi, err := os.Stat(e.Store.MarkerPath())
	if err != nil {
		return true
	}
	si, err := os.Stat(source)
	if err != nil {
		return false
	}
	return mi.ModTime().Before(si.ModTime())
}

// matchProfileForSnapshot looks for a stored profile whose assembled,
// resolved content equals the restored snapshot, so the marker stays
// human-meaningful after a rollback. The match is heuristic: profiles are
// tried in sorted order and the first hit wins, so two profiles with
// identical server sets can mislabel the marker. Falls back to the
// literal "last".
func (e *Engine) matchProfileForSnapshot(content json.RawMessage) string {
	names, err := e.Store.ListProfiles()
	if err != nil {
		return model.ReservedSnapshotName
	}
	for _, n := range names {
		candidate, _, err := e.assemble(n)
		if err != nil {
			continue
		}
		if jsonEqual(candidate, content) {
			return n
		}
	}
	return model.ReservedSnapshotName
}

// restart bounces the target application. Failures come back as warnings:
// a config swap that worked should never be reported as failed because the
// app would not die or start.
func (e *Engine) restart() []string {
	var warnings []string
	if err := e.Proc.Terminate(e.AppName); err != nil {
		w := fmt.Sprintf("failed to terminate %s: %v", e.AppName, err)
		logger.Warnf("%s", w)
		warnings = append(warnings, w)
	}
	if err := e.Proc.Launch(e.AppName); err != nil {
		w := fmt.Sprintf("failed to launch %s: %v", e.AppName, err)
		logger.Warnf("%s", w)
		warnings = append(warnings, w)
	}
	return warnings
}

// jsonEqual compares two JSON values structurally, ignoring whitespace
// and key order.
func jsonEqual(a, b json.RawMessage) bool {
	var va, vb interface{}
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}
