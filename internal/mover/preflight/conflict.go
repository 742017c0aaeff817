package preflight

import "fmt"

// ConflictAction is the configured policy for resolving a name collision
// in the target namespace.
type ConflictAction string

const (
	ConflictAsk    ConflictAction = "ask"
	ConflictSkip   ConflictAction = "skip"
	ConflictPrefix ConflictAction = "prefix"
)

// Prompter asks the operator to resolve a single naming conflict
// interactively, returning true to rename or false to skip.
type Prompter interface {
	Confirm(question string) bool
}

// MakePrefixedName builds the renamed identity used under
// ConflictPrefix: "<prefix>-<name>".
func MakePrefixedName(prefix, name string) string {
	return fmt.Sprintf("%s-%s", prefix, name)
}

// ResolveConflict decides the fate of a name already present in the
// target namespace. Returns (newName, true) if the object should be
// created under newName, or ("", false) if it should be skipped.
//
// objectDesc is a human-readable label ("Origin Pool 'my-pool'") used
// only in interactive prompts.
func ResolveConflict(objectDesc, originalName, prefix string, action ConflictAction, prompt Prompter) (string, bool) {
	newName := MakePrefixedName(prefix, originalName)

	switch action {
	case ConflictSkip:
		return "", false
	case ConflictPrefix:
		return newName, true
	default: // ConflictAsk
		if prompt == nil {
			return "", false
		}
		question := fmt.Sprintf("%s '%s' already exists in target namespace. Rename to '%s'?", objectDesc, originalName, newName)
		if prompt.Confirm(question) {
			return newName, true
		}
		return "", false
	}
}
