package core

import (
	fmt "fmt"
	"regexp"
)

var componentIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]+$`)

// ValidateComponents enforces basic component contract invariants at startup.
func ValidateComponents(components []Component) error {
	seen := make(map[string]bool)
	for _, component := range components {
		id := component.ID()
		if id == "" {
			return fmt.Errorf("component id is empty")
		}
		if !componentIDPattern.MatchString(id) {
			return fmt.Errorf("component id %q does not match %s", id, componentIDPattern.String())
		}
		if seen[id] {
			return fmt.Errorf("duplicate component id: %s", id)
		}
		seen[id] = true
	}
	return nil
}
