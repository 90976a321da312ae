package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/minisentry/minisentry/internal/model"
)

// ParseSeedProjects parses the ;-separated id=name seed list. Malformed
// entries do not fail the whole list; they come back as messages for the
// caller to log.
func ParseSeedProjects(raw string) ([]model.Project, []string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var projects []model.Project
	var skipped []string
	for _, line := range strings.Split(raw, ";") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("seed project has invalid id %q", strings.TrimSpace(key)))
			continue
		}
		name := strings.TrimSpace(value)
		if name == "" {
			skipped = append(skipped, fmt.Sprintf("seed project %d has an empty name", id))
			continue
		}
		projects = append(projects, model.Project{ID: id, Name: &name})
	}
	return projects, skipped
}
