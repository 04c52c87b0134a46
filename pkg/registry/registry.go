// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"checkin-service/internal/common/validation"

	"github.com/xeipuuv/gojsonschema"
)

// LoadRegistry reads the registry file and validates it.
func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks that ids and task types are unique, statuses and timeouts
// are well formed and every schema compiles.
func (r *ActivityRegistry) Validate() error {
	var problems []string
	ids := make(map[string]bool, len(r.Activities))
	taskTypes := make(map[string]bool, len(r.Activities))

	for i, a := range r.Activities {
		label := a.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			problems = append(problems, fmt.Sprintf("activity %s: id is required", label))
		}
		if ids[a.ID] && a.ID != "" {
			problems = append(problems, fmt.Sprintf("activity %s: duplicate id", label))
		}
		ids[a.ID] = true

		if a.TaskType == "" {
			problems = append(problems, fmt.Sprintf("activity %s: taskType is required", label))
		} else if taskTypes[a.TaskType] {
			problems = append(problems, fmt.Sprintf("activity %s: duplicate taskType %q", label, a.TaskType))
		}
		taskTypes[a.TaskType] = true

		if a.ImplementationStatus != "" && !validStatuses[a.ImplementationStatus] {
			problems = append(problems, fmt.Sprintf("activity %s: unknown status %q", label, a.ImplementationStatus))
		}
		if a.Timeout != "" {
			if _, err := time.ParseDuration(a.Timeout); err != nil {
				problems = append(problems, fmt.Sprintf("activity %s: invalid timeout %q", label, a.Timeout))
			}
		}
		for name, schema := range map[string]map[string]interface{}{"inputSchema": a.InputSchema, "outputSchema": a.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
				problems = append(problems, fmt.Sprintf("activity %s: %s does not compile: %v", label, name, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid registry: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// InputSchemaFor returns the input schema of taskType, or nil when the task
// type is unknown or declares none.
func (r *ActivityRegistry) InputSchemaFor(taskType string) validation.JSONSchema {
	if r == nil {
		return nil
	}
	a, ok := r.Find(taskType)
	if !ok || len(a.InputSchema) == 0 {
		return nil
	}
	return validation.JSONSchema(a.InputSchema)
}

// TimeoutDuration parses Timeout, falling back to def when unset.
func (a *Activity) TimeoutDuration(def time.Duration) time.Duration {
	if a.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
