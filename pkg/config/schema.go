package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/clusterstor-tools/clusterstor/pkg/journal"
	"github.com/clusterstor-tools/clusterstor/pkg/quota"
)

// siteDocument mirrors the file layout of a site configuration, including
// the sections Config keeps in decoded form.
type siteDocument struct {
	Defaults    Defaults                             `json:"defaults" jsonschema:"required"`
	ProjectDirs map[string]map[string]quota.Override `json:"project_dirs,omitempty" jsonschema:"description=Departments mapping project names to quota overrides"`
	WorkDirs    map[string]quota.Override            `json:"work_dirs,omitempty" jsonschema:"description=User names mapping to work directory quota overrides"`
	Logging     LoggingConfig                        `json:"logging,omitempty"`
	Journal     journal.Config                       `json:"journal,omitempty"`
	Metrics     MetricsConfig                        `json:"metrics,omitempty"`
}

// Schema returns the JSON schema of the site configuration file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(&siteDocument{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "clusterstor site configuration"
	schema.Description = "Directory layout, striping and quotas enforced by clusterstor"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	return data, nil
}
