// Package artifact holds the Artifact aggregate (spec §3): append-only
// metadata about a file an agent produced. The core never stores artifact
// content itself, only where to find it.
package artifact

import "time"

type Type string

const (
	TypeAPI           Type = "api"
	TypeDesign        Type = "design"
	TypeArchitecture  Type = "architecture"
	TypeSpecification Type = "specification"
	TypeDocumentation Type = "documentation"
	TypeReference     Type = "reference"
	TypeTemporary     Type = "temporary"
)

type Artifact struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	AgentID     string    `json:"agent_id"`
	Filename    string    `json:"filename"`
	Type        Type      `json:"artifact_type"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func New(id, taskID, agentID, filename string, artifactType Type, location, description string) Artifact {
	return Artifact{
		ID:          id,
		TaskID:      taskID,
		AgentID:     agentID,
		Filename:    filename,
		Type:        artifactType,
		Location:    location,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
}

type ListFilters struct {
	TaskID *string
	Type   *Type
}
