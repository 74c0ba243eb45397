package runs

import (
	"github.com/znavezz/ASD-ADAR-Correction/models/constants"

	"github.com/google/uuid"
)

type State string

const (
	Queued  State = "Queued"
	Running State = "Running"
	Done    State = "Done"
	Error   State = "Error"
)

type Kind string

const (
	Merge       Kind = "merge"
	PostProcess Kind = "postprocess"
)

// RunRequest tracks one merge or post-processing run submitted through the
// API. Summary holds the run's report once it is Done.
type RunRequest struct {
	Id         uuid.UUID            `json:"id"`
	Kind       Kind                 `json:"kind"`
	AssemblyId constants.AssemblyId `json:"assemblyId"`
	Input      string               `json:"input,omitempty"`
	Output     string               `json:"output,omitempty"`
	State      State                `json:"state"`
	Message    string               `json:"message"`
	Artifacts  []string             `json:"artifacts,omitempty"`
	Indexed    int                  `json:"indexed,omitempty"`
	Summary    interface{}          `json:"summary,omitempty"`
	CreatedAt  string               `json:"createdAt"`
	UpdatedAt  string               `json:"updatedAt"`
}

func (r *RunRequest) Finished() bool {
	return r.State == Done || r.State == Error
}

type RunResponseDTO struct {
	Id      uuid.UUID `json:"id"`
	Kind    Kind      `json:"kind"`
	State   State     `json:"state"`
	Message string    `json:"message"`
}
