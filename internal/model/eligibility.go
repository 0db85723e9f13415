package model

// Eligibility is what the gate and repair subsystems know about a container
// before it is placed.
type Eligibility struct {
	ContainerNo   string `json:"container_no"`
	Exists        bool   `json:"exists"`
	Checked       bool   `json:"checked"`
	ContainerType string `json:"container_type,omitempty"`
	RequestStatus string `json:"request_status,omitempty"`
}
