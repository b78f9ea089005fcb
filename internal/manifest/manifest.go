package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Metadata carries free-form provenance for a manifest.
type Metadata struct {
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	AutoGenerated bool      `json:"auto_generated,omitempty"`
	SubmittedBy   string    `json:"submitted_by,omitempty"`
}

// Manifest is the immutable description of one unit of work. Workers never
// mutate it; the job id is assigned at submission time.
type Manifest struct {
	JobID    string   `json:"job_id"`
	JobType  JobType  `json:"job_type"`
	Payload  Payload  `json:"payload"`
	Metadata Metadata `json:"metadata"`
}

// New builds a manifest for the given payload with a freshly assigned job id.
func New(payload Payload, description string) (*Manifest, error) {
	if payload == nil {
		return nil, errors.New("payload is nil")
	}
	payload = normalizePayload(payload)
	m := &Manifest{
		JobID:   NewJobID(),
		JobType: payload.JobType(),
		Payload: payload,
		Metadata: Metadata{
			Description: description,
			CreatedAt:   time.Now().UTC(),
		},
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewJobID returns a globally unique job identifier.
func NewJobID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("job-%s-%d", raw[:12], time.Now().Unix())
}

// Validate checks the manifest in full before dispatch. An invalid manifest is
// rejected, never partially executed.
func (m *Manifest) Validate() error {
	if m == nil {
		return errors.New("manifest is nil")
	}
	if strings.TrimSpace(m.JobID) == "" {
		return errors.New("manifest job_id must be set")
	}
	if _, ok := ParseJobType(string(m.JobType)); !ok {
		return fmt.Errorf("manifest job_type %q is not recognized", m.JobType)
	}
	if m.Payload == nil {
		return errors.New("manifest payload must be set")
	}
	if m.Payload.JobType() != m.JobType {
		return fmt.Errorf("manifest payload is for %q, not %q", m.Payload.JobType(), m.JobType)
	}
	return m.Payload.Validate()
}

// Filename returns the canonical queue filename for this manifest.
func (m *Manifest) Filename() string {
	return m.JobID + ".json"
}

type manifestEnvelope struct {
	JobID    string          `json:"job_id"`
	JobType  JobType         `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Metadata Metadata        `json:"metadata"`
}

// UnmarshalJSON decodes the envelope first, then the payload schema selected
// by job_type. Unknown job types fail here, at the edge.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var env manifestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	jobType, ok := ParseJobType(string(env.JobType))
	if !ok {
		return fmt.Errorf("unknown job type %q", env.JobType)
	}

	payload, err := newPayload(jobType)
	if err != nil {
		return err
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", jobType, err)
		}
	}

	m.JobID = env.JobID
	m.JobType = jobType
	m.Payload = payload
	m.Metadata = env.Metadata
	return nil
}

// MarshalJSON emits the manifest envelope with the concrete payload inline.
func (m *Manifest) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(manifestEnvelope{
		JobID:    m.JobID,
		JobType:  m.JobType,
		Payload:  payload,
		Metadata: m.Metadata,
	})
}
