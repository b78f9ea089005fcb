package manifest

import (
	"errors"
	"fmt"
	"strings"
)

// Payload is the job-type-specific half of a manifest. Each job type has
// exactly one payload schema; validation runs in full before dispatch.
type Payload interface {
	JobType() JobType
	Validate() error
}

// FrameRange bounds the frames a render-family job touches.
type FrameRange struct {
	StartFrame int `json:"start_frame"`
	EndFrame   int `json:"end_frame"`
	Step       int `json:"step,omitempty"`
}

func (r FrameRange) validate() error {
	if r.StartFrame > r.EndFrame {
		return fmt.Errorf("frame range start %d exceeds end %d", r.StartFrame, r.EndFrame)
	}
	if r.Step < 0 {
		return fmt.Errorf("frame range step %d must not be negative", r.Step)
	}
	return nil
}

// FrameCount returns the number of frames the range covers.
func (r FrameRange) FrameCount() int {
	step := r.Step
	if step <= 0 {
		step = 1
	}
	return (r.EndFrame-r.StartFrame)/step + 1
}

// BakeNavmeshPayload parameterizes a navigation mesh bake across one or more maps.
type BakeNavmeshPayload struct {
	MapPaths  []string `json:"map_paths"`
	AutoScale bool     `json:"auto_scale,omitempty"`
	OutputDir string   `json:"output_dir,omitempty"`
}

func (p BakeNavmeshPayload) JobType() JobType { return JobBakeNavmesh }

func (p BakeNavmeshPayload) Validate() error {
	if len(p.MapPaths) == 0 {
		return errors.New("bake_navmesh requires at least one map path")
	}
	for _, path := range p.MapPaths {
		if err := validateAssetPath("map path", path); err != nil {
			return err
		}
	}
	return nil
}

// RecordPayload parameterizes an in-editor take recording session.
type RecordPayload struct {
	MapPath           string  `json:"map_path"`
	SequencePath      string  `json:"sequence_path,omitempty"`
	RecordingDuration float64 `json:"recording_duration,omitempty"`
	PreRecordingWait  float64 `json:"pre_recording_wait,omitempty"`
	PostRecordingWait float64 `json:"post_recording_wait,omitempty"`
}

func (p RecordPayload) JobType() JobType { return JobRecord }

func (p RecordPayload) Validate() error {
	if err := validateAssetPath("map path", p.MapPath); err != nil {
		return err
	}
	if p.RecordingDuration < 0 || p.PreRecordingWait < 0 || p.PostRecordingWait < 0 {
		return errors.New("record wait and duration values must not be negative")
	}
	return nil
}

// RenderPayload parameterizes a movie render of a level sequence.
type RenderPayload struct {
	MapPath      string     `json:"map_path"`
	SequencePath string     `json:"sequence_path"`
	FrameRange   FrameRange `json:"frame_range"`
	OutputDir    string     `json:"output_dir,omitempty"`
	Resolution   string     `json:"resolution,omitempty"`
}

func (p RenderPayload) JobType() JobType { return JobRender }

func (p RenderPayload) Validate() error {
	if err := validateAssetPath("map path", p.MapPath); err != nil {
		return err
	}
	if err := validateAssetPath("sequence path", p.SequencePath); err != nil {
		return err
	}
	return p.FrameRange.validate()
}

// ExportPayload parameterizes a camera/data export from a level sequence.
type ExportPayload struct {
	SequencePath string     `json:"sequence_path"`
	FrameRange   FrameRange `json:"frame_range"`
	Format       string     `json:"format,omitempty"`
	OutputDir    string     `json:"output_dir,omitempty"`
}

func (p ExportPayload) JobType() JobType { return JobExport }

func (p ExportPayload) Validate() error {
	if err := validateAssetPath("sequence path", p.SequencePath); err != nil {
		return err
	}
	return p.FrameRange.validate()
}

// GenLevelSequencePayload parameterizes procedural level-sequence generation.
type GenLevelSequencePayload struct {
	MapPath         string  `json:"map_path"`
	SequenceName    string  `json:"sequence_name"`
	Seed            int64   `json:"seed,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	OutputDir       string  `json:"output_dir,omitempty"`
}

func (p GenLevelSequencePayload) JobType() JobType { return JobGenLevelSequence }

func (p GenLevelSequencePayload) Validate() error {
	if err := validateAssetPath("map path", p.MapPath); err != nil {
		return err
	}
	if strings.TrimSpace(p.SequenceName) == "" {
		return errors.New("gen_levelsequence requires a sequence name")
	}
	if p.DurationSeconds < 0 {
		return errors.New("gen_levelsequence duration must not be negative")
	}
	return nil
}

// ScanSequencesPayload parameterizes a scan of sequence assets under a content root.
type ScanSequencesPayload struct {
	ContentRoot string `json:"content_root"`
	SceneName   string `json:"scene_name,omitempty"`
}

func (p ScanSequencesPayload) JobType() JobType { return JobScanSequences }

func (p ScanSequencesPayload) Validate() error {
	return validateAssetPath("content root", p.ContentRoot)
}

func validateAssetPath(label, path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return fmt.Errorf("%s must be set", label)
	}
	if !strings.HasPrefix(trimmed, "/") {
		return fmt.Errorf("%s %q must be an absolute asset path", label, path)
	}
	return nil
}

// normalizePayload converts value payloads to their pointer form so every
// manifest carries one payload representation regardless of how it was built.
// Decoded manifests already hold pointers; this keeps in-process construction
// consistent with them.
func normalizePayload(p Payload) Payload {
	switch v := p.(type) {
	case BakeNavmeshPayload:
		return &v
	case RecordPayload:
		return &v
	case RenderPayload:
		return &v
	case ExportPayload:
		return &v
	case GenLevelSequencePayload:
		return &v
	case ScanSequencesPayload:
		return &v
	default:
		return p
	}
}

func newPayload(jobType JobType) (Payload, error) {
	switch jobType {
	case JobBakeNavmesh:
		return &BakeNavmeshPayload{}, nil
	case JobRecord:
		return &RecordPayload{}, nil
	case JobRender:
		return &RenderPayload{}, nil
	case JobExport:
		return &ExportPayload{}, nil
	case JobGenLevelSequence:
		return &GenLevelSequencePayload{}, nil
	case JobScanSequences:
		return &ScanSequencesPayload{}, nil
	default:
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}
}
