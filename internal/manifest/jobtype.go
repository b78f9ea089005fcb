package manifest

import "strings"

// JobType selects the executor a manifest is dispatched to.
type JobType string

const (
	JobBakeNavmesh      JobType = "bake_navmesh"
	JobRecord           JobType = "record"
	JobRender           JobType = "render"
	JobExport           JobType = "export"
	JobGenLevelSequence JobType = "gen_levelsequence"
	JobScanSequences    JobType = "scan_sequences"
)

var allJobTypes = []JobType{
	JobBakeNavmesh,
	JobRecord,
	JobRender,
	JobExport,
	JobGenLevelSequence,
	JobScanSequences,
}

var jobTypeSet = func() map[JobType]struct{} {
	set := make(map[JobType]struct{}, len(allJobTypes))
	for _, jt := range allJobTypes {
		set[jt] = struct{}{}
	}
	return set
}()

// AllJobTypes returns the ordered list of known job types.
func AllJobTypes() []JobType {
	cp := make([]JobType, len(allJobTypes))
	copy(cp, allJobTypes)
	return cp
}

// ParseJobType converts a string into a known JobType.
func ParseJobType(value string) (JobType, bool) {
	normalized := JobType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := jobTypeSet[normalized]
	return normalized, ok
}
