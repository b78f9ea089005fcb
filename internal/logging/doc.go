// Package logging builds the slog loggers used across sceneforge.
//
// It provides a console handler that renders compact single-line output for
// operators and a JSON handler for machine consumption, plus attr helpers and
// the standardized field names (component, job_id, job_type, scene, map) every
// subsystem logs with.
package logging
