package main

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sceneforge/internal/manifest"
)

var titleCaser = cases.Title(language.English)

// displayJobType renders a job type for table output ("bake_navmesh" becomes
// "Bake Navmesh").
func displayJobType(jobType manifest.JobType) string {
	return titleCaser.String(strings.ReplaceAll(string(jobType), "_", " "))
}

func displayBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}

func displayTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}

func displayBool(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
