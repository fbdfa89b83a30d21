package livesync

import "verdant-backend/internal/models"

// ProjectEntry is the consumer-facing projection of one live project.
type ProjectEntry struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Co2Estimate float64 `json:"co2Estimate"`
	Status      string  `json:"status"`
	ProjectType string  `json:"projectType"`
}

// Snapshot is one consistent, versioned view of the live project set.
// Versions strictly increase across content changes; Degraded marks a
// last-known-good payload re-served during a fetch outage.
type Snapshot struct {
	Version  int64          `json:"version"`
	Projects []ProjectEntry `json:"projects"`
	Degraded bool           `json:"degraded"`
}

func toEntries(projects []models.Project) []ProjectEntry {
	entries := make([]ProjectEntry, len(projects))
	for i, p := range projects {
		entries[i] = ProjectEntry{
			ID:          p.ID,
			Name:        p.Name,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Co2Estimate: p.Co2Estimate,
			Status:      p.Status,
			ProjectType: p.ProjectType,
		}
	}
	return entries
}

// sameIDSet reports whether two entry slices cover the same project ids.
func sameIDSet(a, b []ProjectEntry) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[int64]struct{}, len(a))
	for _, e := range a {
		ids[e.ID] = struct{}{}
	}
	for _, e := range b {
		if _, ok := ids[e.ID]; !ok {
			return false
		}
	}
	return true
}
