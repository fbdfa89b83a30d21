package livesync

// sampleSnapshot is the built-in fallback served when the very first fetch
// fails, so map consumers always have something to render. Content is
// static demo data, clearly flagged degraded.
func sampleSnapshot() Snapshot {
	return Snapshot{
		Version:  1,
		Degraded: true,
		Projects: []ProjectEntry{
			{ID: 1, Name: "Rio Doce Basin Restoration", Latitude: -19.52, Longitude: -42.64, Co2Estimate: 182000, Status: "ACTIVE", ProjectType: "REFORESTATION"},
			{ID: 2, Name: "Scottish Highlands Native Pinewood", Latitude: 57.12, Longitude: -4.71, Co2Estimate: 96500, Status: "ACTIVE", ProjectType: "AFFORESTATION"},
			{ID: 3, Name: "Mau Forest Complex Recovery", Latitude: -0.53, Longitude: 35.63, Co2Estimate: 240300, Status: "ACTIVE", ProjectType: "FOREST_MANAGEMENT"},
		},
	}
}
