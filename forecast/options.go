package forecast

// Options configures how a model's forecast table is reduced to one projection per location
type Options struct {
	// UsePoint prefers point estimates over the median quantile. Whichever estimate is present is
	// used when the preferred one is missing.
	UsePoint bool `json:"use_point"`

	// IncidentTarget is the substring identifying weekly incident case horizon targets
	IncidentTarget string `json:"incident_target"`

	// FamilySelections maps a model name prefix to the single variant of that family that is
	// evaluated. Other variants sharing the prefix are skipped.
	FamilySelections map[string]string `json:"family_selections"`
}

// NewDefaultOptions returns the options used for forecast hub case evaluations
func NewDefaultOptions() *Options {
	return &Options{
		UsePoint:       true,
		IncidentTarget: "wk ahead inc case",
		FamilySelections: map[string]string{
			"CU-": "CU-select",
		},
	}
}
