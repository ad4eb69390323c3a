// Package compliance maps governance events onto the control frameworks they evidence.
package compliance

import (
	"slices"
)

// Frameworks understood by Record.
const (
	NISTAIRMF     = "NIST_AI_RMF"
	ISO42001      = "ISO_42001"
	ACSCE8        = "ACSC_E8"
	PrivacyActADM = "Privacy_Act_ADM"
)

var frameworkControls = map[string][]string{
	NISTAIRMF:     {"Govern", "Map", "Measure", "Manage"},
	ISO42001:      {"Context", "Leadership", "Planning", "Support", "Operation"},
	ACSCE8:        {"Application Control", "Patch Management", "Logging"},
	PrivacyActADM: {"Data_Minimization", "Transparency"},
}

// Event is a compliance record produced for the audit trail.
type Event struct {
	Domain   string   `json:"domain"`
	Controls []string `json:"controls"`
	Detail   string   `json:"detail"`
}

// Controls returns the controls of a framework, nil when unknown.
func Controls(domain string) []string {
	return slices.Clone(frameworkControls[domain])
}

// Record maps detail onto the controls of domain. Unknown domains map to no controls.
func Record(domain, detail string) Event {
	controls := Controls(domain)
	if controls == nil {
		controls = []string{}
	}
	return Event{Domain: domain, Controls: controls, Detail: detail}
}
