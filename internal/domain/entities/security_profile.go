package entities

// Feature names an exploit-mitigation check
type Feature string

const (
	FeatureNX      Feature = "NX"
	FeaturePIE     Feature = "PIE"
	FeatureRELRO   Feature = "RELRO"
	FeatureCanary  Feature = "CANARY"
	FeatureASLR    Feature = "ASLR"
	FeatureDEP     Feature = "DEP"
	FeatureCFG     Feature = "CFG"
	FeatureSafeSEH Feature = "SafeSEH"
)

// CheckResult is the outcome of one check. Most checks are tri-state;
// RELRO uses its own levels and SafeSEH can be not applicable.
type CheckResult string

const (
	Enabled       CheckResult = "Enabled"
	Disabled      CheckResult = "Disabled"
	Undetermined  CheckResult = "Unknown"
	NotApplicable CheckResult = "N/A"

	RELROFull    CheckResult = "Full"
	RELROPartial CheckResult = "Partial"
	RELRONone    CheckResult = "No"
)

// EnabledIf maps a determined boolean onto Enabled/Disabled
func EnabledIf(on bool) CheckResult {
	if on {
		return Enabled
	}
	return Disabled
}

// SecurityProfile collects the mitigation checks for one file
type SecurityProfile struct {
	Checks      map[Feature]CheckResult
	Interpreter Known[string] // ELF program interpreter, unknown when absent
}

// NewSecurityProfile creates an empty profile
func NewSecurityProfile() SecurityProfile {
	return SecurityProfile{Checks: make(map[Feature]CheckResult)}
}

// Set records a check result
func (p *SecurityProfile) Set(f Feature, r CheckResult) {
	if p.Checks == nil {
		p.Checks = make(map[Feature]CheckResult)
	}
	p.Checks[f] = r
}

// Get returns the result for a feature, Undetermined when never checked
func (p SecurityProfile) Get(f Feature) CheckResult {
	if r, ok := p.Checks[f]; ok {
		return r
	}
	return Undetermined
}
