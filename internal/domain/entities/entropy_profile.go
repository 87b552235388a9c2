package entities

// EntropyBucket is the qualitative packing likelihood of an entropy value
type EntropyBucket string

const (
	EntropyVeryLow  EntropyBucket = "Very Low"
	EntropyLow      EntropyBucket = "Low"
	EntropyMedium   EntropyBucket = "Medium"
	EntropyHigh     EntropyBucket = "High"
	EntropyVeryHigh EntropyBucket = "Very High"
)

// Bucket thresholds in bits per byte. These are fixed policy values: the
// packer modules add confidence at the same levels, so changing one without
// the other shifts detection results.
const (
	EntropyVeryHighMin = 7.5
	EntropyHighMin     = 7.0
	EntropyMediumMin   = 6.0
	EntropyLowMin      = 4.0

	MaxEntropy = 8.0
)

// EntropyProfile is the whole-file Shannon entropy and its bucket. The zero
// value has no bucket and stands for an entropy that could not be measured.
type EntropyProfile struct {
	Value  float64
	Bucket EntropyBucket
}

// UnknownEntropy is the profile of a file that could not be read in full
func UnknownEntropy() EntropyProfile {
	return EntropyProfile{}
}

// IsKnown reports whether the value was measured over the whole file
func (p EntropyProfile) IsKnown() bool {
	return p.Bucket != ""
}

// Measured returns the value, Unknown when it was never computed
func (p EntropyProfile) Measured() Known[float64] {
	if !p.IsKnown() {
		return Unknown[float64]()
	}
	return Some(p.Value)
}

// Assessment returns the bucket with a short reading of what it suggests
func (p EntropyProfile) Assessment() string {
	switch p.Bucket {
	case EntropyVeryHigh:
		return "Very High (Possibly packed/encrypted)"
	case EntropyHigh:
		return "High (May be packed or compressed)"
	case EntropyMedium:
		return "Medium (Normal compiled binary)"
	case EntropyLow:
		return "Low (Contains plain text or simple data)"
	case EntropyVeryLow:
		return "Very Low (Mostly repeated data)"
	case "":
		return "Could not calculate"
	default:
		return "Unknown"
	}
}
