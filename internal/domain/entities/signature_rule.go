package entities

// SignalKind selects how a rule signal is evaluated
type SignalKind string

const (
	SignalBytes   SignalKind = "bytes"
	SignalEntropy SignalKind = "entropy"
	SignalSize    SignalKind = "size"
)

// MatchMode controls how byte patterns of a signal add to the score
type MatchMode string

const (
	MatchEach       MatchMode = "each"        // weight per pattern found
	MatchAny        MatchMode = "any"         // weight once if any pattern is found
	MatchMinMatches MatchMode = "min_matches" // weight once if MinMatches patterns are found
)

// Signal is one independent piece of evidence in a signature rule
type Signal struct {
	Kind       SignalKind
	Mode       MatchMode
	Patterns   [][]byte
	Window     int // search only the first Window bytes, 0 for the whole file
	MinMatches int
	MinEntropy float64
	MinSize    int64
	Weight     int
}

// SignatureRule is a declarative packer signature, loaded from a rule file
type SignatureRule struct {
	ID        string
	Name      string
	Formats   []Format // empty matches every supported format
	Threshold int
	Signals   []Signal
	Source    string // file the rule came from
	Signed    bool   // detached signature verified
}

// AppliesTo reports whether the rule evaluates files of the given format
func (r *SignatureRule) AppliesTo(f Format) bool {
	if len(r.Formats) == 0 {
		return true
	}
	for _, rf := range r.Formats {
		if rf == f {
			return true
		}
	}
	return false
}
