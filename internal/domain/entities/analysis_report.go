package entities

import (
	"encoding/json"
	"fmt"
)

// PackedHint is set when no packer matched but entropy alone is suspicious
const PackedHint = "high entropy"

// AnalysisReport aggregates every analysis of one file. It is read-only once
// built and is the only thing handed to renderers and exporters.
type AnalysisReport struct {
	File         BinaryFile
	Header       HeaderInfo
	Entropy      EntropyProfile
	Security     SecurityProfile
	Packer       *PackerMatch
	StringsCount Known[int]
	Stripped     Known[bool]
	ImportCount  Known[int] // PE only
	Sections     []SectionInfo
}

// PackedHint returns a hint for recognized executables that look packed
// without a signature match
func (r *AnalysisReport) PackedHint() string {
	if r.File.Format == FormatUnknown || r.Packer != nil || !r.Entropy.IsKnown() {
		return ""
	}
	if r.Entropy.Value >= EntropyVeryHighMin {
		return PackedHint
	}
	return ""
}

// ReportDocument is the serialized form with stable field names
type ReportDocument struct {
	Path              string                  `json:"path"`
	Type              Format                  `json:"type"`
	Size              int64                   `json:"size"`
	SHA256            Known[string]           `json:"sha256"`
	XXH3              Known[string]           `json:"xxh3"`
	SSDeep            Known[string]           `json:"ssdeep"`
	Architecture      Known[string]           `json:"architecture"`
	Bits              Known[int]              `json:"bits"`
	ObjectType        Known[string]           `json:"object_type"`
	Stripped          Known[bool]             `json:"stripped"`
	SectionCount      Known[int]              `json:"section_count"`
	StringsCount      Known[int]              `json:"strings_count"`
	ImportCount       *Known[int]             `json:"import_count,omitempty"`
	Security          map[Feature]CheckResult `json:"security"`
	Interpreter       Known[string]           `json:"interpreter"`
	Entropy           Known[float64]          `json:"entropy"`
	EntropyAssessment string                  `json:"entropy_assessment"`
	PackerName        string                  `json:"packer_name,omitempty"`
	PackerConfidence  int                     `json:"packer_confidence,omitempty"`
	PackedHint        string                  `json:"packed_hint,omitempty"`
	Sections          []SectionInfo           `json:"sections"`
}

// Document converts the report into its serialized form
func (r *AnalysisReport) Document() ReportDocument {
	doc := ReportDocument{
		Path:              r.File.Path,
		Type:              r.File.Format,
		Size:              r.File.Size,
		SHA256:            r.File.Digests.SHA256,
		XXH3:              r.File.Digests.XXH3,
		SSDeep:            r.File.Digests.SSDeep,
		Architecture:      r.Header.Architecture,
		Bits:              r.Header.Bits,
		ObjectType:        r.Header.ObjectTypeName(),
		Stripped:          r.Stripped,
		SectionCount:      r.Header.SectionCount,
		StringsCount:      r.StringsCount,
		Security:          r.Security.Checks,
		Interpreter:       r.Security.Interpreter,
		Entropy:           r.Entropy.Measured(),
		EntropyAssessment: r.Entropy.Assessment(),
		PackedHint:        r.PackedHint(),
		Sections:          r.Sections,
	}
	if doc.Security == nil {
		doc.Security = map[Feature]CheckResult{}
	}
	if doc.Sections == nil {
		doc.Sections = []SectionInfo{}
	}
	if r.File.Format == FormatPE {
		imports := r.ImportCount
		doc.ImportCount = &imports
	}
	if r.Packer != nil {
		doc.PackerName = r.Packer.Name
		doc.PackerConfidence = r.Packer.Confidence
	}
	return doc
}

// MarshalJSON encodes the report as its document
func (r *AnalysisReport) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}

// cachedReport is the storage form: the document loses header offsets that
// nothing outside the analysis needs, so the full report is kept instead.
type cachedReport struct {
	File         cachedFile              `json:"file"`
	Header       cachedHeader            `json:"header"`
	Entropy      EntropyProfile          `json:"entropy"`
	Security     map[Feature]CheckResult `json:"security"`
	Interpreter  Known[string]           `json:"interpreter"`
	Packer       *PackerMatch            `json:"packer,omitempty"`
	StringsCount Known[int]              `json:"strings_count"`
	Stripped     Known[bool]             `json:"stripped"`
	ImportCount  Known[int]              `json:"import_count"`
	Sections     []SectionInfo           `json:"sections"`
}

type cachedFile struct {
	Path   string        `json:"path"`
	Size   int64         `json:"size"`
	Format Format        `json:"format"`
	SHA256 Known[string] `json:"sha256"`
	XXH3   Known[string] `json:"xxh3"`
	SSDeep Known[string] `json:"ssdeep"`
}

type cachedHeader struct {
	Format              Format        `json:"format"`
	Architecture        Known[string] `json:"architecture"`
	Machine             Known[uint16] `json:"machine"`
	Bits                Known[int]    `json:"bits"`
	BigEndian           bool          `json:"big_endian"`
	ObjectType          Known[uint16] `json:"object_type"`
	EntryPoint          Known[uint64] `json:"entry_point"`
	ProgramHeaderOffset Known[uint64] `json:"phoff"`
	ProgramHeaderCount  Known[int]    `json:"phnum"`
	PEOffset            Known[uint32] `json:"pe_offset"`
	SectionCount        Known[int]    `json:"section_count"`
}

// EncodeReport serializes the full report for storage
func EncodeReport(r *AnalysisReport) ([]byte, error) {
	h := r.Header
	c := cachedReport{
		File: cachedFile{
			Path:   r.File.Path,
			Size:   r.File.Size,
			Format: r.File.Format,
			SHA256: r.File.Digests.SHA256,
			XXH3:   r.File.Digests.XXH3,
			SSDeep: r.File.Digests.SSDeep,
		},
		Header: cachedHeader{
			Format:              h.Format,
			Architecture:        h.Architecture,
			Machine:             h.Machine,
			Bits:                h.Bits,
			BigEndian:           h.BigEndian,
			ObjectType:          h.ObjectType,
			EntryPoint:          h.EntryPoint,
			ProgramHeaderOffset: h.ProgramHeaderOffset,
			ProgramHeaderCount:  h.ProgramHeaderCount,
			PEOffset:            h.PEOffset,
			SectionCount:        h.SectionCount,
		},
		Entropy:      r.Entropy,
		Security:     r.Security.Checks,
		Interpreter:  r.Security.Interpreter,
		Packer:       r.Packer,
		StringsCount: r.StringsCount,
		Stripped:     r.Stripped,
		ImportCount:  r.ImportCount,
		Sections:     r.Sections,
	}
	return json.Marshal(c)
}

// DecodeReport restores a report written by EncodeReport
func DecodeReport(data []byte) (*AnalysisReport, error) {
	var c cachedReport
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	security := NewSecurityProfile()
	for f, res := range c.Security {
		security.Set(f, res)
	}
	security.Interpreter = c.Interpreter

	return &AnalysisReport{
		File: BinaryFile{
			Path:   c.File.Path,
			Size:   c.File.Size,
			Format: c.File.Format,
			Digests: Digests{
				SHA256: c.File.SHA256,
				XXH3:   c.File.XXH3,
				SSDeep: c.File.SSDeep,
			},
		},
		Header: HeaderInfo{
			Format:              c.Header.Format,
			Architecture:        c.Header.Architecture,
			Machine:             c.Header.Machine,
			Bits:                c.Header.Bits,
			BigEndian:           c.Header.BigEndian,
			ObjectType:          c.Header.ObjectType,
			EntryPoint:          c.Header.EntryPoint,
			ProgramHeaderOffset: c.Header.ProgramHeaderOffset,
			ProgramHeaderCount:  c.Header.ProgramHeaderCount,
			PEOffset:            c.Header.PEOffset,
			SectionCount:        c.Header.SectionCount,
		},
		Entropy:      c.Entropy,
		Security:     security,
		Packer:       c.Packer,
		StringsCount: c.StringsCount,
		Stripped:     c.Stripped,
		ImportCount:  c.ImportCount,
		Sections:     c.Sections,
	}, nil
}
