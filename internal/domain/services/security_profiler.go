package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ochairo/binscope/internal/domain/entities"
	"github.com/ochairo/binscope/internal/domain/interfaces"
	"github.com/ochairo/binscope/internal/domain/interfaces/gateways"
)

// ELF program header types and flags
const (
	ptInterp   uint32 = 3
	ptGNUStack uint32 = 0x6474E551
	pfExec     uint32 = 0x1
)

// Program header field offsets within one entry
const (
	phFlagsOffset64  = 4
	phFlagsOffset32  = 24
	phOffsetOffset64 = 8
	phOffsetOffset32 = 4
	phFileSzOffset64 = 32
	phFileSzOffset32 = 16
)

// PE optional header fields, relative to the PE signature
const (
	peDllCharacteristicsOffset = 0x5E
	peLoadConfigRVAOffset      = 0xD8

	dllDynamicBase uint16 = 0x0040
	dllNXCompat    uint16 = 0x0100
	dllGuardCF     uint16 = 0x4000
)

const stackCheckSymbol = "__stack_chk_fail"

// maxInterpreterLen bounds the PT_INTERP string read from untrusted input
const maxInterpreterLen = 4096

// SecurityProfiler evaluates exploit-mitigation flags. Each check is
// independent: a failed read makes that check Unknown and nothing else.
//
// PIE is reported for every ET_DYN object, so shared libraries count as PIE.
type SecurityProfiler struct {
	inspector gateways.ELFInspector
	timeout   time.Duration
	logger    interfaces.Logger
}

// NewSecurityProfiler creates a profiler. A nil inspector leaves RELRO and
// the stack canary Unknown for ELF files.
func NewSecurityProfiler(inspector gateways.ELFInspector, timeout time.Duration, logger interfaces.Logger) *SecurityProfiler {
	return &SecurityProfiler{
		inspector: inspector,
		timeout:   timeout,
		logger:    interfaces.OrNoOp(logger),
	}
}

// Profile runs the checks for the header's format. For ELF it also returns
// the introspection record so callers can reuse symbols and sections.
func (p *SecurityProfiler) Profile(ctx context.Context, data []byte, h entities.HeaderInfo) (entities.SecurityProfile, *entities.ELFIntrospection) {
	switch h.Format {
	case entities.FormatELF:
		return p.profileELF(ctx, data, h)
	case entities.FormatPE:
		return profilePE(data, h), nil
	default:
		return entities.NewSecurityProfile(), nil
	}
}

func (p *SecurityProfiler) profileELF(ctx context.Context, data []byte, h entities.HeaderInfo) (entities.SecurityProfile, *entities.ELFIntrospection) {
	profile := entities.NewSecurityProfile()

	nx, interp := scanProgramHeaders(data, h)
	profile.Set(entities.FeatureNX, nx)
	profile.Interpreter = interp

	if t, ok := h.ObjectType.Get(); ok {
		profile.Set(entities.FeaturePIE, entities.EnabledIf(t == entities.ELFTypeDyn))
	} else {
		profile.Set(entities.FeaturePIE, entities.Undetermined)
	}

	info, err := p.inspect(ctx, data)
	if err != nil {
		p.logger.Warn("ELF introspection unavailable",
			interfaces.F("component", "security"),
			interfaces.F("error", err.Error()))
		profile.Set(entities.FeatureRELRO, entities.Undetermined)
		profile.Set(entities.FeatureCanary, entities.Undetermined)
		return profile, nil
	}

	switch {
	case !info.HasGNURelro:
		profile.Set(entities.FeatureRELRO, entities.RELRONone)
	case info.BindNow:
		profile.Set(entities.FeatureRELRO, entities.RELROFull)
	default:
		profile.Set(entities.FeatureRELRO, entities.RELROPartial)
	}
	profile.Set(entities.FeatureCanary, entities.EnabledIf(info.HasSymbol(stackCheckSymbol)))

	if !profile.Interpreter.IsKnown() && info.Interpreter != "" {
		profile.Interpreter = entities.Some(info.Interpreter)
	}
	return profile, info
}

// inspect calls the ELF inspector under the configured timeout. Inspector
// failures, panics and timeouts all come back as ErrToolUnavailable.
func (p *SecurityProfiler) inspect(ctx context.Context, data []byte) (info *entities.ELFIntrospection, err error) {
	if p.inspector == nil {
		return nil, fmt.Errorf("%w: no ELF inspector configured", entities.ErrToolUnavailable)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			info, err = nil, fmt.Errorf("%w: inspector panic: %v", entities.ErrToolUnavailable, r)
		}
	}()

	info, err = p.inspector.InspectELF(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrToolUnavailable, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: inspector returned no data", entities.ErrToolUnavailable)
	}
	return info, nil
}

// scanProgramHeaders walks the program header table once, returning the NX
// result and the PT_INTERP path. A missing PT_GNU_STACK entry is Disabled;
// only an unreadable table is Unknown.
func scanProgramHeaders(data []byte, h entities.HeaderInfo) (entities.CheckResult, entities.Known[string]) {
	interp := entities.Unknown[string]()

	bits, okBits := h.Bits.Get()
	phoff, okOff := h.ProgramHeaderOffset.Get()
	phnum, okNum := h.ProgramHeaderCount.Get()
	if !okBits || !okOff || !okNum {
		return entities.Undetermined, interp
	}

	var order binary.ByteOrder = binary.LittleEndian
	if h.BigEndian {
		order = binary.BigEndian
	}
	r := newFieldReader(data, order)
	layout := layoutFor(bits)

	flagsOff, offOff, sizeOff := uint64(phFlagsOffset32), uint64(phOffsetOffset32), uint64(phFileSzOffset32)
	if bits == 64 {
		flagsOff, offOff, sizeOff = phFlagsOffset64, phOffsetOffset64, phFileSzOffset64
	}

	nx := entities.Disabled
	foundStack := false
	for i := 0; i < phnum; i++ {
		entry := phoff + uint64(i)*layout.phentSize
		ptype, err := r.u32("p_type", entry)
		if err != nil {
			return entities.Undetermined, interp
		}
		switch ptype {
		case ptGNUStack:
			if foundStack {
				continue
			}
			flags, err := r.u32("p_flags", entry+flagsOff)
			if err != nil {
				return entities.Undetermined, interp
			}
			foundStack = true
			nx = entities.EnabledIf(flags&pfExec == 0)
		case ptInterp:
			if interp.IsKnown() {
				continue
			}
			if s, ok := readInterpreter(r, entry, offOff, sizeOff, bits); ok {
				interp = entities.Some(s)
			}
		}
	}
	return nx, interp
}

func readInterpreter(r fieldReader, entry, offOff, sizeOff uint64, bits int) (string, bool) {
	off, err := r.word("p_offset", entry+offOff, bits)
	if err != nil {
		return "", false
	}
	size, err := r.word("p_filesz", entry+sizeOff, bits)
	if err != nil || size == 0 || size > maxInterpreterLen {
		return "", false
	}
	raw, err := r.span("PT_INTERP", off, size)
	if err != nil {
		return "", false
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) == 0 {
		return "", false
	}
	return string(raw), true
}

func profilePE(data []byte, h entities.HeaderInfo) entities.SecurityProfile {
	profile := entities.NewSecurityProfile()

	peOff32, ok := h.PEOffset.Get()
	if !ok {
		for _, f := range []entities.Feature{entities.FeatureASLR, entities.FeatureDEP, entities.FeatureCFG, entities.FeatureSafeSEH} {
			profile.Set(f, entities.Undetermined)
		}
		return profile
	}
	peOff := uint64(peOff32)
	r := newFieldReader(data, binary.LittleEndian)

	if dll, err := r.u16("DllCharacteristics", peOff+peDllCharacteristicsOffset); err != nil {
		profile.Set(entities.FeatureASLR, entities.Undetermined)
		profile.Set(entities.FeatureDEP, entities.Undetermined)
		profile.Set(entities.FeatureCFG, entities.Undetermined)
	} else {
		profile.Set(entities.FeatureASLR, entities.EnabledIf(dll&dllDynamicBase != 0))
		profile.Set(entities.FeatureDEP, entities.EnabledIf(dll&dllNXCompat != 0))
		profile.Set(entities.FeatureCFG, entities.EnabledIf(dll&dllGuardCF != 0))
	}

	profile.Set(entities.FeatureSafeSEH, safeSEH(r, peOff, h))
	return profile
}

// safeSEH only applies to 32-bit x86. A non-zero load config directory RVA
// is taken as SafeSEH-capable.
func safeSEH(r fieldReader, peOff uint64, h entities.HeaderInfo) entities.CheckResult {
	machine, ok := h.Machine.Get()
	if !ok {
		return entities.Undetermined
	}
	if machine != entities.PEMachineI386 {
		return entities.NotApplicable
	}
	rva, err := r.u32("LoadConfigDirectory.VirtualAddress", peOff+peLoadConfigRVAOffset)
	if err != nil {
		return entities.Undetermined
	}
	return entities.EnabledIf(rva != 0)
}
