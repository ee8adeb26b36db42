package manifest

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"hdlforge/internal/ctxlog"
	"hdlforge/internal/steptrack"
)

// StepProcessSources is the tracker step classification diagnostics are
// recorded against.
const StepProcessSources = "handle_source_files::process_source_files"

// Dialect of an HDL source file.
type Dialect string

const (
	DialectVHDL          Dialect = "vhdl"
	DialectVerilog       Dialect = "verilog"
	DialectSystemVerilog Dialect = "system_verilog"
)

// VHDL93 is the baseline language version assumed when neither the
// declared type nor a version tag says otherwise.
const VHDL93 = "93"

// HDLFile is a classified HDL source with its dialect and, for VHDL, the
// language version.
type HDLFile struct {
	Entry
	Dialect Dialect
	// VHDLVersion is set for VHDL files only ("93", "2008", ...).
	VHDLVersion string
}

// Groups is the partition of a compile-order manifest.
type Groups struct {
	HDL          []HDLFile
	IPCores      []Entry
	BlockDesigns []Entry
	External     []Entry

	Processed int
	Skipped   int
}

// File extensions recognized for dialect detection when the declared
// type does not pin one down.
const (
	extSystemVerilog = ".sv"
	extVerilog       = ".v"
	extVHDL          = ".vhd"
	extVHDLLong      = ".vhdl"
)

// Classify partitions the manifest entries. Entries whose path does not
// exist are skipped with a counted warning; everything else keeps its
// input order inside its group.
func Classify(ctx context.Context, tracker *steptrack.Tracker, entries []Entry) Groups {
	log := ctxlog.From(ctx)
	var g Groups

	for _, e := range entries {
		if _, err := os.Stat(e.Path); err != nil {
			tracker.Warnf(StepProcessSources, "source file not found, skipping: %s", e.Path)
			g.Skipped++
			continue
		}
		g.Processed++

		switch e.Type {
		case TypeIPCore:
			g.IPCores = append(g.IPCores, e)
		case TypeBlockDesign:
			g.BlockDesigns = append(g.BlockDesigns, e)
		case TypeOther:
			g.External = append(g.External, e)
		case TypeVHDL, TypeVHDL2008, TypeVerilog, TypeSystemVerilog:
			g.HDL = append(g.HDL, tagHDL(e))
		default:
			// Unknown declared type: fall back to the extension table.
			if f, ok := byExtension(e); ok {
				g.HDL = append(g.HDL, f)
			} else {
				g.External = append(g.External, e)
			}
		}
	}

	log.Info("classified compile order",
		"hdl", len(g.HDL), "ip_cores", len(g.IPCores), "block_designs", len(g.BlockDesigns),
		"external", len(g.External), "skipped", g.Skipped)
	return g
}

// tagHDL derives dialect and language version from the declared type. An
// explicit version tag wins over the declared type; absence of both
// defaults VHDL to its baseline version.
func tagHDL(e Entry) HDLFile {
	f := HDLFile{Entry: e}
	switch e.Type {
	case TypeVerilog:
		f.Dialect = DialectVerilog
	case TypeSystemVerilog:
		f.Dialect = DialectSystemVerilog
	case TypeVHDL2008:
		f.Dialect = DialectVHDL
		f.VHDLVersion = "2008"
	default:
		f.Dialect = DialectVHDL
		f.VHDLVersion = VHDL93
	}
	if f.Dialect == DialectVHDL && e.VerTag != "" {
		f.VHDLVersion = e.VerTag
	}
	return f
}

func byExtension(e Entry) (HDLFile, bool) {
	ext := e.FileExt
	if ext == "" {
		ext = filepath.Ext(e.Path)
	}
	switch strings.ToLower(ext) {
	case extSystemVerilog:
		return HDLFile{Entry: e, Dialect: DialectSystemVerilog}, true
	case extVerilog:
		return HDLFile{Entry: e, Dialect: DialectVerilog}, true
	case extVHDL, extVHDLLong:
		f := HDLFile{Entry: e, Dialect: DialectVHDL, VHDLVersion: VHDL93}
		if e.VerTag != "" {
			f.VHDLVersion = e.VerTag
		}
		return f, true
	}
	return HDLFile{}, false
}
