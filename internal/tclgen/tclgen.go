// Package tclgen renders the Tcl scripts the external backend executes:
// project creation, synthesis launch, and implementation/bitstream.
//
// The scripts are plain text/template expansions over a Binding built
// from the resolved configuration and the classified compile order.
package tclgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"hdlforge/internal/config"
	"hdlforge/internal/manifest"
)

// FileLib pairs a source file with its optional HDL library.
type FileLib struct {
	Name    string
	Library string
	// VHDL2008 selects the 2008 language mode for VHDL reads.
	VHDL2008 bool
}

// BDRef is a block design script with optional post-load commands.
type BDRef struct {
	File     string
	Commands []string
}

// ConstraintRef is a constraint file with its pass-through properties.
type ConstraintRef struct {
	File       string
	Properties []config.KV
}

// Binding carries everything the templates need.
type Binding struct {
	Project    string
	Fileset    string
	Top        string
	Part       string
	BoardPart  string
	ProjectDir string
	// ArtefactsDir receives the bitstream and timing report.
	ArtefactsDir string
	Cores        int

	VerilogFiles       []FileLib
	SystemVerilogFiles []FileLib
	VHDLFiles          []FileLib
	IPFiles            []string
	BlockDesigns       []BDRef
	Constraints        []ConstraintRef

	// Generics is the pre-encoded name=literal list.
	Generics string

	SynthOptions []config.KV
	ImplOptions  []config.KV
}

// NewBinding assembles a Binding from the resolved configuration, the
// classified manifest and the registered IP-core sources. The manifest
// order is preserved: the backend relies on add order.
func NewBinding(cfg *config.ProjectConfig, groups manifest.Groups, ipSources []string, encodedGenerics string) *Binding {
	b := &Binding{
		Project:      cfg.Name,
		Fileset:      "sources_1",
		Top:          cfg.TopLevelFileName,
		Part:         cfg.DevicePart,
		BoardPart:    cfg.BoardPart,
		Generics:     encodedGenerics,
		SynthOptions: cfg.SynthOptions,
		ImplOptions:  cfg.ImplOptions,
		IPFiles:      ipSources,
		Cores:        1,
	}
	for _, f := range groups.HDL {
		fl := FileLib{Name: f.Path, Library: f.Library}
		switch f.Dialect {
		case manifest.DialectSystemVerilog:
			b.SystemVerilogFiles = append(b.SystemVerilogFiles, fl)
		case manifest.DialectVerilog:
			b.VerilogFiles = append(b.VerilogFiles, fl)
		case manifest.DialectVHDL:
			fl.VHDL2008 = f.VHDLVersion == "2008"
			b.VHDLFiles = append(b.VHDLFiles, fl)
		}
	}
	for _, bd := range cfg.BlockDesigns {
		b.BlockDesigns = append(b.BlockDesigns, BDRef{File: bd.File, Commands: bd.Commands})
	}
	for _, bd := range groups.BlockDesigns {
		b.BlockDesigns = append(b.BlockDesigns, BDRef{File: bd.Path})
	}
	for _, c := range cfg.Constraints {
		b.Constraints = append(b.Constraints, ConstraintRef{File: c.File, Properties: c.Properties})
	}
	for _, e := range groups.External {
		b.Constraints = append(b.Constraints, ConstraintRef{File: e.Path})
	}
	return b
}

// WriteProjectScript renders the project creation script.
func (b *Binding) WriteProjectScript(w io.Writer) error {
	return projectTpl.Execute(w, b)
}

// WriteSynthScript renders the synthesis launch script.
func (b *Binding) WriteSynthScript(w io.Writer) error {
	return synthTpl.Execute(w, b)
}

// WriteImplScript renders the implementation/bitstream script.
func (b *Binding) WriteImplScript(w io.Writer) error {
	return implTpl.Execute(w, b)
}

// WriteAll renders the three scripts into dir and returns their paths in
// project, synth, impl order.
func (b *Binding) WriteAll(dir string) ([]string, error) {
	scripts := []struct {
		name   string
		render func(io.Writer) error
	}{
		{"project.tcl", b.WriteProjectScript},
		{"synth.tcl", b.WriteSynthScript},
		{"impl.tcl", b.WriteImplScript},
	}
	var paths []string
	for _, s := range scripts {
		path := filepath.Join(dir, s.name)
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
		if err := s.render(f); err != nil {
			f.Close()
			return nil, fmt.Errorf("render %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("close %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
