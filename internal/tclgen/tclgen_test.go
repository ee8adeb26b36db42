package tclgen

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdlforge/internal/config"
	"hdlforge/internal/generics"
	"hdlforge/internal/manifest"
)

func testConfig() *config.ProjectConfig {
	return &config.ProjectConfig{
		Name:             "demo",
		TopLevelFileName: "top",
		DevicePart:       "xc7z020clg400-1",
		BoardPart:        "digilentinc.com:zybo-z7-20:part0:1.1",
		Generics:         []generics.Definition{},
		Constraints: []config.Constraint{
			{File: "pins.xdc", Properties: []config.KV{{Key: "PROCESSING_ORDER", Value: "LATE"}}},
		},
		BlockDesigns: []config.BlockDesign{
			{File: "system_bd.tcl", Commands: []string{"make_wrapper -top [get_files system.bd]"}},
		},
		SynthOptions: []config.KV{{Key: "STEPS.SYNTH_DESIGN.ARGS.FLATTEN_HIERARCHY", Value: "rebuilt"}},
		ImplOptions:  []config.KV{{Key: "STEPS.PLACE_DESIGN.ARGS.DIRECTIVE", Value: "Explore"}},
	}
}

func testGroups() manifest.Groups {
	return manifest.Groups{
		HDL: []manifest.HDLFile{
			{Entry: manifest.Entry{Path: "/src/pkg.vhd", Library: "work"}, Dialect: manifest.DialectVHDL, VHDLVersion: "93"},
			{Entry: manifest.Entry{Path: "/src/axi.vhd"}, Dialect: manifest.DialectVHDL, VHDLVersion: "2008"},
			{Entry: manifest.Entry{Path: "/src/core.sv"}, Dialect: manifest.DialectSystemVerilog},
			{Entry: manifest.Entry{Path: "/src/glue.v"}, Dialect: manifest.DialectVerilog},
		},
	}
}

func renderProject(t *testing.T, b *Binding) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, b.WriteProjectScript(&buf))
	return buf.String()
}

func TestProjectScriptContent(t *testing.T) {
	b := NewBinding(testConfig(), testGroups(), []string{"/out/xci/coe/filter.coe", "/out/xci/fir/fir.xci"}, "WIDTH=8 MAGIC=32'hDAC00001")
	b.ProjectDir = "/work/project"

	script := renderProject(t, b)

	assert.Contains(t, script, "create_project demo -force -part xc7z020clg400-1 /work/project")
	assert.Contains(t, script, "set_property board_part digilentinc.com:zybo-z7-20:part0:1.1 [current_project]")
	assert.Contains(t, script, `puts "\[HDLFORGE_PROJECT_NAME\] demo"`)

	assert.Contains(t, script, "read_verilog -sv {/src/core.sv}")
	assert.Contains(t, script, "read_verilog {/src/glue.v}")
	assert.Contains(t, script, "read_vhdl -library work {/src/pkg.vhd}")
	assert.Contains(t, script, "read_vhdl -vhdl2008 {/src/axi.vhd}")

	assert.Contains(t, script, "add_files -norecurse {/out/xci/coe/filter.coe}")
	assert.Contains(t, script, "add_files -norecurse {/out/xci/fir/fir.xci}")

	assert.Contains(t, script, "source {system_bd.tcl}")
	assert.Contains(t, script, "make_wrapper -top [get_files system.bd]")

	assert.Contains(t, script, "read_xdc {pins.xdc}")
	assert.Contains(t, script, "set_property PROCESSING_ORDER {LATE} [get_files pins.xdc]")

	assert.Contains(t, script, "set_property top top [current_fileset]")
	assert.Contains(t, script, "set_property generic { WIDTH=8 MAGIC=32'hDAC00001 } [get_filesets sources_1]")

	assert.Contains(t, script, "set_property -name {STEPS.SYNTH_DESIGN.ARGS.FLATTEN_HIERARCHY} -value {rebuilt} -objects [get_runs synth_1]")
	assert.Contains(t, script, "set_property -name {STEPS.PLACE_DESIGN.ARGS.DIRECTIVE} -value {Explore} -objects [get_runs impl_1]")
}

func TestProjectScriptSourceOrder(t *testing.T) {
	b := NewBinding(testConfig(), testGroups(), nil, "")
	script := renderProject(t, b)

	// VHDL read order follows the compile order.
	first := strings.Index(script, "/src/pkg.vhd")
	second := strings.Index(script, "/src/axi.vhd")
	require.GreaterOrEqual(t, first, 0)
	require.GreaterOrEqual(t, second, 0)
	assert.Less(t, first, second)
}

func TestProjectScriptOmitsEmptySections(t *testing.T) {
	cfg := testConfig()
	cfg.BoardPart = ""
	cfg.SynthOptions = nil
	cfg.ImplOptions = nil
	b := NewBinding(cfg, manifest.Groups{}, nil, "")

	script := renderProject(t, b)
	assert.NotContains(t, script, "board_part")
	assert.NotContains(t, script, "set_property generic")
	assert.NotContains(t, script, "get_runs synth_1]")
	assert.NotContains(t, script, "get_runs impl_1]")
}

func TestSynthScript(t *testing.T) {
	b := NewBinding(testConfig(), manifest.Groups{}, nil, "")
	b.Cores = 8

	var buf bytes.Buffer
	require.NoError(t, b.WriteSynthScript(&buf))
	script := buf.String()

	assert.Contains(t, script, "launch_runs synth_1 -jobs 8")
	assert.Contains(t, script, "wait_on_run synth_1")
	assert.Contains(t, script, "exit [regexp -nocase")
}

func TestImplScript(t *testing.T) {
	b := NewBinding(testConfig(), manifest.Groups{}, nil, "")
	b.Cores = 4
	b.ArtefactsDir = "/work/artefacts"

	var buf bytes.Buffer
	require.NoError(t, b.WriteImplScript(&buf))
	script := buf.String()

	assert.Contains(t, script, "launch_runs impl_1 -to_step write_bitstream -jobs 4")
	assert.Contains(t, script, `puts "\[HDLFORGE_TIMING\] FAILED $timingReport"`)
	assert.Contains(t, script, `puts "\[HDLFORGE_TIMING\] PASSED $timingReport"`)
	assert.Contains(t, script, "file copy -force $bitstreamFile /work/artefacts/demo.bit")
	assert.Contains(t, script, `puts "\[HDLFORGE_BUILD_ARTEFACTS\] /work/artefacts"`)
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	b := NewBinding(testConfig(), testGroups(), nil, "")
	b.ProjectDir = dir
	b.ArtefactsDir = filepath.Join(dir, "artefacts")

	paths, err := b.WriteAll(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "project.tcl"), paths[0])
	assert.Equal(t, filepath.Join(dir, "synth.tcl"), paths[1])
	assert.Equal(t, filepath.Join(dir, "impl.tcl"), paths[2])
	for _, p := range paths {
		assert.FileExists(t, p)
	}
}
