package tclgen

import "text/template"

var (
	// The project creation script. Read order of the source files is
	// significant: it mirrors the compile-order manifest.
	projectTpl = template.Must(template.New("project").Parse(
		`# GENERATED FILE, DO NOT EDIT
# Project creation script
# Project name: "{{ .Project }}"

create_project {{ .Project }} -force -part {{ .Part }} {{ .ProjectDir }}
{{- if .BoardPart }}
set_property board_part {{ .BoardPart }} [current_project]
{{- end }}

puts "\[HDLFORGE_PROJECT_NAME\] {{ .Project }}"

# SystemVerilog files
# Ordering is important.
{{- range .SystemVerilogFiles }}
read_verilog {{ with .Library }}-library {{ . }} {{ end }}-sv {{"{"}} {{- .Name -}} {{"}"}}
{{- end }}

# Verilog files
# Ordering is important.
{{- range .VerilogFiles }}
read_verilog {{ with .Library }}-library {{ . }} {{ end }}{{"{"}} {{- .Name -}} {{"}"}}
{{- end }}

# VHDL files
# Ordering is important.
{{- range .VHDLFiles }}
read_vhdl {{ if .VHDL2008 }}-vhdl2008 {{ end }}{{ with .Library }}-library {{ . }} {{ end }}{{"{"}} {{- .Name -}} {{"}"}}
{{- end }}
# end: VHDL files

# IP cores and coefficient data
{{- range .IPFiles }}
add_files -norecurse {{"{"}} {{- . -}} {{"}"}}
{{- end }}

# Block designs
{{- range .BlockDesigns }}
source {{"{"}} {{- .File -}} {{"}"}}
{{- range .Commands }}
{{ . }}
{{- end }}
{{- end }}

# Constraints files
# Ordering is important here, too.
{{- range $c := .Constraints }}
read_xdc {{"{"}} {{- $c.File -}} {{"}"}}
{{- range $c.Properties }}
set_property {{ .Key }} {{"{"}} {{- .Value -}} {{"}"}} [get_files {{ $c.File }}]
{{- end }}
{{- end }}
# end: constraints files

set_property top {{ .Top }} [current_fileset]
set_property source_mgmt_mode None [current_project]

{{- if .Generics }}

# Top level generics
set_property generic {{"{"}} {{ .Generics }} {{"}"}} [get_filesets {{ .Fileset }}]
{{- end }}

{{- if .SynthOptions }}

# Synthesis options
{{- range .SynthOptions }}
set_property -name {{"{"}} {{- .Key -}} {{"}"}} -value {{"{"}} {{- .Value -}} {{"}"}} -objects [get_runs synth_1]
{{- end }}
{{- end }}

{{- if .ImplOptions }}

# Implementation options
{{- range .ImplOptions }}
set_property -name {{"{"}} {{- .Key -}} {{"}"}} -value {{"{"}} {{- .Value -}} {{"}"}} -objects [get_runs impl_1]
{{- end }}
{{- end }}

# end
`))

	// The synthesis launch script.
	synthTpl = template.Must(template.New("synth").Parse(
		`# GENERATED FILE, DO NOT EDIT
# Project synthesis script
# Project name: "{{ .Project }}"

launch_runs synth_1 -jobs {{ .Cores }}
wait_on_run synth_1
exit [regexp -nocase -- {synth_design (error|failed)} [get_property STATUS [get_runs synth_1]] match]

# end
`))

	// The implementation and bitstream script, including the timing
	// verdict marker the output parser picks up.
	implTpl = template.Must(template.New("impl").Parse(
		`# GENERATED FILE, DO NOT EDIT
# Implementation and bitstream script
# Project name: "{{ .Project }}"

set_property STEPS.WRITE_BITSTREAM.ARGS.BIN_FILE true [get_runs impl_1]

if { [get_property PROGRESS [get_runs impl_1]] != "100%"} {
  launch_runs synth_1 -quiet -jobs {{ .Cores }}

  launch_runs impl_1 -to_step write_bitstream -jobs {{ .Cores }}
  wait_on_run impl_1
  puts "Bitstream generation completed"
} else {
  puts "Bitstream generation already complete"
}

if { [get_property PROGRESS [get_runs impl_1]] != "100%"} {
   puts "ERROR: Implementation and bitstream generation step failed."
   exit 1
}

open_run impl_1
set wns [get_property SLACK [get_timing_paths -max_paths 1 -nworst 1 -setup]]
set timingReport [file join {{ .ArtefactsDir }} timing_summary.rpt]
report_timing_summary -file $timingReport
if { $wns < 0 } {
  puts "\[HDLFORGE_TIMING\] FAILED $timingReport"
} else {
  puts "\[HDLFORGE_TIMING\] PASSED $timingReport"
}

set bitstreamFile [ get_property DIRECTORY [current_run] ]/[ get_property top [current_fileset] ].bit
file copy -force $bitstreamFile {{ .ArtefactsDir }}/{{ .Project }}.bit
puts "\[HDLFORGE_BUILD_ARTEFACTS\] {{ .ArtefactsDir }}"

# end
`))
)
