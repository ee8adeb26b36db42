package config

import (
	"strconv"
	"strings"

	"fortio.org/safecast"

	"hdlforge/internal/generics"
)

// ProjectConfig is the typed view over the resolved tree. Only the known
// sections are extracted; unknown keys are ignored rather than rejected.
type ProjectConfig struct {
	Name             string
	TopLevelFileName string

	DevicePart string
	BoardName  string
	BoardPart  string

	VivadoYear string
	VivadoSub  string

	// Generics in declaration order.
	Generics []generics.Definition

	Constraints  []Constraint
	BlockDesigns []BlockDesign

	// Flat option maps passed through to the backend verbatim, in
	// declaration order.
	SynthOptions []KV
	ImplOptions  []KV
}

// Constraint is one constraint file entry.
type Constraint struct {
	File       string
	Fileset    string
	Execution  string
	Properties []KV
}

// BlockDesign is one block design entry with optional post-load commands.
type BlockDesign struct {
	File     string
	Commands []string
}

// VivadoVersion returns "year.sub", or "" when not configured.
func (c *ProjectConfig) VivadoVersion() string {
	if c.VivadoYear == "" || c.VivadoSub == "" {
		return ""
	}
	return c.VivadoYear + "." + c.VivadoSub
}

// ExtractProject builds the typed configuration from a resolved tree.
// The resolved tree must already have passed mandatory-section checks.
func ExtractProject(root *Node) (*ProjectConfig, error) {
	info := root.Get("project_information")
	if info == nil {
		return nil, newError(MissingField, "project_information", "required section is missing")
	}

	cfg := &ProjectConfig{
		Name:             info.Scalar("project_name"),
		TopLevelFileName: info.Scalar("top_level_file_name"),
	}

	device := info.Get("device_info")
	if device != nil {
		cfg.DevicePart = device.Scalar("part_name")
		cfg.BoardName = device.Scalar("board_name")
		cfg.BoardPart = device.Scalar("board_part")
	}
	if cfg.DevicePart == "" {
		return nil, newError(MissingField, "project_information.device_info.part_name", "device target is required")
	}

	// The project-level version wins over the device-level one.
	cfg.VivadoYear = firstNonEmpty(info.Scalar("vivado_version_year"), device.Scalar("vivado_version_year"))
	cfg.VivadoSub = firstNonEmpty(info.Scalar("vivado_version_sub"), device.Scalar("vivado_version_sub"))

	gens, err := extractGenerics(info.Get("top_level_generics"))
	if err != nil {
		return nil, err
	}
	cfg.Generics = gens

	cfg.Constraints = extractConstraints(root.Get("constraints"))
	cfg.BlockDesigns = extractBlockDesigns(root.Get("block_designs"))
	cfg.SynthOptions = root.Get("synth_options").StringMap()
	cfg.ImplOptions = root.Get("impl_options").StringMap()

	return cfg, nil
}

func extractGenerics(node *Node) ([]generics.Definition, error) {
	if node == nil {
		return nil, nil
	}
	if node.Kind != KindMap {
		return nil, newError(Malformed, "project_information.top_level_generics", "must be a mapping")
	}
	var defs []generics.Definition
	for _, name := range node.Keys() {
		entry := node.Get(name)
		if entry == nil || entry.Kind != KindMap {
			return nil, newError(Malformed, "project_information.top_level_generics."+name, "must be a mapping")
		}
		def := generics.Definition{
			Name:        name,
			Type:        generics.Type(entry.Scalar("type")),
			Value:       entry.Scalar("value"),
			Base:        generics.Base(entry.Scalar("base")),
			RuntimeOnly: isTruthy(entry.Scalar("runtime_only")),
		}
		if w := entry.Scalar("width"); w != "" {
			parsed, err := strconv.ParseInt(w, 10, 64)
			if err != nil {
				return nil, newError(Malformed, "project_information.top_level_generics."+name+".width",
					"width %q is not an integer", w)
			}
			width, err := safecast.Conv[int](parsed)
			if err != nil {
				return nil, newError(Malformed, "project_information.top_level_generics."+name+".width",
					"width %q out of range", w)
			}
			def.Width = width
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func extractConstraints(node *Node) []Constraint {
	if node == nil || node.Kind != KindSequence {
		return nil
	}
	var out []Constraint
	for _, item := range node.Items {
		if item.Kind != KindMap {
			continue
		}
		c := Constraint{
			File:      item.Scalar("file"),
			Fileset:   item.Scalar("fileset"),
			Execution: item.Scalar("execution"),
		}
		switch props := item.Get("properties"); {
		case props == nil:
		case props.Kind == KindMap:
			c.Properties = props.StringMap()
		case props.Kind == KindSequence:
			for _, p := range props.Items {
				c.Properties = append(c.Properties, p.StringMap()...)
			}
		}
		out = append(out, c)
	}
	return out
}

func extractBlockDesigns(node *Node) []BlockDesign {
	if node == nil || node.Kind != KindSequence {
		return nil
	}
	var out []BlockDesign
	for _, item := range node.Items {
		if item.Kind != KindMap {
			continue
		}
		bd := BlockDesign{File: item.Scalar("file")}
		if cmds := item.Get("commands"); cmds != nil && cmds.Kind == KindSequence {
			for _, cmd := range cmds.Items {
				if cmd.Kind == KindScalar {
					bd.Commands = append(bd.Commands, cmd.Value)
				}
			}
		}
		out = append(out, bd)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
