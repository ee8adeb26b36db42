// Package manifest reads the externally generated compile-order manifest
// and partitions its entries into the typed groups the rest of the
// pipeline consumes.
//
// The manifest is an ordered list: classification never reorders entries,
// because the backend relies on add order for HDL sources.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// Declared entry types, the fixed vocabulary of the compile-order tool.
const (
	TypeVHDL          = "vhdl"
	TypeVHDL2008      = "vhdl_2008"
	TypeVerilog       = "verilog"
	TypeSystemVerilog = "system_verilog"
	TypeIPCore        = "xci"
	TypeBlockDesign   = "bd"
	TypeOther         = "other"
)

// Entry is one record of the compile-order manifest. Entries are read
// only; they are never mutated after creation.
type Entry struct {
	Type    string `json:"type"`
	Path    string `json:"path"`
	Library string `json:"library,omitempty"`
	VerTag  string `json:"ver_tag,omitempty"`
	FileExt string `json:"file_ext,omitempty"`
}

// Read parses a compile-order manifest file (a JSON array of entries).
func Read(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("compile order manifest: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("compile order manifest %s: %w", path, err)
	}
	return entries, nil
}
