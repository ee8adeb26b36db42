// Package ipcore discovers the auxiliary coefficient files referenced by
// IP-core descriptors and restructures them into a shared, deduplicated
// location so builds are reproducible regardless of where the descriptors
// originally lived.
package ipcore

import (
	"regexp"
)

// The descriptor serializations in the wild: a structured key/value form
// (JSON-style) and a tagged-text form (XML-style). A content sniff on the
// first non-space byte selects the grammar.
type grammar int

const (
	grammarUnknown grammar = iota
	grammarKeyValue
	grammarTagged
)

// Reference-field aliases, tried in this order. The list is deliberately
// explicit: an unrecognized alias means "no dependency found", silently.
var coefficientAliases = []string{
	"Coefficient_File",
	"Coe_File",
	"Memory_Init_File",
}

type aliasPatterns struct {
	alias    string
	keyValue *regexp.Regexp
	tagged   *regexp.Regexp
}

var patterns = compilePatterns()

func compilePatterns() []aliasPatterns {
	out := make([]aliasPatterns, 0, len(coefficientAliases))
	for _, alias := range coefficientAliases {
		out = append(out, aliasPatterns{
			alias: alias,
			// "Coefficient_File": "path"  or  "Coefficient_File": [ "path" ]
			keyValue: regexp.MustCompile(`"` + alias + `"\s*:\s*\[?\s*"([^"]+)"`),
			// <... referenceId="...Coefficient_File">path</...>
			tagged: regexp.MustCompile(`referenceId="[^"]*` + alias + `"\s*>([^<]+)<`),
		})
	}
	return out
}

// reference is one discovered coefficient reference: the relative path as
// written in the descriptor and the byte span it occupies, so the rewrite
// can replace exactly that span and nothing else.
type reference struct {
	alias   string
	relPath string
	start   int
	end     int
}

func sniff(content []byte) grammar {
	for _, b := range content {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return grammarKeyValue
		case '<':
			return grammarTagged
		default:
			return grammarUnknown
		}
	}
	return grammarUnknown
}

// findReference tries the alias list in order against the grammar the
// sniff selected. The first alias that matches wins.
func findReference(content []byte) (reference, bool) {
	g := sniff(content)
	if g == grammarUnknown {
		return reference{}, false
	}
	for _, p := range patterns {
		re := p.keyValue
		if g == grammarTagged {
			re = p.tagged
		}
		loc := re.FindSubmatchIndex(content)
		if loc == nil {
			continue
		}
		start, end := loc[2], loc[3]
		return reference{
			alias:   p.alias,
			relPath: string(content[start:end]),
			start:   start,
			end:     end,
		}, true
	}
	return reference{}, false
}
