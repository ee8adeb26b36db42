package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdlforge/internal/steptrack"
)

const minimalInfo = `
project_information:
  project_name: demo
  top_level_file_name: top.vhd
  device_info:
    part_name: xc7z020clg400-1
`

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestResolver() (*Resolver, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewResolver(steptrack.New(&buf)), &buf
}

func TestResolveMinimal(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", minimalInfo)

	r, _ := newTestResolver()
	tree, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "demo", tree.Lookup("project_information").Scalar("project_name"))
}

func TestResolveNotFound(t *testing.T) {
	r, _ := newTestResolver()
	_, err := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NotFound, kind)
}

func TestResolveMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", "project_information: [unclosed")

	r, _ := newTestResolver()
	_, err := r.Resolve(context.Background(), path)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Malformed, kind)
}

func TestResolveMissingMandatoryField(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", `
project_information:
  project_name: demo
`)

	r, _ := newTestResolver()
	_, err := r.Resolve(context.Background(), path)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, MissingField, kind)
	assert.Contains(t, err.Error(), "top_level_file_name")
}

func TestResolveInheritanceLayers(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "base.yaml", `
project_information:
  top_level_file_name: top.vhd
  device_info:
    part_name: xc7z020clg400-1
constraints:
  - file: base.xdc
`)
	child := writeDoc(t, dir, "child.yaml", `
inherits: base.yaml
project_information:
  project_name: demo
constraints:
  - file: board.xdc
`)

	r, _ := newTestResolver()
	tree, err := r.Resolve(context.Background(), child)
	require.NoError(t, err)

	info := tree.Get("project_information")
	assert.Equal(t, "demo", info.Scalar("project_name"))
	assert.Equal(t, "top.vhd", info.Scalar("top_level_file_name"))

	cons := tree.Get("constraints")
	require.Len(t, cons.Items, 2)
	assert.Equal(t, "base.xdc", cons.Items[0].Scalar("file"))
	assert.Equal(t, "board.xdc", cons.Items[1].Scalar("file"))

	assert.False(t, tree.containsKey("inherits"))
}

func TestResolveMultipleParentsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.yaml", "block_designs:\n  - file: a.tcl\n")
	writeDoc(t, dir, "b.yaml", "block_designs:\n  - file: b.tcl\n")
	child := writeDoc(t, dir, "child.yaml", `
inherits:
  - a.yaml
  - b.yaml
`+minimalInfo)

	r, _ := newTestResolver()
	tree, err := r.Resolve(context.Background(), child)
	require.NoError(t, err)

	bds := tree.Get("block_designs")
	require.Len(t, bds.Items, 2)
	assert.Equal(t, "a.tcl", bds.Items[0].Scalar("file"))
	assert.Equal(t, "b.tcl", bds.Items[1].Scalar("file"))
}

func TestResolveScalarRedefinitionConflicts(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "base.yaml", `
project_information:
  project_name: base_name
`)
	child := writeDoc(t, dir, "child.yaml", `
inherits: base.yaml
project_information:
  project_name: child_name
  top_level_file_name: top.vhd
  device_info:
    part_name: xc7z020clg400-1
`)

	r, _ := newTestResolver()
	_, err := r.Resolve(context.Background(), child)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, MergeConflict, kind)
	assert.Contains(t, err.Error(), "project_information.project_name")
}

func TestResolveCircularInheritance(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.yaml", "inherits: b.yaml\n")
	writeDoc(t, dir, "b.yaml", "inherits: a.yaml\n")

	r, _ := newTestResolver()
	_, err := r.Resolve(context.Background(), filepath.Join(dir, "a.yaml"))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Malformed, kind)
	assert.Contains(t, err.Error(), "circular")
}

func TestResolveDiamondInheritance(t *testing.T) {
	// The same ancestor reachable through two parents is not a cycle,
	// but its scalars arriving twice is a conflict.
	dir := t.TempDir()
	writeDoc(t, dir, "root.yaml", "shared:\n  key: value\n")
	writeDoc(t, dir, "left.yaml", "inherits: root.yaml\n")
	writeDoc(t, dir, "right.yaml", "inherits: root.yaml\n")
	child := writeDoc(t, dir, "child.yaml", `
inherits:
  - left.yaml
  - right.yaml
`+minimalInfo)

	r, _ := newTestResolver()
	_, err := r.Resolve(context.Background(), child)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, MergeConflict, kind)
}

func TestSubstituteFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", minimalInfo+`
synth_options:
  flatten_hierarchy: "${HF_FLATTEN}"
`)

	r, _ := newTestResolver()
	r.SetEnv("HF_FLATTEN", "rebuilt")
	tree, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "rebuilt", tree.Get("synth_options").Scalar("flatten_hierarchy"))
}

func TestSubstituteIndirection(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", minimalInfo+`
synth_options:
  opt: "${HF_OUTER}"
`)

	r, _ := newTestResolver()
	r.SetEnv("HF_OUTER", "${HF_INNER}/bin")
	r.SetEnv("HF_INNER", "/opt/tools")
	tree, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/tools/bin", tree.Get("synth_options").Scalar("opt"))
}

func TestSubstituteUnsetWarnsOnce(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", minimalInfo+`
synth_options:
  a: "${HDLFORGE_TEST_SURELY_UNSET}"
  b: "x${HDLFORGE_TEST_SURELY_UNSET}y"
`)

	r, out := newTestResolver()
	tree, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)

	opts := tree.Get("synth_options")
	assert.Equal(t, "", opts.Scalar("a"))
	assert.Equal(t, "xy", opts.Scalar("b"))
	assert.Equal(t, 1, strings.Count(out.String(), "HDLFORGE_TEST_SURELY_UNSET"))
}

func TestSubstituteLoopFails(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", minimalInfo+`
synth_options:
  opt: "${HF_LOOP_A}"
`)

	r, _ := newTestResolver()
	r.SetEnv("HF_LOOP_A", "${HF_LOOP_B}")
	r.SetEnv("HF_LOOP_B", "${HF_LOOP_A}")
	_, err := r.Resolve(context.Background(), path)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, UnresolvedPlaceholderLoop, kind)
}

func TestSubstituteSkipsRuntimeOnlyGenericValues(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", `
project_information:
  project_name: demo
  top_level_file_name: top.vhd
  device_info:
    part_name: xc7z020clg400-1
  top_level_generics:
    RUNTIME_PATH:
      type: string
      value: "${DEPLOY_PATH}"
      runtime_only: true
`)

	r, out := newTestResolver()
	tree, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)

	val := tree.Lookup("project_information", "top_level_generics", "RUNTIME_PATH").Scalar("value")
	assert.Equal(t, "${DEPLOY_PATH}", val)
	assert.NotContains(t, out.String(), "DEPLOY_PATH")
}

func TestEnvironmentSetupExtendsSubstitution(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "setup.sh", "echo HF_FROM_SETUP=from_script\necho '# comment line'\n")
	path := writeDoc(t, dir, "config.yaml", minimalInfo+`
environment_setup:
  bash: setup.sh
synth_options:
  opt: "${HF_FROM_SETUP}"
`)

	r, _ := newTestResolver()
	tree, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "from_script", tree.Get("synth_options").Scalar("opt"))
}

func TestEnvironmentSetupMissingScriptWarns(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "config.yaml", minimalInfo+`
environment_setup:
  bash: does_not_exist.sh
`)

	r, out := newTestResolver()
	_, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "does_not_exist.sh")
}
