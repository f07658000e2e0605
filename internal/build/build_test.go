// Copyright 2025 Contriboss
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package build

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pkm-project/pkm/internal/project"
)

func testManifest(name, version string) *project.Manifest {
	return &project.Manifest{
		Project: project.ProjectMeta{Name: name, Version: version},
	}
}

// writePackageSource lays out a minimal flat-layout package under
// projectDir named after manifest.Project.Name, the shape
// BuildStandard's findPackageDir looks for.
func writePackageSource(t *testing.T, projectDir string, manifest *project.Manifest) {
	t.Helper()
	pkgDir := filepath.Join(projectDir, distName(manifest.Project.Name))
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "__init__.py"), []byte("__version__ = \"1\"\n"), 0o644))
}

func TestBuildStandardProducesArtifactPath(t *testing.T) {
	o := NewOrchestrator(nil)
	target := Target{Dir: t.TempDir()}
	projectDir := t.TempDir()
	manifest := testManifest("widgets", "1.0.0")
	writePackageSource(t, projectDir, manifest)

	path, err := o.BuildStandard("ctx-1", projectDir, manifest, target)
	require.NoError(t, err)
	require.Contains(t, path, "widgets-1.0.0-py3-none-any.whl")

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	require.Contains(t, names, "widgets/__init__.py")
	require.Contains(t, names, "widgets-1.0.0.dist-info/METADATA")
	require.Contains(t, names, "widgets-1.0.0.dist-info/RECORD")
}

func TestBuildStandardFailsWithoutPackageSource(t *testing.T) {
	o := NewOrchestrator(nil)
	target := Target{Dir: t.TempDir()}

	_, err := o.BuildStandard("ctx-1", t.TempDir(), testManifest("widgets", "1.0.0"), target)
	require.Error(t, err)
}

func TestBuildAllBuildsIndependentJobsConcurrently(t *testing.T) {
	o := NewOrchestrator(nil)

	jobA := makeStandardJob(t, "a", "1.0.0", nil)
	jobB := makeStandardJob(t, "b", "1.0.0", nil)

	results, err := o.BuildAll(context.Background(), "ctx-1", []BuildJob{jobA, jobB}, time.Second)
	require.NoError(t, err)
	require.Contains(t, results["a"], "a-1.0.0-py3-none-any.whl")
	require.Contains(t, results["b"], "b-1.0.0-py3-none-any.whl")
}

func TestBuildAllAbortsDependentJobWhenPrerequisiteFails(t *testing.T) {
	o := NewOrchestrator(nil)

	// "base" has no package source on disk, so its build fails; "top"
	// requires "base" and must never run its own build as a result.
	brokenBase := BuildJob{
		Descriptor: Descriptor{Name: "base", Version: "1.0.0"},
		ProjectDir: t.TempDir(),
		Manifest:   testManifest("base", "1.0.0"),
		Target:     Target{Dir: t.TempDir()},
	}
	top := makeStandardJob(t, "top", "1.0.0", []string{"base"})

	_, err := o.BuildAll(context.Background(), "ctx-1", []BuildJob{brokenBase, top}, time.Second)
	require.Error(t, err)
	var buildErr *Error
	require.ErrorAs(t, err, &buildErr)
}

func makeStandardJob(t *testing.T, name, version string, requires []string) BuildJob {
	t.Helper()
	manifest := testManifest(name, version)
	projectDir := t.TempDir()
	writePackageSource(t, projectDir, manifest)
	return BuildJob{
		Descriptor: Descriptor{Name: name, Version: version},
		ProjectDir: projectDir,
		Manifest:   manifest,
		Target:     Target{Dir: t.TempDir()},
		Requires:   requires,
	}
}

func TestEnterDetectsCycleWithinSameExecutionContext(t *testing.T) {
	o := NewOrchestrator(nil)
	d := Descriptor{Name: "widgets", Version: "1.0.0"}

	exit, err := o.enter("ctx-1", d)
	require.NoError(t, err)
	defer exit()

	_, err = o.enter("ctx-1", d)
	require.Error(t, err)
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestEnterAllowsSameDescriptorInDifferentExecutionContexts(t *testing.T) {
	o := NewOrchestrator(nil)
	d := Descriptor{Name: "widgets", Version: "1.0.0"}

	exit1, err := o.enter("ctx-1", d)
	require.NoError(t, err)
	defer exit1()

	exit2, err := o.enter("ctx-2", d)
	require.NoError(t, err)
	defer exit2()
}

func TestExitReleasesCycleDetectionSlot(t *testing.T) {
	o := NewOrchestrator(nil)
	d := Descriptor{Name: "widgets", Version: "1.0.0"}

	exit, err := o.enter("ctx-1", d)
	require.NoError(t, err)
	exit()

	_, err = o.enter("ctx-1", d)
	require.NoError(t, err)
}
