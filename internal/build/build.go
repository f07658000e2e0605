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

// Package build turns a source tree into a wheel (or just its metadata)
// via the PEP 517-style hook protocol, or — for trivial pkm-native
// projects — without ever shelling out to a subprocess.
package build

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sdboyer/constext"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/pkm-project/pkm/internal/install"
	"github.com/pkm-project/pkm/internal/project"
)

// Descriptor identifies the package a build produces, for cycle detection.
type Descriptor struct {
	Name    string
	Version string
}

// Error is the taxonomy's BuildError: a fatal failure of the build
// pipeline, wrapping whatever underlying cause (subprocess exit, missing
// output, cycle) produced it.
type Error struct {
	Descriptor Descriptor
	Reason     string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build %s %s: %s: %v", e.Descriptor.Name, e.Descriptor.Version, e.Reason, e.Err)
	}
	return fmt.Sprintf("build %s %s: %s", e.Descriptor.Name, e.Descriptor.Version, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// CycleError is raised when a build re-enters a descriptor already being
// built within the same execution context.
type CycleError struct {
	Cycle []Descriptor
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("build cycle detected: %v", e.Cycle)
}

// HookResult is the JSON record a launcher script writes after invoking
// a single PEP 517 hook.
type HookResult struct {
	Status string `json:"status"` // "success" | "undefined_hook"
	Result string `json:"result"`
}

// Orchestrator provisions ephemeral build environments, invokes backend
// hooks, and collects wheel/sdist output — or, for projects whose
// build-backend is the standard pkm-native one, builds in-process with
// no subprocess at all.
type Orchestrator struct {
	Log *logrus.Entry

	// NewEnv provisions an ephemeral build environment rooted at dir and
	// returns its interpreter path, ready for hook invocation.
	NewEnv func(dir string) (interpreter string, err error)

	// InstallRequirements installs requirement strings into the
	// environment rooted at envDir.
	InstallRequirements func(envDir string, requirements []string) error

	buildingMu sync.Mutex
	building   map[string]map[Descriptor]bool
}

// NewOrchestrator creates a build orchestrator. log may be nil.
func NewOrchestrator(log *logrus.Entry) *Orchestrator {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Orchestrator{Log: log, building: make(map[string]map[Descriptor]bool)}
}

// StandardBackendName is the build-backend string that routes a project
// to BuildStandard instead of the external-hook subprocess path.
const StandardBackendName = "pkm.build"

// enter registers d as currently building within execCtx (a per-thread
// or per-task key), returning an error if it is already present. Safe
// for concurrent use across execution contexts, since parallel builds
// (BuildAll) run independent jobs concurrently.
func (o *Orchestrator) enter(execCtx string, d Descriptor) (func(), error) {
	o.buildingMu.Lock()
	defer o.buildingMu.Unlock()

	set, ok := o.building[execCtx]
	if !ok {
		set = make(map[Descriptor]bool)
		o.building[execCtx] = set
	}
	if set[d] {
		var cycle []Descriptor
		for existing := range set {
			cycle = append(cycle, existing)
		}
		return nil, &CycleError{Cycle: append(cycle, d)}
	}
	set[d] = true
	return func() {
		o.buildingMu.Lock()
		defer o.buildingMu.Unlock()
		delete(set, d)
	}, nil
}

// Target is where a build's output artifact should be written.
type Target struct {
	Dir string
}

// BuildStandard builds a trivial pkm-native project without a
// subprocess: it locates the project's package directory (src layout
// or flat layout) and zips it into a wheel alongside a generated
// dist-info, mirroring what `standard_builders.py`'s build_wheel does
// for pure-Python projects with no compiled extensions.
func (o *Orchestrator) BuildStandard(execCtx string, projectDir string, manifest *project.Manifest, target Target) (string, error) {
	d := Descriptor{Name: manifest.Project.Name, Version: manifest.Project.Version}
	exit, err := o.enter(execCtx, d)
	if err != nil {
		return "", err
	}
	defer exit()

	pkgDir, err := findPackageDir(projectDir, manifest.Project.Name)
	if err != nil {
		return "", &Error{Descriptor: d, Reason: "locating package sources", Err: err}
	}

	if err := os.MkdirAll(target.Dir, 0o755); err != nil {
		return "", &Error{Descriptor: d, Reason: "creating target directory", Err: err}
	}

	artifactName := fmt.Sprintf("%s-%s-py3-none-any.whl", distName(manifest.Project.Name), manifest.Project.Version)
	artifactPath := filepath.Join(target.Dir, artifactName)
	if err := writeStandardWheel(artifactPath, pkgDir, manifest); err != nil {
		return "", &Error{Descriptor: d, Reason: "writing wheel archive", Err: err}
	}
	return artifactPath, nil
}

// distName is the wheel-filename-safe form of a project name: PEP 427
// requires runs of non-alphanumeric characters be normalized to "_".
func distName(name string) string {
	var b strings.Builder
	inRun := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			inRun = false
		} else if !inRun {
			b.WriteByte('_')
			inRun = true
		}
	}
	return b.String()
}

// findPackageDir locates name's importable package directory under
// projectDir, preferring a src/ layout over a flat layout the way the
// original builder's ProjectDirectories resolution does.
func findPackageDir(projectDir, name string) (string, error) {
	underscored := distName(name)
	for _, candidate := range []string{
		filepath.Join(projectDir, "src", underscored),
		filepath.Join(projectDir, underscored),
	} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no package directory named %q under %s (looked in src/ and project root)", underscored, projectDir)
}

// writeStandardWheel zips pkgDir's tree plus a generated dist-info
// (METADATA, RECORD) into a wheel archive at artifactPath, the way
// build_wheel assembles build_dir before handing it to zipfile.ZipFile.
func writeStandardWheel(artifactPath, pkgDir string, manifest *project.Manifest) error {
	f, err := os.Create(artifactPath)
	if err != nil {
		return errors.Wrapf(err, "creating %s", artifactPath)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	var records []install.RecordEntry
	pkgRoot := filepath.Dir(pkgDir)
	walkErr := filepath.WalkDir(pkgDir, func(p string, de os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(pkgRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		w, err := zw.Create(rel)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		hash, size := install.HashBytes(data)
		records = append(records, install.RecordEntry{Path: rel, Hash: hash, Size: size})
		return nil
	})
	if walkErr != nil {
		zw.Close()
		return errors.Wrapf(walkErr, "collecting sources from %s", pkgDir)
	}

	distInfo := fmt.Sprintf("%s-%s.dist-info", distName(manifest.Project.Name), manifest.Project.Version)

	meta := install.Metadata{
		Name:    manifest.Project.Name,
		Version: manifest.Project.Version,
		Summary: manifest.Project.Description,
		License: manifest.Project.License,
	}
	metaBytes, err := toml.Marshal(meta)
	if err != nil {
		zw.Close()
		return errors.Wrap(err, "encoding METADATA")
	}
	metaPath := distInfo + "/METADATA"
	if err := writeZipEntry(zw, metaPath, metaBytes); err != nil {
		zw.Close()
		return err
	}
	hash, size := install.HashBytes(metaBytes)
	records = append(records, install.RecordEntry{Path: metaPath, Hash: hash, Size: size})

	recordPath := distInfo + "/" + install.RecordFileName
	recordBytes, err := install.EncodeRecord(append(append([]install.RecordEntry{}, records...), install.RecordEntry{Path: recordPath}))
	if err != nil {
		zw.Close()
		return errors.Wrap(err, "encoding RECORD")
	}
	if err := writeZipEntry(zw, recordPath, recordBytes); err != nil {
		zw.Close()
		return err
	}

	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// BuildJob describes one source-tree build to run as part of a
// dependency-ordered batch (BuildAll).
type BuildJob struct {
	Descriptor Descriptor
	ProjectDir string
	Manifest   *project.Manifest
	Target     Target
	// Requires names the other jobs in this same batch (by
	// Descriptor.Name) that must finish building before this one starts.
	Requires []string
}

// BuildAll builds every job concurrently, honoring the Requires edges
// between them, mirroring spec's "C7 builds each non-wheel package in
// topological order" with "multiple independent package builds may
// proceed in parallel" (§5 Parallel builds): independent jobs run at
// the same time, dependent jobs wait on their prerequisites rather than
// the whole batch proceeding strictly layer by layer.
func (o *Orchestrator) BuildAll(ctx context.Context, execCtx string, jobs []BuildJob, hookTimeout time.Duration) (map[string]string, error) {
	done := make(map[string]chan struct{}, len(jobs))
	for _, j := range jobs {
		done[j.Descriptor.Name] = make(chan struct{})
	}

	var mu sync.Mutex
	results := make(map[string]string, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			for _, dep := range job.Requires {
				waitCh, ok := done[dep]
				if !ok {
					continue
				}
				select {
				case <-waitCh:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			var (
				artifact string
				err      error
			)
			if job.Manifest.BuildSystem.BackendRef == StandardBackendName {
				artifact, err = o.BuildStandard(execCtx, job.ProjectDir, job.Manifest, job.Target)
			} else {
				artifact, err = o.BuildExternal(gctx, execCtx, job.ProjectDir, job.Manifest, job.Target, hookTimeout)
			}
			if err != nil {
				return err
			}

			mu.Lock()
			results[job.Descriptor.Name] = artifact
			mu.Unlock()
			// Only a successful build releases its dependents; after a
			// failure they keep waiting until gctx is cancelled.
			close(done[job.Descriptor.Name])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BuildExternal runs the full PEP 517-style hook protocol: provision an
// ephemeral env, install the build-system's requirements, invoke
// get_requires_for_build_wheel then build_wheel, and return the path
// the backend reported.
func (o *Orchestrator) BuildExternal(ctx context.Context, execCtx string, projectDir string, manifest *project.Manifest, target Target, hookTimeout time.Duration) (string, error) {
	d := Descriptor{Name: manifest.Project.Name, Version: manifest.Project.Version}
	exit, err := o.enter(execCtx, d)
	if err != nil {
		return "", err
	}
	defer exit()

	envDir, err := os.MkdirTemp("", "pkm-build-")
	if err != nil {
		return "", &Error{Descriptor: d, Reason: "creating ephemeral build env", Err: err}
	}
	defer os.RemoveAll(envDir)

	interpreter, err := o.NewEnv(envDir)
	if err != nil {
		return "", &Error{Descriptor: d, Reason: "provisioning ephemeral build env", Err: err}
	}

	if err := o.InstallRequirements(envDir, manifest.BuildSystem.Requires); err != nil {
		return "", &Error{Descriptor: d, Reason: "installing build requirements", Err: err}
	}

	extraReqs, err := o.invokeHook(ctx, interpreter, projectDir, manifest.BuildSystem.BackendRef,
		"get_requires_for_build_wheel", []string{}, target.Dir, hookTimeout, false)
	if err != nil {
		return "", &Error{Descriptor: d, Reason: "get_requires_for_build_wheel", Err: err}
	}
	if extraReqs.Status == "success" && extraReqs.Result != "" {
		var extra []string
		if err := json.Unmarshal([]byte(extraReqs.Result), &extra); err == nil && len(extra) > 0 {
			if err := o.InstallRequirements(envDir, extra); err != nil {
				return "", &Error{Descriptor: d, Reason: "installing extra build requirements", Err: err}
			}
		}
	}

	built, err := o.invokeHook(ctx, interpreter, projectDir, manifest.BuildSystem.BackendRef,
		"build_wheel", []string{target.Dir}, target.Dir, hookTimeout, true)
	if err != nil {
		return "", &Error{Descriptor: d, Reason: "build_wheel", Err: err}
	}
	if built.Status == "undefined_hook" {
		return "", &Error{Descriptor: d, Reason: "build_wheel is a required hook but the backend left it undefined"}
	}

	artifactPath := filepath.Join(target.Dir, built.Result)
	if _, err := os.Stat(artifactPath); err != nil {
		return "", &Error{Descriptor: d, Reason: "backend reported artifact does not exist", Err: err}
	}
	return artifactPath, nil
}

// invokeHook runs one hook via a generated launcher script, in an
// isolated subprocess bound by hookTimeout merged with ctx.
func (o *Orchestrator) invokeHook(ctx context.Context, interpreter, projectDir, backendRef, hook string, args []string, outDir string, timeout time.Duration, required bool) (HookResult, error) {
	deadlineCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	runCtx, cancelCons := constext.Cons(ctx, deadlineCtx)
	defer cancelCons()

	resultPath := filepath.Join(outDir, fmt.Sprintf(".pkm-hook-%s.json", hook))
	launcher, err := writeLauncher(outDir, backendRef, hook, args, resultPath, required)
	if err != nil {
		return HookResult{}, errors.Wrapf(err, "writing launcher for %s", hook)
	}
	defer os.Remove(launcher)

	cmd := exec.CommandContext(runCtx, interpreter, launcher)
	cmd.Dir = projectDir
	o.Log.WithField("hook", hook).Debug("invoking build hook")
	if out, err := cmd.CombinedOutput(); err != nil {
		return HookResult{}, errors.Wrapf(err, "hook %s exited: %s", hook, string(out))
	}

	data, err := os.ReadFile(resultPath)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return HookResult{Status: "undefined_hook"}, nil
		}
		return HookResult{}, errors.Wrapf(err, "reading hook result for %s", hook)
	}
	defer os.Remove(resultPath)

	var result HookResult
	if err := json.Unmarshal(data, &result); err != nil {
		return HookResult{}, errors.Wrapf(err, "parsing hook result for %s", hook)
	}
	return result, nil
}

func writeLauncher(dir, backendRef, hook string, args []string, resultPath string, required bool) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf(".pkm-launcher-%s.py", hook))
	script := launcherScript(backendRef, hook, args, resultPath, required)
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func launcherScript(backendRef, hook string, args []string, resultPath string, required bool) string {
	argsRepr := "["
	for i, a := range args {
		if i > 0 {
			argsRepr += ", "
		}
		argsRepr += fmt.Sprintf("%q", a)
	}
	argsRepr += "]"

	return fmt.Sprintf(`import importlib
import json

backend = importlib.import_module(%q)
args = %s
hook = getattr(backend, %q, None)
if hook is None:
    status = "undefined_hook"
    result = None
else:
    status = "success"
    result = hook(*args)
with open(%q, "w") as f:
    json.dump({"status": status, "result": result if result is None or isinstance(result, str) else json.dumps(result)}, f)
`, backendRef, argsRepr, hook, resultPath)
}
