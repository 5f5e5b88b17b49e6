package demo

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/edera-run/workflowd/internal/autotest"
	"github.com/edera-run/workflowd/internal/condition"
	"github.com/edera-run/workflowd/internal/nameable"
	"github.com/edera-run/workflowd/internal/requisite"
	"github.com/edera-run/workflowd/internal/task"
	"github.com/edera-run/workflowd/internal/workflow"
	"github.com/edera-run/workflowd/internal/xerrors"
)

// sink is the logger the demo tasks use for their own output; installed
// by the daemon as the monitoring.InstallSink-wrapped base logger so
// per-task log capture works the same way it does for any other
// workflow. Grounded on __main__.py's logging.getLogger(
// "edera.monitoring.sink").
var sink = slog.Default().With("component", "demo")

// PathExists checks a file or directory's presence and carries the
// invariant that its parent directory exists too. Grounded on
// __main__.py's PathExists.
type PathExists struct {
	condition.Base
	FS   *FileSystem
	Path string
}

func (c *PathExists) Name() string {
	return nameable.Build("PathExists", nameable.Param{Key: "path", Value: c.Path})
}

func (c *PathExists) Check() (bool, error) { return c.FS.Exists(c.Path) }

func (c *PathExists) Invariants() []condition.Condition {
	parent := filepath.Dir(c.Path)
	if parent == "." || parent == c.Path {
		return nil
	}
	return []condition.Condition{condition.Implies(c, &PathExists{FS: c.FS, Path: parent})}
}

// CreateDirectory ensures Path exists, recursing on its parent.
// Grounded on __main__.py's CreateDirectory.
type CreateDirectory struct {
	task.Base
	autotest.TestableTask
	FS    *FileSystem
	Path  string
	Sleep time.Duration
}

func (t *CreateDirectory) Name() string {
	return nameable.Build("CreateDirectory", nameable.Param{Key: "path", Value: t.Path})
}
func (t *CreateDirectory) Phony() bool { return false }

func (t *CreateDirectory) Execute() error {
	if t.Sleep > 0 {
		time.Sleep(t.Sleep)
	}
	sink.Info("creating directory", "path", t.Path)
	return t.FS.EnsureDir(t.Path)
}

func (t *CreateDirectory) Target() condition.Condition { return &PathExists{FS: t.FS, Path: t.Path} }

func (t *CreateDirectory) Requisite() task.Requisite {
	tests := t.TestsRequisite(t)
	parent := filepath.Dir(t.Path)
	if parent == "." || parent == t.Path {
		return tests
	}
	parentTask := &CreateDirectory{FS: t.FS, Path: parent, Sleep: t.Sleep}
	return requisite.SatisfyAll{Requisites: []requisite.Requisite{requisite.FromTasks(parentTask), tests}}
}

func init() {
	autotest.Register("CreateDirectory.Mock", func() autotest.Scenario { return mockScenario{} })
}

// DownloadFile fetches URL into Path, requisite on Path's parent
// directory existing. Grounded on __main__.py's DownloadFile.
type DownloadFile struct {
	task.Base
	autotest.TestableTask
	FS    *FileSystem
	Path  string
	URL   string
	Sleep time.Duration
}

func (t *DownloadFile) Name() string {
	return nameable.Build("DownloadFile", nameable.Param{Key: "path", Value: t.Path}, nameable.Param{Key: "url", Value: t.URL})
}
func (t *DownloadFile) Phony() bool { return false }

func (t *DownloadFile) Execute() error {
	sink.Info("downloading file", "url", t.URL, "path", t.Path)
	resp, err := http.Get(t.URL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %s", t.URL, resp.Status)
	}
	lines, err := readBody(resp)
	if err != nil {
		return err
	}
	return t.FS.WriteLines(t.Path, lines)
}

func (t *DownloadFile) Target() condition.Condition { return &PathExists{FS: t.FS, Path: t.Path} }

func (t *DownloadFile) Requisite() task.Requisite {
	parent := &CreateDirectory{FS: t.FS, Path: filepath.Dir(t.Path), Sleep: t.Sleep}
	return requisite.SatisfyAll{Requisites: []requisite.Requisite{requisite.FromTasks(parent), t.TestsRequisite(t)}}
}

func init() {
	autotest.Register("DownloadFile.Mock", func() autotest.Scenario { return mockScenario{} })
}

// HashEachLine reads Input, SHA1-salted-hashes each line and writes the
// digests to Output. Grounded on __main__.py's HashEachLine.
type HashEachLine struct {
	task.Base
	autotest.TestableTask
	FS     *FileSystem
	Input  string
	Output string
	Salt   string
}

func (t *HashEachLine) Name() string {
	return nameable.Build("HashEachLine", nameable.Param{Key: "input", Value: t.Input}, nameable.Param{Key: "output", Value: t.Output})
}
func (t *HashEachLine) Phony() bool { return false }

func (t *HashEachLine) Execute() error {
	lines, err := t.FS.ReadLines(t.Input)
	if err != nil {
		return err
	}
	hashed := make([]string, len(lines))
	for i, line := range lines {
		sum := sha1.Sum([]byte(t.Salt + line))
		hashed[i] = hex.EncodeToString(sum[:])
	}
	sink.Info("hashed file", "input", t.Input, "lines", len(lines))
	return t.FS.WriteLines(t.Output, hashed)
}

func (t *HashEachLine) Target() condition.Condition { return &PathExists{FS: t.FS, Path: t.Output} }

func (t *HashEachLine) Requisite() task.Requisite {
	outputDir := &CreateDirectory{FS: t.FS, Path: filepath.Dir(t.Output)}
	return requisite.SatisfyAll{Requisites: []requisite.Requisite{requisite.FromTasks(outputDir), t.TestsRequisite(t)}}
}

func init() {
	autotest.Register("HashEachLine.Mock", func() autotest.Scenario { return mockScenario{} })
}

// PickFirstLetters reads Input and writes the first letter of each line
// to Output, tagged "focus" so it gets its own scheduling branch.
// Grounded on __main__.py's PickFirstLetters.
type PickFirstLetters struct {
	task.Base
	autotest.TestableTask
	FS     *FileSystem
	Input  string
	Output string
}

func (t *PickFirstLetters) Name() string {
	return nameable.Build("PickFirstLetters", nameable.Param{Key: "input", Value: t.Input}, nameable.Param{Key: "output", Value: t.Output})
}
func (t *PickFirstLetters) Phony() bool { return false }

func (t *PickFirstLetters) Execute() error {
	lines, err := t.FS.ReadLines(t.Input)
	if err != nil {
		return err
	}
	letters := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(line) > 0 {
			letters = append(letters, line[:1])
		}
	}
	return t.FS.WriteLines(t.Output, letters)
}

func (t *PickFirstLetters) Target() condition.Condition { return &PathExists{FS: t.FS, Path: t.Output} }

func (t *PickFirstLetters) Requisite() task.Requisite {
	outputDir := &CreateDirectory{FS: t.FS, Path: filepath.Dir(t.Output)}
	return requisite.SatisfyAll{Requisites: []requisite.Requisite{
		requisite.FromTasks(outputDir),
		requisite.Annotate{Key: workflow.KeyTag, Value: "focus"},
		t.TestsRequisite(t),
	}}
}

func init() {
	autotest.Register("PickFirstLetters.Mock", func() autotest.Scenario { return mockScenario{} })
}

// RemoveFile deletes Path if it exists; a no-op if it's already gone.
// Grounded on __main__.py's RemoveFile.
type RemoveFile struct {
	task.Base
	FS   *FileSystem
	Path string
}

func (t *RemoveFile) Name() string {
	return nameable.Build("RemoveFile", nameable.Param{Key: "path", Value: t.Path})
}
func (t *RemoveFile) Phony() bool { return false }

func (t *RemoveFile) Execute() error {
	sink.Info("removing file", "path", t.Path)
	return t.FS.Remove(t.Path)
}

func (t *RemoveFile) Target() condition.Condition {
	return condition.Not(&PathExists{FS: t.FS, Path: t.Path})
}

// HashFile composes Download -> HashEachLine -> PickFirstLetters ->
// RemoveFile into one phony pipeline over a single input. Grounded on
// __main__.py's HashFile.
type HashFile struct {
	task.Base
	FS              *FileSystem
	InputFile       string
	OutputDirectory string
	URL             string
	Salt            string
	Sleep           time.Duration
}

func (t *HashFile) Name() string {
	return nameable.Build("HashFile",
		nameable.Param{Key: "input_file", Value: t.InputFile},
		nameable.Param{Key: "output_directory", Value: t.OutputDirectory})
}

func (t *HashFile) Requisite() task.Requisite {
	download := &DownloadFile{FS: t.FS, Path: t.InputFile, URL: t.URL, Sleep: t.Sleep}
	hashed := filepath.Join(t.OutputDirectory, "hashed")
	hash := &HashEachLine{FS: t.FS, Input: t.InputFile, Output: hashed, Salt: t.Salt}
	letters := filepath.Join(t.OutputDirectory, "letters")
	pick := &PickFirstLetters{FS: t.FS, Input: hashed, Output: letters}
	remove := &RemoveFile{FS: t.FS, Path: t.InputFile}
	return requisite.FromTasks(download, hash, pick, remove)
}

// DivideByZero deliberately fails, simulating a misconfigured run.
// Grounded on __main__.py's DivideByZero.
type DivideByZero struct {
	task.Base
}

func (t *DivideByZero) Name() string { return nameable.Build("DivideByZero") }
func (t *DivideByZero) Phony() bool  { return false }
func (t *DivideByZero) Execute() error {
	return fmt.Errorf("demo: simulated division by zero")
}

// ReHashFile seeds five HashFile pipelines for the five minutes leading
// up to Timestamp, optionally preceded by a deliberate DivideByZero
// failure. Grounded on __main__.py's ReHashFile.
type ReHashFile struct {
	task.Base
	FS              *FileSystem
	InputFile       string
	OutputDirectory string
	URL             string
	Timestamp       time.Time
	Fail            bool
	Sleep           time.Duration
}

func (t *ReHashFile) Name() string {
	return nameable.Build("ReHashFile", nameable.Param{Key: "timestamp", Value: t.Timestamp.Format(time.RFC3339)})
}

func (t *ReHashFile) Requisite() task.Requisite {
	var requisites []requisite.Requisite
	if t.Fail {
		requisites = append(requisites, requisite.FromTasks(&DivideByZero{}))
	}
	for i := 0; i < 5; i++ {
		minute := t.Timestamp.Add(-time.Duration(i) * time.Minute)
		requisites = append(requisites, requisite.FromTasks(&HashFile{
			FS:              t.FS,
			InputFile:       t.InputFile,
			OutputDirectory: t.OutputDirectory,
			URL:             t.URL,
			Salt:            minute.Format(time.RFC3339),
			Sleep:           t.Sleep,
		}))
	}
	return requisite.SatisfyAll{Requisites: requisites}
}

// Welcome just logs a greeting; the prelude module's root task.
// Grounded on __main__.py's Welcome.
type Welcome struct{ task.Base }

func (t *Welcome) Name() string { return nameable.Build("Welcome") }
func (t *Welcome) Phony() bool  { return false }
func (t *Welcome) Execute() error {
	sink.Info("Welcome!")
	return nil
}

// mockScenario fakes a task's side effect, matching the shape of
// __main__.py's nested Mock scenario classes: it does not execute the
// subject, only checks its target (if any) and fails with
// TargetVerificationError when the target is not met, for
// test-projected copies of the demo pipeline.
type mockScenario struct{}

func (mockScenario) Name() string { return "Mock" }
func (mockScenario) Idle() bool   { return false }
func (mockScenario) Run(subject task.Task) error {
	if subject.Target() == nil {
		return nil
	}
	completed, err := subject.Target().Check()
	if err != nil {
		return err
	}
	if !completed {
		return &xerrors.TargetVerificationError{Task: subject.Name()}
	}
	return nil
}
func (mockScenario) Stub(_ task.Task, dependencies []task.Task) (map[string]autotest.Scenario, error) {
	out := make(map[string]autotest.Scenario, len(dependencies))
	for _, dep := range dependencies {
		out[dep.Name()] = autotest.DefaultScenario{}
	}
	return out, nil
}

func readBody(resp *http.Response) ([]string, error) {
	if resp.Body == nil {
		return nil, errors.New("demo: empty response body")
	}
	lines := make([]string, 0, 16)
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	start := 0
	for i, b := range buf {
		if b == '\n' {
			lines = append(lines, string(buf[start:i]))
			start = i + 1
		}
	}
	if start < len(buf) {
		lines = append(lines, string(buf[start:]))
	}
	return lines, nil
}
