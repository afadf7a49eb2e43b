package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/codebeauty/paratest/internal/controller"
	"github.com/codebeauty/paratest/internal/ledger"
)

const StatusUnfinished = "unfinished"

type Manifest struct {
	Version     int              `json:"version"`
	RunID       string           `json:"runId"`
	Workspace   string           `json:"workspace"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt time.Time        `json:"completedAt"`
	Duration    string           `json:"duration"`
	Platform    string           `json:"platform"`
	State       string           `json:"state"`
	AbortReason string           `json:"abortReason,omitempty"`
	ExitCode    int              `json:"exitCode"`
	Config      ManifestConfig   `json:"config"`
	Summary     ledger.Summary   `json:"summary"`
	Results     []ManifestResult `json:"results"`
}

type ManifestConfig struct {
	Concurrency       int    `json:"concurrency"`
	ContinueOnFailure bool   `json:"continueOnFailure"`
	Timeout           int    `json:"timeout"`
	Command           string `json:"command"`
}

type ManifestResult struct {
	Project  string `json:"project"`
	Status   string `json:"status"`
	Total    string `json:"total,omitempty"`
	Port     int    `json:"port,omitempty"`
	Duration string `json:"duration,omitempty"`
	ExitCode int    `json:"exitCode"`
	LogFile  string `json:"logFile,omitempty"`
}

func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "run.json"))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing run.json: %w", err)
	}
	return &m, nil
}

func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return AtomicWrite(filepath.Join(dir, "run.json"), data, 0o600)
}

// BuildManifest flattens a run report into the persisted form. Results follow
// the input project order; projects without a recorded outcome are reported
// as unfinished even if their process was reaped after an abort.
func BuildManifest(runID, workspace string, report *controller.Report, cfg ManifestConfig) *Manifest {
	status := statusByProject(report.Summary)

	results := make([]ManifestResult, len(report.Results))
	for i, r := range report.Results {
		mr := ManifestResult{
			Project: r.Project,
			Status:  status[r.Project],
		}
		if mr.Status != StatusUnfinished {
			mr.Total = r.Outcome.Total
			mr.Port = r.Outcome.Port
			mr.ExitCode = r.ExitCode
			mr.Duration = r.Duration.Round(time.Millisecond).String()
		}
		if r.Admitted {
			mr.LogFile = LogFileName(r.Project)
		}
		results[i] = mr
	}

	return &Manifest{
		Version:     1,
		RunID:       runID,
		Workspace:   workspace,
		StartedAt:   report.StartedAt,
		CompletedAt: report.CompletedAt,
		Duration:    report.CompletedAt.Sub(report.StartedAt).Round(time.Millisecond).String(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		State:       string(report.State),
		AbortReason: report.AbortReason,
		ExitCode:    report.ExitCode(),
		Config:      cfg,
		Summary:     report.Summary,
		Results:     results,
	}
}

func statusByProject(s ledger.Summary) map[string]string {
	status := make(map[string]string)
	for _, p := range s.NoTests {
		status[p] = "no-tests"
	}
	for _, p := range s.Succeeded {
		status[p] = "success"
	}
	for _, p := range s.Failed {
		status[p] = "failure"
	}
	for _, p := range s.Unfinished {
		status[p] = StatusUnfinished
	}
	return status
}
