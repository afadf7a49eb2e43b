package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		exitErr   bool
		errMsg    string
		stdout    string
		wantKind  Kind
		wantTotal string
	}{
		{
			name:      "passing suite",
			stdout:    "Chrome Headless: Executed 5 of 5 SUCCESS (0.2 secs)\nTOTAL: 5 SUCCESS\n",
			wantKind:  KindSuccess,
			wantTotal: "5 SUCCESS",
		},
		{
			name:     "no inputs marker",
			exitErr:  true,
			errMsg:   "Command failed: ng test lib\nError: No inputs were found in config file 'projects/lib/tsconfig.spec.json'.",
			wantKind: KindNoTests,
		},
		{
			name:     "no inputs marker is case insensitive",
			exitErr:  true,
			errMsg:   "error: no inputs were found",
			wantKind: KindNoTests,
		},
		{
			name:     "zero executed with error exit",
			exitErr:  true,
			stdout:   "Chrome Headless: Executed 0 of 0 ERROR (0.001 secs / 0 secs)\n",
			wantKind: KindNoTests,
		},
		{
			name:     "zero success total",
			exitErr:  true,
			stdout:   "TOTAL: 0 SUCCESS\n",
			wantKind: KindNoTests,
		},
		{
			name:     "zero executed but failed marker present",
			exitErr:  true,
			stdout:   "Executed 0 of 0\nTOTAL: 2 FAILED, 0 SUCCESS\n",
			wantKind: KindFailure,
		},
		{
			name:     "failed total",
			exitErr:  true,
			errMsg:   "Command failed",
			stdout:   "Executed 3 of 3 (3 FAILED)\nTOTAL: 3 FAILED, 0 SUCCESS\n",
			wantKind: KindFailure,
		},
		{
			name:     "server error",
			exitErr:  true,
			stdout:   "ERROR [karma-server]: Error: listen EADDRINUSE: address already in use :::9876\n",
			wantKind: KindFailure,
		},
		{
			name:      "error exit without failure markers counts as success",
			exitErr:   true,
			errMsg:    "Command failed: ng test app",
			stdout:    "TOTAL: 7 SUCCESS\n",
			wantKind:  KindSuccess,
			wantTotal: "7 SUCCESS",
		},
		{
			name:      "clean exit with failed marker is still success",
			stdout:    "TOTAL: 3 FAILED\n",
			wantKind:  KindSuccess,
			wantTotal: "3 FAILED",
		},
		{
			name:     "no total marker",
			stdout:   "compiled ok\n",
			wantKind: KindSuccess,
		},
		{
			name:      "ansi colored output",
			exitErr:   true,
			stdout:    "\x1b[31mTOTAL: 1 FAILED\x1b[39m, 4 SUCCESS\n",
			wantKind:  KindFailure,
			wantTotal: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.exitErr, tt.errMsg, tt.stdout)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantTotal, got.Total)
		})
	}
}

func TestClassifyFailureCarriesDiagnostics(t *testing.T) {
	got := Classify(true, "Command failed: ng test c", "TOTAL: 3 FAILED\n")
	assert.Equal(t, KindFailure, got.Kind)
	assert.Equal(t, "TOTAL: 3 FAILED\nCommand failed: ng test c", got.Message)
}

func TestClassifyExtractsPort(t *testing.T) {
	got := Classify(false, "", "Server listening at http://localhost:4321/\nTOTAL: 2 SUCCESS\n")
	assert.Equal(t, KindSuccess, got.Kind)
	assert.Equal(t, 4321, got.Port)

	got = Classify(true, "", "TOTAL: 2 FAILED\nhttp://localhost:4321/")
	assert.Zero(t, got.Port, "failures do not report ports")
}

func TestParseTotal(t *testing.T) {
	assert.Equal(t, "", ParseTotal("nothing here"))
	assert.Equal(t, "5", ParseTotal("TOTAL: 5"))
	assert.Equal(t, "9 SUCCESS", ParseTotal("TOTAL: 1 SUCCESS\nmore\nTOTAL: 9 SUCCESS\r\n"))
}

func TestExtractPort(t *testing.T) {
	tests := []struct {
		stdout string
		want   int
	}{
		{"http://localhost:4321", 4321},
		{"listening on 127.0.0.1:9876 and localhost:1234", 9876},
		{"bound 0.0.0.0:8080", 8080},
		{"http://example.com:8080", 0},
		{"localhost:99999", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.stdout, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPort(tt.stdout))
		})
	}
}
