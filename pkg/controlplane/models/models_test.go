package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"validation", NewValidationError("port", "must be between 1 and 65535"), ErrValidation},
		{"wrapped validation", fmt.Errorf("apply: %w", NewValidationError("", "bad")), ErrValidation},
		{"config invalid", &ConfigInvalidError{Details: "line 3: unknown key"}, ErrConfigInvalid},
		{"operation", &OperationError{Operation: "restart", Err: errors.New("exit 1")}, ErrOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.target)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := errors.New("container exited")
	err := &OperationError{Operation: "start", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("OperationError should unwrap to its cause")
	}
	if got, want := err.Error(), "start failed: container exited"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestConfigInvalidError_Message(t *testing.T) {
	if got := (&ConfigInvalidError{}).Error(); got != ErrConfigInvalid.Error() {
		t.Errorf("empty details: Error() = %q", got)
	}
	if got := (&ConfigInvalidError{Details: "boom"}).Error(); got != "core configuration is invalid: boom" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCoreOptions_Clone(t *testing.T) {
	image := "ghcr.io/acme/core"
	opts := DefaultCoreOptions()
	opts.Image = &image

	clone := opts.Clone()
	*clone.Image = "changed"

	if *opts.Image != "ghcr.io/acme/core" {
		t.Errorf("Clone shares the Image pointer: got %q", *opts.Image)
	}
	if clone.Port != DefaultCorePort {
		t.Errorf("Clone Port = %d, want %d", clone.Port, DefaultCorePort)
	}
}

func TestServiceData_Payload(t *testing.T) {
	var d ServiceData

	got, err := d.ParsePayload()
	if err != nil || len(got) != 0 {
		t.Fatalf("empty payload: got %v, %v", got, err)
	}

	if err := d.SetPayload(map[string]any{"host": "core-mosquitto", "port": 1883}); err != nil {
		t.Fatalf("SetPayload: %v", err)
	}
	got, err = d.ParsePayload()
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if got["host"] != "core-mosquitto" {
		t.Errorf("host = %v", got["host"])
	}
	if got["port"] != float64(1883) {
		t.Errorf("port = %v (%T)", got["port"], got["port"])
	}
}

func TestJob_Duration(t *testing.T) {
	start := time.Now().Add(-2 * time.Second)
	end := start.Add(time.Second)

	running := Job{Status: JobRunning, StartedAt: start}
	if running.Done() {
		t.Error("running job reported done")
	}
	if running.Duration() < 2*time.Second {
		t.Errorf("running Duration() = %v", running.Duration())
	}

	finished := Job{Status: JobSucceeded, StartedAt: start, FinishedAt: &end}
	if !finished.Done() || finished.Duration() != time.Second {
		t.Errorf("finished job: done=%v duration=%v", finished.Done(), finished.Duration())
	}
}
