package logger

import (
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		wantErr    bool
	}{
		{
			name:       "JSON output mode",
			jsonOutput: true,
			wantErr:    false,
		},
		{
			name:       "Console output mode",
			jsonOutput: false,
			wantErr:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Set(nil)
			defer Set(nil)

			err := Initialize(tt.jsonOutput)
			if (err != nil) != tt.wantErr {
				t.Errorf("Initialize() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if Get() == nil {
				t.Fatal("Initialize() left the logger nil")
			}
			if JSONOutput() != tt.jsonOutput {
				t.Errorf("JSONOutput() = %v, want %v", JSONOutput(), tt.jsonOutput)
			}
		})
	}
}

func TestSetNilInstallsNop(t *testing.T) {
	Set(nil)
	if Get() == nil || Named("engine") == nil {
		t.Fatal("Set(nil) left no usable logger")
	}
}

func TestNamedUsesCurrentLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core).Sugar())
	defer Set(nil)

	Named("engine").Infow("hello")

	entries := logs.All()
	if len(entries) != 1 || entries[0].LoggerName != "engine" {
		t.Errorf("entries = %+v, want one entry from logger \"engine\"", entries)
	}
}

// Run with -race: Initialize may happen while other goroutines log.
func TestConcurrentInitializeAndNamed(t *testing.T) {
	defer Set(nil)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := Initialize(i%2 == 0); err != nil {
				t.Errorf("Initialize() error = %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			Named("engine").Debugw("concurrent")
		}()
	}
	wg.Wait()
}
