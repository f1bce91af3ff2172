package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_Statuses(t *testing.T) {
	ok := func(context.Context) error { return nil }
	boom := func(context.Context) error { return errors.New("boom") }

	tests := []struct {
		name      string
		deps      Deps
		want      string
		component string
		compState string
	}{
		{"all ok", Deps{DirectoryCheck: ok, CacheCheck: ok}, "ready", "cache", "ok"},
		{"cache down", Deps{DirectoryCheck: ok, CacheCheck: boom}, "degraded", "cache", "error"},
		{"directory down", Deps{DirectoryCheck: boom, CacheCheck: ok}, "unavailable", "directory", "error"},
		{"no directory", Deps{}, "unavailable", "cache", "disabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewHealthService(tt.deps).Check(context.Background())
			assert.Equal(t, tt.want, res.Status)
			assert.Equal(t, tt.compState, res.Components[tt.component].Status)
		})
	}
}

func TestCheck_ReportsSessions(t *testing.T) {
	res := NewHealthService(Deps{
		Version:        "1.2.3",
		DirectoryCheck: func(context.Context) error { return nil },
		ActiveSessions: func() int { return 7 },
	}).Check(context.Background())
	assert.Equal(t, "1.2.3", res.Version)
	assert.Equal(t, 7, res.ActiveSessions)
}
