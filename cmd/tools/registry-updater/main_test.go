package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-service/pkg/registry"
)

func TestAddUpdateValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "activity-registry.json")
	var out bytes.Buffer

	err := run("add", []string{
		"-path", path,
		"-id", "remind-pending-members",
		"-displayName", "Remind Pending Members",
		"-description", "Nudges members who have not replied",
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Added activity: remind-pending-members")

	err = run("add", []string{"-path", path, "-id", "remind-pending-members", "-displayName", "x", "-description", "y"}, &out)
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, run("update", []string{"-path", path, "-id", "remind-pending-members", "-field", "status", "-value", "completed"}, &out))
	require.NoError(t, run("update", []string{"-path", path, "-id", "remind-pending-members", "-field", "retries", "-value", "5"}, &out))

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	activity, ok := reg.Find("remind-pending-members")
	require.True(t, ok)
	assert.Equal(t, registry.StatusCompleted, activity.ImplementationStatus)
	assert.Equal(t, 5, activity.Retries)
	assert.NotEmpty(t, reg.LastUpdated)

	out.Reset()
	require.NoError(t, run("validate", []string{"-path", path}, &out))
	assert.Contains(t, out.String(), "Found 1 activities")
}

func TestUpdate_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	var out bytes.Buffer
	require.NoError(t, run("add", []string{"-path", path, "-id", "a", "-displayName", "A", "-description", "d"}, &out))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown activity", []string{"-id", "b", "-field", "status", "-value", "completed"}, "not found"},
		{"unknown field", []string{"-id", "a", "-field", "owner", "-value", "me"}, "unknown field"},
		{"bad retries", []string{"-id", "a", "-field", "retries", "-value", "many"}, "invalid retries"},
		{"bad status", []string{"-id", "a", "-field", "status", "-value", "finished"}, "unknown status"},
		{"bad timeout", []string{"-id", "a", "-field", "timeout", "-value", "soon"}, "invalid timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run("update", append([]string{"-path", path}, tt.args...), &out)
			assert.ErrorContains(t, err, tt.wantErr)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestCheck_ShippedRegistry(t *testing.T) {
	path := filepath.Join("..", "..", "..", "configs", "activity-registry.json")
	var out bytes.Buffer

	require.NoError(t, run("check", []string{"-path", path, "-taskType", "get-request-replies", "-vars", `{"requestId": 42}`}, &out))
	assert.Contains(t, out.String(), "get-request-replies")

	err := run("check", []string{"-path", path, "-taskType", "get-request-replies", "-vars", `{"requestId": "42"}`}, &out)
	assert.ErrorContains(t, err, "variables rejected")

	err = run("check", []string{"-path", path, "-taskType", "unknown", "-vars", `{}`}, &out)
	assert.ErrorContains(t, err, "not registered")
}

func TestValidate_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity-registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": "1.0.0", "activities": []}`), 0644))

	err := run("validate", []string{"-path", path}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "no activities")
}
