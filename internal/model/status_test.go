package model

import "testing"

func TestTaskStatus_String(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		expected string
	}{
		{TaskStatusPending, "Pending"},
		{TaskStatusStarting, "Starting"},
		{TaskStatusDownloading, "Downloading"},
		{TaskStatusMerging, "Merging"},
		{TaskStatusStopping, "Stopping"},
		{TaskStatusStopped, "Stopped"},
		{TaskStatusCompleted, "Completed"},
		{TaskStatusError, "Error"},
	}

	for _, test := range tests {
		if test.status.String() != test.expected {
			t.Errorf("String() = %s, expected %s", test.status.String(), test.expected)
		}
	}
}

func TestTaskStatus_IsActive(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		expected bool
	}{
		{TaskStatusPending, false},
		{TaskStatusStarting, true},
		{TaskStatusDownloading, true},
		{TaskStatusMerging, true},
		{TaskStatusStopping, true},
		{TaskStatusStopped, false},
		{TaskStatusCompleted, false},
		{TaskStatusError, false},
	}

	for _, test := range tests {
		if test.status.IsActive() != test.expected {
			t.Errorf("IsActive() for %s = %v, expected %v", test.status, test.status.IsActive(), test.expected)
		}
	}
}

func TestTaskStatus_IsFinished(t *testing.T) {
	tests := []struct {
		status   TaskStatus
		expected bool
	}{
		{TaskStatusPending, false},
		{TaskStatusStarting, false},
		{TaskStatusDownloading, false},
		{TaskStatusMerging, false},
		{TaskStatusStopping, false},
		{TaskStatusStopped, true},
		{TaskStatusCompleted, true},
		{TaskStatusError, true},
	}

	for _, test := range tests {
		if test.status.IsFinished() != test.expected {
			t.Errorf("IsFinished() for %s = %v, expected %v", test.status, test.status.IsFinished(), test.expected)
		}
	}
}
