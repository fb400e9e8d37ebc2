package merge

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ytget/tubemux/internal/model"
)

func TestBuildMuxArgs(t *testing.T) {
	job := model.MergeJob{
		VideoPath:  "/tmp/work/video.mp4",
		AudioPath:  "/tmp/work/audio.mp4",
		OutputPath: "/downloads/clip.mp4",
	}

	expected := []string{
		"-y",
		"-loglevel", "error",
		"-i", "/tmp/work/video.mp4",
		"-i", "/tmp/work/audio.mp4",
		"-codec:v", "copy",
		"-codec:a", "copy",
		"-progress", "pipe:1",
		"/downloads/clip.mp4",
	}

	args := BuildMuxArgs(job)
	if !reflect.DeepEqual(args, expected) {
		t.Errorf("BuildMuxArgs() = %v, expected %v", args, expected)
	}
}

func TestParsePacketCount(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  int64
		expectErr bool
	}{
		{
			name:     "valid output",
			input:    `{"streams":[{"nb_read_packets":"7140"}]}`,
			expected: 7140,
		},
		{
			name:     "extra fields ignored",
			input:    `{"program_version":{},"streams":[{"nb_read_packets":"1"}]}`,
			expected: 1,
		},
		{
			name:      "no streams",
			input:     `{"streams":[]}`,
			expectErr: true,
		},
		{
			name:      "count missing",
			input:     `{"streams":[{}]}`,
			expectErr: true,
		},
		{
			name:      "count not a number",
			input:     `{"streams":[{"nb_read_packets":"N/A"}]}`,
			expectErr: true,
		},
		{
			name:      "not json",
			input:     `ffprobe blew up`,
			expectErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			count, err := ParsePacketCount([]byte(test.input))
			if test.expectErr {
				if err == nil {
					t.Errorf("expected error, got count %d", count)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if count != test.expected {
				t.Errorf("ParsePacketCount() = %d, expected %d", count, test.expected)
			}
		})
	}
}

func TestMonitorMuxProgress(t *testing.T) {
	output := strings.Join([]string{
		"bitrate=1500.0kbits/s",
		"frame=250",
		"fps=0.0",
		"frame=500",
		"frame=not-a-number",
		"frame=1500", // beyond the probed total, must clamp
		"progress=end",
	}, "\n")

	var percents []int
	monitorMuxProgress(io.NopCloser(strings.NewReader(output)), 1000, func(percent int) {
		percents = append(percents, percent)
	})

	expected := []int{25, 50, 100}
	if !reflect.DeepEqual(percents, expected) {
		t.Errorf("progress percents = %v, expected %v", percents, expected)
	}
}

func TestMonitorMuxProgress_ZeroTotal(t *testing.T) {
	output := "frame=100\nframe=200\n"

	called := false
	monitorMuxProgress(io.NopCloser(strings.NewReader(output)), 0, func(percent int) {
		called = true
	})

	if called {
		t.Error("expected no progress callbacks when total frame count is unknown")
	}
}

func TestAvailable_MissingTools(t *testing.T) {
	service := &Service{
		ffmpegPath:  "tubemux-test-no-such-ffmpeg",
		ffprobePath: "tubemux-test-no-such-ffprobe",
	}

	if err := service.Available(); err == nil {
		t.Error("expected error when ffmpeg is missing from PATH")
	}
}

func TestMerge_MissingTools(t *testing.T) {
	service := &Service{
		ffmpegPath:  "tubemux-test-no-such-ffmpeg",
		ffprobePath: "tubemux-test-no-such-ffprobe",
	}

	outputPath := filepath.Join(t.TempDir(), "out.mp4")
	job := model.MergeJob{
		VideoPath:  "video.mp4",
		AudioPath:  "audio.mp4",
		OutputPath: outputPath,
	}

	err := service.Merge(context.Background(), job, nil)
	if err == nil {
		t.Fatal("expected error when muxing tools are missing")
	}

	var mergeErr *MergeError
	if !errors.As(err, &mergeErr) {
		t.Errorf("expected *MergeError, got %T", err)
	}
	if mergeErr.Job.OutputPath != outputPath {
		t.Errorf("MergeError.Job.OutputPath = %s, expected %s", mergeErr.Job.OutputPath, outputPath)
	}

	if _, statErr := os.Stat(outputPath); !os.IsNotExist(statErr) {
		t.Error("expected no output file to be created")
	}
}

func TestMergeError_Unwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &MergeError{Job: model.MergeJob{OutputPath: "/tmp/out.mp4"}, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
	if !strings.Contains(err.Error(), "/tmp/out.mp4") {
		t.Errorf("error message %q should mention the output path", err.Error())
	}
}
