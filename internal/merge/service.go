package merge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ytget/tubemux/internal/model"
)

// FFmpeg invocation constants
const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"

	FFmpegLogLevel      = "error"
	CodecCopy           = "copy"
	ProgressPipeTarget  = "pipe:1"
	ProgressFramePrefix = "frame="

	FFprobeLogLevel     = "error"
	FFprobeVideoStream  = "v:0"
	FFprobeShowEntries  = "stream=nb_read_packets"
	FFprobeOutputFormat = "json"

	MaxProgressPercent = 100
)

// MergeError is returned when the external muxing tool is missing or exits
// non-zero, or when the frame-count probe fails.
type MergeError struct {
	Job model.MergeJob
	Err error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("merge into %q: %v", e.Job.OutputPath, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// Service muxes separately downloaded video and audio files with ffmpeg.
type Service struct {
	ffmpegPath  string
	ffprobePath string
}

// NewService creates a new merge service using ffmpeg/ffprobe from PATH.
func NewService() *Service {
	return &Service{
		ffmpegPath:  FFmpegCommand,
		ffprobePath: FFprobeCommand,
	}
}

// Available reports whether ffmpeg and ffprobe can be found on PATH.
func (s *Service) Available() error {
	if _, err := exec.LookPath(s.ffmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if _, err := exec.LookPath(s.ffprobePath); err != nil {
		return fmt.Errorf("ffprobe not found: %w", err)
	}
	return nil
}

// Merge combines a video-only and an audio-only file into one mp4 container.
// Codec streams are copied, not re-encoded, so the merge is fast and
// lossless. Progress is derived from ffmpeg's frame counter against the
// packet count probed from the video file.
func (s *Service) Merge(ctx context.Context, job model.MergeJob, onProgress func(percent int)) error {
	if err := s.Available(); err != nil {
		return &MergeError{Job: job, Err: err}
	}

	totalFrames, err := s.probePacketCount(ctx, job.VideoPath)
	if err != nil {
		return &MergeError{Job: job, Err: err}
	}

	args := BuildMuxArgs(job)
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &MergeError{Job: job, Err: fmt.Errorf("failed to create stdout pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		return &MergeError{Job: job, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}

	zap.S().Debugf("Merging %s + %s -> %s (%d frames)", job.VideoPath, job.AudioPath, job.OutputPath, totalFrames)

	monitorMuxProgress(stdout, totalFrames, onProgress)

	if err := cmd.Wait(); err != nil {
		// Remove partial output file
		os.Remove(job.OutputPath)
		if ctx.Err() != nil {
			return &MergeError{Job: job, Err: ctx.Err()}
		}
		return &MergeError{Job: job, Err: fmt.Errorf("ffmpeg exited: %w", err)}
	}

	if onProgress != nil {
		onProgress(MaxProgressPercent)
	}
	return nil
}

// BuildMuxArgs builds the ffmpeg command arguments for a merge job.
func BuildMuxArgs(job model.MergeJob) []string {
	return []string{
		"-y", // Overwrite output file
		"-loglevel", FFmpegLogLevel,
		"-i", job.VideoPath, // Video input
		"-i", job.AudioPath, // Audio input
		"-codec:v", CodecCopy, // Copy video stream
		"-codec:a", CodecCopy, // Copy audio stream
		"-progress", ProgressPipeTarget,
		job.OutputPath,
	}
}

// ffprobeOutput models the JSON shape of `ffprobe -show_entries
// stream=nb_read_packets -of json`. ffprobe emits counters as strings.
type ffprobeOutput struct {
	Streams []struct {
		PacketCount string `json:"nb_read_packets"`
	} `json:"streams"`
}

// probePacketCount counts video packets with ffprobe. Counting packets
// instead of decoding frames is much faster and close enough for progress.
func (s *Service) probePacketCount(ctx context.Context, videoPath string) (int64, error) {
	cmd := exec.CommandContext(ctx, s.ffprobePath,
		"-v", FFprobeLogLevel,
		"-select_streams", FFprobeVideoStream,
		"-count_packets",
		"-show_entries", FFprobeShowEntries,
		"-of", FFprobeOutputFormat,
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to run ffprobe: %w", err)
	}
	return ParsePacketCount(output)
}

// ParsePacketCount extracts the packet count from ffprobe JSON output.
func ParsePacketCount(data []byte) (int64, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return 0, fmt.Errorf("ffprobe reported no video streams")
	}
	count, err := strconv.ParseInt(parsed.Streams[0].PacketCount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse packet count: %w", err)
	}
	return count, nil
}

// monitorMuxProgress reads ffmpeg `-progress pipe:1` output and reports the
// muxed-frame percentage against the probed total.
func monitorMuxProgress(stdout io.ReadCloser, totalFrames int64, onProgress func(percent int)) {
	defer stdout.Close()
	scanner := bufio.NewScanner(stdout)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ProgressFramePrefix) {
			continue
		}

		frame, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressFramePrefix), 10, 64)
		if err != nil {
			continue
		}

		if totalFrames > 0 && onProgress != nil {
			percent := int(frame * MaxProgressPercent / totalFrames)
			if percent > MaxProgressPercent {
				percent = MaxProgressPercent
			}
			onProgress(percent)
		}
	}
}
