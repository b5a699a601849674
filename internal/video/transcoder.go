package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// MediaInfo is what ffprobe reports about a source file.
type MediaInfo struct {
	DurationSecs float64
	Width        int
	Height       int
}

// Transcoder turns a raw upload into web-ready output.
type Transcoder interface {
	Probe(ctx context.Context, src string) (*MediaInfo, error)
	Transcode(ctx context.Context, src, dst string) error
	Thumbnail(ctx context.Context, src, dst string, atSecs float64) error
}

// FFmpeg implements Transcoder by shelling out to ffmpeg/ffprobe.
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates an ffmpeg-backed transcoder.
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads duration and dimensions from the source file.
func (f *FFmpeg) Probe(ctx context.Context, src string) (*MediaInfo, error) {
	cmd := exec.CommandContext(ctx, f.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w: %s", src, err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.DurationSecs = d
	}
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("%s has no video stream", src)
	}
	return info, nil
}

// Transcode produces a faststart H.264 MP4 capped at 1080p.
func (f *FFmpeg) Transcode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y",
		"-i", src,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-vf", "scale='min(1920,iw)':-2",
		"-c:a", "aac",
		"-b:a", "128k",
		"-movflags", "+faststart",
		dst)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg transcode %s: %w: %s", src, err, tail(stderr.String(), 500))
	}
	return nil
}

// Thumbnail grabs a single frame as JPEG.
func (f *FFmpeg) Thumbnail(ctx context.Context, src, dst string, atSecs float64) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath,
		"-y",
		"-ss", strconv.FormatFloat(atSecs, 'f', 2, 64),
		"-i", src,
		"-frames:v", "1",
		"-vf", "scale=640:-2",
		dst)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail %s: %w: %s", src, err, tail(stderr.String(), 500))
	}
	return nil
}

// tail keeps the last n bytes of ffmpeg's chatter, which is where the error is.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
