package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fixed names inside a job workspace. The workspace is the engine's private
// scratch space; both files are removed before Extract returns.
const (
	inputName  = "input_video"
	outputName = "output.mp3"
)

// ProgressFunc receives transcode progress as a fraction in [0,1]. Numeric
// progress is authoritative for the displayed percentage.
type ProgressFunc func(fraction float64)

// LogFunc receives coarse engine log lines. Advisory only: log lines update
// description text, never the percentage.
type LogFunc func(line string)

// Extractor wraps the external ffmpeg engine. The binary probe runs once per
// process; every job gets its own workspace directory.
type Extractor struct {
	workDir     string
	ffmpegPath  string
	ffprobePath string

	initOnce sync.Once
	initErr  error
}

// NewExtractor creates an extractor whose job workspaces live under workDir.
func NewExtractor(workDir string) *Extractor {
	return &Extractor{
		workDir:     workDir,
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
	}
}

// Init probes for the engine binaries. Runs at most once; later calls return
// the first result without re-probing.
func (e *Extractor) Init() error {
	e.initOnce.Do(func() {
		for _, bin := range []string{e.ffmpegPath, e.ffprobePath} {
			if _, err := exec.LookPath(bin); err != nil {
				e.initErr = fmt.Errorf("engine unavailable: %w", err)
				return
			}
		}
		if err := os.MkdirAll(e.workDir, 0755); err != nil {
			e.initErr = fmt.Errorf("engine workspace: %w", err)
		}
	})
	return e.initErr
}

// Extract re-encodes the audio track of sourcePath into a narrow-bandwidth
// mono mp3 and returns its bytes. The whole workspace is removed on every
// path out, so repeated jobs never accumulate files.
func (e *Extractor) Extract(ctx context.Context, sourcePath string, onProgress ProgressFunc, onLog LogFunc) ([]byte, error) {
	if err := e.Init(); err != nil {
		return nil, err
	}

	jobDir, err := os.MkdirTemp(e.workDir, "job-*")
	if err != nil {
		return nil, fmt.Errorf("create job workspace: %w", err)
	}
	defer os.RemoveAll(jobDir)

	inputPath := filepath.Join(jobDir, inputName)
	if err := copyFile(sourcePath, inputPath); err != nil {
		return nil, fmt.Errorf("stage input: %w", err)
	}
	outputPath := filepath.Join(jobDir, outputName)

	// Total duration lets the progress stream be rescaled to a fraction.
	// A probe failure is not fatal; progress just stays coarse.
	duration, err := e.probeDuration(ctx, inputPath)
	if err != nil {
		logrus.Warnf("Duration probe failed, progress will be coarse: %v", err)
	}

	// Force a re-encode: no stream copy, low bitrate, 16 kHz mono. Small
	// upload, good enough for speech analysis.
	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "9",
		"-ar", "16000",
		"-ac", "1",
		"-progress", "pipe:1",
		"-y",
		outputPath,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	var stderrTail bytes.Buffer
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		readProgress(stdout, duration, onProgress)
	}()
	go func() {
		defer wg.Done()
		readEngineLog(stderr, &stderrTail, onLog)
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, stderrTail.String())
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read output audio: %w", err)
	}
	if onProgress != nil {
		onProgress(1.0)
	}
	return data, nil
}

// probeDuration asks ffprobe for the container duration in seconds.
func (e *Extractor) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return duration, nil
}

// readProgress parses ffmpeg's -progress key=value stream and emits
// fractions in [0,1].
func readProgress(r io.Reader, totalSeconds float64, onProgress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			if totalSeconds <= 0 || onProgress == nil {
				continue
			}
			us, err := strconv.ParseFloat(value, 64)
			if err != nil {
				continue
			}
			onProgress(clampFraction(us / 1e6 / totalSeconds))
		case "progress":
			if value == "end" && onProgress != nil {
				onProgress(1.0)
			}
		}
	}
}

// readEngineLog forwards frame-count lines as coarse status updates and
// keeps a bounded tail for error reporting.
func readEngineLog(r io.Reader, tail *bytes.Buffer, onLog LogFunc) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if tail.Len() < 8192 {
			tail.WriteString(line)
			tail.WriteByte('\n')
		}
		if onLog != nil && strings.Contains(line, "frame=") {
			onLog(line)
		}
	}
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// ValidateVideoFormat checks if the file extension is a supported container
func ValidateVideoFormat(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	supportedFormats := []string{".mp4", ".mov", ".mkv", ".avi", ".webm", ".m4v", ".flv", ".wmv", ".ts"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
