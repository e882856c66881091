package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clipbrief/video-insight/internal/media"
	"github.com/clipbrief/video-insight/internal/parser"
	"github.com/clipbrief/video-insight/internal/types"
)

// User-visible stage descriptions.
const (
	detailLoadingEngine = "加载 FFmpeg 核心引擎..."
	detailReadingFile   = "读取视频文件中..."
	detailTranscoding   = "正在转码音频... %d%%"
	detailAnalyzing     = "正在提取音频轨道分析中..."
	detailSubmitting    = "正在将音频提交至 AI 分析..."
	detailDone          = "分析完成"
)

// Each job gets this long end to end before it is abandoned.
const jobTimeout = 30 * time.Minute

// AudioExtractor is the transcoding capability the runner needs.
type AudioExtractor interface {
	Init() error
	Extract(ctx context.Context, sourcePath string, onProgress media.ProgressFunc, onLog media.LogFunc) ([]byte, error)
}

// SummarySubmitter posts extracted audio and returns the model's raw answer.
type SummarySubmitter interface {
	Submit(ctx context.Context, audio []byte) (string, error)
}

// UsageReader reads the vanity usage counter.
type UsageReader interface {
	UsageCount() (int64, error)
}

// ReportSaver archives a finished analysis.
type ReportSaver interface {
	Save(jobID, sourceName string, result *types.AnalysisResult) (string, error)
}

// Runner drives one job through the full pipeline: engine init, audio
// extraction, submission, parsing, archive.
type Runner struct {
	manager   *Manager
	bus       *EventBus
	extractor AudioExtractor
	submitter SummarySubmitter
	usage     UsageReader
	reports   ReportSaver
}

// NewRunner wires the pipeline collaborators together.
func NewRunner(manager *Manager, bus *EventBus, extractor AudioExtractor, submitter SummarySubmitter, usage UsageReader, reports ReportSaver) *Runner {
	return &Runner{
		manager:   manager,
		bus:       bus,
		extractor: extractor,
		submitter: submitter,
		usage:     usage,
		reports:   reports,
	}
}

// Start claims the single job slot and launches the pipeline in the
// background. The uploaded file at sourcePath is removed when the job ends.
func (r *Runner) Start(sourceName, sourcePath string) (string, error) {
	jobID := uuid.New().String()
	if err := r.manager.Start(jobID, sourceName); err != nil {
		return "", err
	}

	logrus.WithFields(logrus.Fields{"job": jobID, "source": sourceName}).Info("Job started")
	go r.run(jobID, sourceName, sourcePath)
	return jobID, nil
}

func (r *Runner) run(jobID, sourceName, sourcePath string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	defer r.removeUpload(sourcePath)

	r.progress(jobID, 5, detailLoadingEngine)
	if err := r.extractor.Init(); err != nil {
		r.fail(jobID, fmt.Sprintf("转码引擎加载失败: %v", err))
		return
	}

	if err := r.transition(jobID, types.StatusExtracting); err != nil {
		return
	}
	r.progress(jobID, types.ProgressPreparingEnd, detailReadingFile)

	audio, err := r.extractor.Extract(ctx, sourcePath,
		func(fraction float64) {
			pct := ScaleToStage(fraction, types.ProgressPreparingEnd, types.ProgressExtractingEnd)
			r.progress(jobID, pct, fmt.Sprintf(detailTranscoding, pct))
		},
		func(string) {
			// Advisory engine output: text only, percentage untouched.
			r.manager.SetDetail(detailAnalyzing)
			r.bus.Publish(Event{JobID: jobID, Type: EventLog, Detail: detailAnalyzing})
		},
	)
	if err != nil {
		r.fail(jobID, fmt.Sprintf("音频提取失败: %v", err))
		return
	}

	if err := r.transition(jobID, types.StatusSubmitting); err != nil {
		return
	}
	r.progress(jobID, types.ProgressExtractingEnd, detailSubmitting)

	text, err := r.submitter.Submit(ctx, audio)
	if err != nil {
		r.fail(jobID, err.Error())
		return
	}
	r.progress(jobID, types.ProgressSubmittingEnd, detailSubmitting)

	parsed := parser.Parse(text)
	result := &types.AnalysisResult{
		RawText:     text,
		SummaryText: parsed.SummaryText,
		SummaryHTML: parsed.SummaryHTML,
		Titles:      parsed.Titles,
		ProcessedAt: time.Now(),
	}
	if len(parsed.Titles) == 0 {
		result.TitlesHint = parser.FallbackHint
	}

	// Vanity metric refresh is best-effort; the analysis outranks it.
	if count, err := r.usage.UsageCount(); err == nil {
		result.UsageCount = count
	} else {
		logrus.Warnf("Usage count refresh failed: %v", err)
	}

	if r.reports != nil {
		if path, err := r.reports.Save(jobID, sourceName, result); err != nil {
			logrus.Warnf("Report archive failed for job %s: %v", jobID, err)
		} else {
			logrus.WithFields(logrus.Fields{"job": jobID, "path": path}).Info("Report archived")
		}
	}

	if err := r.manager.Complete(result); err != nil {
		logrus.Errorf("Complete job %s: %v", jobID, err)
		return
	}
	r.bus.Publish(Event{JobID: jobID, Type: EventStatus, Status: types.StatusCompleted, Percent: types.ProgressDone})
	r.bus.Publish(Event{JobID: jobID, Type: EventResult, Percent: types.ProgressDone, Detail: detailDone})
	logrus.WithField("job", jobID).Info("Job completed")
}

// progress clamps the percentage through the manager and publishes the
// displayed value, keeping the stream monotonic within the job.
func (r *Runner) progress(jobID string, percent int, detail string) {
	shown := r.manager.SetProgress(percent, detail)
	r.bus.Publish(Event{JobID: jobID, Type: EventProgress, Percent: shown, Detail: detail})
}

func (r *Runner) transition(jobID, status string) error {
	if err := r.manager.Transition(status); err != nil {
		logrus.Errorf("Job %s: %v", jobID, err)
		r.fail(jobID, err.Error())
		return err
	}
	r.bus.Publish(Event{JobID: jobID, Type: EventStatus, Status: status})
	return nil
}

func (r *Runner) fail(jobID, message string) {
	r.manager.Fail(message)
	r.bus.Publish(Event{JobID: jobID, Type: EventError, Status: types.StatusFailed, Detail: message})
	logrus.WithField("job", jobID).Errorf("Job failed: %s", message)
}

func (r *Runner) removeUpload(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Failed to remove upload %s: %v", path, err)
	}
}
