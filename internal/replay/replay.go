package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"helmet-safety-go/internal/engine"
	"helmet-safety-go/internal/inference"
	"helmet-safety-go/pkg/models"

	"github.com/sirupsen/logrus"
)

const maxLineSize = 4 << 20

// Options параметры воспроизведения
type Options struct {
	// Every анализировать каждый N-й кадр, 1 - все кадры
	Every int
}

// Summary итог воспроизведения
type Summary struct {
	FramesRead      int               `json:"frames_read"`
	FramesAnalyzed  int               `json:"frames_analyzed"`
	ViolationFrames int               `json:"violation_frames"`
	Statistics      models.Statistics `json:"statistics"`
}

type inputLine struct {
	number int
	text   string
}

// Run читает кадры в формате JSON lines и прогоняет их через движок.
// Кадр без номера получает свой порядковый номер среди прочитанных кадров,
// пустые строки кадрами не считаются. Отмена ctx прерывает и ожидание
// следующей строки.
func Run(ctx context.Context, r io.Reader, eng *engine.DecisionEngine, opts Options, logger logrus.FieldLogger) (*Summary, error) {
	if opts.Every < 1 {
		opts.Every = 1
	}

	summary := &Summary{}
	lines, readErr := readLines(ctx, r)

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var line inputLine
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		case next, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return summary, err
				}
				summary.Statistics = eng.Statistics()
				return summary, nil
			}
			line = next
		}

		text := strings.TrimSpace(line.text)
		if text == "" {
			continue
		}

		var frame inference.Frame
		if err := json.Unmarshal([]byte(text), &frame); err != nil {
			return summary, fmt.Errorf("line %d: failed to parse frame: %w", line.number, err)
		}
		summary.FramesRead++

		number := summary.FramesRead
		if frame.Frame != nil {
			number = *frame.Frame
		}
		if summary.FramesRead%opts.Every != 0 {
			continue
		}

		detections, err := frame.Resolve()
		if err != nil {
			return summary, fmt.Errorf("line %d: %w", line.number, err)
		}

		report := eng.Analyze(detections, number)
		summary.FramesAnalyzed++
		if report.SafetyStatus == models.StatusViolation {
			summary.ViolationFrames++
		}

		logger.WithFields(logrus.Fields{
			"frame":             report.Frame,
			"people":            report.People,
			"helmets":           report.Helmets,
			"safety_percentage": fmt.Sprintf("%.0f%%", report.SafetyPercentage),
			"color":             engine.AlertColor(report),
		}).Info(engine.AlertMessage(report))
	}
}

// readLines читает r в отдельной горутине. Блокирующее чтение не прерывается,
// поэтому при отмене горутина живет до следующей строки или EOF.
func readLines(ctx context.Context, r io.Reader) (<-chan inputLine, <-chan error) {
	lines := make(chan inputLine)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)

		number := 0
		for scanner.Scan() {
			number++
			select {
			case lines <- inputLine{number: number, text: scanner.Text()}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- fmt.Errorf("failed to read frames: %w", err)
			return
		}
		errc <- nil
	}()

	return lines, errc
}
