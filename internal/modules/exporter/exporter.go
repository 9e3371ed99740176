// Package exporter writes run artifacts for review workflows, as CSV files
// on disk and optionally as objects in an S3 bucket.
package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	appconfig "github.com/content-machine/core/internal/config"
	"github.com/content-machine/core/internal/modules/pipeline"
)

const masterFileName = "all_runs.csv"

var header = []string{
	"run_id", "persona", "text", "thread_part_index", "thread_total",
	"is_thread", "angle", "hook", "cta", "quality_score",
	"source_topic", "source_url", "content_type", "status", "created_at",
}

type objectUploader interface {
	Upload(ctx context.Context, key string, payload []byte, contentType string) error
}

// Service renders draft rows and fans them out to the configured sinks.
type Service struct {
	cfg      appconfig.ExportConfig
	log      *zap.Logger
	uploader objectUploader
	now      func() time.Time
}

// NewService builds an exporter. S3 formats require a reachable bucket
// config; plain CSV needs only a writable directory.
func NewService(cfg appconfig.ExportConfig, log *zap.Logger) (*Service, error) {
	svc := &Service{cfg: cfg, log: log, now: time.Now}

	if cfg.Format == "s3" || cfg.Format == "both" {
		uploader, err := newS3Uploader(cfg)
		if err != nil {
			return nil, fmt.Errorf("build exporter: %w", err)
		}
		svc.uploader = uploader
	}
	return svc, nil
}

// ExportRun writes one row per thread part per persona: a per-run CSV, an
// append to the master CSV, and an S3 object when configured.
func (s *Service) ExportRun(runID string, topic pipeline.TopicData, drafts map[string]*pipeline.DraftResult, status string) error {
	rows := s.buildRows(runID, topic, drafts, status)
	if len(rows) == 0 {
		return nil
	}

	if s.cfg.Format == "csv" || s.cfg.Format == "both" {
		if err := s.writeFiles(runID, rows); err != nil {
			return err
		}
	}

	if s.uploader != nil {
		if err := s.uploadRun(runID, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) buildRows(runID string, topic pipeline.TopicData, drafts map[string]*pipeline.DraftResult, status string) [][]string {
	createdAt := s.now().UTC().Format(time.RFC3339)

	keys := make([]string, 0, len(drafts))
	for key := range drafts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var rows [][]string
	for _, key := range keys {
		draft := drafts[key]
		parts := draft.ThreadParts
		isThread := draft.IsThread && len(parts) > 0
		if !isThread {
			parts = []string{draft.Content}
		}

		for idx, part := range parts {
			rows = append(rows, []string{
				runID,
				key,
				part,
				strconv.Itoa(idx + 1),
				strconv.Itoa(len(parts)),
				strconv.FormatBool(isThread),
				draft.Angle,
				draft.Hook,
				draft.CTA,
				strconv.FormatFloat(draft.QualityScore, 'g', -1, 64),
				topic.Topic,
				topic.URL,
				topic.Type,
				status,
				createdAt,
			})
		}
	}
	return rows
}

func (s *Service) writeFiles(runID string, rows [][]string) error {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	runPath := filepath.Join(s.cfg.Dir, runFileName(runID))
	if err := writeCSV(runPath, rows, true); err != nil {
		return err
	}
	s.log.Info("exported run csv", zap.String("run_id", runID), zap.String("path", runPath))

	masterPath := filepath.Join(s.cfg.Dir, masterFileName)
	return writeCSV(masterPath, rows, false)
}

func (s *Service) uploadRun(runID string, rows [][]string) error {
	payload, err := encodeCSV(rows, true)
	if err != nil {
		return err
	}

	key := runFileName(runID)
	if s.cfg.S3Prefix != "" {
		key = s.cfg.S3Prefix + "/" + key
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	if err := s.uploader.Upload(ctx, key, payload, "text/csv"); err != nil {
		return fmt.Errorf("upload run csv: %w", err)
	}
	s.log.Info("exported run csv to s3", zap.String("run_id", runID), zap.String("key", key))
	return nil
}

func runFileName(runID string) string { return "run_" + runID + ".csv" }

// writeCSV overwrites with a header, or appends writing the header only when
// the file does not exist yet.
func writeCSV(path string, rows [][]string, overwrite bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	writeHeader := true
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
		if _, err := os.Stat(path); err == nil {
			writeHeader = false
		}
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write export header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write export rows: %w", err)
	}
	return nil
}

func encodeCSV(rows [][]string, withHeader bool) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if withHeader {
		if err := w.Write(header); err != nil {
			return nil, fmt.Errorf("encode export header: %w", err)
		}
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encode export rows: %w", err)
	}
	return buf.Bytes(), nil
}
