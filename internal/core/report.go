package core

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/blob"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/catalog"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/config"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/report"
)

// ReportResult locates a written final report.
type ReportResult struct {
	Text    string
	Path    string
	Archive blob.Info // zero when no object store is configured
	URL     string    // presigned archive URL, or the local path
	Motifs  catalog.MotifSet
}

// ReportPath is <results>/runs/<run>/<run>.final.log.
func (s *Service) ReportPath(runID string) string {
	return filepath.Join(s.pipeline.RunDir(runID), runID+".final.log")
}

// ComposeReport renders the final report for run without writing it.
func (s *Service) ComposeReport(ctx context.Context, run config.Run) (string, error) {
	var text string
	err := s.run(ctx, "compose_report", func(ctx context.Context) error {
		var err error
		text, _, err = s.compose(ctx, run)
		return err
	})
	return text, err
}

// WriteReport regenerates, writes and archives the final report.
func (s *Service) WriteReport(ctx context.Context, run config.Run) (ReportResult, error) {
	var res ReportResult
	err := s.run(ctx, "write_report", func(ctx context.Context) error {
		var err error
		res, err = s.writeReport(ctx, run)
		return err
	})
	return res, err
}

func (s *Service) writeReport(ctx context.Context, run config.Run) (ReportResult, error) {
	text, motifs, err := s.compose(ctx, run)
	if err != nil {
		return ReportResult{}, err
	}
	res := ReportResult{Text: text, Path: s.ReportPath(run.Name), Motifs: motifs}
	res.URL = res.Path
	if err := report.WriteFile(res.Path, text); err != nil {
		return res, fmt.Errorf("core: %w", err)
	}
	if s.objects == nil {
		return res, nil
	}
	info, err := report.Archive(ctx, s.objects, run.Name, text)
	if err != nil {
		return res, fmt.Errorf("core: %w", err)
	}
	res.Archive = info
	url, err := s.objects.PresignURL(ctx, info.Key, blob.SignedURLOptions{Method: "GET"})
	switch {
	case err == nil:
		res.URL = url
	case errors.Is(err, blob.ErrUnsupported):
	default:
		s.logger.Warn("presign report failed", "run", run.Name, "error", err)
	}
	return res, nil
}

// compose loads the catalog and motifs afresh so a report can be rebuilt
// long after the run finished.
func (s *Service) compose(ctx context.Context, run config.Run) (string, catalog.MotifSet, error) {
	cat, err := catalog.BuildReferenceCatalog(run.ReferenceRoot)
	if err != nil {
		return "", nil, fmt.Errorf("core: %w", err)
	}
	motifs, err := catalog.ExtractMotifList(run.MotifTable)
	if err != nil {
		return "", nil, fmt.Errorf("core: %w", err)
	}
	refs := make(map[string]string, len(s.pipeline.References)+2)
	for k, v := range s.pipeline.References {
		refs[k] = v
	}
	refs["REFERENCE_ROOT"] = run.ReferenceRoot
	if run.BarcodeFasta != "" {
		refs["BARCODE_FASTA"] = run.BarcodeFasta
	}
	logDir := run.ClusterLogDir
	if logDir == "" {
		logDir = s.pipeline.ClusterLogDir(run.Name)
	}
	text, err := report.ComposeFinalReport(ctx, report.Input{
		Identity: report.Identity{
			Name:           s.pipeline.Name,
			Version:        s.pipeline.Version,
			SourceRevision: s.pipeline.SourceRevision,
			EngineVersion:  s.pipeline.EngineVersion,
		},
		References:    refs,
		Catalog:       cat,
		Config:        report.RunInfo{Name: run.Name, Samples: run.Samples},
		Motifs:        motifs,
		Semaphores:    s.markers,
		ClusterLogDir: logDir,
	})
	if err != nil {
		return "", nil, fmt.Errorf("core: %w", err)
	}
	return text, motifs, nil
}
