package core

import (
	"context"
	"errors"

	"github.com/MurrLabGEDEV/HiTransMeth/internal/catalog"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/config"
	"github.com/MurrLabGEDEV/HiTransMeth/internal/integrity"
)

// ErrEmptyMotifSet is reported when the motif table names no motif.
var ErrEmptyMotifSet = errors.New("core: motif table lists no motifs")

// PreflightResult carries what the checks loaded, even when they failed.
type PreflightResult struct {
	Catalog    catalog.ReferenceCatalog
	Motifs     catalog.MotifSet
	Conditions catalog.ConditionSet
	Violations []error
}

// Preflight runs every input check and reports all violations at once. The
// returned error joins them; typed errors are reachable with errors.As.
func (s *Service) Preflight(ctx context.Context, run config.Run) (PreflightResult, error) {
	var res PreflightResult
	err := s.run(ctx, "preflight", func(context.Context) error {
		var rep integrity.Report
		res = s.preflight(run, &rep)
		res.Violations = rep.Errors()
		if rm, ok := s.metrics.(RunMetrics); ok {
			rm.ObservePreflight(rep.Len())
		}
		if rep.Len() > 0 {
			s.logger.Warn("preflight failed", "run", run.Name, "violations", rep.Len())
		}
		return rep.Err()
	})
	return res, err
}

func (s *Service) preflight(run config.Run, rep *integrity.Report) PreflightResult {
	var res PreflightResult
	missing := map[string]bool{}
	if err := integrity.CheckFilesExist(run.RequiredFiles()); err != nil {
		var mf *integrity.MissingFileError
		if errors.As(err, &mf) {
			for _, p := range mf.Paths {
				missing[p] = true
			}
		}
		rep.Add(err)
	}
	if run.MinSizeKB > 0 {
		var present []string
		for _, p := range run.SizedFiles() {
			if !missing[p] {
				present = append(present, p)
			}
		}
		rep.Add(integrity.CheckMinimumSize(present, run.MinSizeKB))
	}

	cat, err := catalog.BuildReferenceCatalog(run.ReferenceRoot)
	rep.Add(err)
	res.Catalog = cat

	if !missing[run.MotifTable] {
		motifs, err := catalog.ExtractMotifList(run.MotifTable)
		res.Motifs = motifs
		switch {
		case err != nil:
			rep.Add(err)
		case len(motifs) == 0:
			rep.Add(ErrEmptyMotifSet)
		case cat != nil:
			rep.Add(integrity.CheckReferenceCompleteness(cat, motifs.Unique()))
		}
	}

	if run.BarcodeFasta != "" && !missing[run.BarcodeFasta] {
		conds, err := catalog.ExtractConditionList(run.BarcodeFasta)
		rep.Add(err)
		res.Conditions = conds
	}
	return res
}
