package runtime

import (
	"context"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/dagflow/store"
	"github.com/warriorguo/dagflow/types"
	"github.com/warriorguo/dagflow/utils"
)

const (
	ReportPath = "/report/"
	RecordPath = "/record/"
)

func recordSavePath(runID string) string {
	return RecordPath + runID
}

func SaveReport(ctx context.Context, s store.Store, report *types.RunReport) error {
	b, err := utils.Serialize(report)
	if err != nil {
		return errors.Annotatef(err, "serialize report %s", report.RunID)
	}
	return errors.Trace(s.Set(ctx, ReportPath, report.RunID, b))
}

func LoadReport(ctx context.Context, s store.Store, runID string) (*types.RunReport, error) {
	b, err := s.Get(ctx, ReportPath, runID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if b == nil {
		return nil, errors.NotFoundf("report of run: %s", runID)
	}

	report := &types.RunReport{}
	if err := utils.Unserialize(b, report); err != nil {
		return nil, errors.Trace(err)
	}
	return report, nil
}

func ListRuns(ctx context.Context, s store.Store) ([]string, error) {
	runs := make([]string, 0)
	err := s.List(ctx, ReportPath, func(runID string) bool {
		runs = append(runs, runID)
		return true
	})
	return runs, errors.Trace(err)
}

func SaveRecord(ctx context.Context, s store.Store, record *types.NodeTraceRecord) error {
	b, err := utils.Serialize(record)
	if err != nil {
		return errors.Annotatef(err, "serialize record %s", record.Node)
	}
	return errors.Trace(s.Set(ctx, recordSavePath(record.RunID), record.Node, b))
}

func LoadRecords(ctx context.Context, s store.Store, runID string) (map[string]*types.NodeTraceRecord, error) {
	records := make(map[string]*types.NodeTraceRecord)
	recordPath := recordSavePath(runID)
	err := s.List(ctx, recordPath, func(node string) bool {
		b, err := s.Get(ctx, recordPath, node)
		if err != nil {
			log.Errorf("load %s %s from store failed: %v", recordPath, node, err)
			return true
		}
		record := &types.NodeTraceRecord{}
		if err := utils.Unserialize(b, record); err != nil {
			log.Errorf("unserialize %s %s from store:%s failed: %v", recordPath, node, string(b), err)
			return true
		}
		records[node] = record
		return true
	})
	return records, errors.Trace(err)
}
