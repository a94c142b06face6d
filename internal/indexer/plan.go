package indexer

import (
	"sort"

	"github.com/ziadkadry99/regqa/internal/catalog"
	"github.com/ziadkadry99/regqa/internal/loader"
)

// Plan is the work an ingestion run has to do.
type Plan struct {
	Changed   []loader.FileInfo
	Unchanged []loader.FileInfo
	Removed   []string
	// Unreadable entries are neither re-ingested nor removed; the run
	// reports them as failed.
	Unreadable map[string]error
}

// NewPlan compares the scanned files with the catalog and the documents
// present in the store. A file is changed when it is new, its checksum
// differs, its last ingestion failed, or the catalog lists chunks for it
// that the store does not hold; force marks every file changed. Documents
// known to the catalog or the store but missing on disk are removed, unless
// the scan could not read them.
func NewPlan(scan *loader.ScanResult, known []catalog.Document, stored []string, force bool) *Plan {
	records := make(map[string]catalog.Document, len(known))
	for _, d := range known {
		records[d.Name] = d
	}
	inStore := make(map[string]bool, len(stored))
	for _, name := range stored {
		inStore[name] = true
	}

	plan := &Plan{Unreadable: scan.Unreadable}
	onDisk := make(map[string]bool, len(scan.Files))
	for _, f := range scan.Files {
		onDisk[f.Name] = true
		rec, ok := records[f.Name]
		if force || !ok || IsFileChanged(rec, f) || (rec.ChunkCount > 0 && !inStore[f.Name]) {
			plan.Changed = append(plan.Changed, f)
		} else {
			plan.Unchanged = append(plan.Unchanged, f)
		}
	}

	gone := make(map[string]bool)
	for name := range records {
		if !onDisk[name] {
			gone[name] = true
		}
	}
	for _, name := range stored {
		if !onDisk[name] {
			gone[name] = true
		}
	}
	for name := range gone {
		if scan.Covers(name) {
			continue
		}
		plan.Removed = append(plan.Removed, name)
	}
	sort.Strings(plan.Removed)
	return plan
}

// IsFileChanged returns true if the file differs from its catalog record.
func IsFileChanged(rec catalog.Document, f loader.FileInfo) bool {
	return rec.Status != catalog.StatusIngested || rec.Checksum != f.Checksum
}

// Empty reports whether the plan has nothing to change. Unreadable entries
// change nothing.
func (p *Plan) Empty() bool {
	return len(p.Changed) == 0 && len(p.Removed) == 0
}
