package icon

import (
	"iter"
	"sort"

	"github.com/conneroisu/svgsprite/internal/errors"
)

// Set is the sorted, deduplicated, collision-free working set of a build.
type Set struct {
	records []Record
}

// NewSet sorts records by relative path, drops records repeating the same
// source path and rejects the set when two distinct source paths share a
// normalized path or an identifier.
func NewSet(records []Record) (*Set, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].relativePath != sorted[j].relativePath {
			return sorted[i].relativePath < sorted[j].relativePath
		}
		return sorted[i].sourcePath < sorted[j].sourcePath
	})

	deduped := sorted[:0]
	for i := 0; i < len(sorted); {
		j := i + 1
		for j < len(sorted) && sorted[j].relativePath == sorted[i].relativePath {
			j++
		}
		if sources := distinctSources(sorted[i:j]); len(sources) > 1 {
			return nil, errors.NewCollisionError(sorted[i].identifier, sources...).
				WithContext("normalized_path", sorted[i].relativePath)
		}
		deduped = append(deduped, sorted[i])
		i = j
	}

	if err := checkCollisions(deduped); err != nil {
		return nil, err
	}

	return &Set{records: deduped}, nil
}

// distinctSources lists the source paths of a run of records that share a
// normalized path. The run is sorted by source path.
func distinctSources(run []Record) []string {
	var sources []string
	for i, r := range run {
		if i > 0 && r.sourcePath == run[i-1].sourcePath {
			continue
		}
		sources = append(sources, r.sourcePath)
	}
	return sources
}

func checkCollisions(records []Record) error {
	byID := make(map[string][]string, len(records))
	var order []string
	for _, r := range records {
		if _, seen := byID[r.identifier]; !seen {
			order = append(order, r.identifier)
		}
		byID[r.identifier] = append(byID[r.identifier], r.relativePath)
	}

	for _, id := range order {
		if paths := byID[id]; len(paths) > 1 {
			return errors.NewCollisionError(id, paths...)
		}
	}

	return nil
}

// Len returns the number of icons in the set.
func (s *Set) Len() int { return len(s.records) }

// View hands out an independent read view over the set. Views share the
// underlying records but expose no way to modify them.
func (s *Set) View() View {
	return View{records: s.records}
}

// Enrich returns a new set with records replaced by the given ones, which
// must describe the same paths in the same order.
func (s *Set) Enrich(records []Record) (*Set, error) {
	if len(records) != len(s.records) {
		return nil, errors.NewInternalError(errors.StageDistribute,
			"enriched set size does not match working set", nil)
	}
	for i := range records {
		if records[i].relativePath != s.records[i].relativePath {
			return nil, errors.NewInternalError(errors.StageDistribute,
				"enriched set order does not match working set", nil).
				WithContext("expected", s.records[i].relativePath).
				WithContext("got", records[i].relativePath)
		}
	}

	out := make([]Record, len(records))
	copy(out, records)
	return &Set{records: out}, nil
}

// View is a read-only window onto a Set.
type View struct {
	records []Record
}

// Len returns the number of records visible through the view.
func (v View) Len() int { return len(v.records) }

// At returns the i-th record in sorted order.
func (v View) At(i int) Record { return v.records[i] }

// All iterates the records in sorted order.
func (v View) All() iter.Seq2[int, Record] {
	return func(yield func(int, Record) bool) {
		for i, r := range v.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Records returns a copy of the records in sorted order.
func (v View) Records() []Record {
	out := make([]Record, len(v.records))
	copy(out, v.records)
	return out
}
