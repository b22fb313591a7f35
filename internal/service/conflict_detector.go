package service

import (
	"context"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/eduplat/timetable-api/internal/models"
)

// OverlapLister is the slice of the booking ledger the detector needs: one
// range query covering a time window and the candidate resource sets.
type OverlapLister interface {
	ListOverlapping(ctx context.Context, exec sqlx.ExtContext, window models.TimeInterval, teacherIDs, groupIDs, classroomIDs []string) ([]models.Lesson, error)
}

// ConflictDetector finds double-bookings across the teacher, group, and
// classroom dimensions. One detection algorithm serves single-lesson
// validation, bulk import, and schedule generation; only the commit policy
// differs between callers.
type ConflictDetector struct {
	ledger OverlapLister
	logger *zap.Logger
}

// NewConflictDetector constructs a detector over the given ledger.
func NewConflictDetector(ledger OverlapLister, logger *zap.Logger) *ConflictDetector {
	return &ConflictDetector{ledger: ledger, logger: logger}
}

// Detect checks every candidate against committed bookings and against the
// other candidates in the batch. Two checks share one ledger round trip: the
// envelope window of the whole batch is fetched once and filtered in memory.
//
// Returned conflicts are dedup'd by signature and sorted by candidate start
// time, then dimension, so equal inputs always yield equal output. A
// candidate may carry an ExcludeLessonID, which removes its own current
// booking from consideration during updates.
func (d *ConflictDetector) Detect(ctx context.Context, exec sqlx.ExtContext, candidates []models.LessonCandidate) ([]models.Conflict, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	window, teacherIDs, groupIDs, classroomIDs := batchEnvelope(candidates)
	booked, err := d.ledger.ListOverlapping(ctx, exec, window, teacherIDs, groupIDs, classroomIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var conflicts []models.Conflict

	add := func(c models.Conflict) {
		sig := c.Signature()
		if seen[sig] {
			return
		}
		seen[sig] = true
		conflicts = append(conflicts, c)
	}

	for i, cand := range candidates {
		interval := cand.Interval()
		if !interval.IsValid() {
			continue
		}

		for _, lesson := range booked {
			if cand.ExcludeLessonID != "" && lesson.ID == cand.ExcludeLessonID {
				continue
			}
			if !interval.Overlaps(lesson.Interval()) {
				continue
			}
			if hit, ok := firstSharedDimension(cand, lessonAsCandidate(lesson)); ok {
				add(models.Conflict{
					CandidateIndex:   i,
					SubjectID:        cand.SubjectID,
					StudentGroupID:   cand.StudentGroupID,
					StartTime:        interval.Start,
					EndTime:          interval.End,
					Dimension:        hit.dimension,
					ResourceID:       hit.resourceID,
					ExistingLessonID: lesson.ID,
				})
			}
		}

		// Earlier batch entries count as tentatively booked: the later
		// entry of a colliding pair is the one reported.
		for j := 0; j < i; j++ {
			peer := candidates[j]
			if !peer.Interval().IsValid() || !interval.Overlaps(peer.Interval()) {
				continue
			}
			if hit, ok := firstSharedDimension(cand, peer); ok {
				peerIndex := j
				add(models.Conflict{
					CandidateIndex: i,
					SubjectID:      cand.SubjectID,
					StudentGroupID: cand.StudentGroupID,
					StartTime:      interval.Start,
					EndTime:        interval.End,
					Dimension:      hit.dimension,
					ResourceID:     hit.resourceID,
					BatchIndex:     &peerIndex,
				})
			}
		}
	}

	sort.SliceStable(conflicts, func(a, b int) bool {
		if !conflicts[a].StartTime.Equal(conflicts[b].StartTime) {
			return conflicts[a].StartTime.Before(conflicts[b].StartTime)
		}
		return conflicts[a].Dimension < conflicts[b].Dimension
	})

	if len(conflicts) > 0 && d.logger != nil {
		d.logger.Debug("conflicts detected",
			zap.Int("candidates", len(candidates)),
			zap.Int("conflicts", len(conflicts)))
	}
	return conflicts, nil
}

type dimensionHit struct {
	dimension  models.ConflictDimension
	resourceID string
}

// firstSharedDimension returns the highest-precedence dimension on which two
// bookings contend: teacher, then group, then classroom. A colliding pair is
// reported once, on that dimension, even when it also clashes on the others.
// Classrooms only collide when both sides actually occupy one.
func firstSharedDimension(a, b models.LessonCandidate) (dimensionHit, bool) {
	if a.TeacherID != "" && a.TeacherID == b.TeacherID {
		return dimensionHit{models.DimensionTeacher, a.TeacherID}, true
	}
	if a.StudentGroupID != "" && a.StudentGroupID == b.StudentGroupID {
		return dimensionHit{models.DimensionGroup, a.StudentGroupID}, true
	}
	if a.ClassroomID != nil && b.ClassroomID != nil && *a.ClassroomID == *b.ClassroomID {
		return dimensionHit{models.DimensionClassroom, *a.ClassroomID}, true
	}
	return dimensionHit{}, false
}

func lessonAsCandidate(l models.Lesson) models.LessonCandidate {
	return models.LessonCandidate{
		StudyPeriodID:  l.StudyPeriodID,
		StudentGroupID: l.StudentGroupID,
		SubjectID:      l.SubjectID,
		TeacherID:      l.TeacherID,
		ClassroomID:    l.ClassroomID,
		LessonType:     l.LessonType,
		StartTime:      l.StartTime,
		EndTime:        l.EndTime,
	}
}

// batchEnvelope computes the single query window covering all candidates,
// plus the union of resource ids per dimension.
func batchEnvelope(candidates []models.LessonCandidate) (models.TimeInterval, []string, []string, []string) {
	var window models.TimeInterval
	teacherSet := make(map[string]bool)
	groupSet := make(map[string]bool)
	classroomSet := make(map[string]bool)

	first := true
	for _, cand := range candidates {
		interval := cand.Interval()
		if !interval.IsValid() {
			continue
		}
		if first {
			window = interval
			first = false
		} else {
			if interval.Start.Before(window.Start) {
				window.Start = interval.Start
			}
			if interval.End.After(window.End) {
				window.End = interval.End
			}
		}
		if cand.TeacherID != "" {
			teacherSet[cand.TeacherID] = true
		}
		if cand.StudentGroupID != "" {
			groupSet[cand.StudentGroupID] = true
		}
		if cand.ClassroomID != nil && *cand.ClassroomID != "" {
			classroomSet[*cand.ClassroomID] = true
		}
	}

	return window, sortedKeys(teacherSet), sortedKeys(groupSet), sortedKeys(classroomSet)
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
