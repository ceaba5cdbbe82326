package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/lanes-app/lanes/core/report"
	"github.com/lanes-app/lanes/storage/database"
)

const (
	progressByClassLevelQuery = `
SELECT cl.id AS class_level_id, cl.name AS class_level_name, cl.position AS position,
       COUNT(DISTINCT e.id) AS active_enrollments,
       COALESCE(SUM(CASE WHEN sp.status = 'COMPLETED' THEN 1 ELSE 0 END), 0) AS completed_skills,
       COUNT(sp.id) AS total_skills,
       COUNT(DISTINCT CASE WHEN e.ready_for_next_level THEN e.id END) AS ready_for_next_level
FROM class_levels cl
LEFT JOIN lessons l ON l.class_level_id = cl.id
LEFT JOIN enrollments e ON e.lesson_id = l.id AND e.start_date <= ? AND e.end_date >= ?
LEFT JOIN skill_progress sp ON sp.enrollment_id = e.id
WHERE cl.organization_id = ?
GROUP BY cl.id, cl.name, cl.position
ORDER BY cl.position ASC, cl.name ASC`

	lessonRosterQuery = `
SELECT CAST(e.id AS TEXT) AS enrollment_id, c.first_name, c.last_name, e.ready_for_next_level,
       COALESCE(CAST(sp.skill_id AS TEXT), '') AS skill_id,
       COALESCE(sp.status, '') AS status
FROM enrollments e
JOIN children c ON c.id = e.child_id
LEFT JOIN skill_progress sp ON sp.enrollment_id = e.id
WHERE e.lesson_id = ?
ORDER BY c.first_name ASC, c.last_name ASC, e.id ASC`
)

type reportRepository struct {
	db *sqlx.DB
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

// NewReportRepository runs the report queries through sqlx on the connection pool of db.
func NewReportRepository(db *database.DB) (report.Repository, error) {
	xdb, err := db.Sqlx()
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlx handle")
	}
	return &reportRepository{db: xdb}, nil
}

func (repo *reportRepository) ProgressByClassLevel(ctx context.Context, orgID string, day time.Time) ([]report.ClassLevelProgress, error) {
	day = day.UTC()
	rows := make([]report.ClassLevelProgress, 0)
	q := repo.db.Rebind(progressByClassLevelQuery)
	if err := repo.db.SelectContext(ctx, &rows, q, day, day, orgID); err != nil {
		return nil, errors.Wrap(err, "selecting progress by class level")
	}
	return rows, nil
}

func (repo *reportRepository) LessonRoster(ctx context.Context, lessonID string) ([]report.RosterLine, error) {
	lines := make([]report.RosterLine, 0)
	q := repo.db.Rebind(lessonRosterQuery)
	if err := repo.db.SelectContext(ctx, &lines, q, lessonID); err != nil {
		return nil, errors.Wrap(err, "selecting lesson roster")
	}
	return lines, nil
}
