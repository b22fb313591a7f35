package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/eduplat/timetable-api/internal/dto"
	"github.com/eduplat/timetable-api/internal/models"
	"github.com/eduplat/timetable-api/internal/repository"
	"github.com/eduplat/timetable-api/internal/service"
	"github.com/eduplat/timetable-api/pkg/config"
	"github.com/eduplat/timetable-api/pkg/database"
	"github.com/eduplat/timetable-api/pkg/logger"
)

// schedule-job fills a date range with plausible lessons for every group of
// an academic year. It is a seeding tool for demo and load environments: it
// books through the same validation and conflict detection path as the API,
// with the skip policy, so whatever it produces is consistent with lessons
// that already exist.

type jobOptions struct {
	startDate          string
	endDate            string
	academicYearID     string
	lessonsPerGroupDay int
	skipWeekends       bool
	clear              bool
	seed               int64
}

func main() {
	opts := jobOptions{}
	pflag.StringVar(&opts.startDate, "start-date", "", "first date to fill, YYYY-MM-DD (required)")
	pflag.StringVar(&opts.endDate, "end-date", "", "last date to fill, YYYY-MM-DD (required)")
	pflag.StringVar(&opts.academicYearID, "academic-year", "", "academic year id (default: the current year)")
	pflag.IntVar(&opts.lessonsPerGroupDay, "lessons-per-group-day", 4, "lessons to place per group per school day")
	pflag.BoolVar(&opts.skipWeekends, "skip-weekends", true, "leave Saturday and Sunday empty")
	pflag.BoolVar(&opts.clear, "clear", false, "wipe each group's lessons in the range before seeding")
	pflag.Int64Var(&opts.seed, "seed", 0, "random seed (default: time-based)")
	pflag.Parse()

	if opts.startDate == "" || opts.endDate == "" {
		fmt.Fprintln(os.Stderr, "both --start-date and --end-date are required")
		pflag.Usage()
		os.Exit(2)
	}
	rangeStart, err := time.Parse("2006-01-02", opts.startDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --start-date %q: expected YYYY-MM-DD\n", opts.startDate)
		os.Exit(2)
	}
	rangeEnd, err := time.Parse("2006-01-02", opts.endDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --end-date %q: expected YYYY-MM-DD\n", opts.endDate)
		os.Exit(2)
	}
	if rangeEnd.Before(rangeStart) {
		fmt.Fprintln(os.Stderr, "--end-date precedes --start-date")
		os.Exit(2)
	}
	if opts.lessonsPerGroupDay < 1 {
		fmt.Fprintln(os.Stderr, "--lessons-per-group-day must be at least 1")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connect failed", "error", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, db, cfg, logr, opts, rangeStart, rangeEnd); err != nil {
		logr.Sugar().Errorw("seed job failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, db *sqlx.DB, cfg *config.Config, logr *zap.Logger, opts jobOptions, rangeStart, rangeEnd time.Time) error {
	lessonRepo := repository.NewLessonRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)

	detector := service.NewConflictDetector(lessonRepo, logr)
	generator := service.NewGeneratorService(lessonRepo, calendarRepo, detector, nil, nil, logr)

	yearID := opts.academicYearID
	if yearID == "" {
		year, err := calendarRepo.FindAcademicYearForDate(ctx, rangeStart)
		if err != nil {
			return err
		}
		if year == nil {
			return fmt.Errorf("no academic year covers %s; pass --academic-year", rangeStart.Format("2006-01-02"))
		}
		yearID = year.ID
	}

	groupIDs, err := catalogRepo.ListGroupIDsForYear(ctx, yearID)
	if err != nil {
		return err
	}
	if len(groupIDs) == 0 {
		logr.Sugar().Warnw("no groups found for academic year", "academic_year_id", yearID)
		return nil
	}

	subjects, err := catalogRepo.ListSubjects(ctx)
	if err != nil {
		return err
	}
	teachers, err := catalogRepo.ListTeachers(ctx, true)
	if err != nil {
		return err
	}
	classrooms, err := catalogRepo.ListClassrooms(ctx)
	if err != nil {
		return err
	}
	if len(subjects) == 0 || len(teachers) == 0 {
		return fmt.Errorf("catalog has no subjects or no active teachers to seed with")
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	planner := newTemplatePlanner(cfg.Scheduler, subjects, teachers, classrooms, rng)

	var totalBooked, totalConflicts, totalSkippedDates int
	for _, groupID := range groupIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		template := planner.planWeek(opts.lessonsPerGroupDay, opts.skipWeekends)
		result, err := generator.GenerateFromTemplate(ctx, dto.GenerateScheduleRequest{
			StudentGroupID: groupID,
			AcademicYearID: yearID,
			RangeStart:     rangeStart,
			RangeEnd:       rangeEnd,
			Template:       template,
			OnConflict:     models.PolicySkip,
			ClearExisting:  opts.clear,
		})
		if err != nil {
			return fmt.Errorf("group %s: %w", groupID, err)
		}

		totalBooked += len(result.Booked)
		totalConflicts += len(result.Conflicts)
		totalSkippedDates += len(result.SkippedDates)
		logr.Sugar().Infow("group seeded",
			"group_id", groupID,
			"booked", len(result.Booked),
			"conflicts_skipped", len(result.Conflicts),
			"dates_without_period", len(result.SkippedDates))
	}

	logr.Sugar().Infow("seed job finished",
		"groups", len(groupIDs),
		"booked", totalBooked,
		"conflicts_skipped", totalConflicts,
		"dates_without_period", totalSkippedDates,
		"seed", seed)
	return nil
}

// templatePlanner builds a random weekly template for one group. Teacher and
// room picks are tracked per weekday slot so two groups rarely land on the
// same teacher at the same time; real clashes are still caught downstream.
type templatePlanner struct {
	cfg        config.SchedulerConfig
	subjects   []models.Subject
	teachers   []models.Teacher
	classrooms []models.Classroom
	rng        *rand.Rand
	taken      map[string]bool
}

func newTemplatePlanner(cfg config.SchedulerConfig, subjects []models.Subject, teachers []models.Teacher, classrooms []models.Classroom, rng *rand.Rand) *templatePlanner {
	if cfg.WorkStartHour <= 0 {
		cfg.WorkStartHour = 8
	}
	if cfg.WorkEndHour <= cfg.WorkStartHour {
		cfg.WorkEndHour = 18
	}
	if len(cfg.LessonDurationsMin) == 0 {
		cfg.LessonDurationsMin = []int{45, 80, 90}
	}
	if cfg.BreakMinutes <= 0 {
		cfg.BreakMinutes = 10
	}
	if cfg.MaxPlacementTries <= 0 {
		cfg.MaxPlacementTries = 15
	}
	return &templatePlanner{
		cfg:        cfg,
		subjects:   subjects,
		teachers:   teachers,
		classrooms: classrooms,
		rng:        rng,
		taken:      make(map[string]bool),
	}
}

func (p *templatePlanner) planWeek(lessonsPerDay int, skipWeekends bool) []dto.TemplateSlot {
	lastDay := 6
	if skipWeekends {
		lastDay = 4
	}

	var slots []dto.TemplateSlot
	for day := 0; day <= lastDay; day++ {
		minute := p.cfg.WorkStartHour * 60
		dayEnd := p.cfg.WorkEndHour * 60
		for i := 0; i < lessonsPerDay; i++ {
			duration := p.cfg.LessonDurationsMin[p.rng.Intn(len(p.cfg.LessonDurationsMin))]
			if minute+duration > dayEnd {
				break
			}
			slot := dto.TemplateSlot{
				DayOfWeek:   day,
				StartHour:   minute / 60,
				StartMinute: minute % 60,
				EndHour:     (minute + duration) / 60,
				EndMinute:   (minute + duration) % 60,
				SubjectID:   p.subjects[p.rng.Intn(len(p.subjects))].ID,
				LessonType:  models.LessonTypeLecture,
			}
			slot.TeacherID = p.pickTeacher(day, minute)
			if len(p.classrooms) > 0 {
				room := p.classrooms[p.rng.Intn(len(p.classrooms))].ID
				slot.ClassroomID = &room
			}
			slots = append(slots, slot)
			minute += duration + p.cfg.BreakMinutes
		}
	}
	return slots
}

func (p *templatePlanner) pickTeacher(day, minute int) string {
	var teacherID string
	for try := 0; try < p.cfg.MaxPlacementTries; try++ {
		teacherID = p.teachers[p.rng.Intn(len(p.teachers))].ID
		key := fmt.Sprintf("%d:%d:%s", day, minute, teacherID)
		if !p.taken[key] {
			p.taken[key] = true
			return teacherID
		}
	}
	return teacherID
}
