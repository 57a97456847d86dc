package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler periodically enqueues the recurring jobs. Enqueue dedupes on
// pending type, so overlapping ticks are harmless.
type Scheduler struct {
	scheduler *gocron.Scheduler
	repo      *Repo

	// Reminders only go out inside this hour window.
	startHour int
	endHour   int
}

func NewScheduler(repo *Repo, startHour, endHour int) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		repo:      repo,
		startHour: startHour,
		endHour:   endHour,
	}
}

func (s *Scheduler) Start() {
	_, _ = s.scheduler.Every(1).Hour().Do(s.enqueueReviewReminder)
	// Shortly after the ISO week turns over.
	_, _ = s.scheduler.Every(1).Monday().At("00:05").Do(s.enqueueWeeklyRollover)
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) enqueueReviewReminder() {
	hour := time.Now().Hour()
	if hour < s.startHour || hour > s.endHour {
		return
	}
	if err := s.repo.Enqueue(TypeReviewReminder, nil, time.Now()); err != nil {
		log.Printf("enqueue review reminder: %v\n", err)
	}
}

func (s *Scheduler) enqueueWeeklyRollover() {
	if err := s.repo.Enqueue(TypeWeeklyRollover, nil, time.Now()); err != nil {
		log.Printf("enqueue weekly rollover: %v\n", err)
	}
}
