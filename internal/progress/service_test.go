package progress

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "progress.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&UserProgress{}, &XpEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return &Service{DB: db, Awards: DefaultAwards()}
}

var feb20 = time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)

func TestAwardFirstEvent(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	res, err := s.Award(ctx, 1, AwardInput{Activity: ActivityQuestionCorrect}, feb20)
	if err != nil {
		t.Fatalf("Award: %v", err)
	}
	if res.TotalXP != 10 || res.Level != 1 || res.Streak != 1 || res.WeeklyXP != 10 {
		t.Errorf("result = %+v, want total 10 / level 1 / streak 1 / weekly 10", res)
	}
	if res.Title != "Calouro" {
		t.Errorf("Title = %q, want Calouro", res.Title)
	}

	var evs []XpEvent
	if err := s.DB.Find(&evs).Error; err != nil {
		t.Fatal(err)
	}
	if len(evs) != 1 || evs[0].Activity != string(ActivityQuestionCorrect) || evs[0].XpEarned != 10 {
		t.Errorf("events = %+v, want one question-correct/10", evs)
	}

	var p UserProgress
	if err := s.DB.First(&p, "user_id = ?", 1).Error; err != nil {
		t.Fatal(err)
	}
	if p.QuestionsCorrect != 1 {
		t.Errorf("QuestionsCorrect = %d, want 1", p.QuestionsCorrect)
	}
	if p.Version != 1 {
		t.Errorf("Version = %d, want 1", p.Version)
	}
}

func TestAwardRejectsUnknownActivity(t *testing.T) {
	s := newTestService(t)
	_, err := s.Award(context.Background(), 1, AwardInput{Activity: "made-up"}, feb20)
	if err != ErrUnknownActivity {
		t.Fatalf("err = %v, want ErrUnknownActivity", err)
	}

	var n int64
	s.DB.Model(&XpEvent{}).Count(&n)
	if n != 0 {
		t.Errorf("rejected award wrote %d events", n)
	}
	s.DB.Model(&UserProgress{}).Count(&n)
	if n != 0 {
		t.Errorf("rejected award created %d progress rows", n)
	}
}

func TestAwardRejectsNonPositiveAmount(t *testing.T) {
	s := newTestService(t)
	s.Awards = AwardTable{ActivityGoalComplete: 0}
	_, err := s.Award(context.Background(), 1, AwardInput{Activity: ActivityGoalComplete}, feb20)
	if err != ErrInvalidAmount {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestTotalXPMonotonic(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	prev := 0
	now := feb20
	for _, a := range []Activity{
		ActivityFlashcardReviewed, ActivitySimuladoComplete,
		ActivityPomodoroComplete, ActivityGoalComplete,
	} {
		res, err := s.Award(ctx, 1, AwardInput{Activity: a}, now)
		if err != nil {
			t.Fatalf("Award(%s): %v", a, err)
		}
		if res.TotalXP < prev {
			t.Errorf("TotalXP shrank: %d -> %d", prev, res.TotalXP)
		}
		prev = res.TotalXP
		now = now.Add(time.Minute)
	}
	if prev != 5+50+15+30 {
		t.Errorf("TotalXP = %d, want 100", prev)
	}
}

func TestStreakIncrementAndReset(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Consecutive days increment.
	if _, err := s.Award(ctx, 1, AwardInput{Activity: ActivityQuestionCorrect}, feb20); err != nil {
		t.Fatal(err)
	}
	res, err := s.Award(ctx, 1, AwardInput{Activity: ActivityQuestionCorrect}, feb20.AddDate(0, 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak != 2 {
		t.Errorf("streak after consecutive day = %d, want 2", res.Streak)
	}

	// Same-day activity does not increment.
	res, err = s.Award(ctx, 1, AwardInput{Activity: ActivityPomodoroComplete}, feb20.AddDate(0, 0, 1).Add(3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak != 2 {
		t.Errorf("streak after same-day award = %d, want 2", res.Streak)
	}

	// A skipped day resets to 1 but longest is preserved.
	res, err = s.Award(ctx, 1, AwardInput{Activity: ActivityQuestionCorrect}, feb20.AddDate(0, 0, 3))
	if err != nil {
		t.Fatal(err)
	}
	if res.Streak != 1 {
		t.Errorf("streak after skipped day = %d, want 1", res.Streak)
	}
	var p UserProgress
	if err := s.DB.First(&p, "user_id = ?", 1).Error; err != nil {
		t.Fatal(err)
	}
	if p.LongestStreak != 2 {
		t.Errorf("LongestStreak = %d, want 2", p.LongestStreak)
	}
}

func TestSevenDayStreakBonus(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	var last AwardResult
	for day := 0; day < 7; day++ {
		res, err := s.Award(ctx, 1, AwardInput{Activity: ActivityQuestionCorrect}, feb20.AddDate(0, 0, day))
		if err != nil {
			t.Fatal(err)
		}
		last = res
	}
	if last.Streak != 7 {
		t.Fatalf("streak = %d, want 7", last.Streak)
	}
	// 7 daily awards of 10 plus the 50-point bonus on day seven.
	if last.TotalXP != 120 {
		t.Errorf("TotalXP = %d, want 120", last.TotalXP)
	}

	var n int64
	s.DB.Model(&XpEvent{}).Where("activity = ?", string(ActivityStreakBonus)).Count(&n)
	if n != 1 {
		t.Errorf("streak bonus events = %d, want 1", n)
	}
}

func TestWeeklyRollsOverAcrossISOWeeks(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Friday of one ISO week, then Monday of the next.
	friday := time.Date(2026, 2, 20, 18, 0, 0, 0, time.UTC)
	monday := time.Date(2026, 2, 23, 8, 0, 0, 0, time.UTC)

	if _, err := s.Award(ctx, 1, AwardInput{Activity: ActivitySimuladoComplete}, friday); err != nil {
		t.Fatal(err)
	}
	res, err := s.Award(ctx, 1, AwardInput{Activity: ActivityPomodoroComplete}, monday)
	if err != nil {
		t.Fatal(err)
	}
	if res.WeeklyXP != 15 {
		t.Errorf("WeeklyXP after rollover = %d, want 15", res.WeeklyXP)
	}
	if res.TotalXP != 65 {
		t.Errorf("TotalXP = %d, want 65", res.TotalXP)
	}
}

func TestWeeklyMatchesEventReaggregation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	times := []time.Time{
		time.Date(2026, 2, 16, 9, 0, 0, 0, time.UTC),  // Monday
		time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 17, 20, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 22, 23, 0, 0, 0, time.UTC), // Sunday, same ISO week
	}
	for _, ts := range times {
		if _, err := s.Award(ctx, 1, AwardInput{Activity: ActivityQuestionCorrect}, ts); err != nil {
			t.Fatal(err)
		}
	}

	var p UserProgress
	if err := s.DB.First(&p, "user_id = ?", 1).Error; err != nil {
		t.Fatal(err)
	}

	var sum int
	row := s.DB.Model(&XpEvent{}).
		Select("coalesce(sum(xp_earned), 0)").
		Where("user_id = ? AND created_at >= ? AND created_at < ?",
			1, WeekStart(times[0]), WeekStart(times[0]).AddDate(0, 0, 7)).
		Row()
	if err := row.Scan(&sum); err != nil {
		t.Fatal(err)
	}
	if p.WeeklyXP != sum {
		t.Errorf("WeeklyXP = %d, re-aggregation = %d", p.WeeklyXP, sum)
	}
}

func TestOverviewZeroForNewLearner(t *testing.T) {
	s := newTestService(t)
	o, err := s.Overview(context.Background(), 42, feb20)
	if err != nil {
		t.Fatal(err)
	}
	if o.TotalXP != 0 || o.Level != 1 || o.Streak != 0 {
		t.Errorf("overview = %+v, want zero snapshot at level 1", o)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	acts := []Activity{ActivityQuestionCorrect, ActivityPomodoroComplete, ActivityGoalComplete}
	for i, a := range acts {
		if _, err := s.Award(ctx, 1, AwardInput{Activity: a}, feb20.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}

	evs, err := s.History(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 3 {
		t.Fatalf("len = %d, want 3", len(evs))
	}
	if evs[0].Activity != string(ActivityGoalComplete) || evs[2].Activity != string(ActivityQuestionCorrect) {
		t.Errorf("history not newest-first: %s, %s, %s", evs[0].Activity, evs[1].Activity, evs[2].Activity)
	}
}

func TestLeaderboardPeriods(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// User 1: one simulado this week. User 2: two questions this week.
	if _, err := s.Award(ctx, 1, AwardInput{Activity: ActivitySimuladoComplete}, feb20); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := s.Award(ctx, 2, AwardInput{Activity: ActivityQuestionCorrect}, feb20.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}

	weekly, err := s.Leaderboard(ctx, PeriodWeekly, 10, feb20)
	if err != nil {
		t.Fatal(err)
	}
	if len(weekly) != 2 || weekly[0].UserID != 1 || weekly[0].XP != 50 || weekly[0].Rank != 1 {
		t.Errorf("weekly = %+v, want user 1 first with 50", weekly)
	}
	if weekly[1].UserID != 2 || weekly[1].XP != 20 {
		t.Errorf("weekly runner-up = %+v, want user 2 with 20", weekly[1])
	}

	monthly, err := s.Leaderboard(ctx, PeriodMonthly, 10, feb20)
	if err != nil {
		t.Fatal(err)
	}
	if len(monthly) != 2 || monthly[0].UserID != 1 || monthly[0].XP != 50 {
		t.Errorf("monthly = %+v, want user 1 first with 50", monthly)
	}

	alltime, err := s.Leaderboard(ctx, PeriodAllTime, 10, feb20)
	if err != nil {
		t.Fatal(err)
	}
	if len(alltime) != 2 || alltime[0].UserID != 1 || alltime[0].XP != 50 || alltime[0].Title != "Calouro" {
		t.Errorf("alltime = %+v, want user 1 first with 50", alltime)
	}

	if _, err := s.Leaderboard(ctx, "fortnightly", 10, feb20); err != ErrInvalidPeriod {
		t.Errorf("err = %v, want ErrInvalidPeriod", err)
	}
}
