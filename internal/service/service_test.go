package service

import (
	"context"
	"errors"
	"fmt"
	"lesson_quest_backend/internal/config"
	"lesson_quest_backend/internal/content"
	"lesson_quest_backend/internal/model"
	"lesson_quest_backend/internal/progression"
	"lesson_quest_backend/internal/repository"
	"lesson_quest_backend/internal/util"
	"lesson_quest_backend/pkg/database"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var pngPayload = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR fake image body")

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, "", f.err
	}
	return pngPayload, "image/png", nil
}

type testEnv struct {
	db          *gorm.DB
	fetcher     *stubFetcher
	progression *ProgressionService
	auth        *AuthService
	lessons     *LessonService
	showcases   *ShowcaseService
	comments    *CommentService
	ratings     *RatingService
	tags        *TagService
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := &config.DatabaseConfig{Driver: "sqlite", SQLitePath: fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)}
	db, err := database.Open(cfg, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestEnv(t *testing.T, catalog *progression.Catalog) *testEnv {
	t.Helper()
	db := openTestDB(t)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}

	userRepo := repository.NewUserRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	tagRepo := repository.NewTagRepository(db)

	fetcher := &stubFetcher{}
	contentService := &ContentService{
		Renderer: content.NewRenderer(nil),
		Inliner:  content.NewInliner(fetcher, time.Second, 2),
	}
	progressionService := NewProgressionService(repository.NewProgressionRepository(db), userRepo,
		catalog, progression.NewEngine(progression.DefaultPointsToLevel), NewLocalLocker())

	return &testEnv{
		db:          db,
		fetcher:     fetcher,
		progression: progressionService,
		auth:        NewAuthService(userRepo, progressionService, cfg),
		lessons:     NewLessonService(lessonRepo, tagRepo, contentService, progressionService),
		showcases:   NewShowcaseService(repository.NewShowcaseRepository(db), lessonRepo, contentService, progressionService),
		comments:    NewCommentService(repository.NewCommentRepository(db), lessonRepo, progressionService),
		ratings:     NewRatingService(repository.NewRatingRepository(db), lessonRepo, progressionService),
		tags:        NewTagService(tagRepo, lessonRepo),
	}
}

func (e *testEnv) register(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Name: strings.Split(email, "@")[0], Email: email, Password: "secret123"}
	if err := e.auth.Register(user); err != nil {
		t.Fatalf("Register %s: %v", email, err)
	}
	return user
}

func (e *testEnv) view(t *testing.T, userID uint) *ProgressionView {
	t.Helper()
	v, err := e.progression.View(context.Background(), userID)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	return v
}

func questOf(v *ProgressionView, name string) QuestView {
	for _, q := range v.Quests {
		if q.Name == name {
			return q
		}
	}
	return QuestView{}
}

func (e *testEnv) createLesson(t *testing.T, userID uint, title string) *model.Lesson {
	t.Helper()
	lesson, err := e.lessons.Create(context.Background(), userID, LessonInput{Title: title, Content: "# " + title})
	if err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	return lesson
}

func TestRegisterSeedsQuestsAndRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "Ada@Example.com ")

	if user.Email != "ada@example.com" || user.Role != model.Member {
		t.Fatalf("user: email=%q role=%q", user.Email, user.Role)
	}
	if user.Password == "secret123" {
		t.Fatalf("password stored in plain text")
	}

	v := env.view(t, user.ID)
	if len(v.Quests) != 7 || v.Level != 1 || v.ExperiencePoints != 0 {
		t.Fatalf("view: level=%d xp=%d quests=%d", v.Level, v.ExperiencePoints, len(v.Quests))
	}
	if v.Quests[0].Name != progression.QuestCompleteShowcase || v.Quests[0].State != progression.QuestIncomplete {
		t.Fatalf("first quest: %+v", v.Quests[0])
	}

	err := env.auth.Register(&model.User{Name: "dup", Email: "ada@example.com", Password: "x"})
	if !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("duplicate email: want=%v got=%v", util.ErrEmailRegistered, err)
	}
}

func TestLoginRecordsDailyStreak(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	env.progression.Now = func() time.Time { return day }

	res, err := env.auth.Login(ctx, "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || !res.Progress.FirstLoginToday || res.Progress.LoginStreak != 1 {
		t.Fatalf("first login: %+v", res.Progress)
	}
	claims, err := util.ParseJWT(res.Token, "test-secret")
	if err != nil || claims.UserID != user.ID {
		t.Fatalf("token: claims=%+v err=%v", claims, err)
	}

	env.progression.Now = func() time.Time { return day.Add(5 * time.Hour) }
	if res, _ = env.auth.Login(ctx, "ada@example.com", "secret123"); res.Progress.FirstLoginToday {
		t.Fatalf("same-day login counted twice")
	}

	env.progression.Now = func() time.Time { return day.AddDate(0, 0, 1) }
	res, err = env.auth.Login(ctx, "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Progress.LoginStreak != 2 || !res.Progress.Quest.Completed {
		t.Fatalf("second day: %+v", res.Progress)
	}

	v := env.view(t, user.ID)
	if v.ExperiencePoints != 20 || v.LoginStreak != 2 || len(v.LoginDays) != 2 {
		t.Fatalf("view: xp=%d streak=%d days=%v", v.ExperiencePoints, v.LoginStreak, v.LoginDays)
	}
	if v.LoginDays[0] != "2024-03-01" || v.LoginDays[1] != "2024-03-02" {
		t.Fatalf("login days: %v", v.LoginDays)
	}
	daily := questOf(v, progression.QuestDailyLoginRepeating)
	if daily.GoalProgress != 3 || daily.CurrentProgress != 2 {
		t.Fatalf("daily quest: %+v", daily)
	}

	env.progression.Now = func() time.Time { return day.AddDate(0, 0, 5) }
	if res, _ = env.auth.Login(ctx, "ada@example.com", "secret123"); res.Progress.LoginStreak != 1 {
		t.Fatalf("streak after gap: want=1 got=%d", res.Progress.LoginStreak)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	env.register(t, "ada@example.com")

	if _, err := env.auth.Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got=%v", err)
	}
	if _, err := env.auth.Login(context.Background(), "nobody@example.com", "secret123"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got=%v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")
	ctx := context.Background()

	updated, err := env.auth.UpdateProfile(user.ID, ProfileInput{Name: "  Ada L "})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Name != "Ada L" {
		t.Fatalf("name: want=%q got=%q", "Ada L", updated.Name)
	}
	if _, err := env.auth.UpdateProfile(user.ID, ProfileInput{Password: "newpass123", CurrentPassword: "wrong"}); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("wrong current password: got=%v", err)
	}
	if _, err := env.auth.UpdateProfile(user.ID, ProfileInput{Password: "newpass123", CurrentPassword: "secret123"}); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := env.auth.Login(ctx, "ada@example.com", "secret123"); !errors.Is(err, util.ErrInvalidCredentials) {
		t.Fatalf("old password: got=%v", err)
	}
	if _, err := env.auth.Login(ctx, "ada@example.com", "newpass123"); err != nil {
		t.Fatalf("new password: %v", err)
	}

	unchanged, err := env.auth.UpdateProfile(user.ID, ProfileInput{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if unchanged.Name != "Ada L" {
		t.Fatalf("empty update changed name to %q", unchanged.Name)
	}
	if _, err := env.auth.UpdateProfile(9999, ProfileInput{Name: "x"}); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("missing user: got=%v", err)
	}
}

func TestDeleteAccountKeepsContentAndFreesEmail(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")
	env.createLesson(t, user.ID, "Go")

	if err := env.auth.DeleteAccount(user.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := env.auth.GetUser(user.ID); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("GetUser after delete: got=%v", err)
	}
	if err := env.auth.DeleteAccount(user.ID); !errors.Is(err, util.ErrUserNotFound) {
		t.Fatalf("delete twice: got=%v", err)
	}

	var quests int64
	env.db.Model(&model.UserQuest{}).Where("user_id = ?", user.ID).Count(&quests)
	if quests != 0 {
		t.Fatalf("quests left: %d", quests)
	}
	if lessons, _ := env.lessons.List(user.ID); len(lessons) != 1 {
		t.Fatalf("lessons: want=1 got=%d", len(lessons))
	}

	// 邮箱已释放，可重新注册
	env.register(t, "ada@example.com")
}

func TestCreateLessonInlinesImagesAndAwardsQuests(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")

	raw := "# Intro\n\nHello---!image: https://img.example.com/a.png---!video: https://www.youtube.com/watch?v=abc123"
	lesson, err := env.lessons.Create(context.Background(), user.ID, LessonInput{Title: "  Go basics ", Content: raw})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if lesson.Title != "Go basics" || lesson.OriginalText != raw || lesson.ID == "" {
		t.Fatalf("lesson: %+v", lesson)
	}

	stored, err := env.lessons.Get(lesson.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.Content) != 3 {
		t.Fatalf("chunks: want=3 got=%d", len(stored.Content))
	}
	if img := stored.Content[1]; img.ContentType != content.ContentTypeImage || !content.IsDataURI(img.Content) {
		t.Fatalf("image chunk not inlined: %+v", img)
	}
	if stored.Author == nil || stored.Author.ID != user.ID {
		t.Fatalf("author not loaded: %+v", stored.Author)
	}

	v := env.view(t, user.ID)
	if v.ExperiencePoints != 300 || v.Level != 2 {
		t.Fatalf("progression: xp=%d level=%d", v.ExperiencePoints, v.Level)
	}
	if q := questOf(v, progression.QuestCreateLessonsRepeating); q.CurrentProgress != 1 {
		t.Fatalf("repeating quest: %+v", q)
	}

	fragments, err := env.lessons.Render(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(fragments) != 4 || !strings.Contains(fragments[3], "embed/abc123") {
		t.Fatalf("fragments: %q", fragments)
	}
}

func TestCreateLessonMediaFailureStoresNothing(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")
	env.fetcher.err = errors.New("connection refused")

	_, err := env.lessons.Create(context.Background(), user.ID, LessonInput{Title: "t", Content: "!image: https://img/x.png"})
	if !errors.Is(err, util.ErrLessonMedia) {
		t.Fatalf("want ErrLessonMedia, got=%v", err)
	}

	lessons, _ := env.lessons.List(0)
	if len(lessons) != 0 {
		t.Fatalf("lesson stored despite media failure: %d", len(lessons))
	}
	if v := env.view(t, user.ID); v.ExperiencePoints != 0 {
		t.Fatalf("xp awarded on failure: %d", v.ExperiencePoints)
	}
}

func TestCreateLessonValidation(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")
	ctx := context.Background()

	if _, err := env.lessons.Create(ctx, user.ID, LessonInput{Title: "   ", Content: "x"}); !errors.Is(err, util.ErrInvalidTitle) {
		t.Fatalf("blank title: got=%v", err)
	}
	if _, err := env.lessons.Create(ctx, user.ID, LessonInput{Title: "t", Content: "  ---more"}); !errors.Is(err, util.ErrInvalidContent) {
		t.Fatalf("empty first chunk: got=%v", err)
	}
	if env.fetcher.calls != 0 {
		t.Fatalf("fetcher called for invalid input")
	}
}

func TestUpdateAndDeleteLessonRequireAuthor(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	author := env.register(t, "ada@example.com")
	other := env.register(t, "bob@example.com")
	lesson := env.createLesson(t, author.ID, "Go")
	ctx := context.Background()

	input := LessonInput{Title: "Go 2", Content: "updated"}
	if _, err := env.lessons.Update(ctx, Actor{UserID: other.ID}, lesson.ID, input); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("update by other: got=%v", err)
	}
	if err := env.lessons.Delete(Actor{UserID: other.ID}, lesson.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("delete by other: got=%v", err)
	}

	updated, err := env.lessons.Update(ctx, Actor{UserID: other.ID, Admin: true}, lesson.ID, input)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Title != "Go 2" || updated.OriginalText != "updated" {
		t.Fatalf("updated: %+v", updated)
	}

	if err := env.lessons.Delete(Actor{UserID: author.ID}, lesson.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := env.lessons.Get(lesson.ID); !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("after delete: got=%v", err)
	}
}

func TestLessonQueries(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	ada := env.register(t, "ada@example.com")
	bob := env.register(t, "bob@example.com")
	env.createLesson(t, ada.ID, "Intro to Go")
	env.createLesson(t, ada.ID, "Channels")
	env.createLesson(t, bob.ID, "Advanced GO patterns")

	all, _ := env.lessons.List(0)
	mine, _ := env.lessons.List(ada.ID)
	if len(all) != 3 || len(mine) != 2 {
		t.Fatalf("list: all=%d mine=%d", len(all), len(mine))
	}

	found, err := env.lessons.Search(" go ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("search go: want=2 got=%d", len(found))
	}
	if empty, _ := env.lessons.Search(""); len(empty) != 0 {
		t.Fatalf("blank search: %d", len(empty))
	}

	recent, _ := env.lessons.Recent()
	if len(recent) != 3 {
		t.Fatalf("recent: %d", len(recent))
	}
}

func TestShowcaseRequiresLessonAndAwardsQuests(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")
	ctx := context.Background()

	input := ShowcaseInput{LessonID: "missing", LessonInput: LessonInput{Title: "My work", Content: "done"}}
	if _, err := env.showcases.Create(ctx, user.ID, input); !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("missing lesson: got=%v", err)
	}

	lesson := env.createLesson(t, user.ID, "Go")
	input.LessonID = lesson.ID
	showcase, err := env.showcases.Create(ctx, user.ID, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	v := env.view(t, user.ID)
	if v.ExperiencePoints != 400 {
		t.Fatalf("xp: want=400 got=%d", v.ExperiencePoints)
	}
	if q := questOf(v, progression.QuestCompleteShowcase); q.State != progression.QuestCompleted {
		t.Fatalf("showcase quest: %+v", q)
	}

	list, _ := env.showcases.Find(repository.ShowcaseFilter{LessonID: lesson.ID})
	if len(list) != 1 || list[0].ID != showcase.ID {
		t.Fatalf("find: %+v", list)
	}
	if _, err := env.showcases.Render(ctx, showcase.ID); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestCommentAndRatingAwardOnce(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	author := env.register(t, "ada@example.com")
	reader := env.register(t, "bob@example.com")
	lesson := env.createLesson(t, author.ID, "Go")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := env.comments.Create(ctx, reader.ID, lesson.ID, fmt.Sprintf("nice %d", i)); err != nil {
			t.Fatalf("comment: %v", err)
		}
	}
	for _, score := range []int{3, 5} {
		if _, err := env.ratings.Rate(ctx, reader.ID, lesson.ID, RatingInput{Category: model.RatingClarity, Score: score}); err != nil {
			t.Fatalf("rate: %v", err)
		}
	}

	if v := env.view(t, reader.ID); v.ExperiencePoints != 100 {
		t.Fatalf("xp: want=100 got=%d", v.ExperiencePoints)
	}

	summary, err := env.ratings.Summary(reader.ID, lesson.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Averages) != 1 || summary.Averages[0].Average != 5 || len(summary.Mine) != 1 {
		t.Fatalf("summary: %+v", summary)
	}

	if _, err := env.ratings.Rate(ctx, reader.ID, lesson.ID, RatingInput{Category: "Funny", Score: 3}); !errors.Is(err, util.ErrInvalidRating) {
		t.Fatalf("bad category: got=%v", err)
	}
	if _, err := env.ratings.Rate(ctx, reader.ID, lesson.ID, RatingInput{Category: model.RatingEngaging, Score: 6}); !errors.Is(err, util.ErrInvalidRating) {
		t.Fatalf("bad score: got=%v", err)
	}

	comments, _ := env.comments.ListByLesson(lesson.ID)
	if len(comments) != 2 {
		t.Fatalf("comments: %d", len(comments))
	}
	if _, err := env.comments.Update(Actor{UserID: author.ID}, comments[0].ID, "edited"); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("edit by other: got=%v", err)
	}
	if err := env.comments.Delete(Actor{UserID: reader.ID}, comments[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := env.comments.Delete(Actor{UserID: reader.ID}, comments[0].ID); !errors.Is(err, util.ErrCommentNotFound) {
		t.Fatalf("double delete: got=%v", err)
	}
}

func TestRatingUndo(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	author := env.register(t, "ada@example.com")
	reader := env.register(t, "bob@example.com")
	lesson := env.createLesson(t, author.ID, "Go")
	ctx := context.Background()

	for _, category := range []model.RatingCategory{model.RatingClarity, model.RatingEngaging} {
		if _, err := env.ratings.Rate(ctx, reader.ID, lesson.ID, RatingInput{Category: category, Score: 4}); err != nil {
			t.Fatalf("rate %s: %v", category, err)
		}
	}

	if err := env.ratings.Delete(reader.ID, lesson.ID, model.RatingClarity); err != nil {
		t.Fatalf("delete clarity: %v", err)
	}
	if err := env.ratings.Delete(reader.ID, lesson.ID, model.RatingClarity); !errors.Is(err, util.ErrRatingNotFound) {
		t.Fatalf("delete twice: want ErrRatingNotFound got=%v", err)
	}
	if err := env.ratings.Delete(reader.ID, lesson.ID, "Funny"); !errors.Is(err, util.ErrInvalidRating) {
		t.Fatalf("bad category: got=%v", err)
	}
	if err := env.ratings.Delete(reader.ID, "missing", ""); !errors.Is(err, util.ErrLessonNotFound) {
		t.Fatalf("missing lesson: got=%v", err)
	}
	if err := env.ratings.Delete(author.ID, lesson.ID, ""); !errors.Is(err, util.ErrRatingNotFound) {
		t.Fatalf("never rated: got=%v", err)
	}

	// 撤销后重新评分不会再次获得评分任务奖励
	if _, err := env.ratings.Rate(ctx, reader.ID, lesson.ID, RatingInput{Category: model.RatingClarity, Score: 2}); err != nil {
		t.Fatalf("re-rate: %v", err)
	}
	v := env.view(t, reader.ID)
	if v.ExperiencePoints != 50 {
		t.Fatalf("xp: want=50 got=%d", v.ExperiencePoints)
	}
	if q := questOf(v, progression.QuestRateLesson); q.CurrentProgress != 1 {
		t.Fatalf("rate quest progress: want=1 got=%d", q.CurrentProgress)
	}

	if err := env.ratings.Delete(reader.ID, lesson.ID, ""); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	summary, err := env.ratings.Summary(reader.ID, lesson.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(summary.Averages) != 0 || len(summary.Mine) != 0 {
		t.Fatalf("summary after undo: %+v", summary)
	}
}

func TestTagsAreNormalizedAndIdempotent(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	author := env.register(t, "ada@example.com")
	other := env.register(t, "bob@example.com")
	lesson := env.createLesson(t, author.ID, "Go")
	actor := Actor{UserID: author.ID}

	for _, name := range []string{"Golang", " golang ", "Concurrency"} {
		if _, err := env.tags.Add(actor, lesson.ID, name); err != nil {
			t.Fatalf("Add %q: %v", name, err)
		}
	}
	tags, _ := env.tags.ListByLesson(lesson.ID)
	if strings.Join(tags, ",") != "concurrency,golang" {
		t.Fatalf("tags: %v", tags)
	}

	if _, err := env.tags.Add(Actor{UserID: other.ID}, lesson.ID, "spam"); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("add by other: got=%v", err)
	}
	if _, err := env.tags.Add(actor, lesson.ID, strings.Repeat("x", util.MaxTagLength+1)); !errors.Is(err, util.ErrInvalidTag) {
		t.Fatalf("long tag: got=%v", err)
	}

	tagged, err := env.lessons.ByTag("GOLANG")
	if err != nil || len(tagged) != 1 || tagged[0].ID != lesson.ID {
		t.Fatalf("ByTag: %v %v", tagged, err)
	}

	if tags, _ = env.tags.Remove(actor, lesson.ID, "golang"); len(tags) != 1 {
		t.Fatalf("after remove: %v", tags)
	}
}

func TestViewBackfillsQuestsAddedToCatalog(t *testing.T) {
	small, err := progression.NewCatalog([]progression.QuestTemplate{
		{Name: progression.QuestCreateLesson, Desc: "first lesson", InitialGoal: 1, Reward: 300},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	env := newTestEnv(t, small)
	user := env.register(t, "ada@example.com")
	if v := env.view(t, user.ID); len(v.Quests) != 1 {
		t.Fatalf("seeded quests: %d", len(v.Quests))
	}

	env.progression.Catalog = progression.DefaultCatalog()
	v := env.view(t, user.ID)
	if len(v.Quests) != 7 {
		t.Fatalf("backfilled quests: want=7 got=%d", len(v.Quests))
	}

	acc, err := env.progression.Repo.Load(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(acc.Quests) != 7 {
		t.Fatalf("backfill not persisted: %d", len(acc.Quests))
	}
}

func TestConcurrentRecordIsSerialized(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.progression.Record(context.Background(), user.ID, Progress(progression.QuestCreateLessonsRepeating)); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()

	v := env.view(t, user.ID)
	q := questOf(v, progression.QuestCreateLessonsRepeating)
	// 每 3 次完成一轮，20 次共完成 6 轮
	if q.CurrentProgress != 20 || q.GoalProgress != 21 || v.ExperiencePoints != 6*250 {
		t.Fatalf("after 20 events: quest=%+v xp=%d", q, v.ExperiencePoints)
	}
}

func TestRecordUnknownQuestIsNoop(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	user := env.register(t, "ada@example.com")

	outcomes, err := env.progression.Record(context.Background(), user.ID, Progress("no-such-quest"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Applied {
		t.Fatalf("outcomes: %+v", outcomes)
	}
	if _, err := env.progression.Record(context.Background(), 9999, Progress(progression.QuestCreateLesson)); err == nil {
		t.Fatalf("want error for missing account")
	}
}

func TestLeaderboardOrdersByExperience(t *testing.T) {
	env := newTestEnv(t, progression.DefaultCatalog())
	ada := env.register(t, "ada@example.com")
	bob := env.register(t, "bob@example.com")
	env.createLesson(t, bob.ID, "Go")

	entries, err := env.progression.Leaderboard(0)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != bob.ID || entries[1].UserID != ada.ID {
		t.Fatalf("entries: %+v", entries)
	}
	if entries[0].ExperiencePoints != 300 || entries[0].Name != "bob" {
		t.Fatalf("top entry: %+v", entries[0])
	}
}
