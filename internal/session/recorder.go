package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/store"
)

// Topics published by the recorder.
const (
	TopicQuizSubmitted  = "quiz.submitted"
	TopicExamFlagged    = "exam.flagged"
	TopicProfileLevelUp = "profile.level_up"
)

// Publisher broadcasts domain events to other systems.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Metrics counts recorder activity.
type Metrics interface {
	Submission(variant, trigger string, passed bool)
	Violation(kind string)
	Flagged()
	PersistenceFailure(op string)
}

// RecorderDeps are the stores and hooks a Recorder writes through.
type RecorderDeps struct {
	Attempts        store.AttemptRepo
	Profiles        store.ProfileRepo
	Recommendations store.RecommendationRepo
	Exams           store.ExamSessionRepo

	Publisher Publisher
	Metrics   Metrics
	Logger    *zap.Logger

	// OnEvent receives level-up notices and a "recorded" marker per
	// submission once its writes have been attempted.
	OnEvent func(Event)

	// Timeout bounds each write.
	Timeout time.Duration
}

// Recorder is the Sink that persists session side effects. A single worker
// applies them in the order they were produced, so an exam row always
// exists before its counters move. Each write is tried once; failures are
// logged and counted, never retried.
type Recorder struct {
	deps RecorderDeps
	log  *zap.Logger

	// queue is unbounded; enqueue never waits on the worker.
	mu      sync.Mutex
	ready   *sync.Cond
	queue   []func(context.Context)
	closed  bool
	pending sync.WaitGroup
	done    chan struct{}
}

func NewRecorder(deps RecorderDeps) *Recorder {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 10 * time.Second
	}
	r := &Recorder{
		deps: deps,
		log:  deps.Logger,
		done: make(chan struct{}),
	}
	r.ready = sync.NewCond(&r.mu)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for {
		job, ok := r.next()
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.deps.Timeout)
		job(ctx)
		cancel()
		r.pending.Done()
	}
}

// next blocks until a job is queued. It reports false once the recorder
// is closed and the queue is drained.
func (r *Recorder) next() (func(context.Context), bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for len(r.queue) == 0 && !r.closed {
		r.ready.Wait()
	}
	if len(r.queue) == 0 {
		return nil, false
	}
	job := r.queue[0]
	r.queue[0] = nil
	r.queue = r.queue[1:]
	return job, true
}

func (r *Recorder) enqueue(op string, job func(context.Context)) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("recorder closed, dropping write", zap.String("op", op))
		r.failed(op)
		return
	}
	r.pending.Add(1)
	r.queue = append(r.queue, job)
	r.mu.Unlock()
	r.ready.Signal()
}

// Wait blocks until every queued write has been attempted.
func (r *Recorder) Wait() {
	r.pending.Wait()
}

// Close drains the queue and stops the worker.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.ready.Broadcast()
	<-r.done
}

func (r *Recorder) ExamStarted(e ExamStart) {
	r.enqueue("exam_create", func(ctx context.Context) {
		if r.deps.Exams == nil {
			return
		}
		err := r.deps.Exams.Create(ctx, &store.ExamSession{
			ID:        e.ExamID,
			UserID:    e.UserID,
			QuizID:    e.QuizID,
			StartedAt: e.StartedAt,
			Active:    true,
		})
		r.check("exam_create", err, zap.String("exam_id", e.ExamID), zap.String("user_id", e.UserID))
	})
}

func (r *Recorder) Violation(examID string, kind ViolationKind) {
	r.enqueue("exam_violation", func(ctx context.Context) {
		if r.deps.Metrics != nil {
			r.deps.Metrics.Violation(string(kind))
		}
		if r.deps.Exams == nil {
			return
		}
		_, err := r.deps.Exams.IncrementViolation(ctx, examID, string(kind))
		r.check("exam_violation", err, zap.String("exam_id", examID), zap.String("kind", string(kind)))
	})
}

func (r *Recorder) Flagged(examID, reason string) {
	r.enqueue("exam_flag", func(ctx context.Context) {
		if r.deps.Metrics != nil {
			r.deps.Metrics.Flagged()
		}
		if r.deps.Exams != nil {
			err := r.deps.Exams.Flag(ctx, examID, reason)
			r.check("exam_flag", err, zap.String("exam_id", examID))
		}
		r.publish(ctx, TopicExamFlagged, map[string]any{
			"exam_id": examID,
			"reason":  reason,
		})
	})
}

func (r *Recorder) Abandoned(examID string, at time.Time) {
	r.enqueue("exam_close", func(ctx context.Context) {
		if r.deps.Exams == nil {
			return
		}
		err := r.deps.Exams.Close(ctx, examID, at)
		r.check("exam_close", err, zap.String("exam_id", examID))
	})
}

func (r *Recorder) Submitted(sub Submission) {
	r.enqueue("attempt_create", func(ctx context.Context) {
		r.recordSubmission(ctx, sub)
	})
}

func (r *Recorder) recordSubmission(ctx context.Context, sub Submission) {
	res := sub.Result
	fields := []zap.Field{
		zap.String("session_id", sub.SessionID),
		zap.String("quiz_id", sub.Quiz.ID),
		zap.String("user_id", sub.UserID),
	}

	if r.deps.Metrics != nil {
		r.deps.Metrics.Submission(string(sub.Variant), string(res.Trigger), res.Passed)
	}

	attempt := &store.Attempt{
		ID:             uuid.NewString(),
		UserID:         sub.UserID,
		QuizID:         sub.Quiz.ID,
		Score:          res.Score.Percentage,
		CorrectCount:   res.Score.Correct,
		TotalCount:     res.Score.Total,
		Points:         res.Score.Points,
		ElapsedSeconds: int(res.Elapsed / time.Second),
		Passed:         res.Passed,
		Variant:        string(sub.Variant),
		Trigger:        string(res.Trigger),
		CreatedAt:      res.SubmittedAt,
	}
	if r.deps.Attempts != nil {
		r.check("attempt_create", r.deps.Attempts.Create(ctx, attempt), fields...)
	}

	if res.Passed {
		r.applyProgression(ctx, sub, fields)
	} else {
		r.recommend(ctx, sub, fields)
	}

	if sub.ExamID != "" && r.deps.Exams != nil {
		err := r.deps.Exams.Close(ctx, sub.ExamID, res.SubmittedAt)
		r.check("exam_close", err, append(fields, zap.String("exam_id", sub.ExamID))...)
	}

	r.publish(ctx, TopicQuizSubmitted, attempt)
	r.emit(Event{Kind: EventRecorded, SessionID: sub.SessionID, UserID: sub.UserID, Result: &res})
}

func (r *Recorder) applyProgression(ctx context.Context, sub Submission, fields []zap.Field) {
	if r.deps.Profiles == nil {
		return
	}
	profile, err := r.deps.Profiles.Get(ctx, sub.UserID)
	if err != nil {
		r.check("profile_update", err, fields...)
		return
	}

	prog := sub.Policy.Thresholds.Apply(profile, sub.Result.Score.Points)
	if err := r.deps.Profiles.Save(ctx, prog.After); err != nil {
		r.check("profile_update", err, fields...)
		return
	}

	if prog.LeveledUp() {
		r.log.Info("level up",
			zap.String("user_id", sub.UserID),
			zap.String("from", string(prog.Before.Level)),
			zap.String("to", string(prog.After.Level)),
		)
		r.publish(ctx, TopicProfileLevelUp, prog)
		r.emit(Event{Kind: EventLevelUp, SessionID: sub.SessionID, UserID: sub.UserID, Progression: &prog})
	}
}

func (r *Recorder) recommend(ctx context.Context, sub Submission, fields []zap.Field) {
	if r.deps.Recommendations == nil {
		return
	}
	err := r.deps.Recommendations.Create(ctx, &store.Recommendation{
		ID:        uuid.NewString(),
		UserID:    sub.UserID,
		LessonID:  sub.Quiz.LessonID,
		QuizID:    sub.Quiz.ID,
		Priority:  sub.Policy.RecommendationPriority,
		Reason:    quiz.RemedialReason(sub.Quiz.Title, sub.Result.Score.Percentage, sub.Quiz.PassingScore),
		CreatedAt: sub.Result.SubmittedAt,
	})
	r.check("recommendation_create", err, fields...)
}

func (r *Recorder) check(op string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	r.log.Warn("persistence failed", append(fields, zap.String("op", op), zap.Error(err))...)
	r.failed(op)
}

func (r *Recorder) failed(op string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.PersistenceFailure(op)
	}
}

func (r *Recorder) publish(ctx context.Context, topic string, payload any) {
	if r.deps.Publisher == nil {
		return
	}
	if err := r.deps.Publisher.Publish(ctx, topic, payload); err != nil {
		r.log.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (r *Recorder) emit(ev Event) {
	if r.deps.OnEvent != nil {
		r.deps.OnEvent(ev)
	}
}
