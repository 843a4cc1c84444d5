package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/dbraendle/postcraft/internal/llm"
	"github.com/dbraendle/postcraft/internal/models"
)

// testClock is a manually advanced time source shared by the worker and the
// fake repository so retry schedules can be exercised without sleeping.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func rec(table, id string) surrealmodels.RecordID {
	return surrealmodels.RecordID{Table: table, ID: id}
}

// fakeRepo is an in-memory Repository mirroring the persistence semantics
// the worker relies on: claim eligibility, replace-wholesale writes, and the
// source status machine fields.
type fakeRepo struct {
	mu          sync.Mutex
	now         func() time.Time
	jobs        map[string]*models.Job
	jobOrder    []string
	sources     map[string]*models.Source
	sourceOrder []string
	chunks      map[string][]models.Chunk
	profiles    map[string]*models.ContextProfile
	runs        map[string]*models.GenerationRun
	posts       map[string][]models.GeneratedPost
	logs        map[string][]models.JobLogEntry
	chunkSeq    int
}

func newFakeRepo(clock *testClock) *fakeRepo {
	return &fakeRepo{
		now:      clock.Now,
		jobs:     make(map[string]*models.Job),
		sources:  make(map[string]*models.Source),
		chunks:   make(map[string][]models.Chunk),
		profiles: make(map[string]*models.ContextProfile),
		runs:     make(map[string]*models.GenerationRun),
		posts:    make(map[string][]models.GeneratedPost),
		logs:     make(map[string][]models.JobLogEntry),
	}
}

// Test seeding helpers.

func (f *fakeRepo) addSource(projectID string, status models.SourceStatus, text string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	source := &models.Source{
		ID:        rec("source", id),
		Project:   rec("project", projectID),
		Type:      models.SourceTypeFile,
		Status:    status,
		CreatedAt: f.now(),
	}
	if text != "" {
		source.ExtractedText = &text
	}
	f.sources[id] = source
	f.sourceOrder = append(f.sourceOrder, id)
	return id
}

func (f *fakeRepo) addRun(projectID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.runs[id] = &models.GenerationRun{
		ID:             rec("generation_run", id),
		Project:        rec("project", projectID),
		TonePreset:     models.ToneCasual,
		Strictness:     models.StrictnessModerate,
		HashtagDensity: models.HashtagMedium,
		Status:         models.RunStatusPending,
		CreatedAt:      f.now(),
	}
	return id
}

func (f *fakeRepo) addProfile(projectID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[projectID] = &models.ContextProfile{
		ID:        rec("context_profile", projectID),
		Project:   rec("project", projectID),
		Audience:  "indie developers",
		Tone:      "direct and technical",
		Themes:    []string{"shipping"},
		UpdatedAt: f.now(),
	}
}

func (f *fakeRepo) job(id string) models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.jobs[id]
}

func (f *fakeRepo) source(id string) models.Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.sources[id]
}

func (f *fakeRepo) run(id string) models.GenerationRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.runs[id]
}

func (f *fakeRepo) jobsByType(jobType models.JobType) []models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Job
	for _, id := range f.jobOrder {
		if f.jobs[id].Type == jobType {
			out = append(out, *f.jobs[id])
		}
	}
	return out
}

// Repository implementation.

func (f *fakeRepo) QueryCreateJob(_ context.Context, input models.JobInput) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	job := &models.Job{
		ID:          rec("job", id),
		Project:     rec("project", input.ProjectID),
		Type:        input.Type,
		Status:      models.JobStatusPending,
		MaxAttempts: models.DefaultMaxAttempts,
		NextRunAt:   f.now(),
		CreatedAt:   f.now(),
	}
	if input.SourceID != nil {
		sourceRec := rec("source", *input.SourceID)
		job.Source = &sourceRec
	}
	if input.RunID != nil {
		runRec := rec("generation_run", *input.RunID)
		job.Run = &runRec
	}
	f.jobs[id] = job
	f.jobOrder = append(f.jobOrder, id)
	copied := *job
	return &copied, nil
}

func (f *fakeRepo) QueryClaimNextJob(_ context.Context, workerID string, now time.Time, lockTimeout time.Duration) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lockExpiry := now.Add(-lockTimeout)
	var candidate *models.Job
	for _, id := range f.jobOrder {
		job := f.jobs[id]
		if job.Status != models.JobStatusPending && job.Status != models.JobStatusProcessing {
			continue
		}
		if job.NextRunAt.After(now) || job.Attempts >= job.MaxAttempts {
			continue
		}
		if job.LockedAt != nil && !job.LockedAt.Before(lockExpiry) {
			continue
		}
		if candidate == nil || job.NextRunAt.Before(candidate.NextRunAt) {
			candidate = job
		}
	}
	if candidate == nil {
		return nil, nil
	}

	candidate.Status = models.JobStatusProcessing
	candidate.Attempts++
	lockedAt := now
	candidate.LockedAt = &lockedAt
	candidate.LockedBy = &workerID
	copied := *candidate
	return &copied, nil
}

func (f *fakeRepo) QueryCompleteJob(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Status = models.JobStatusCompleted
	job.LockedAt = nil
	job.LockedBy = nil
	job.ErrorMessage = nil
	return nil
}

func (f *fakeRepo) QueryFailJob(_ context.Context, id string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &message
	job.LockedAt = nil
	job.LockedBy = nil
	return nil
}

func (f *fakeRepo) QueryScheduleRetry(_ context.Context, id string, message string, nextRunAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.Status = models.JobStatusPending
	job.ErrorMessage = &message
	job.NextRunAt = nextRunAt
	job.LockedAt = nil
	job.LockedBy = nil
	return nil
}

func (f *fakeRepo) QueryFailPendingJobsForSource(_ context.Context, sourceID string, message string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, job := range f.jobs {
		if job.Source == nil || job.Source.ID != sourceID || job.Status != models.JobStatusPending {
			continue
		}
		job.Status = models.JobStatusFailed
		job.ErrorMessage = &message
		count++
	}
	return count, nil
}

func (f *fakeRepo) QueryAppendJobLog(_ context.Context, jobID string, level string, message string, meta map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs[jobID] = append(f.logs[jobID], models.JobLogEntry{
		ID:        rec("job_log", uuid.NewString()),
		Job:       rec("job", jobID),
		Level:     level,
		Message:   message,
		Meta:      meta,
		CreatedAt: f.now(),
	})
	return nil
}

func (f *fakeRepo) QueryGetSource(_ context.Context, id string) (*models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	source, ok := f.sources[id]
	if !ok {
		return nil, nil
	}
	copied := *source
	return &copied, nil
}

func (f *fakeRepo) QueryListSources(_ context.Context, projectID string) ([]models.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Source
	for _, id := range f.sourceOrder {
		if f.sources[id].Project.ID == projectID {
			out = append(out, *f.sources[id])
		}
	}
	return out, nil
}

func (f *fakeRepo) QueryUpdateSourceStatus(_ context.Context, id string, status models.SourceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	source, ok := f.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	source.Status = status
	source.ErrorMessage = nil
	return nil
}

func (f *fakeRepo) QuerySetSourceExtractedText(_ context.Context, id string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	source, ok := f.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	source.ExtractedText = &text
	source.Status = models.SourceStatusExtracted
	return nil
}

func (f *fakeRepo) QueryFailSource(_ context.Context, id string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	source, ok := f.sources[id]
	if !ok {
		return fmt.Errorf("source %s not found", id)
	}
	source.Status = models.SourceStatusFailed
	source.ErrorMessage = &message
	return nil
}

func (f *fakeRepo) QueryReplaceChunks(_ context.Context, sourceID string, inputs []models.ChunkInput) ([]models.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([]models.Chunk, len(inputs))
	for i, input := range inputs {
		f.chunkSeq++
		rows[i] = models.Chunk{
			ID:        rec("chunk", fmt.Sprintf("c%d", f.chunkSeq)),
			Source:    rec("source", sourceID),
			Index:     input.Index,
			Content:   input.Content,
			Hash:      input.Hash,
			Headings:  input.Headings,
			Keywords:  input.Keywords,
			CreatedAt: f.now(),
		}
	}
	f.chunks[sourceID] = rows
	out := make([]models.Chunk, len(rows))
	copy(out, rows)
	return out, nil
}

func (f *fakeRepo) QueryListProjectChunks(_ context.Context, projectID string, statuses []models.SourceStatus) ([]models.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := make(map[models.SourceStatus]bool, len(statuses))
	for _, s := range statuses {
		allowed[s] = true
	}
	var out []models.Chunk
	for _, id := range f.sourceOrder {
		source := f.sources[id]
		if source.Project.ID != projectID || !allowed[source.Status] {
			continue
		}
		out = append(out, f.chunks[id]...)
	}
	return out, nil
}

func (f *fakeRepo) QueryUpsertContextProfile(_ context.Context, projectID string, input models.ContextProfileInput) (*models.ContextProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile := &models.ContextProfile{
		ID:        rec("context_profile", projectID),
		Project:   rec("project", projectID),
		Audience:  input.Audience,
		Tone:      input.Tone,
		Themes:    input.Themes,
		KeyClaims: input.KeyClaims,
		UpdatedAt: f.now(),
	}
	f.profiles[projectID] = profile
	copied := *profile
	return &copied, nil
}

func (f *fakeRepo) QueryGetContextProfile(_ context.Context, projectID string) (*models.ContextProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[projectID]
	if !ok {
		return nil, nil
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeRepo) QueryGetRun(_ context.Context, id string) (*models.GenerationRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

func (f *fakeRepo) QueryUpdateRunStatus(_ context.Context, id string, status models.RunStatus, message *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	run.Status = status
	run.ErrorMessage = message
	return nil
}

func (f *fakeRepo) QueryReplacePosts(_ context.Context, runID string, inputs []models.GeneratedPostInput) ([]models.GeneratedPost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([]models.GeneratedPost, len(inputs))
	for i, input := range inputs {
		rows[i] = models.GeneratedPost{
			ID:            rec("generated_post", uuid.NewString()),
			Run:           rec("generation_run", runID),
			Platform:      input.Platform,
			InstagramType: input.InstagramType,
			Payload:       input.Payload,
			Citations:     input.Citations,
			CreatedAt:     f.now(),
		}
	}
	f.posts[runID] = rows
	out := make([]models.GeneratedPost, len(rows))
	copy(out, rows)
	return out, nil
}

var _ Repository = (*fakeRepo)(nil)

// Collaborator fakes.

type fakeExtractor struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, _ *models.Source) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeGenerator struct {
	mu           sync.Mutex
	profile      *models.ContextProfileInput
	batch        *llm.GenerationBatch
	profileErr   error
	batchErr     error
	profileCalls int
	batchCalls   int
	lastChunks   []llm.PromptChunk
}

func (f *fakeGenerator) GenerateProfile(_ context.Context, chunks []llm.PromptChunk) (*models.ContextProfileInput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileCalls++
	f.lastChunks = chunks
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeGenerator) GenerateBatch(
	_ context.Context,
	_ *models.ContextProfile,
	chunks []llm.PromptChunk,
	_ models.TonePreset,
	_ models.StrictnessLevel,
	_ models.HashtagDensity,
) (*llm.GenerationBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	f.lastChunks = chunks
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	return f.batch, nil
}

// validBatch builds a batch matching the required composition: two
// carousels, three singles, five tweets, five LinkedIn posts.
func validBatch() *llm.GenerationBatch {
	cite := []models.Citation{{ChunkID: "chunk:c1", Quote: "a verbatim quote"}}
	batch := &llm.GenerationBatch{}

	for i := 0; i < 2; i++ {
		batch.Instagram = append(batch.Instagram, llm.InstagramPost{
			Type: models.InstagramCarousel,
			Carousel: &llm.InstagramCarouselPost{
				Type: "carousel",
				Slides: []llm.CarouselSlide{
					{Heading: "Slide one", Body: "First point."},
					{Heading: "Slide two", Body: "Second point."},
				},
				Caption:   fmt.Sprintf("Carousel caption %d", i+1),
				Hashtags:  []string{"#build"},
				Citations: cite,
			},
		})
	}
	for i := 0; i < 3; i++ {
		batch.Instagram = append(batch.Instagram, llm.InstagramPost{
			Type: models.InstagramSingle,
			Single: &llm.InstagramSinglePost{
				Type:      "single",
				Caption:   fmt.Sprintf("Single caption %d", i+1),
				Hashtags:  []string{"#ship"},
				Citations: cite,
			},
		})
	}
	for i := 0; i < 5; i++ {
		batch.Tweets = append(batch.Tweets, llm.TextPost{
			Text:      fmt.Sprintf("Tweet %d", i+1),
			Hashtags:  []string{"#go"},
			Citations: cite,
		})
		batch.LinkedIn = append(batch.LinkedIn, llm.TextPost{
			Text:      fmt.Sprintf("LinkedIn post %d", i+1),
			Hashtags:  []string{"#engineering"},
			Citations: cite,
		})
	}
	return batch
}

func sampleProfile() *models.ContextProfileInput {
	return &models.ContextProfileInput{
		Audience: "founders",
		Tone:     "pragmatic",
		Themes:   []string{"automation", "focus"},
		KeyClaims: []models.KeyClaim{
			{Claim: "Small batches ship faster", ChunkIDs: []string{"chunk:c1"}, Quote: "ship in small batches"},
		},
	}
}
