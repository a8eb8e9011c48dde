package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mailagent/llm"
	"mailagent/models"
	"mailagent/utils"
)

// ProcessingError is a structured pipeline failure. It carries the id
// of the email that failed so batch callers can attribute it.
type ProcessingError struct {
	EmailID string
	Err     error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing email %s: %v", e.EmailID, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Agent owns the thread registry and sequences the three pipeline
// stages for each incoming email: compress, classify, reply.
type Agent struct {
	compressor *ContextCompressor
	classifier *SmartClassifier
	replier    *ReplyGenerator

	mu      sync.Mutex
	threads map[string]*models.EmailThread
	locks   map[string]*sync.Mutex
}

// New creates an agent with an empty thread registry.
func New(client llm.Client, digestTTL time.Duration) *Agent {
	return &Agent{
		compressor: NewContextCompressor(client, digestTTL),
		classifier: NewSmartClassifier(client),
		replier:    NewReplyGenerator(client),
		threads:    make(map[string]*models.EmailThread),
		locks:      make(map[string]*sync.Mutex),
	}
}

// GetOrCreateThread returns the thread for an id, creating an empty one
// seeded with the subject when it does not exist yet.
func (a *Agent) GetOrCreateThread(id, subject string) *models.EmailThread {
	a.mu.Lock()
	defer a.mu.Unlock()

	thread, ok := a.threads[id]
	if !ok {
		thread = models.NewEmailThread(id, subject)
		a.threads[id] = thread
	}
	return thread
}

// Thread looks up a thread by id.
func (a *Agent) Thread(id string) (*models.EmailThread, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	thread, ok := a.threads[id]
	return thread, ok
}

// threadLock returns the mutex serializing append+compress for one
// thread id. Callers on different threads never contend.
func (a *Agent) threadLock(id string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock, ok := a.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[id] = lock
	}
	return lock
}

// ProcessEmail runs the full pipeline on one email: attach to its
// thread, compress, classify, draft a reply, build the follow-up
// reminder. Dependency failures are absorbed by per-stage fallbacks;
// anything else comes back as a *ProcessingError, never as a panic.
func (a *Agent) ProcessEmail(ctx context.Context, email *models.Email, tone string) (result *models.ProcessResult, err error) {
	if email == nil {
		return nil, &ProcessingError{Err: fmt.Errorf("email is nil")}
	}

	defer func() {
		if r := recover(); r != nil {
			utils.Log.WithField("email", email.ID).Error("Pipeline panic: %v", r)
			result = nil
			err = &ProcessingError{EmailID: email.ID, Err: fmt.Errorf("internal error: %v", r)}
		}
	}()

	email.Normalize()
	if verr := email.Validate(); verr != nil {
		return nil, &ProcessingError{EmailID: email.ID, Err: verr}
	}

	threadID := email.ThreadID
	if threadID == "" {
		threadID = email.ID
	}

	lock := a.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	thread := a.GetOrCreateThread(threadID, email.Subject)
	thread.AddEmail(email)

	digest := a.compressor.Compress(ctx, thread, false)
	classification := a.classifier.Classify(ctx, email, digest)
	reply := a.replier.GenerateReply(ctx, email, digest, classification, tone)
	followUp := a.replier.FollowUpReminder(digest)

	return &models.ProcessResult{
		EmailID:          email.ID,
		ThreadID:         thread.ID,
		Context:          digest,
		Classification:   classification,
		Reply:            reply,
		FollowUpReminder: followUp,
		Metadata: models.ProcessMetadata{
			EmailsInThread: thread.MessageCount(),
			ThreadSubject:  thread.Subject,
			ProcessedAt:    time.Now(),
		},
	}, nil
}

// BatchProcess applies ProcessEmail to each email independently. One
// email's failure never aborts the batch.
func (a *Agent) BatchProcess(ctx context.Context, emails []*models.Email, tone string) []models.BatchResult {
	results := make([]models.BatchResult, 0, len(emails))
	for _, email := range emails {
		id := ""
		if email != nil {
			id = email.ID
		}

		result, err := a.ProcessEmail(ctx, email, tone)
		if err != nil {
			results = append(results, models.BatchResult{EmailID: id, Error: err.Error()})
			continue
		}
		results = append(results, models.BatchResult{EmailID: id, Result: result})
	}
	return results
}

// GenerateReply re-runs compression and classification for a stored
// email (both served from cache when the thread has not grown) and
// drafts a reply in the requested tone.
func (a *Agent) GenerateReply(ctx context.Context, email *models.Email, tone string) *models.ReplySuggestion {
	threadID := email.ThreadID
	if threadID == "" {
		threadID = email.ID
	}

	lock := a.threadLock(threadID)
	lock.Lock()
	defer lock.Unlock()

	thread := a.GetOrCreateThread(threadID, email.Subject)
	digest := a.compressor.Compress(ctx, thread, false)
	classification := a.classifier.Classify(ctx, email, digest)
	return a.replier.GenerateReply(ctx, email, digest, classification, tone)
}

// ThreadSummary returns the compact projection of a thread, or false
// when the thread is unknown.
func (a *Agent) ThreadSummary(ctx context.Context, id string) (*models.ThreadSummary, bool) {
	thread, ok := a.Thread(id)
	if !ok {
		return nil, false
	}

	lock := a.threadLock(id)
	lock.Lock()
	defer lock.Unlock()

	digest := a.compressor.Compress(ctx, thread, false)

	return &models.ThreadSummary{
		ThreadID:     id,
		Subject:      thread.Subject,
		EmailCount:   thread.MessageCount(),
		Participants: thread.Participants,
		Summary:      digest.Summary,
		ActionItems:  digest.ActionItems,
		LastUpdated:  thread.LastUpdated,
	}, true
}
