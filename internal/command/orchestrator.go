// Package command composes the classifier, context tracker, tag cache, and
// upstream client to handle one inbound utterance end-to-end.
package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/tagtalk/tagtalk/internal/classifier"
	"github.com/tagtalk/tagtalk/internal/conversation"
	"github.com/tagtalk/tagtalk/internal/events"
	logpkg "github.com/tagtalk/tagtalk/internal/logger"
	"github.com/tagtalk/tagtalk/internal/models"
	"github.com/tagtalk/tagtalk/internal/tagcache"
	"github.com/tagtalk/tagtalk/internal/upstream"
	"github.com/tagtalk/tagtalk/internal/validation"
	"go.uber.org/zap"
)

const (
	// ConfidenceThreshold is the cutoff below which an extraction is treated
	// as ambiguous. No upstream call is ever made below it.
	ConfidenceThreshold = 0.70
	// MaxUtteranceLength bounds inbound utterances
	MaxUtteranceLength = 500
)

// TaskService is the upstream surface the orchestrator depends on. The
// production implementation is *upstream.Client; tests supply fakes.
type TaskService interface {
	ListTags(ctx context.Context, token string) ([]string, error)
	ListTasks(ctx context.Context, token string, filter models.TaskFilter) ([]models.Task, error)
	GetTask(ctx context.Context, token string, taskID uuid.UUID) (*models.Task, error)
	CreateTask(ctx context.Context, token string, req models.CreateTaskRequest) (*models.Task, error)
	UpdateTaskTags(ctx context.Context, token string, taskID uuid.UUID, tags []string) (*models.Task, error)
	CompleteTask(ctx context.Context, token string, taskID uuid.UUID, completed bool) (*models.Task, error)
	DeleteTask(ctx context.Context, token string, taskID uuid.UUID) error
}

// EventPublisher receives executed-mutation events; *events.Publisher
// satisfies it and a nil publisher is valid
type EventPublisher interface {
	Publish(ctx context.Context, ev events.CommandEvent)
}

// Orchestrator handles inbound utterances. All shared state (tracker, cache)
// is partitioned by user id and accessed only through the injected
// dependencies, so the orchestrator itself is stateless and safe for
// concurrent use.
type Orchestrator struct {
	classifier classifier.Classifier
	tracker    *conversation.Tracker
	cache      tagcache.Cache
	tasks      TaskService
	publisher  EventPublisher
	logger     *zap.Logger
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithEventPublisher attaches an optional mutation-event publisher
func WithEventPublisher(p EventPublisher) OrchestratorOption {
	return func(o *Orchestrator) { o.publisher = p }
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(
	cls classifier.Classifier,
	tracker *conversation.Tracker,
	cache tagcache.Cache,
	tasks TaskService,
	logger *zap.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		classifier: cls,
		tracker:    tracker,
		cache:      cache,
		tasks:      tasks,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleCommand handles one utterance for one user and always returns a
// Response; no error type crosses this boundary unwrapped. The token is the
// caller's upstream credential, forwarded verbatim.
func (o *Orchestrator) HandleCommand(ctx context.Context, userID, token, utterance string) Response {
	text := validation.SanitizeText(utterance)
	if text == "" {
		return failWith(ErrorValidation, "Please enter a command.")
	}
	if len(text) > MaxUtteranceLength {
		return failWith(ErrorValidation,
			fmt.Sprintf("That command is too long; please keep it under %d characters.", MaxUtteranceLength))
	}

	ext := o.classifier.Classify(text)

	if ext.Confidence < ConfidenceThreshold {
		o.logger.Info("low_confidence",
			zap.String("raw_text", logpkg.SanitizeUtterance(ext.RawText)),
			zap.Strings("extracted_tags", ext.Tags),
			zap.Float64("confidence", ext.Confidence),
			zap.String("user_id", logpkg.SanitizeUserID(userID)),
		)
		return clarify(
			"I'm not sure what you meant. Try something like 'show tasks tagged with work' or 'add task buy milk tagged with home'.",
			ext.Tags, ext.Intent)
	}

	switch ext.Intent {
	case classifier.IntentListTags:
		return o.handleListTags(ctx, userID, token)
	case classifier.IntentList:
		return o.handleList(ctx, userID, token, ext)
	case classifier.IntentCreate:
		return o.handleCreate(ctx, userID, token, ext)
	case classifier.IntentAddTag:
		return o.handleAddTag(ctx, userID, token, ext)
	case classifier.IntentRemoveTag:
		return o.handleRemoveTag(ctx, userID, token, ext)
	case classifier.IntentComplete:
		return o.handleComplete(ctx, userID, token)
	case classifier.IntentDelete:
		return o.handleDelete(ctx, userID, token)
	default:
		return clarify(
			"I can list tasks, create tasks, tag them, or list your tags. What would you like to do?",
			nil, classifier.IntentUnknown)
	}
}

func (o *Orchestrator) handleListTags(ctx context.Context, userID, token string) Response {
	if tags, ok := o.cache.Get(ctx, userID); ok {
		o.tracker.Update(userID, classifier.IntentListTags, uuid.Nil)
		return answer(tagListAnswer(tags))
	}

	tags, err := o.tasks.ListTags(ctx, token)
	if err != nil {
		return o.failure(userID, "/tags", err)
	}

	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)

	o.cache.Set(ctx, userID, sorted)
	o.tracker.Update(userID, classifier.IntentListTags, uuid.Nil)
	return answer(tagListAnswer(sorted))
}

func tagListAnswer(tags []string) Answer {
	if len(tags) == 0 {
		return Answer{Text: "You haven't created any tags yet.", Tags: []string{}}
	}
	noun := "tags"
	if len(tags) == 1 {
		noun = "tag"
	}
	return Answer{
		Text: fmt.Sprintf("You have %d %s: %s", len(tags), noun, strings.Join(tags, ", ")),
		Tags: tags,
	}
}

func (o *Orchestrator) handleList(ctx context.Context, userID, token string, ext classifier.ExtractionResult) Response {
	if r, bad := o.rejectInvalidTags(ext); bad {
		return r
	}

	filter := models.TaskFilter{Tags: ext.Tags, Completed: ext.Completed}
	tasks, err := o.tasks.ListTasks(ctx, token, filter)
	if err != nil {
		return o.failure(userID, "/tasks", err)
	}

	o.tracker.Update(userID, classifier.IntentList, uuid.Nil)

	if len(tasks) == 0 && len(ext.Tags) > 0 {
		return answer(Answer{
			Text: fmt.Sprintf("No tasks found with tag(s): %s", strings.Join(ext.Tags, ", ")),
			Tags: ext.Tags,
		})
	}
	return answer(Answer{
		Text:  fmt.Sprintf("Found %d task(s)", len(tasks)),
		Tags:  ext.Tags,
		Tasks: tasks,
	})
}

func (o *Orchestrator) handleCreate(ctx context.Context, userID, token string, ext classifier.ExtractionResult) Response {
	if ext.Title == "" {
		return failWith(ErrorValidation, "A task needs a title, e.g. 'add task buy milk'.")
	}
	if r, bad := o.rejectInvalidTags(ext); bad {
		return r
	}
	if err := validation.ValidateTagCount(ext.Tags); err != nil {
		return failWith(ErrorValidation,
			fmt.Sprintf("Maximum %d tags allowed per task; you provided %d.", models.MaxTagsPerTask, len(ext.Tags)))
	}

	req := models.CreateTaskRequest{
		Title: ext.Title,
		Tags:  ext.Tags,
	}
	if err := validation.Validate.Struct(req); err != nil {
		return failWith(ErrorValidation, createValidationMessage(err))
	}

	task, err := o.tasks.CreateTask(ctx, token, req)
	if err != nil {
		return o.failure(userID, "/tasks", err)
	}

	o.cache.Invalidate(ctx, userID)
	o.tracker.Update(userID, classifier.IntentCreate, task.ID)
	o.publish(ctx, userID, classifier.IntentCreate, task.ID, task.Tags)

	text := fmt.Sprintf("Created task %q", task.Title)
	if len(task.Tags) > 0 {
		text += fmt.Sprintf(" tagged with %s", strings.Join(task.Tags, ", "))
	}
	return answer(Answer{Text: text, Tags: task.Tags, Task: task})
}

func (o *Orchestrator) handleAddTag(ctx context.Context, userID, token string, ext classifier.ExtractionResult) Response {
	if r, bad := o.rejectInvalidTags(ext); bad {
		return r
	}
	if len(ext.Tags) == 0 {
		return failWith(ErrorValidation, "I couldn't find any valid tags in that command.")
	}

	taskID, ok := o.tracker.ResolveThis(userID)
	if !ok {
		return clarify("Which task would you like to tag?", ext.Tags, ext.Intent)
	}

	current, err := o.tasks.GetTask(ctx, token, taskID)
	if err != nil {
		return o.failure(userID, "/tasks/"+taskID.String(), err)
	}

	merged := mergeTags(current.Tags, ext.Tags)
	if len(merged) > models.MaxTagsPerTask {
		return failWith(ErrorValidation,
			fmt.Sprintf("Maximum %d tags allowed per task; this would leave %q with %d.", models.MaxTagsPerTask, current.Title, len(merged)))
	}

	updated, err := o.tasks.UpdateTaskTags(ctx, token, taskID, merged)
	if err != nil {
		return o.failure(userID, "/tasks/"+taskID.String(), err)
	}

	o.cache.Invalidate(ctx, userID)
	o.tracker.Update(userID, classifier.IntentAddTag, taskID)
	o.publish(ctx, userID, classifier.IntentAddTag, taskID, updated.Tags)

	return answer(Answer{
		Text: fmt.Sprintf("Tagged %q with %s", updated.Title, strings.Join(ext.Tags, ", ")),
		Tags: updated.Tags,
		Task: updated,
	})
}

func (o *Orchestrator) handleRemoveTag(ctx context.Context, userID, token string, ext classifier.ExtractionResult) Response {
	if r, bad := o.rejectInvalidTags(ext); bad {
		return r
	}
	if !ext.RemoveAll && len(ext.Tags) == 0 {
		return failWith(ErrorValidation, "I couldn't find any valid tags in that command.")
	}

	taskID, ok := o.tracker.ResolveThis(userID)
	if !ok {
		return clarify("Which task would you like to remove tags from?", ext.Tags, ext.Intent)
	}

	current, err := o.tasks.GetTask(ctx, token, taskID)
	if err != nil {
		return o.failure(userID, "/tasks/"+taskID.String(), err)
	}

	var remaining []string
	if ext.RemoveAll {
		remaining = []string{}
	} else {
		set := models.NewTagSet(current.Tags)
		for _, tag := range ext.Tags {
			if !set.Remove(tag) {
				return failWith(ErrorValidation,
					fmt.Sprintf("Task %q doesn't have the %q tag.", current.Title, tag))
			}
		}
		remaining = keepOrder(current.Tags, set)
	}

	updated, err := o.tasks.UpdateTaskTags(ctx, token, taskID, remaining)
	if err != nil {
		return o.failure(userID, "/tasks/"+taskID.String(), err)
	}

	o.cache.Invalidate(ctx, userID)
	o.tracker.Update(userID, classifier.IntentRemoveTag, taskID)
	o.publish(ctx, userID, classifier.IntentRemoveTag, taskID, updated.Tags)

	text := fmt.Sprintf("Removed all tags from %q", updated.Title)
	if !ext.RemoveAll {
		text = fmt.Sprintf("Removed %s from %q", strings.Join(ext.Tags, ", "), updated.Title)
	}
	return answer(Answer{Text: text, Tags: updated.Tags, Task: updated})
}

func (o *Orchestrator) handleComplete(ctx context.Context, userID, token string) Response {
	taskID, ok := o.tracker.ResolveThis(userID)
	if !ok {
		return clarify("Which task did you finish?", nil, classifier.IntentComplete)
	}

	updated, err := o.tasks.CompleteTask(ctx, token, taskID, true)
	if err != nil {
		return o.failure(userID, "/tasks/"+taskID.String()+"/complete", err)
	}

	// Completion leaves the tag vocabulary untouched, so the cache stands
	o.tracker.Update(userID, classifier.IntentComplete, taskID)
	o.publish(ctx, userID, classifier.IntentComplete, taskID, updated.Tags)

	return answer(Answer{
		Text: fmt.Sprintf("Marked %q as done", updated.Title),
		Task: updated,
	})
}

func (o *Orchestrator) handleDelete(ctx context.Context, userID, token string) Response {
	taskID, ok := o.tracker.ResolveThis(userID)
	if !ok {
		return clarify("Which task would you like to delete?", nil, classifier.IntentDelete)
	}

	if err := o.tasks.DeleteTask(ctx, token, taskID); err != nil {
		return o.failure(userID, "/tasks/"+taskID.String(), err)
	}

	o.cache.Invalidate(ctx, userID)
	o.tracker.Update(userID, classifier.IntentDelete, taskID)
	o.publish(ctx, userID, classifier.IntentDelete, taskID, nil)

	return answer(Answer{Text: "Deleted the task"})
}

// rejectInvalidTags enforces the rule that explicit tag syntax with a
// malformed token is a validation error, while implicit extraction silently
// drops malformed candidates.
func (o *Orchestrator) rejectInvalidTags(ext classifier.ExtractionResult) (Response, bool) {
	if ext.Source == classifier.SourceExplicit && len(ext.InvalidTags) > 0 {
		return failWith(ErrorValidation,
			fmt.Sprintf("Invalid tag(s): %s. Tags can only contain lowercase letters, numbers, and hyphens (1-50 chars).",
				strings.Join(ext.InvalidTags, ", "))), true
	}
	return Response{}, false
}

// failure maps an upstream error into the Response union and emits the
// upstream_error log event. Auth errors pass through with their status;
// validation errors relay the upstream's field detail; everything else is
// reduced to a friendly message.
func (o *Orchestrator) failure(userID, endpoint string, err error) Response {
	o.logger.Error("upstream_error",
		zap.String("user_id", logpkg.SanitizeUserID(userID)),
		zap.String("error", logpkg.SanitizeError(err)),
		zap.String("endpoint", endpoint),
	)

	var apiErr *upstream.APIError
	switch {
	case upstream.IsAuth(err):
		errors.As(err, &apiErr)
		r := failWith(ErrorAuth, apiErr.Message)
		r.Err.StatusCode = apiErr.StatusCode
		return r
	case upstream.IsValidation(err):
		errors.As(err, &apiErr)
		return failWith(ErrorValidation, apiErr.Message)
	case errors.Is(err, upstream.ErrUpstreamUnavailable):
		return failWith(ErrorUpstreamUnavailable,
			"The task service is temporarily unavailable. Please try again in a moment.")
	default:
		return failWith(ErrorUnexpected, "Something went wrong. Please try again.")
	}
}

func (o *Orchestrator) publish(ctx context.Context, userID string, intent classifier.Intent, taskID uuid.UUID, tags []string) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(ctx, events.NewCommandEvent(userID, string(intent), taskID.String(), tags))
}

// mergeTags unions current and added tags, preserving current order and
// appending new tags in the order given
func mergeTags(current, added []string) []string {
	merged := make([]string, 0, len(current)+len(added))
	set := models.NewTagSet(nil)
	for _, t := range current {
		if set.Add(t) {
			merged = append(merged, t)
		}
	}
	for _, t := range added {
		if set.Add(t) {
			merged = append(merged, t)
		}
	}
	return merged
}

// keepOrder filters ordered down to the tags still present in set
func keepOrder(ordered []string, set models.TagSet) []string {
	out := make([]string, 0, set.Len())
	for _, t := range ordered {
		if set.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// createValidationMessage maps a struct validation error to a user-facing
// message keyed off the first failing field
func createValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].StructField() {
		case "Title":
			return fmt.Sprintf("Task titles must be between 1 and %d characters.", models.MaxTitleLength)
		case "Tags":
			return "One of those tags isn't valid."
		case "Description":
			return fmt.Sprintf("Descriptions are capped at %d characters.", models.MaxDescriptionLength)
		}
	}
	return "That task couldn't be validated. Please rephrase and try again."
}
