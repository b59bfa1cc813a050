package enrichment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/casework-service/internal/config"
	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/repository"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

// Result is the enrichment contract output: an optional translation and
// ranked reply suggestions.
type Result struct {
	Translation *string
	Suggestions []string
	Extra       map[string]any
}

// Preview is the tagged variant for enrichment that has no persisted
// message behind it. It deliberately has no identifier fields so it can
// never be confused with a durable artifact.
type Preview struct {
	Suggestions []string `json:"suggestions"`
}

// Pipeline derives translations, reply suggestions, image analysis, and
// case tags for conversation messages.
type Pipeline struct {
	backend      Backend
	messages     repository.MessageRepository
	artifacts    repository.ArtifactRepository
	users        repository.UserRepository
	groups       repository.GroupRepository
	logger       *zap.Logger
	historyLimit int
}

// PipelineDependencies bundles collaborators for the pipeline.
type PipelineDependencies struct {
	Backend      Backend
	MessageRepo  repository.MessageRepository
	ArtifactRepo repository.ArtifactRepository
	UserRepo     repository.UserRepository
	GroupRepo    repository.GroupRepository
}

// NewPipeline constructs the pipeline.
func NewPipeline(deps PipelineDependencies, cfg config.EnrichmentConfig, logger *zap.Logger) *Pipeline {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = historyLimit
	}
	return &Pipeline{
		backend:      deps.Backend,
		messages:     deps.MessageRepo,
		artifacts:    deps.ArtifactRepo,
		users:        deps.UserRepo,
		groups:       deps.GroupRepo,
		logger:       logger,
		historyLimit: limit,
	}
}

// EnrichMessage derives and persists the artifact for a freshly appended
// message. Malformed model output degrades to an empty-suggestions
// artifact; backend failure is returned for the caller to swallow.
func (p *Pipeline) EnrichMessage(ctx context.Context, conversation *domain.Conversation, message *domain.Message) (*domain.MessageArtifact, error) {
	result, err := p.derive(ctx, conversation, message)
	if err != nil {
		if errors.Is(err, ErrUnparseable) {
			p.logger.Warn("model output unparseable, storing empty suggestions",
				zap.String("message_id", message.ID))
			result = &Result{Suggestions: []string{}}
		} else {
			return nil, err
		}
	}
	return p.persist(ctx, message.ID, result)
}

// Regenerate re-derives the artifact for an existing message and replaces
// it in place. Any backend or parse failure surfaces as an LLM service
// error; the caller decides about retrying.
func (p *Pipeline) Regenerate(ctx context.Context, conversation *domain.Conversation, message *domain.Message) (*domain.MessageArtifact, error) {
	result, err := p.derive(ctx, conversation, message)
	if err != nil {
		return nil, apperrors.NewLLMServiceError("enrichment regenerate failed", err)
	}
	artifact, err := p.persist(ctx, message.ID, result)
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// PreviewGreeting produces opening suggestions for a conversation with no
// persisted history. Nothing is stored; the response is a Preview, not a
// message artifact.
func (p *Pipeline) PreviewGreeting(ctx context.Context, conversation *domain.Conversation) (*Preview, error) {
	worker, group, err := p.profiles(ctx, conversation)
	if err != nil {
		return nil, err
	}
	system := greetingSystemPrompt(worker.Locale, profileLine(worker), groupProfileLine(group))
	raw, err := p.backend.Complete(ctx, system, "")
	if err != nil {
		return nil, apperrors.NewLLMServiceError("greeting preview failed", err)
	}
	payload, err := parsePayload(raw)
	if err != nil {
		return nil, apperrors.NewLLMServiceError("greeting preview unparseable", err)
	}
	return &Preview{Suggestions: payload.Suggestions}, nil
}

// GenerateTags proposes case tags for a conversation without committing
// them; committing is a separate, human-invoked case update.
func (p *Pipeline) GenerateTags(ctx context.Context, conversation *domain.Conversation) ([]string, error) {
	_, group, err := p.profiles(ctx, conversation)
	if err != nil {
		return nil, err
	}
	history, err := p.history(ctx, conversation, "")
	if err != nil {
		return nil, err
	}
	raw, err := p.backend.Complete(ctx, taggingSystemPrompt(groupProfileLine(group)), userPrompt(history, ""))
	if err != nil {
		return nil, apperrors.NewLLMServiceError("tag generation failed", err)
	}
	payload, err := parsePayload(raw)
	if err != nil {
		return nil, apperrors.NewLLMServiceError("tag generation unparseable", err)
	}
	return payload.Tags, nil
}

func (p *Pipeline) derive(ctx context.Context, conversation *domain.Conversation, message *domain.Message) (*Result, error) {
	worker, group, err := p.profiles(ctx, conversation)
	if err != nil {
		return nil, err
	}

	fromWorker := message.SenderID == conversation.WorkerID
	sourceLocale := message.Language
	if sourceLocale == "" {
		sourceLocale = worker.Locale
	}
	targetLocale := group.Locale
	if !fromWorker {
		targetLocale = worker.Locale
	}

	history, err := p.history(ctx, conversation, message.ID)
	if err != nil {
		return nil, err
	}

	if message.ContentURL != nil && *message.ContentURL != "" {
		return p.deriveFromImage(ctx, message, targetLocale, worker, group, history)
	}

	hasWorkerMessage, err := p.messages.HasWorkerMessage(ctx, conversation.ID, conversation.WorkerID)
	if err != nil {
		return nil, err
	}
	if !hasWorkerMessage {
		// Initial greeting mode: no member-authored message yet, so there
		// is nothing to translate.
		system := greetingSystemPrompt(worker.Locale, profileLine(worker), groupProfileLine(group))
		raw, err := p.backend.Complete(ctx, system, userPrompt(history, message.Body))
		if err != nil {
			return nil, err
		}
		payload, err := parsePayload(raw)
		if err != nil {
			return nil, err
		}
		return &Result{Suggestions: payload.Suggestions}, nil
	}

	system := standardSystemPrompt(sourceLocale, targetLocale, profileLine(worker), groupProfileLine(group))
	raw, err := p.backend.Complete(ctx, system, userPrompt(history, message.Body))
	if err != nil {
		return nil, err
	}
	payload, err := parsePayload(raw)
	if err != nil {
		return nil, err
	}

	result := &Result{Suggestions: payload.Suggestions}
	if payload.Translation != "" {
		translation := payload.Translation
		result.Translation = &translation
	}
	return result, nil
}

// deriveFromImage substitutes the image-analysis step for the text
// translator and feeds its structured output to the image-aware
// suggestion generator.
func (p *Pipeline) deriveFromImage(ctx context.Context, message *domain.Message, targetLocale string, worker *domain.User, group *domain.Group, history []HistoryEntry) (*Result, error) {
	analysis, err := p.backend.AnalyzeImage(ctx, *message.ContentURL, message.Body, targetLocale)
	if err != nil {
		return nil, err
	}

	system := imageSystemPrompt(targetLocale, profileLine(worker), groupProfileLine(group))
	user := fmt.Sprintf("%s\nImage analysis:\n%s", userPrompt(history, message.Body), analysis)
	raw, err := p.backend.Complete(ctx, system, user)
	if err != nil {
		return nil, err
	}
	payload, err := parsePayload(raw)
	if err != nil {
		return nil, err
	}
	return &Result{
		Suggestions: payload.Suggestions,
		Extra:       map[string]any{"image_analysis": analysis},
	}, nil
}

func (p *Pipeline) persist(ctx context.Context, messageID string, result *Result) (*domain.MessageArtifact, error) {
	artifact := &domain.MessageArtifact{
		MessageID:   messageID,
		Translation: result.Translation,
		Suggestions: result.Suggestions,
		Extra:       result.Extra,
	}
	if err := p.artifacts.Upsert(ctx, artifact); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return artifact, nil
}

func (p *Pipeline) profiles(ctx context.Context, conversation *domain.Conversation) (*domain.User, *domain.Group, error) {
	worker, err := p.users.GetByID(ctx, conversation.WorkerID)
	if err != nil {
		return nil, nil, err
	}
	group, err := p.groups.GetByID(ctx, conversation.GroupID)
	if err != nil {
		return nil, nil, err
	}
	return worker, group, nil
}

func (p *Pipeline) history(ctx context.Context, conversation *domain.Conversation, excludeMessageID string) ([]HistoryEntry, error) {
	recent, err := p.messages.ListRecentByConversation(ctx, conversation.ID, p.historyLimit)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(recent))
	for _, msg := range recent {
		if msg.ID == excludeMessageID {
			continue
		}
		entries = append(entries, HistoryEntry{
			FromWorker: msg.SenderID == conversation.WorkerID,
			Content:    msg.Body,
		})
	}
	return entries, nil
}

func profileLine(worker *domain.User) string {
	return fmt.Sprintf("%s (locale %s)", worker.Name, worker.Locale)
}

func groupProfileLine(group *domain.Group) string {
	if group.Description == "" {
		return fmt.Sprintf("%s (locale %s)", group.Name, group.Locale)
	}
	return fmt.Sprintf("%s (locale %s): %s", group.Name, group.Locale, group.Description)
}
