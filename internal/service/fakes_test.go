package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/enrichment"
	"github.com/spec-kit/casework-service/internal/persistence"
	"github.com/spec-kit/casework-service/internal/repository"
)

// In-memory fakes backing the service tests. They mimic the persistence
// contract the real repositories expose, pgx.ErrNoRows included.

type fakeConversationRepo struct {
	mu                  sync.Mutex
	byID                map[string]*domain.Conversation
	failCreateForWorker map[string]error
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byID:                make(map[string]*domain.Conversation),
		failCreateForWorker: make(map[string]error),
	}
}

func (f *fakeConversationRepo) Create(_ context.Context, conversation *domain.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failCreateForWorker[conversation.WorkerID]; ok {
		return err
	}
	conversation.ID = uuid.NewString()
	conversation.CreatedAt = time.Now()
	conversation.UpdatedAt = conversation.CreatedAt
	stored := *conversation
	f.byID[conversation.ID] = &stored
	return nil
}

func (f *fakeConversationRepo) GetByID(_ context.Context, id string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (f *fakeConversationRepo) GetActiveByGroupAndWorker(_ context.Context, groupID, workerID string) (*domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.GroupID == groupID && c.WorkerID == workerID && c.Status == domain.ConversationStatusActive {
			out := *c
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeConversationRepo) ListAll(_ context.Context) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Conversation, 0, len(f.byID))
	for _, c := range f.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeConversationRepo) ListByGroupIDs(_ context.Context, groupIDs []string) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	allowed := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		allowed[id] = struct{}{}
	}
	var out []domain.Conversation
	for _, c := range f.byID {
		if _, ok := allowed[c.GroupID]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) ListByWorker(_ context.Context, workerID string) ([]domain.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Conversation
	for _, c := range f.byID {
		if c.WorkerID == workerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeConversationRepo) UpdateStatus(_ context.Context, id string, status domain.ConversationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = status
	return nil
}

func (f *fakeConversationRepo) TouchLastMessage(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.LastMessageAt = &at
	return nil
}

func (f *fakeConversationRepo) ReassignGroup(_ context.Context, fromGroupID, toGroupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byID {
		if c.GroupID == fromGroupID {
			c.GroupID = toGroupID
		}
	}
	return nil
}

func (f *fakeConversationRepo) WithTx(pgx.Tx) repository.ConversationRepository { return f }

type fakeMessageRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Message
	ordered  []string
	failNext error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byID: make(map[string]*domain.Message)}
}

func (f *fakeMessageRepo) Create(_ context.Context, message *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	message.ID = uuid.NewString()
	message.CreatedAt = time.Now()
	stored := *message
	f.byID[message.ID] = &stored
	f.ordered = append(f.ordered, message.ID)
	return nil
}

func (f *fakeMessageRepo) GetByID(_ context.Context, id string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (f *fakeMessageRepo) ListByConversation(_ context.Context, conversationID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Message
	for _, id := range f.ordered {
		if f.byID[id].ConversationID == conversationID {
			out = append(out, *f.byID[id])
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) ListRecentByConversation(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	all, err := f.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f *fakeMessageRepo) HasWorkerMessage(_ context.Context, conversationID, workerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.ordered {
		m := f.byID[id]
		if m.ConversationID == conversationID && m.SenderID == workerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMessageRepo) WithTx(pgx.Tx) repository.MessageRepository { return f }

type fakeArtifactRepo struct {
	mu        sync.Mutex
	byMessage map[string]*domain.MessageArtifact
}

func newFakeArtifactRepo() *fakeArtifactRepo {
	return &fakeArtifactRepo{byMessage: make(map[string]*domain.MessageArtifact)}
}

func (f *fakeArtifactRepo) Upsert(_ context.Context, artifact *domain.MessageArtifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byMessage[artifact.MessageID]; ok {
		artifact.ID = existing.ID
		artifact.CreatedAt = existing.CreatedAt
	} else {
		artifact.ID = uuid.NewString()
		artifact.CreatedAt = time.Now()
	}
	artifact.UpdatedAt = time.Now()
	stored := *artifact
	f.byMessage[artifact.MessageID] = &stored
	return nil
}

func (f *fakeArtifactRepo) GetByMessage(_ context.Context, messageID string) (*domain.MessageArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byMessage[messageID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (f *fakeArtifactRepo) ListByMessageIDs(_ context.Context, messageIDs []string) ([]domain.MessageArtifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MessageArtifact
	for _, id := range messageIDs {
		if stored, ok := f.byMessage[id]; ok {
			out = append(out, *stored)
		}
	}
	return out, nil
}

type fakeMembershipRepo struct {
	mu            sync.Mutex
	byUser        map[string][]domain.Membership
	activeMembers map[string][]domain.User
}

func newFakeMembershipRepo() *fakeMembershipRepo {
	return &fakeMembershipRepo{
		byUser:        make(map[string][]domain.Membership),
		activeMembers: make(map[string][]domain.User),
	}
}

func (f *fakeMembershipRepo) add(groupID, userID string, role domain.GroupRole) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[userID] = append(f.byUser[userID], domain.Membership{
		ID: uuid.NewString(), GroupID: groupID, UserID: userID, Role: role,
	})
}

func (f *fakeMembershipRepo) Create(_ context.Context, membership *domain.Membership) error {
	f.add(membership.GroupID, membership.UserID, membership.Role)
	return nil
}

func (f *fakeMembershipRepo) ListByUser(_ context.Context, userID string) ([]domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Membership(nil), f.byUser[userID]...), nil
}

func (f *fakeMembershipRepo) ListByGroup(_ context.Context, groupID string) ([]domain.Membership, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Membership
	for _, list := range f.byUser {
		for _, m := range list {
			if m.GroupID == groupID {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakeMembershipRepo) ListActiveMembersOfGroup(_ context.Context, groupID string) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.User(nil), f.activeMembers[groupID]...), nil
}

func (f *fakeMembershipRepo) MoveToGroup(_ context.Context, fromGroupID, toGroupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for user, list := range f.byUser {
		for i := range list {
			if list[i].GroupID == fromGroupID {
				list[i].GroupID = toGroupID
			}
		}
		f.byUser[user] = list
	}
	return nil
}

func (f *fakeMembershipRepo) WithTx(pgx.Tx) repository.MembershipRepository { return f }

type fakeGroupRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.Group
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{byID: make(map[string]*domain.Group)}
}

func (f *fakeGroupRepo) add(group domain.Group) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	stored := group
	f.byID[group.ID] = &stored
	return group.ID
}

func (f *fakeGroupRepo) Create(_ context.Context, group *domain.Group) error {
	group.ID = f.add(*group)
	return nil
}

func (f *fakeGroupRepo) GetByID(_ context.Context, id string) (*domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

func (f *fakeGroupRepo) ListByOrganization(_ context.Context, organizationID string, includeDeleted bool) ([]domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Group
	for _, g := range f.byID {
		if g.OrganizationID != organizationID {
			continue
		}
		if !includeDeleted && g.Deleted() {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func (f *fakeGroupRepo) SoftDelete(_ context.Context, id, actorID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.DeletedAt = &at
	stored.DeletedBy = &actorID
	return nil
}

func (f *fakeGroupRepo) Restore(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.DeletedAt = nil
	stored.DeletedBy = nil
	return nil
}

func (f *fakeGroupRepo) WithTx(pgx.Tx) repository.GroupRepository { return f }

type fakeConsultationRepo struct {
	mu             sync.Mutex
	byConversation map[string]*domain.ConsultationCase
}

func newFakeConsultationRepo() *fakeConsultationRepo {
	return &fakeConsultationRepo{byConversation: make(map[string]*domain.ConsultationCase)}
}

func (f *fakeConsultationRepo) UpsertByConversation(_ context.Context, consultation *domain.ConsultationCase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byConversation[consultation.ConversationID]; ok {
		consultation.ID = existing.ID
		consultation.CreatedAt = existing.CreatedAt
	} else {
		consultation.ID = uuid.NewString()
		consultation.CreatedAt = time.Now()
	}
	consultation.UpdatedAt = time.Now()
	stored := *consultation
	f.byConversation[consultation.ConversationID] = &stored
	return nil
}

func (f *fakeConsultationRepo) GetByConversation(_ context.Context, conversationID string) (*domain.ConsultationCase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.byConversation[conversationID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *stored
	return &out, nil
}

type fakeAuditRepo struct {
	mu          sync.Mutex
	tagChanges  []domain.TagChangeLog
	suggestions []domain.SuggestionUsageLog
}

func newFakeAuditRepo() *fakeAuditRepo { return &fakeAuditRepo{} }

func (f *fakeAuditRepo) CreateTagChange(_ context.Context, entry *domain.TagChangeLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	f.tagChanges = append(f.tagChanges, *entry)
	return nil
}

func (f *fakeAuditRepo) ListTagChangesByConversation(_ context.Context, conversationID string, limit int) ([]domain.TagChangeLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TagChangeLog
	for _, entry := range f.tagChanges {
		if entry.ConversationID != nil && *entry.ConversationID == conversationID {
			out = append(out, entry)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAuditRepo) CreateSuggestionUsage(_ context.Context, entry *domain.SuggestionUsageLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	f.suggestions = append(f.suggestions, *entry)
	return nil
}

func (f *fakeAuditRepo) WithTx(pgx.Tx) repository.AuditRepository { return f }

// fakeTxRunner runs the function directly; the fakes ignore the tx handle.
type fakeTxRunner struct{}

func (fakeTxRunner) InTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

var _ persistence.TxRunner = fakeTxRunner{}

// fakeEnricher returns canned results and counts invocations.
type fakeEnricher struct {
	mu              sync.Mutex
	artifacts       *fakeArtifactRepo
	enrichErr       error
	regenerateCalls int
	translation     string
	suggestions     []string
	tags            []string
}

func (f *fakeEnricher) EnrichMessage(ctx context.Context, _ *domain.Conversation, message *domain.Message) (*domain.MessageArtifact, error) {
	f.mu.Lock()
	err := f.enrichErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.store(ctx, message.ID)
}

func (f *fakeEnricher) Regenerate(ctx context.Context, _ *domain.Conversation, message *domain.Message) (*domain.MessageArtifact, error) {
	f.mu.Lock()
	f.regenerateCalls++
	f.mu.Unlock()
	return f.store(ctx, message.ID)
}

func (f *fakeEnricher) PreviewGreeting(context.Context, *domain.Conversation) (*enrichment.Preview, error) {
	return &enrichment.Preview{Suggestions: f.suggestions}, nil
}

func (f *fakeEnricher) GenerateTags(context.Context, *domain.Conversation) ([]string, error) {
	return f.tags, nil
}

func (f *fakeEnricher) store(ctx context.Context, messageID string) (*domain.MessageArtifact, error) {
	translation := f.translation
	artifact := &domain.MessageArtifact{
		MessageID:   messageID,
		Translation: &translation,
		Suggestions: f.suggestions,
	}
	if f.artifacts != nil {
		if err := f.artifacts.Upsert(ctx, artifact); err != nil {
			return nil, err
		}
	}
	return artifact, nil
}
