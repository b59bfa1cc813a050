package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/casework-service/internal/auth"
	"github.com/spec-kit/casework-service/internal/domain"
	"github.com/spec-kit/casework-service/internal/events"
	apperrors "github.com/spec-kit/casework-service/pkg/util/errorutil"
)

type conversationFixture struct {
	conversations *fakeConversationRepo
	messages      *fakeMessageRepo
	artifacts     *fakeArtifactRepo
	memberships   *fakeMembershipRepo
	groups        *fakeGroupRepo
	enricher      *fakeEnricher
	dispatcher    events.Dispatcher
	service       *ConversationService
}

func newConversationFixture(t *testing.T) *conversationFixture {
	t.Helper()
	f := &conversationFixture{
		conversations: newFakeConversationRepo(),
		messages:      newFakeMessageRepo(),
		artifacts:     newFakeArtifactRepo(),
		memberships:   newFakeMembershipRepo(),
		groups:        newFakeGroupRepo(),
		dispatcher:    events.NewInMemoryDispatcher(),
	}
	f.enricher = &fakeEnricher{
		artifacts:   f.artifacts,
		translation: "translated",
		suggestions: []string{"reply one", "reply two"},
	}
	f.service = NewConversationService(ConversationDependencies{
		ConversationRepo: f.conversations,
		MessageRepo:      f.messages,
		ArtifactRepo:     f.artifacts,
		MembershipRepo:   f.memberships,
		GroupRepo:        f.groups,
		Tx:               fakeTxRunner{},
		Enricher:         f.enricher,
		Dispatcher:       f.dispatcher,
		Logger:           zap.NewNop(),
		InlineEnrichment: true,
	})
	return f
}

func workerPrincipal(id string) *auth.Principal {
	return &auth.Principal{ID: id, Role: domain.RoleWorker, Locale: "vi"}
}

func managerPrincipal(id string) *auth.Principal {
	return &auth.Principal{ID: id, Role: domain.RoleManager, Locale: "ja"}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code)
}

func (f *conversationFixture) seedGroup(t *testing.T) string {
	t.Helper()
	return f.groups.add(domain.Group{OrganizationID: "org-1", Name: "hanoi-team", Locale: "ja"})
}

func (f *conversationFixture) seedConversation(t *testing.T, groupID, workerID string) *domain.Conversation {
	t.Helper()
	f.memberships.add(groupID, workerID, domain.GroupRoleMember)
	conversation, err := f.service.CreateConversation(context.Background(), workerPrincipal(workerID), CreateConversationInput{
		GroupID:  groupID,
		WorkerID: workerID,
	})
	require.NoError(t, err)
	return conversation
}

func TestCreateConversation(t *testing.T) {
	ctx := context.Background()

	t.Run("worker creates own conversation with initial message", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		f.memberships.add(groupID, "worker-1", domain.GroupRoleMember)

		conversation, err := f.service.CreateConversation(ctx, workerPrincipal("worker-1"), CreateConversationInput{
			GroupID:        groupID,
			WorkerID:       "worker-1",
			InitialMessage: &AppendMessageInput{Body: "xin chào", Language: "vi"},
		})
		req.NoError(err)
		req.NotEmpty(conversation.ID)
		req.Equal(domain.ConversationStatusActive, conversation.Status)

		msgs, err := f.messages.ListByConversation(ctx, conversation.ID)
		req.NoError(err)
		req.Len(msgs, 1)
		req.Equal("xin chào", msgs[0].Body)

		stored, err := f.conversations.GetByID(ctx, conversation.ID)
		req.NoError(err)
		req.NotNil(stored.LastMessageAt)
	})

	t.Run("publishes conversation-created event", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		f.memberships.add(groupID, "worker-1", domain.GroupRoleMember)

		var received []events.Event
		f.dispatcher.Subscribe(events.EventConversationCreated, func(_ context.Context, event events.Event) error {
			received = append(received, event)
			return nil
		})

		conversation, err := f.service.CreateConversation(ctx, workerPrincipal("worker-1"), CreateConversationInput{
			GroupID:  groupID,
			WorkerID: "worker-1",
		})
		req.NoError(err)
		req.Len(received, 1)
		req.Equal(conversation.ID, received[0].ConversationID)
		payload, ok := received[0].Payload.(events.ConversationCreatedPayload)
		req.True(ok)
		req.Equal(groupID, payload.GroupID)
		req.Equal("worker-1", payload.WorkerID)
	})

	t.Run("worker cannot create for another worker", func(t *testing.T) {
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		f.memberships.add(groupID, "worker-1", domain.GroupRoleMember)

		_, err := f.service.CreateConversation(ctx, workerPrincipal("worker-1"), CreateConversationInput{
			GroupID:  groupID,
			WorkerID: "worker-2",
		})
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("deleted group reads as not found", func(t *testing.T) {
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		f.memberships.add(groupID, "worker-1", domain.GroupRoleMember)
		require.NoError(t, f.groups.SoftDelete(ctx, groupID, "admin-1", time.Now()))

		_, err := f.service.CreateConversation(ctx, workerPrincipal("worker-1"), CreateConversationInput{
			GroupID:  groupID,
			WorkerID: "worker-1",
		})
		requireCode(t, err, "NOT_FOUND")
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		f := newConversationFixture(t)
		_, err := f.service.CreateConversation(ctx, workerPrincipal("worker-1"), CreateConversationInput{})
		requireCode(t, err, "VALIDATION_FAILED")
	})
}

func TestAppendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("append then read back with artifact", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")

		message, err := f.service.AppendMessage(ctx, workerPrincipal("worker-1"), conversation.ID, AppendMessageInput{
			Body: "tôi cần giúp đỡ", Language: "vi",
		})
		req.NoError(err)
		req.NotNil(message.Artifact)
		req.Equal("translated", *message.Artifact.Translation)

		_, msgs, err := f.service.GetConversationWithMessages(ctx, workerPrincipal("worker-1"), conversation.ID)
		req.NoError(err)
		req.Len(msgs, 1)
		req.NotNil(msgs[0].Artifact)
		req.Equal([]string{"reply one", "reply two"}, msgs[0].Artifact.Suggestions)
	})

	t.Run("enrichment failure never fails the send", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")
		f.enricher.enrichErr = errors.New("model unavailable")

		message, err := f.service.AppendMessage(ctx, workerPrincipal("worker-1"), conversation.ID, AppendMessageInput{
			Body: "vẫn gửi được",
		})
		req.NoError(err)
		req.Nil(message.Artifact)

		_, msgs, err := f.service.GetConversationWithMessages(ctx, workerPrincipal("worker-1"), conversation.ID)
		req.NoError(err)
		req.Len(msgs, 1)
		req.Nil(msgs[0].Artifact)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")

		_, err := f.service.AppendMessage(ctx, workerPrincipal("worker-1"), conversation.ID, AppendMessageInput{Body: "   "})
		requireCode(t, err, "VALIDATION_FAILED")
	})

	t.Run("failing event handler is logged, append still succeeds", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")

		core, logs := observer.New(zap.WarnLevel)
		svc := NewConversationService(ConversationDependencies{
			ConversationRepo: f.conversations,
			MessageRepo:      f.messages,
			ArtifactRepo:     f.artifacts,
			MembershipRepo:   f.memberships,
			GroupRepo:        f.groups,
			Tx:               fakeTxRunner{},
			Enricher:         f.enricher,
			Dispatcher:       f.dispatcher,
			Logger:           zap.New(core),
			InlineEnrichment: true,
		})
		f.dispatcher.Subscribe(events.EventNewMessage, func(context.Context, events.Event) error {
			return errors.New("redis publish refused")
		})

		message, err := svc.AppendMessage(ctx, workerPrincipal("worker-1"), conversation.ID, AppendMessageInput{Body: "hi"})
		req.NoError(err)
		req.NotEmpty(message.ID)

		entries := logs.FilterMessage("event handlers failed").All()
		req.Len(entries, 1)
		req.Equal(string(events.EventNewMessage), entries[0].ContextMap()["event_type"])
	})

	t.Run("append publishes new-message event", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")

		var received []events.Event
		f.dispatcher.Subscribe(events.EventNewMessage, func(_ context.Context, event events.Event) error {
			received = append(received, event)
			return nil
		})

		_, err := f.service.AppendMessage(ctx, workerPrincipal("worker-1"), conversation.ID, AppendMessageInput{Body: "chào"})
		req.NoError(err)
		req.Len(received, 1)
		req.Equal(conversation.ID, received[0].ConversationID)
		req.Equal("worker-1", received[0].ActorID)
	})
}

func TestConversationScoping(t *testing.T) {
	ctx := context.Background()

	t.Run("foreign conversation indistinguishable from missing", func(t *testing.T) {
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")

		_, _, errForeign := f.service.GetConversationWithMessages(ctx, workerPrincipal("worker-2"), conversation.ID)
		requireCode(t, errForeign, "NOT_FOUND")

		_, _, errMissing := f.service.GetConversationWithMessages(ctx, workerPrincipal("worker-2"), "no-such-id")
		requireCode(t, errMissing, "NOT_FOUND")
	})

	t.Run("manager sees conversations of their groups only", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupA := f.seedGroup(t)
		groupB := f.groups.add(domain.Group{OrganizationID: "org-1", Name: "osaka-team"})
		f.seedConversation(t, groupA, "worker-1")
		f.seedConversation(t, groupB, "worker-2")
		f.memberships.add(groupA, "manager-1", domain.GroupRoleManager)

		list, err := f.service.ListConversationsForUser(ctx, managerPrincipal("manager-1"))
		req.NoError(err)
		req.Len(list, 1)
		req.Equal(groupA, list[0].GroupID)
	})

	t.Run("area manager sees everything", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupA := f.seedGroup(t)
		groupB := f.groups.add(domain.Group{OrganizationID: "org-1", Name: "osaka-team"})
		f.seedConversation(t, groupA, "worker-1")
		f.seedConversation(t, groupB, "worker-2")

		list, err := f.service.ListConversationsForUser(ctx, &auth.Principal{ID: "am-1", Role: domain.RoleAreaManager})
		req.NoError(err)
		req.Len(list, 2)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("manager resolves a group conversation", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")
		f.memberships.add(groupID, "manager-1", domain.GroupRoleManager)

		updated, err := f.service.UpdateStatus(ctx, managerPrincipal("manager-1"), conversation.ID, domain.ConversationStatusResolved)
		req.NoError(err)
		req.Equal(domain.ConversationStatusResolved, updated.Status)
	})

	t.Run("worker cannot change status", func(t *testing.T) {
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")

		_, err := f.service.UpdateStatus(ctx, workerPrincipal("worker-1"), conversation.ID, domain.ConversationStatusResolved)
		requireCode(t, err, "FORBIDDEN")
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")
		f.memberships.add(groupID, "manager-1", domain.GroupRoleManager)

		_, err := f.service.UpdateStatus(ctx, managerPrincipal("manager-1"), conversation.ID, domain.ConversationStatus("ARCHIVED"))
		requireCode(t, err, "VALIDATION_FAILED")
	})
}

func TestRegenerateArtifact(t *testing.T) {
	ctx := context.Background()

	t.Run("regeneration replaces the single artifact in place", func(t *testing.T) {
		req := require.New(t)
		f := newConversationFixture(t)
		groupID := f.seedGroup(t)
		conversation := f.seedConversation(t, groupID, "worker-1")
		f.memberships.add(groupID, "manager-1", domain.GroupRoleManager)

		message, err := f.service.AppendMessage(ctx, workerPrincipal("worker-1"), conversation.ID, AppendMessageInput{Body: "bản gốc"})
		req.NoError(err)

		f.enricher.translation = "first pass"
		first, err := f.service.RegenerateArtifact(ctx, managerPrincipal("manager-1"), message.ID)
		req.NoError(err)
		req.Equal("first pass", *first.Translation)

		f.enricher.translation = "second pass"
		second, err := f.service.RegenerateArtifact(ctx, managerPrincipal("manager-1"), message.ID)
		req.NoError(err)
		req.Equal("second pass", *second.Translation)
		req.Equal(2, f.enricher.regenerateCalls)

		stored, err := f.artifacts.GetByMessage(ctx, message.ID)
		req.NoError(err)
		req.Equal("second pass", *stored.Translation)
		req.Equal(first.ID, stored.ID, "regeneration must not mint a second artifact row")
	})

	t.Run("unknown message is not found", func(t *testing.T) {
		f := newConversationFixture(t)
		_, err := f.service.RegenerateArtifact(ctx, managerPrincipal("manager-1"), "missing")
		requireCode(t, err, "NOT_FOUND")
	})
}

func TestPreviewGreeting(t *testing.T) {
	req := require.New(t)
	f := newConversationFixture(t)
	groupID := f.seedGroup(t)
	conversation := f.seedConversation(t, groupID, "worker-1")
	f.memberships.add(groupID, "manager-1", domain.GroupRoleManager)

	preview, err := f.service.PreviewGreeting(context.Background(), managerPrincipal("manager-1"), conversation.ID)
	req.NoError(err)
	req.Equal([]string{"reply one", "reply two"}, preview.Suggestions)

	msgs, err := f.messages.ListByConversation(context.Background(), conversation.ID)
	req.NoError(err)
	req.Empty(msgs, "preview must not persist anything")
}
