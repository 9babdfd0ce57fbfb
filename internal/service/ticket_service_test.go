package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/repository"
)

type ticketFixture struct {
	svc        *TicketService
	tickets    *fakeTicketRepo
	messages   *fakeMessageRepo
	history    *fakeHistoryRepo
	users      *fakeUserRepo
	assets     *fakeAssetRepo
	store      *fakeObjectStore
	dispatcher *recordingDispatcher
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		tickets:    newFakeTicketRepo(),
		messages:   newFakeMessageRepo(),
		history:    newFakeHistoryRepo(),
		users:      newFakeUserRepo(),
		assets:     newFakeAssetRepo(),
		store:      newFakeObjectStore(),
		dispatcher: &recordingDispatcher{},
	}
	f.svc = NewTicketService(f.tickets, f.messages, newFakeAttachmentRepo(), f.history,
		f.assets, f.store, f.dispatcher, zap.NewNop())
	return f
}

func validTicketInput() CreateTicketInput {
	return CreateTicketInput{
		Title:       "checkout broken",
		Description: "payments fail since this morning",
		Category:    domain.TicketCategoryBugReport,
		Priority:    domain.TicketPriorityHigh,
		PriceType:   domain.PriceTypeWithPackage,
	}
}

func TestCreateTicketSeedsThread(t *testing.T) {
	f := newTicketFixture(t)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, client.ID, ticket.ClientID)
	assert.True(t, strings.HasPrefix(ticket.ExternalKey, "TCK-"))
	assert.Len(t, ticket.ExternalKey, 10)

	msgs, err := f.svc.ListMessages(context.Background(), client, ticket.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.SenderTypeClient, msgs[0].SenderType)
	assert.Equal(t, ticket.Description, msgs[0].Body)

	assert.Contains(t, f.dispatcher.typesSeen(), events.EventTicketCreated)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newTicketFixture(t)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	cases := []struct {
		name   string
		mutate func(*CreateTicketInput)
	}{
		{"empty title", func(in *CreateTicketInput) { in.Title = "  " }},
		{"empty description", func(in *CreateTicketInput) { in.Description = "" }},
		{"unknown category", func(in *CreateTicketInput) { in.Category = "SALES" }},
		{"unknown priority", func(in *CreateTicketInput) { in.Priority = "CRITICAL" }},
		{"unknown price type", func(in *CreateTicketInput) { in.PriceType = "FREE" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validTicketInput()
			tc.mutate(&input)
			_, err := f.svc.CreateTicket(context.Background(), client, input)
			require.Error(t, err)
			assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
		})
	}
}

func TestCreateTicketForeignAssetHidden(t *testing.T) {
	f := newTicketFixture(t)
	client := seedClient(t, f.users, domain.UserStatusApproved)
	other := seedClient(t, f.users, domain.UserStatusApproved)

	asset := &domain.Asset{OwnerID: other.ID, Name: "their site", Status: domain.AssetStatusActive}
	require.NoError(t, f.assets.Create(context.Background(), asset))

	input := validTicketInput()
	input.AssetID = &asset.ID
	_, err := f.svc.CreateTicket(context.Background(), client, input)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}

func TestTicketVisibilityScoping(t *testing.T) {
	f := newTicketFixture(t)
	admin := seedAdmin(t, f.users)
	client := seedClient(t, f.users, domain.UserStatusApproved)
	other := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	_, err = f.svc.GetTicket(context.Background(), other, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))

	_, err = f.svc.GetTicket(context.Background(), admin, ticket.ID)
	require.NoError(t, err)

	mine, err := f.svc.ListTickets(context.Background(), client, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := f.svc.ListTickets(context.Background(), other, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestSetTicketStatusLifecycle(t *testing.T) {
	f := newTicketFixture(t)
	admin := seedAdmin(t, f.users)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	// closed is not reachable from open
	_, err = f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusClosed)
	require.Error(t, err)
	assert.Equal(t, "INVALID_TRANSITION", domainCode(t, err))

	inProgress, err := f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, inProgress.Status)

	resolved, err := f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	assert.Nil(t, resolved.ClosedAt)

	closed, err := f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.NotNil(t, closed.ClosedAt)

	assert.Contains(t, f.dispatcher.typesSeen(), events.EventTicketStatusChanged)
}

func TestAdminReopenAlwaysAllowed(t *testing.T) {
	f := newTicketFixture(t)
	admin := seedAdmin(t, f.users)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	_, err = f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	_, err = f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	reopened, err := f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusOpen)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)
}

func TestSetTicketStatusAdminOnly(t *testing.T) {
	f := newTicketFixture(t)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	_, err = f.svc.SetTicketStatus(context.Background(), client, ticket.ID, domain.TicketStatusInProgress)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", domainCode(t, err))
}

func TestSetTicketPriorityRecordsHistory(t *testing.T) {
	f := newTicketFixture(t)
	admin := seedAdmin(t, f.users)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	updated, err := f.svc.SetTicketPriority(context.Background(), admin, ticket.ID, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)

	entries, err := f.svc.History(context.Background(), admin, ticket.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ChangeTypePriority, entries[0].ChangeType)
	assert.Equal(t, "HIGH", entries[0].OldValue["priority"])
	assert.Equal(t, "URGENT", entries[0].NewValue["priority"])

	// same priority again is a no-op with no extra entry
	_, err = f.svc.SetTicketPriority(context.Background(), admin, ticket.ID, domain.TicketPriorityUrgent)
	require.NoError(t, err)
	entries, err = f.svc.History(context.Background(), admin, ticket.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHistoryFiltersNonStatusEntriesForClients(t *testing.T) {
	f := newTicketFixture(t)
	admin := seedAdmin(t, f.users)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	_, err = f.svc.SetTicketPriority(context.Background(), admin, ticket.ID, domain.TicketPriorityLow)
	require.NoError(t, err)
	_, err = f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)

	adminView, err := f.svc.History(context.Background(), admin, ticket.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, adminView, 2)

	clientView, err := f.svc.History(context.Background(), client, ticket.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, clientView, 1)
	assert.Equal(t, domain.ChangeTypeStatus, clientView[0].ChangeType)
}

func TestAppendMessageWithAttachment(t *testing.T) {
	f := newTicketFixture(t)
	admin := seedAdmin(t, f.users)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	msg, err := f.svc.AppendMessage(context.Background(), admin, ticket.ID, "please send a screenshot", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.SenderTypeAdmin, msg.SenderType)

	reply, err := f.svc.AppendMessage(context.Background(), client, ticket.ID, "attached", []AttachmentUpload{{
		FileName: "screen.png",
		MimeType: "image/png",
		Size:     4,
		Reader:   strings.NewReader("data"),
	}})
	require.NoError(t, err)
	require.Len(t, reply.Attachments, 1)
	assert.Equal(t, "screen.png", reply.Attachments[0].FileName)
	assert.True(t, strings.HasPrefix(reply.Attachments[0].StorageKey, "tickets/"+ticket.ID+"/"))

	url, err := f.svc.AttachmentDownloadURL(context.Background(), client, ticket.ID, reply.Attachments[0].ID)
	require.NoError(t, err)
	assert.Contains(t, url, reply.Attachments[0].StorageKey)

	// messages never advance the lifecycle
	current, err := f.svc.GetTicket(context.Background(), admin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, current.Status)

	assert.Contains(t, f.dispatcher.typesSeen(), events.EventTicketMessageAdded)
}

func TestAppendMessageRequiresContent(t *testing.T) {
	f := newTicketFixture(t)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	_, err = f.svc.AppendMessage(context.Background(), client, ticket.ID, "   ", nil)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestDeleteTicketOnlyWhenClosed(t *testing.T) {
	f := newTicketFixture(t)
	admin := seedAdmin(t, f.users)
	client := seedClient(t, f.users, domain.UserStatusApproved)

	ticket, err := f.svc.CreateTicket(context.Background(), client, validTicketInput())
	require.NoError(t, err)

	err = f.svc.DeleteTicket(context.Background(), admin, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "IN_USE", domainCode(t, err))

	_, err = f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	_, err = f.svc.SetTicketStatus(context.Background(), admin, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteTicket(context.Background(), admin, ticket.ID))

	_, err = f.svc.GetTicket(context.Background(), admin, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", domainCode(t, err))
}
