package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-service/internal/models"
)

func finalizableWorkspace() *models.Workspace {
	ws := paidWorkspace()
	ws.AskForAllAttendeesInfo = true
	return ws
}

func TestBuildFinalizeCommandOrderFields(t *testing.T) {
	ws := finalizableWorkspace()
	ws.TransactionIDs = []string{"ch_123", "ch_456"}

	cmd, err := BuildFinalizeCommand(ws)
	require.NoError(t, err)

	order := cmd.Order
	assert.Regexp(t, regexp.MustCompile(`^ORD-[0-9A-F-]{8}$`), order.Reference)
	assert.Equal(t, "Jo", order.FirstName)
	assert.Equal(t, "jo@example.com", order.Email)
	assert.Equal(t, models.OrderStatusComplete, order.Status)
	assert.Equal(t, "20.00", order.Amount.StringFixed(2))
	assert.Equal(t, "2.00", order.BookingFee.StringFixed(2))
	assert.Equal(t, "1.00", order.OrganiserBookingFee.StringFixed(2))
	assert.Equal(t, "ch_123", order.TransactionID, "the first transaction reference is authoritative")
	assert.Equal(t, int64(5), order.PaymentGatewayID)
	assert.Equal(t, 2, cmd.TotalTicketQuantity)

	require.Len(t, cmd.Items, 1)
	assert.Equal(t, "1.50", cmd.Items[0].UnitBookingFee.StringFixed(2), "per-unit fee combines platform and organiser parts")

	require.Len(t, cmd.Counters, 1)
	assert.Equal(t, "20.00", cmd.Counters[0].SalesVolume.StringFixed(2))
	assert.Equal(t, "1.00", cmd.Counters[0].OrganiserFees.StringFixed(2))
}

func TestBuildFinalizeCommandUsesFirstSubmission(t *testing.T) {
	ws := finalizableWorkspace()
	ws.BuyerForms[0][FieldMirrorBuyer] = "on"
	ws.BuyerForms = append(ws.BuyerForms, map[string]string{
		FieldBuyerFirstName: "Someone",
		FieldBuyerLastName:  "Else",
		FieldBuyerEmail:     "second@example.com",
		FieldMirrorBuyer:    "on",
	})

	cmd, err := BuildFinalizeCommand(ws)
	require.NoError(t, err)

	assert.Equal(t, "jo@example.com", cmd.Order.Email)
	for _, a := range cmd.Attendees {
		assert.Equal(t, "jo@example.com", a.Attendee.Email)
	}
}

func TestBuildFinalizeCommandFreeOrder(t *testing.T) {
	ws := finalizableWorkspace()
	ws.RequiresPayment = false
	ws.TransactionIDs = []string{"should-not-appear"}

	cmd, err := BuildFinalizeCommand(ws)
	require.NoError(t, err)

	assert.Empty(t, cmd.Order.TransactionID)
	assert.Zero(t, cmd.Order.PaymentGatewayID)
	assert.False(t, cmd.RequiresPayment)
}

func TestBuildFinalizeCommandAttendeeReferences(t *testing.T) {
	ws := finalizableWorkspace()
	ws.Lines = append(ws.Lines, models.WorkspaceLine{
		TicketTypeID: 200,
		Title:        "VIP",
		Quantity:     1,
		UnitPrice:    dec("50.00"),
	})
	ws.TotalQuantity = 3
	ws.BuyerForms[0][FieldMirrorBuyer] = "on"

	cmd, err := BuildFinalizeCommand(ws)
	require.NoError(t, err)

	// References stay contiguous across ticket type boundaries.
	require.Len(t, cmd.Attendees, 3)
	for i, a := range cmd.Attendees {
		assert.Equal(t, fmt.Sprintf("%s-%d", cmd.Order.Reference, i+1), a.Attendee.Reference)
	}
	assert.Equal(t, int64(100), cmd.Attendees[0].Attendee.TicketTypeID)
	assert.Equal(t, int64(100), cmd.Attendees[1].Attendee.TicketTypeID)
	assert.Equal(t, int64(200), cmd.Attendees[2].Attendee.TicketTypeID)
}

func TestBuildFinalizeCommandAttendeeIdentity(t *testing.T) {
	t.Run("per-attendee details when collected", func(t *testing.T) {
		ws := finalizableWorkspace()
		ws.BuyerForms[0]["ticket_holder_first_name.0.100"] = "Ann"
		ws.BuyerForms[0]["ticket_holder_last_name.0.100"] = "Lee"
		ws.BuyerForms[0]["ticket_holder_email.0.100"] = "ann@example.com"
		ws.BuyerForms[0]["ticket_holder_first_name.1.100"] = "Ben"
		ws.BuyerForms[0]["ticket_holder_last_name.1.100"] = "Kim"
		ws.BuyerForms[0]["ticket_holder_email.1.100"] = "ben@example.com"

		cmd, err := BuildFinalizeCommand(ws)
		require.NoError(t, err)

		require.Len(t, cmd.Attendees, 2)
		assert.Equal(t, "Ann", cmd.Attendees[0].Attendee.FirstName)
		assert.Equal(t, "ben@example.com", cmd.Attendees[1].Attendee.Email)
	})

	t.Run("mirrored buyer details", func(t *testing.T) {
		ws := finalizableWorkspace()
		ws.BuyerForms[0][FieldMirrorBuyer] = "on"

		cmd, err := BuildFinalizeCommand(ws)
		require.NoError(t, err)

		for _, a := range cmd.Attendees {
			assert.Equal(t, "Jo", a.Attendee.FirstName)
			assert.Equal(t, "jo@example.com", a.Attendee.Email)
		}
	})

	t.Run("buyer details when event does not collect attendee info", func(t *testing.T) {
		ws := finalizableWorkspace()
		ws.AskForAllAttendeesInfo = false
		ws.BuyerForms[0]["ticket_holder_first_name.0.100"] = "Ignored"

		cmd, err := BuildFinalizeCommand(ws)
		require.NoError(t, err)
		assert.Equal(t, "Jo", cmd.Attendees[0].Attendee.FirstName)
	})
}

func TestBuildFinalizeCommandKeepsNonEmptyAnswersOnly(t *testing.T) {
	ws := finalizableWorkspace()
	ws.Lines[0].Questions = []models.Question{
		{ID: 7, TicketTypeID: 100, Prompt: "Dietary requirements", IsRequired: true},
		{ID: 8, TicketTypeID: 100, Prompt: "T-shirt size", IsRequired: false},
	}
	ws.BuyerForms[0][FieldMirrorBuyer] = "on"
	ws.BuyerForms[0]["ticket_holder_questions.100.0.7"] = "  vegetarian  "
	ws.BuyerForms[0]["ticket_holder_questions.100.0.8"] = "   "
	ws.BuyerForms[0]["ticket_holder_questions.100.1.7"] = "none"

	cmd, err := BuildFinalizeCommand(ws)
	require.NoError(t, err)

	require.Len(t, cmd.Attendees, 2)
	require.Len(t, cmd.Attendees[0].Answers, 1)
	assert.Equal(t, "vegetarian", cmd.Attendees[0].Answers[0].AnswerText)
	require.Len(t, cmd.Attendees[1].Answers, 1)
	assert.Equal(t, "none", cmd.Attendees[1].Answers[0].AnswerText)
}

func TestBuildFinalizeCommandRejectsIncompleteWorkspace(t *testing.T) {
	t.Run("no lines", func(t *testing.T) {
		ws := finalizableWorkspace()
		ws.Lines = nil
		_, err := BuildFinalizeCommand(ws)
		assert.Error(t, err)
	})

	t.Run("no buyer submission", func(t *testing.T) {
		ws := finalizableWorkspace()
		ws.BuyerForms = nil
		_, err := BuildFinalizeCommand(ws)
		assert.Error(t, err)
	})
}

func TestCompletePublishesAndReleases(t *testing.T) {
	orders := &fakeOrderStore{}
	workspaces := newFakeWorkspaceStore()
	publisher := &fakePublisher{}
	finalizer := NewOrderFinalizer(orders, workspaces, publisher)

	ws := finalizableWorkspace()
	ws.BuyerForms[0][FieldMirrorBuyer] = "on"
	require.NoError(t, workspaces.SaveWorkspace(context.Background(), ws, time.Hour))

	order, err := finalizer.Complete(context.Background(), ws)
	require.NoError(t, err)

	assert.Empty(t, workspaces.workspaces)
	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, models.EventTypeOrderCompleted, event.EventType)
	assert.Equal(t, order.Reference, event.OrderReference)
	assert.Equal(t, "20.00", event.Amount)
	assert.Equal(t, 2, event.AttendeeCount)
}

func TestCompleteCommitFailureLeavesWorkspace(t *testing.T) {
	orders := &fakeOrderStore{finalizeErr: errors.New("deadlock detected")}
	workspaces := newFakeWorkspaceStore()
	publisher := &fakePublisher{}
	finalizer := NewOrderFinalizer(orders, workspaces, publisher)

	ws := finalizableWorkspace()
	ws.BuyerForms[0][FieldMirrorBuyer] = "on"
	require.NoError(t, workspaces.SaveWorkspace(context.Background(), ws, time.Hour))

	_, err := finalizer.Complete(context.Background(), ws)
	require.Error(t, err)

	assert.Len(t, workspaces.workspaces, 1, "workspace stays for a wholesale retry")
	assert.Empty(t, publisher.events, "nothing is announced for an uncommitted order")
}

func TestNewOrderReferenceFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		ref := NewOrderReference()
		assert.Regexp(t, regexp.MustCompile(`^ORD-[0-9A-F-]{8}$`), ref)
		assert.False(t, seen[ref], "references should not repeat")
		seen[ref] = true
	}
}
