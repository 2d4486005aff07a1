package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/clinic-portal/internal/service/booking"
)

// BookingNotifier sends appointment confirmations.
type BookingNotifier struct {
	svc Service
}

func NewBookingNotifier(svc Service) *BookingNotifier {
	return &BookingNotifier{svc: svc}
}

func (n *BookingNotifier) BookingConfirmed(ctx context.Context, to string, b booking.Submitted) error {
	subject := fmt.Sprintf("Appointment confirmed: %s %s", b.Selection.Date, b.Selection.Time)
	return n.svc.SendCustom(ctx, to, subject, confirmationBody(b))
}

func confirmationBody(b booking.Submitted) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Your appointment #%s has been booked.\n\n", b.AppointmentID)
	fmt.Fprintf(&sb, "Doctor: %s\n", b.Selection.Doctor.DoctorName)
	fmt.Fprintf(&sb, "Specialization: %s\n", b.Selection.Specialization)
	fmt.Fprintf(&sb, "Date: %s\n", b.Selection.Date)
	fmt.Fprintf(&sb, "Time: %s\n", b.Selection.Time)
	fmt.Fprintf(&sb, "Visit type: %s\n", b.Type)
	fmt.Fprintf(&sb, "Reason: %s\n", b.Reason)
	return sb.String()
}
