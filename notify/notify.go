package notify

import "context"

// Sender delivers the two messages the sign-in flow needs. Implementations must not
// retain the code after sending.
type Sender interface {
	SendOTP(ctx context.Context, email, code string) error
	SendInvitation(ctx context.Context, email, orgName, inviterEmail, link string) error
}

// Email is a rendered message ready for delivery.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}
