package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

type otpData struct {
	SiteName  string
	Code      string
	ExpiresIn string
}

type invitationData struct {
	SiteName     string
	OrgName      string
	InviterEmail string
	Link         string
}

var (
	otpHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;">
  <h1 style="font-size: 20px;">{{.SiteName}}</h1>
  <p>Your sign-in code is:</p>
  <p style="font-size: 28px; font-weight: 700; letter-spacing: 6px; font-family: 'Courier New', monospace;">{{.Code}}</p>
  <p style="color: #6b7280;">This code expires in {{.ExpiresIn}}. If you did not request it, you can ignore this email.</p>
</body>
</html>`))

	invitationHTML = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;">
  <h1 style="font-size: 20px;">{{.SiteName}}</h1>
  <p>{{.InviterEmail}} invited you to join <strong>{{.OrgName}}</strong>.</p>
  <p><a href="{{.Link}}">Accept the invitation</a></p>
</body>
</html>`))
)

func buildOTPEmail(to string, data otpData) Email {
	var html bytes.Buffer
	_ = otpHTML.Execute(&html, data)
	return Email{
		To:      to,
		Subject: fmt.Sprintf("Your %s sign-in code", data.SiteName),
		TextBody: fmt.Sprintf("Your %s sign-in code is: %s\n\nThis code expires in %s.\n"+
			"If you did not request this code, you can safely ignore this email.\n",
			data.SiteName, data.Code, data.ExpiresIn),
		HTMLBody: html.String(),
	}
}

func buildInvitationEmail(to string, data invitationData) Email {
	var html bytes.Buffer
	_ = invitationHTML.Execute(&html, data)
	return Email{
		To:      to,
		Subject: fmt.Sprintf("You have been invited to %s on %s", data.OrgName, data.SiteName),
		TextBody: fmt.Sprintf("%s invited you to join %s on %s.\n\nAccept the invitation:\n%s\n",
			data.InviterEmail, data.OrgName, data.SiteName, data.Link),
		HTMLBody: html.String(),
	}
}
