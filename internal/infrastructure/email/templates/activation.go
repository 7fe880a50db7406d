// Package templates provides email template components
package templates

import (
	"bytes"
	"html/template"
	"log"
)

// ActivationEmailProps carries the values rendered into the tenant
// activation email.
type ActivationEmailProps struct {
	Name            string
	ActivationURL   string
	TenantID        string
	ExpirationHours int
}

type activationTemplateData struct {
	Name            string
	ActivationURL   template.URL
	TenantID        string
	ExpirationHours int
}

var activationEmailTemplate = template.Must(template.New("activationEmail").Parse(`
<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>Activate your CivQuest workspace</title>
  </head>
  <body style="font-family: Helvetica, sans-serif; font-size: 16px; background-color: #f4f5f6; margin: 0; padding: 24px;">
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" width="100%" style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 4px;">
      <tbody>
        <tr>
          <td style="padding: 24px;">
            <p style="margin: 0 0 16px;">Hi {{.Name}},</p>
            <p style="margin: 0 0 16px;">Your CivQuest workspace <strong>{{.TenantID}}</strong> is ready to be activated. Click the button below to finish setup.</p>
            <p style="margin: 0 0 24px;">
              <a href="{{.ActivationURL}}" target="_blank" style="display: inline-block; padding: 12px 24px; border-radius: 4px; background-color: #0d5c63; color: #ffffff; font-weight: bold; text-decoration: none;">Activate workspace</a>
            </p>
            <p style="margin: 0 0 16px; color: #6b7280; font-size: 14px;">This link expires in {{.ExpirationHours}} hours. If you did not request a CivQuest workspace, you can ignore this email.</p>
          </td>
        </tr>
      </tbody>
    </table>
  </body>
</html>`))

// GetActivationEmailContent renders the full activation email HTML.
func GetActivationEmailContent(props ActivationEmailProps) string {
	data := activationTemplateData{
		Name:            props.Name,
		ActivationURL:   template.URL(props.ActivationURL),
		TenantID:        props.TenantID,
		ExpirationHours: props.ExpirationHours,
	}

	var buf bytes.Buffer
	if err := activationEmailTemplate.Execute(&buf, data); err != nil {
		log.Printf("ERROR: Failed to render activation email template: %v", err)
		return ""
	}
	return buf.String()
}
