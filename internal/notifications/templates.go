package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/google/uuid"
)

// Club identifies the sender in message bodies.
type Club struct {
	Name  string
	Email string
}

var htmlLayout = template.Must(template.New("email").Parse(`<!doctype html>
<html><body style="font-family: sans-serif; color: #222">
<h2>{{.Heading}}</h2>
<p>Hi {{.Greeting}},</p>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}{{if .LinkURL}}<p><a href="{{.LinkURL}}">{{.LinkText}}</a></p>
{{end}}<p>{{.Club.Name}}{{if .Club.Email}} &middot; {{.Club.Email}}{{end}}</p>
</body></html>`))

type body struct {
	Heading    string
	Greeting   string
	Paragraphs []string
	LinkURL    string
	LinkText   string
	Club       Club
}

func render(to, toName, subject string, b body) Email {
	if b.Greeting == "" {
		b.Greeting = "there"
	}
	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n", b.Greeting)
	for _, p := range b.Paragraphs {
		text.WriteString(p + "\n\n")
	}
	if b.LinkURL != "" {
		fmt.Fprintf(&text, "%s: %s\n\n", b.LinkText, b.LinkURL)
	}
	text.WriteString(b.Club.Name)
	if b.Club.Email != "" {
		text.WriteString("\n" + b.Club.Email)
	}

	var html bytes.Buffer
	if err := htmlLayout.Execute(&html, b); err != nil {
		html.Reset()
	}
	return Email{To: to, ToName: toName, Subject: subject, Text: text.String(), HTML: html.String()}
}

// RegistrationReceived confirms a registration and links to checkout.
func RegistrationReceived(club Club, to, parentName string, players []string, amount, checkoutURL string) Email {
	paragraphs := []string{
		fmt.Sprintf("Thanks for registering %s with %s.", joinNames(players), club.Name),
		fmt.Sprintf("The registration fee due is %s.", amount),
	}
	if checkoutURL == "" {
		paragraphs = append(paragraphs, "We will send payment instructions separately.")
	}
	return render(to, parentName, "Registration received", body{
		Heading:    "Registration received",
		Greeting:   parentName,
		Paragraphs: paragraphs,
		LinkURL:    checkoutURL,
		LinkText:   "Pay registration fee",
		Club:       club,
	})
}

// Receipt confirms a payment; the invoice PDF is attached.
func Receipt(club Club, to, parentName, playerName, amount string, paymentID uuid.UUID) Email {
	e := render(to, parentName, "Payment received for "+playerName, body{
		Heading:  "Payment received",
		Greeting: parentName,
		Paragraphs: []string{
			fmt.Sprintf("We received your payment of %s for %s.", amount, playerName),
			"Your invoice is attached for your records.",
		},
		Club: club,
	})
	e.AttachmentKind = AttachmentInvoice
	e.AttachmentRef = &paymentID
	return e
}

// Welcome greets a newly active player; the welcome kit PDF is attached.
func Welcome(club Club, to, parentName, playerName, teamName, season string, playerID uuid.UUID) Email {
	e := render(to, parentName, "Welcome to "+club.Name+", "+playerName+"!", body{
		Heading:  "Welcome to the team",
		Greeting: parentName,
		Paragraphs: []string{
			fmt.Sprintf("%s is now on the %s roster for the %s season.", playerName, teamName, season),
			"The attached welcome kit has your coach's contact details and the upcoming schedule.",
		},
		Club: club,
	})
	e.AttachmentKind = AttachmentWelcome
	e.AttachmentRef = &playerID
	return e
}

// PaymentFailed asks the parent to retry a failed payment.
func PaymentFailed(club Club, to, parentName, playerName, amount, retryURL string) Email {
	return render(to, parentName, "Payment failed for "+playerName, body{
		Heading:  "Payment failed",
		Greeting: parentName,
		Paragraphs: []string{
			fmt.Sprintf("Your payment of %s for %s could not be processed.", amount, playerName),
			"No charge was made. Please try again or contact us if the problem continues.",
		},
		LinkURL:  retryURL,
		LinkText: "Retry payment",
		Club:     club,
	})
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return "your player"
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
