package notifications

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"csrgive.com/app/internal/config"
	"csrgive.com/app/internal/mailer"
	"csrgive.com/app/internal/modules/campaigns"
	"csrgive.com/app/internal/modules/donations"
	"csrgive.com/app/internal/modules/users"
	"csrgive.com/app/internal/shared/money"
)

// Service turns donation events into emails.
type Service struct {
	mailer   mailer.Service
	from     string
	fromName string
}

func NewService(m mailer.Service, cfg config.MailConfig) *Service {
	return &Service{mailer: m, from: cfg.From, fromName: cfg.FromName}
}

func (s *Service) send(ctx context.Context, to users.User, d donations.Donation, category, subject, text, htmlBody string) error {
	return s.mailer.Send(ctx, mailer.Email{
		From:     s.from,
		FromName: s.fromName,
		To:       []string{to.Email},
		Subject:  subject,
		TextBody: text,
		HTMLBody: htmlBody,
		Category: category,
		Headers:  map[string]string{"X-Donation-ID": strconv.FormatUint(uint64(d.ID), 10)},
	})
}

func page(heading string, lines ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body style="font-family: sans-serif;"><h2>` + html.EscapeString(heading) + "</h2>")
	for _, l := range lines {
		b.WriteString("<p>" + html.EscapeString(l) + "</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}

func (s *Service) DonationConfirmation(ctx context.Context, donor users.User, d donations.Donation, c campaigns.Campaign) error {
	amount := money.Format(d.Amount, c.Currency)
	subject := "Thank you for your donation to " + c.Title
	lines := []string{
		"Hi " + donor.Name + ",",
		fmt.Sprintf("We received your donation of %s to %q.", amount, c.Title),
		"Receipt number: " + donations.ReceiptNumber(d),
	}
	if d.TransactionID != nil {
		lines = append(lines, "Transaction: "+*d.TransactionID)
	}
	return s.send(ctx, donor, d, "donation", subject, join(lines), page("Donation received", lines...))
}

// CampaignOwnerNotice tells the owner about a new donation. Anonymous donors
// stay anonymous.
func (s *Service) CampaignOwnerNotice(ctx context.Context, owner, donor users.User, d donations.Donation, c campaigns.Campaign) error {
	who := donor.Name
	if d.Anonymous {
		who = "An anonymous donor"
	}
	lines := []string{
		"Hi " + owner.Name + ",",
		fmt.Sprintf("%s donated %s to %q.", who, money.Format(d.Amount, c.Currency), c.Title),
		fmt.Sprintf("Progress: %.2f%% of %s.", c.ProgressPercentage(), money.Format(c.TargetAmount, c.Currency)),
	}
	if d.Message != nil && *d.Message != "" {
		lines = append(lines, "Message: "+*d.Message)
	}
	return s.send(ctx, owner, d, "campaign", "New donation to "+c.Title, join(lines), page("New donation", lines...))
}

func (s *Service) RefundNotice(ctx context.Context, donor users.User, d donations.Donation, c campaigns.Campaign, reason string) error {
	lines := []string{
		"Hi " + donor.Name + ",",
		fmt.Sprintf("Your donation of %s to %q has been refunded.", money.Format(d.Amount, c.Currency), c.Title),
	}
	if reason != "" {
		lines = append(lines, "Reason: "+reason)
	}
	return s.send(ctx, donor, d, "refund", "Your donation has been refunded", join(lines), page("Donation refunded", lines...))
}

func join(lines []string) string {
	return strings.Join(lines, "\n\n") + "\n"
}
