package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	rendererhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/flowcraft-app/flowcraft/internal/model"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
	"github.com/flowcraft-app/flowcraft/internal/pkg/timeutil"
	"github.com/flowcraft-app/flowcraft/internal/provider"
)

// DraftStore is the persistence surface the draft service needs.
// *repo.DraftRepo satisfies it.
type DraftStore interface {
	Create(ctx context.Context, draft *model.EmailDraft) error
	Get(ctx context.Context, userID, draftID string) (*model.EmailDraft, error)
	ListByUser(ctx context.Context, userID, status string) ([]model.EmailDraft, error)
	Update(ctx context.Context, draft *model.EmailDraft) error
	Delete(ctx context.Context, userID, draftID string) error
	DeleteStale(ctx context.Context, status string, before int64) (int64, error)
}

// DraftService owns the email draft lifecycle. A draft moves
// draft -> pending_approval -> approved -> sent and nothing leaves the
// system before it is approved.
type DraftService struct {
	drafts       DraftStore
	conns        *ConnectionService
	mailProvider string
	markdown     goldmark.Markdown
}

func NewDraftService(drafts DraftStore, conns *ConnectionService, mailProvider string) *DraftService {
	markdown := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(rendererhtml.WithHardWraps()),
	)
	return &DraftService{
		drafts:       drafts,
		conns:        conns,
		mailProvider: mailProvider,
		markdown:     markdown,
	}
}

func (s *DraftService) Create(ctx context.Context, userID, subject, body string, recipients []string, meetingID string, generated bool) (*model.EmailDraft, error) {
	if subject == "" && body == "" {
		return nil, appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	draft := &model.EmailDraft{
		ID:         newID(),
		UserID:     userID,
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
		Status:     model.DraftStatusDraft,
		Generated:  generated,
		MeetingID:  meetingID,
		Ctime:      now,
		Mtime:      now,
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Generate seeds a follow-up draft from a fixed template. When a
// meeting is given the subject and body reference it; the body stays
// markdown so the draft runs through the normal edit/approve path.
func (s *DraftService) Generate(ctx context.Context, userID string, meeting *model.Meeting, recipients []string) (*model.EmailDraft, error) {
	subject := "Follow-up"
	body := "Hi,\n\nThanks for your time. A quick summary and next steps:\n\n" +
		"- Recap of what we discussed\n- Agreed action items\n- Open questions\n\nBest regards"
	meetingID := ""
	if meeting != nil {
		meetingID = meeting.ID
		subject = "Follow-up: " + meeting.Topic
		body = fmt.Sprintf("Hi,\n\nThanks for joining **%s** on %s. A quick summary and next steps:\n\n"+
			"- Recap of what we discussed\n- Agreed action items\n- Open questions\n\nBest regards",
			meeting.Topic, time.Unix(meeting.StartTime, 0).Format("Jan 2, 2006"))
	}
	now := timeutil.NowUnix()
	draft := &model.EmailDraft{
		ID:         newID(),
		UserID:     userID,
		Subject:    subject,
		Body:       body,
		Recipients: recipients,
		Status:     model.DraftStatusDraft,
		Generated:  true,
		MeetingID:  meetingID,
		Ctime:      now,
		Mtime:      now,
	}
	if err := s.drafts.Create(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) Get(ctx context.Context, userID, draftID string) (*model.EmailDraft, error) {
	return s.drafts.Get(ctx, userID, draftID)
}

func (s *DraftService) List(ctx context.Context, userID, status string) ([]model.EmailDraft, error) {
	return s.drafts.ListByUser(ctx, userID, status)
}

// Edit rewrites subject, body or recipients. Sent drafts are frozen;
// editing a pending or approved draft demotes it back to draft so it
// has to be re-approved.
func (s *DraftService) Edit(ctx context.Context, userID, draftID, subject, body string, recipients []string) (*model.EmailDraft, error) {
	draft, err := s.drafts.Get(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status == model.DraftStatusSent {
		return nil, appErr.ErrConflict
	}
	draft.Subject = subject
	draft.Body = body
	draft.Recipients = recipients
	draft.Status = model.DraftStatusDraft
	draft.Mtime = timeutil.NowUnix()
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) Submit(ctx context.Context, userID, draftID string) (*model.EmailDraft, error) {
	return s.transition(ctx, userID, draftID, model.DraftStatusDraft, model.DraftStatusPending)
}

func (s *DraftService) Approve(ctx context.Context, userID, draftID string) (*model.EmailDraft, error) {
	return s.transition(ctx, userID, draftID, model.DraftStatusPending, model.DraftStatusApproved)
}

func (s *DraftService) Reject(ctx context.Context, userID, draftID string) (*model.EmailDraft, error) {
	return s.transition(ctx, userID, draftID, model.DraftStatusPending, model.DraftStatusDraft)
}

func (s *DraftService) transition(ctx context.Context, userID, draftID, from, to string) (*model.EmailDraft, error) {
	draft, err := s.drafts.Get(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != from {
		return nil, appErr.ErrConflict
	}
	draft.Status = to
	draft.Mtime = timeutil.NowUnix()
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// Send delivers an approved draft through the mail provider. The
// markdown body is rendered to HTML at send time; the draft is marked
// sent only after the upstream accepts the message.
func (s *DraftService) Send(ctx context.Context, userID, draftID string) (*model.EmailDraft, error) {
	draft, err := s.drafts.Get(ctx, userID, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != model.DraftStatusApproved {
		return nil, appErr.ErrConflict
	}
	if len(draft.Recipients) == 0 {
		return nil, appErr.ErrInvalid
	}
	p, err := s.conns.Provider(s.mailProvider)
	if err != nil {
		return nil, err
	}
	mail, ok := p.(provider.MailSource)
	if !ok {
		return nil, appErr.ErrInvalid
	}
	raw, err := s.encodeMessage(draft)
	if err != nil {
		return nil, err
	}
	err = s.conns.Authorized(ctx, userID, s.mailProvider, func(accessToken string) error {
		return mail.SendMail(ctx, accessToken, raw)
	})
	if err != nil {
		// a missing or rejected credential keeps its own error; anything
		// else is a delivery failure
		if errors.Is(err, appErr.ErrNotConnected) || appErr.IsUpstreamAuth(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", appErr.ErrSendFailed, err)
	}
	draft.Status = model.DraftStatusSent
	draft.Mtime = timeutil.NowUnix()
	if err := s.drafts.Update(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) Delete(ctx context.Context, userID, draftID string) error {
	return s.drafts.Delete(ctx, userID, draftID)
}

// CleanupStale drops plain drafts untouched for the retention window.
func (s *DraftService) CleanupStale(ctx context.Context, retention time.Duration) (int64, error) {
	before := timeutil.NowUnix() - int64(retention.Seconds())
	return s.drafts.DeleteStale(ctx, model.DraftStatusDraft, before)
}

// encodeMessage builds the base64url RFC 2822 payload mail providers
// expect for raw sends.
func (s *DraftService) encodeMessage(draft *model.EmailDraft) (string, error) {
	var htmlBody bytes.Buffer
	if err := s.markdown.Convert([]byte(draft.Body), &htmlBody); err != nil {
		return "", err
	}
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(draft.Recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", draft.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(htmlBody.Bytes())
	return base64.URLEncoding.EncodeToString(msg.Bytes()), nil
}
