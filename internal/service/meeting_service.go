package service

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/flowcraft-app/flowcraft/internal/filestore"
	"github.com/flowcraft-app/flowcraft/internal/model"
	appErr "github.com/flowcraft-app/flowcraft/internal/pkg/errors"
	"github.com/flowcraft-app/flowcraft/internal/pkg/timeutil"
	"github.com/flowcraft-app/flowcraft/internal/provider"
	"github.com/flowcraft-app/flowcraft/internal/repo"
)

// MeetingService syncs meetings from connected providers into the
// local store and pulls transcripts once they are ready.
type MeetingService struct {
	conns       *ConnectionService
	meetings    *repo.MeetingRepo
	transcripts *repo.TranscriptRepo
	files       filestore.Store
	listCache   *expirable.LRU[string, []model.Meeting]
}

func NewMeetingService(conns *ConnectionService, meetings *repo.MeetingRepo,
	transcripts *repo.TranscriptRepo, files filestore.Store) *MeetingService {
	return &MeetingService{
		conns:       conns,
		meetings:    meetings,
		transcripts: transcripts,
		files:       files,
		listCache:   expirable.NewLRU[string, []model.Meeting](1000, nil, 30*time.Second),
	}
}

func (s *MeetingService) meetingSource(providerName string) (provider.MeetingSource, error) {
	p, err := s.conns.Provider(providerName)
	if err != nil {
		return nil, err
	}
	source, ok := p.(provider.MeetingSource)
	if !ok {
		return nil, appErr.ErrInvalid
	}
	return source, nil
}

// List returns the user's meetings for one provider, syncing from the
// upstream first. Upstream results are cached briefly so repeated
// polls do not hammer the provider.
func (s *MeetingService) List(ctx context.Context, userID, providerName string) ([]model.Meeting, error) {
	source, err := s.meetingSource(providerName)
	if err != nil {
		return nil, err
	}
	// the cache must not outlive a disconnect, so check the credential
	// row before serving from it
	connected, err := s.conns.IsConnected(ctx, userID, providerName)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, appErr.ErrNotConnected
	}
	cacheKey := userID + "/" + providerName
	if cached, ok := s.listCache.Get(cacheKey); ok {
		return cached, nil
	}
	var infos []provider.MeetingInfo
	err = s.conns.Authorized(ctx, userID, providerName, func(accessToken string) error {
		var fetchErr error
		infos, fetchErr = source.ListMeetings(ctx, accessToken)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if err := s.upsertFromInfo(ctx, userID, providerName, &infos[i]); err != nil {
			logutil.GetLogger(ctx).Warn("store meeting failed",
				zap.String("external_id", infos[i].ExternalID), zap.Error(err))
		}
	}
	meetings, err := s.meetings.ListByUser(ctx, userID, providerName)
	if err != nil {
		return nil, err
	}
	s.listCache.Add(cacheKey, meetings)
	return meetings, nil
}

func (s *MeetingService) upsertFromInfo(ctx context.Context, userID, providerName string, info *provider.MeetingInfo) error {
	now := timeutil.NowUnix()
	meeting := &model.Meeting{
		ID:              newID(),
		UserID:          userID,
		Provider:        providerName,
		ExternalID:      info.ExternalID,
		Topic:           info.Topic,
		StartTime:       info.StartTime,
		DurationMinutes: info.DurationMinutes,
		Status:          info.Status,
		JoinURL:         info.JoinURL,
		Ctime:           now,
		Mtime:           now,
	}
	if meeting.Status == "" {
		meeting.Status = model.MeetingWaiting
	}
	return s.meetings.Upsert(ctx, meeting)
}

func (s *MeetingService) Get(ctx context.Context, userID, meetingID string) (*model.Meeting, error) {
	return s.meetings.GetByID(ctx, userID, meetingID)
}

// Refresh pulls the latest upstream state for one stored meeting.
func (s *MeetingService) Refresh(ctx context.Context, userID, meetingID string) (*model.Meeting, error) {
	meeting, err := s.meetings.GetByID(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	source, err := s.meetingSource(meeting.Provider)
	if err != nil {
		return nil, err
	}
	var info *provider.MeetingInfo
	err = s.conns.Authorized(ctx, userID, meeting.Provider, func(accessToken string) error {
		var fetchErr error
		info, fetchErr = source.GetMeeting(ctx, accessToken, meeting.ExternalID)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	if err := s.upsertFromInfo(ctx, userID, meeting.Provider, info); err != nil {
		return nil, err
	}
	return s.meetings.GetByID(ctx, userID, meetingID)
}

// FetchParticipants is the monitor's read path. It goes straight to
// the provider and never touches the meeting row.
func (s *MeetingService) FetchParticipants(ctx context.Context, userID, providerName, externalID string) ([]provider.Participant, error) {
	source, err := s.meetingSource(providerName)
	if err != nil {
		return nil, err
	}
	var participants []provider.Participant
	err = s.conns.Authorized(ctx, userID, providerName, func(accessToken string) error {
		var fetchErr error
		participants, fetchErr = source.ListParticipants(ctx, accessToken, externalID)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

func (s *MeetingService) UpdateStatus(ctx context.Context, userID, meetingID, status string) error {
	switch status {
	case model.MeetingWaiting, model.MeetingStarted, model.MeetingEnded:
	default:
		return appErr.ErrInvalid
	}
	return s.meetings.UpdateStatus(ctx, userID, meetingID, status, timeutil.NowUnix())
}

// PullTranscript downloads the meeting transcript from the provider,
// saves the file and records the transcript row. A provider that has
// not finished processing reports ErrTranscriptNotReady.
func (s *MeetingService) PullTranscript(ctx context.Context, userID, meetingID string) (*model.Transcript, error) {
	meeting, err := s.meetings.GetByID(ctx, userID, meetingID)
	if err != nil {
		return nil, err
	}
	source, err := s.meetingSource(meeting.Provider)
	if err != nil {
		return nil, err
	}
	var file *provider.TranscriptFile
	err = s.conns.Authorized(ctx, userID, meeting.Provider, func(accessToken string) error {
		var fetchErr error
		file, fetchErr = source.DownloadTranscript(ctx, accessToken, meeting.ExternalID)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	key := "transcript_" + meeting.ID + ".txt"
	reader := newByteReader(file.Content)
	if err := s.files.Save(ctx, key, reader, int64(len(file.Content))); err != nil {
		return nil, err
	}
	transcript := &model.Transcript{
		ID:        newID(),
		MeetingID: meeting.ID,
		UserID:    userID,
		FileKey:   key,
		Language:  file.Language,
		WordCount: len(strings.Fields(string(file.Content))),
		Ctime:     timeutil.NowUnix(),
	}
	if err := s.transcripts.Upsert(ctx, transcript); err != nil {
		return nil, err
	}
	return transcript, nil
}

func (s *MeetingService) GetTranscript(ctx context.Context, userID, meetingID string) (*model.Transcript, error) {
	return s.transcripts.GetByMeeting(ctx, userID, meetingID)
}

type byteReader struct {
	*bytes.Reader
}

func newByteReader(data []byte) *byteReader {
	return &byteReader{Reader: bytes.NewReader(data)}
}

func (r *byteReader) Close() error {
	return nil
}
