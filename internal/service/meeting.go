package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MeetingService provisions the video room for a confirmed booking and
// returns a reference participants use to join.
type MeetingService interface {
	CreateMeeting(ctx context.Context, bookingID string, participants []string) (string, error)
}

// RoomMeetingService mints an unguessable room link under a base URL.
type RoomMeetingService struct {
	baseURL string
}

func NewRoomMeetingService(baseURL string) *RoomMeetingService {
	return &RoomMeetingService{baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *RoomMeetingService) CreateMeeting(_ context.Context, bookingID string, participants []string) (string, error) {
	if bookingID == "" {
		return "", fmt.Errorf("create meeting: booking id required")
	}
	if len(participants) == 0 {
		return "", fmt.Errorf("create meeting for %s: no participants", bookingID)
	}
	return fmt.Sprintf("%s/%s-%s", m.baseURL, bookingID, strings.ReplaceAll(uuid.NewString(), "-", "")[:12]), nil
}
