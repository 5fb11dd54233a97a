package http

import (
	"time"

	"github.com/google/uuid"

	chatdomain "github.com/casafacile/golang_services/internal/chat_service/domain"
	trackingdomain "github.com/casafacile/golang_services/internal/tracking_service/domain"
)

// SendMessageRequest defines the structure for posting a chat message.
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// MessageResponse is one chat message as the participants see it: content is
// already sanitized, Notice carries the redaction warning shown under the
// sender's bubble.
type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	IsBlocked      bool      `json:"is_blocked"`
	BlockedReasons []string  `json:"blocked_reasons,omitempty"`
	Notice         string    `json:"notice,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageListResponse is a page of conversation history, newest first.
type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
	Offset   int               `json:"offset"`
	Limit    int               `json:"limit"`
}

func toMessageResponse(msg *chatdomain.Message) MessageResponse {
	reasons := make([]string, 0, len(msg.BlockedReasons))
	for _, r := range msg.BlockedReasons {
		reasons = append(reasons, string(r))
	}
	return MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		IsBlocked:      msg.IsBlocked,
		BlockedReasons: reasons,
		Notice:         chatdomain.DescribeBlockedReasons(msg.BlockedReasons),
		CreatedAt:      msg.CreatedAt,
	}
}

// ReportedPosition is the device fix the client acquired, or the acquisition
// failure it hit. FailureCode set means the coordinate fields are ignored.
type ReportedPosition struct {
	Latitude       float64   `json:"latitude" validate:"min=-90,max=90"`
	Longitude      float64   `json:"longitude" validate:"min=-180,max=180"`
	AccuracyMeters float64   `json:"accuracy_meters" validate:"min=0"`
	CapturedAt     time.Time `json:"captured_at"`
	FailureCode    string    `json:"failure_code,omitempty" validate:"omitempty,oneof=permission_denied unavailable timeout"`
}

// CheckInRequest defines the structure for POST /bookings/{id}/check-in.
type CheckInRequest struct {
	Position *ReportedPosition `json:"position" validate:"required"`
}

// CheckOutRequest defines the structure for POST /bookings/{id}/check-out.
type CheckOutRequest struct {
	Position *ReportedPosition `json:"position" validate:"required"`
}

// CheckpointResponse mirrors one geofenced fix on a tracking record.
type CheckpointResponse struct {
	At             time.Time `json:"at"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	DistanceMeters int       `json:"distance_meters"`
	InRange        bool      `json:"in_range"`
}

// TrackingResponse is the tracking record plus the immediate feedback for
// the operation that produced it.
type TrackingResponse struct {
	TrackingID     uuid.UUID           `json:"tracking_id"`
	BookingID      uuid.UUID           `json:"booking_id"`
	ProfessionalID uuid.UUID           `json:"professional_id"`
	Status         string              `json:"status"`
	CheckIn        *CheckpointResponse `json:"check_in,omitempty"`
	CheckOut       *CheckpointResponse `json:"check_out,omitempty"`
	ActualHours    *float64            `json:"actual_hours,omitempty"`
	DistanceMeters int                 `json:"distance_meters"`
	InRange        bool                `json:"in_range"`
	Notice         string              `json:"notice,omitempty"`
}

func toCheckpointResponse(cp *trackingdomain.Checkpoint) *CheckpointResponse {
	if cp == nil {
		return nil
	}
	return &CheckpointResponse{
		At:             cp.At,
		Latitude:       cp.Latitude,
		Longitude:      cp.Longitude,
		DistanceMeters: cp.DistanceMeters,
		InRange:        cp.InRange,
	}
}

func toTrackingResponse(rec *trackingdomain.TrackingRecord, distanceMeters int, inRange bool, notice string) TrackingResponse {
	return TrackingResponse{
		TrackingID:     rec.ID,
		BookingID:      rec.BookingID,
		ProfessionalID: rec.ProfessionalID,
		Status:         string(rec.Status),
		CheckIn:        toCheckpointResponse(rec.CheckIn),
		CheckOut:       toCheckpointResponse(rec.CheckOut),
		ActualHours:    rec.ActualHours,
		DistanceMeters: distanceMeters,
		InRange:        inRange,
		Notice:         notice,
	}
}

// GenericErrorResponse for API errors
type GenericErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
