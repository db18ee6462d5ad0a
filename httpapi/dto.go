package httpapi

import (
	"time"

	"escrowflow/deal"
	"escrowflow/dispute"
	"escrowflow/identity"
	"escrowflow/notify"
	"escrowflow/txlog"
)

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

type dealResponse struct {
	ID                 int64      `json:"id"`
	ServiceDescription string     `json:"service_description"`
	Amount             int64      `json:"amount"`
	Deadline           time.Time  `json:"deadline"`
	CreatorID          int64      `json:"creator_id"`
	CreatorRole        string     `json:"creator_role"`
	PayerID            *int64     `json:"payer_id,omitempty"`
	ProviderID         *int64     `json:"provider_id,omitempty"`
	InviteType         string     `json:"invite_type"`
	InviteCode         string     `json:"invite_code,omitempty"`
	InvitedUsername    string     `json:"invited_username,omitempty"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	CreatedAt          time.Time  `json:"created_at"`
	FundedAt           *time.Time `json:"funded_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	ReleasedAt         *time.Time `json:"released_at,omitempty"`
}

func toDealResponse(d deal.Deal) dealResponse {
	return dealResponse{
		ID:                 d.ID,
		ServiceDescription: d.ServiceDescription,
		Amount:             d.Amount,
		Deadline:           d.Deadline,
		CreatorID:          d.CreatorID,
		CreatorRole:        string(d.CreatorRole),
		PayerID:            d.PayerID,
		ProviderID:         d.ProviderID,
		InviteType:         string(d.InviteType),
		InviteCode:         d.InviteCode,
		InvitedUsername:    d.InvitedUsername,
		Status:             string(d.Status),
		PaymentStatus:      string(d.PaymentStatus),
		CreatedAt:          d.CreatedAt,
		FundedAt:           d.FundedAt,
		CompletedAt:        d.CompletedAt,
		ReleasedAt:         d.ReleasedAt,
	}
}

func toDealResponses(deals []deal.Deal) []dealResponse {
	out := make([]dealResponse, 0, len(deals))
	for _, d := range deals {
		out = append(out, toDealResponse(d))
	}
	return out
}

type transactionResponse struct {
	ID         string    `json:"id"`
	DealID     int64     `json:"deal_id"`
	Type       string    `json:"type"`
	Amount     int64     `json:"amount"`
	ReleasedTo string    `json:"released_to,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTransactionResponses(recs []txlog.Record) []transactionResponse {
	out := make([]transactionResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, transactionResponse{
			ID:         rec.ID,
			DealID:     rec.DealID,
			Type:       string(rec.Type),
			Amount:     rec.Amount,
			ReleasedTo: rec.ReleasedTo,
			CreatedAt:  rec.CreatedAt,
		})
	}
	return out
}

type disputeMessageResponse struct {
	UserID    int64     `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type disputeResponse struct {
	ID         string                   `json:"id"`
	DealID     int64                    `json:"deal_id"`
	RaisedBy   int64                    `json:"raised_by"`
	Reason     string                   `json:"reason"`
	Status     string                   `json:"status"`
	Messages   []disputeMessageResponse `json:"messages"`
	Resolution string                   `json:"resolution,omitempty"`
	ResolvedBy *int64                   `json:"resolved_by,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
	ResolvedAt *time.Time               `json:"resolved_at,omitempty"`
}

func toDisputeResponse(d dispute.Dispute) disputeResponse {
	msgs := make([]disputeMessageResponse, 0, len(d.Messages))
	for _, m := range d.Messages {
		msgs = append(msgs, disputeMessageResponse{UserID: m.UserID, Body: m.Body, CreatedAt: m.CreatedAt})
	}
	return disputeResponse{
		ID:         d.ID,
		DealID:     d.DealID,
		RaisedBy:   d.RaisedBy,
		Reason:     d.Reason,
		Status:     string(d.Status),
		Messages:   msgs,
		Resolution: d.Resolution,
		ResolvedBy: d.ResolvedBy,
		CreatedAt:  d.CreatedAt,
		ResolvedAt: d.ResolvedAt,
	}
}

type notificationResponse struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	DealID    int64     `json:"deal_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationResponses(ns []notify.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationResponse{
			ID:        n.ID,
			UserID:    n.UserID,
			DealID:    n.DealID,
			Type:      n.Type,
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}
