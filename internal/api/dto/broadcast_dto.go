package dto

// BroadcastRequest payload.
type BroadcastRequest struct {
	GroupID      string   `json:"group_id" validate:"required"`
	Body         string   `json:"body" validate:"required"`
	Language     string   `json:"language"`
	RecipientIDs []string `json:"recipient_ids" validate:"required,min=1,dive,required"`
}
