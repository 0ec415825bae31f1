package chat

type PostMessageRequest struct {
	Text string `json:"message" validate:"required,max=4000"`
}
