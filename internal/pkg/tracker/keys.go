package tracker

import (
	"fmt"

	"github.com/google/uuid"
)

// Key builders for the tracker keyspace. Unread state lives under
// per-recipient prefixes so a whole prefix can be counted or cleared
// in one pass.

// OfferPrefix covers unread offer markers of a purchase request
func OfferPrefix(requestID uuid.UUID) string {
	return fmt.Sprintf("purchase_request:%s;offers:", requestID)
}

// OfferKey marks a single offer as unread for the request owner
func OfferKey(requestID, offerID uuid.UUID) string {
	return OfferPrefix(requestID) + offerID.String()
}

// RequestMessagePrefix covers unread chat message markers aggregated
// per purchase request
func RequestMessagePrefix(requestID uuid.UUID) string {
	return fmt.Sprintf("purchase_request:%s;messages:", requestID)
}

// RequestMessageKey marks a chat message as unread at the request level
func RequestMessageKey(requestID, messageID uuid.UUID) string {
	return RequestMessagePrefix(requestID) + messageID.String()
}

// ChatMessagePrefix covers unread message markers of one chat room for
// one recipient
func ChatMessagePrefix(roomID, recipientID uuid.UUID) string {
	return fmt.Sprintf("chat_room:%s;user:%s;message:", roomID, recipientID)
}

// ChatMessageKey marks a single chat message as unread for the recipient
func ChatMessageKey(roomID, recipientID, messageID uuid.UUID) string {
	return ChatMessagePrefix(roomID, recipientID) + messageID.String()
}

// ChatDebounceKey gates the delayed unread-messages push of a chat room
func ChatDebounceKey(roomID uuid.UUID) string {
	return fmt.Sprintf("chat_room:%s;task_status", roomID)
}

// NotificationPrefix covers seen markers of a user's notifications.
// A missing key means the notification has not been viewed yet.
func NotificationPrefix(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s;notifications:", userID)
}

// NotificationKey marks a notification as seen by a user
func NotificationKey(userID, notificationID uuid.UUID) string {
	return NotificationPrefix(userID) + notificationID.String()
}

// RequestViewKey deduplicates view counting of a purchase request per user
func RequestViewKey(requestID, userID uuid.UUID) string {
	return fmt.Sprintf("purchase_request:%s;viewed:%s", requestID, userID)
}
