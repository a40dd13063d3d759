package notification

// Wire protocol for the WebSocket connection. All frames are JSON objects
// with a "type" discriminator.

// Client -> server message types.
const (
	TypeMarkRead    = "mark_read"
	TypeMarkAllRead = "mark_all_read"
	TypeAck         = "ack"
	TypePing        = "ping"
)

// Server -> client message types.
const (
	TypeConnectionEstablished = "connection_established"
	TypeNewNotification       = "new_notification"
	TypeAckRequest            = "ack_request"
	TypeUnreadCountUpdate     = "unread_count_update"
	TypeNotificationRead      = "notification_read"
	TypeAllMarkedRead         = "all_marked_read"
	TypePong                  = "pong"
)

// ClientMessage is the inbound frame shape. Unused fields stay zero
// depending on Type.
type ClientMessage struct {
	Type           string `json:"type"`
	NotificationID string `json:"notification_id,omitempty"`
}

type ConnectionEstablishedMessage struct {
	Type                 string          `json:"type"`
	UnreadCount          int             `json:"unread_count"`
	PendingNotifications []*Notification `json:"pending_notifications"`
}

type NewNotificationMessage struct {
	Type         string        `json:"type"`
	Notification *Notification `json:"notification"`
}

type AckRequestMessage struct {
	Type           string `json:"type"`
	NotificationID string `json:"notification_id"`
}

type UnreadCountUpdateMessage struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type NotificationReadMessage struct {
	Type           string `json:"type"`
	NotificationID string `json:"notification_id"`
	UnreadCount    int    `json:"unread_count"`
}

type AllMarkedReadMessage struct {
	Type        string `json:"type"`
	Count       int64  `json:"count"`
	UnreadCount int    `json:"unread_count"`
}

type PongMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
