package wolf

import (
	"encoding/json"
	"time"
)

// Wire command names used by the WOLF protocol.
const (
	cmdLogin            = "security login"
	cmdLogout           = "private logout"
	cmdGroupJoin        = "group join"
	cmdGroupLeave       = "group leave"
	cmdMessageSend      = "message send"
	cmdMessageUpdate    = "message update"
	cmdGroupList        = "subscriber group list"
	cmdGroupMember      = "group member"
	cmdGroupMsgSub      = "message group subscribe"
	cmdPrivateMsgSub    = "message private subscribe"
)

// Group capability levels as reported by the service.
const (
	CapabilityMember = 0
	CapabilityAdmin  = 1
	CapabilityMod    = 2
	CapabilityOwner  = 32
)

// packet is a single protocol frame. Outbound packets carry a sequence
// number; reply frames echo it back.
type packet struct {
	Command string          `json:"command"`
	Seq     uint32          `json:"seq,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// replyBody is the common envelope of command replies.
type replyBody struct {
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// wireMessage is the inbound chat-message frame body.
type wireMessage struct {
	ID           string `json:"id"`
	IsGroup      bool   `json:"isGroup"`
	RecipientID  string `json:"recipientId"`
	OriginatorID string `json:"originatorId"`
	Data         string `json:"data"`
	Timestamp    int64  `json:"timestamp"`
	MimeType     string `json:"mimeType"`
}

// Message is an inbound chat message delivered to subscribed handlers.
type Message struct {
	Ref     MessageRef
	GroupID string
	UserID  string
	Content string
	IsGroup bool
	// Arrival is the local receive time, used by timing-sensitive
	// consumers instead of the server timestamp.
	Arrival time.Time
}

// MessageRef identifies a delivered message for later deletion.
type MessageRef struct {
	GroupID   string
	Timestamp int64
	IsGroup   bool
}

// Group is a joined-group record.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GroupMember describes a subscriber's standing inside a group.
type GroupMember struct {
	GroupID      string `json:"groupId"`
	UserID       string `json:"subscriberId"`
	Capabilities int    `json:"capabilities"`
}

// Elevated reports whether the member holds mod/admin/owner capabilities.
func (m *GroupMember) Elevated() bool {
	return m != nil && m.Capabilities > CapabilityMember
}

// MessageHandler receives inbound messages. Handlers run on their own
// goroutine and must not block on slow work; enqueue instead.
type MessageHandler func(msg Message)
