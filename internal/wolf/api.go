package wolf

import (
	"context"
	"encoding/json"
	"fmt"
)

// Login authenticates the session and subscribes to group and private
// message streams. The service replies with the subscriber record on
// success.
func (c *Client) Login(ctx context.Context, email, password string) error {
	reply, err := c.request(ctx, cmdLogin, map[string]any{
		"username": email,
		"password": password,
		"type":     "email",
	})
	if err != nil {
		return err
	}
	if reply.Code != 200 {
		return fmt.Errorf("%w: code %d %s", ErrLoginFailed, reply.Code, reply.Message)
	}

	var sub struct {
		ID string `json:"id"`
	}
	if len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, &sub); err != nil {
			return fmt.Errorf("wolf: decode login reply: %w", err)
		}
	}

	c.mu.Lock()
	c.userID = sub.ID
	c.mu.Unlock()

	// Message streams are opt-in; without these the server sends nothing.
	if _, err := c.request(ctx, cmdGroupMsgSub, map[string]any{}); err != nil {
		return fmt.Errorf("wolf: group message subscribe: %w", err)
	}
	if _, err := c.request(ctx, cmdPrivateMsgSub, map[string]any{}); err != nil {
		return fmt.Errorf("wolf: private message subscribe: %w", err)
	}

	c.logger.Info("logged in", "user_id", sub.ID)
	return nil
}

// JoinGroup joins the given group id (no password).
func (c *Client) JoinGroup(ctx context.Context, groupID string) error {
	reply, err := c.request(ctx, cmdGroupJoin, map[string]any{
		"id":       groupID,
		"password": "",
	})
	if err != nil {
		return err
	}
	// Already-a-member is not a failure for our purposes.
	if reply.Code != 200 && reply.Code != 409 {
		return fmt.Errorf("wolf: join group %s: code %d %s", groupID, reply.Code, reply.Message)
	}
	return nil
}

// LeaveGroup leaves the given group id.
func (c *Client) LeaveGroup(ctx context.Context, groupID string) error {
	reply, err := c.request(ctx, cmdGroupLeave, map[string]any{"id": groupID})
	if err != nil {
		return err
	}
	if reply.Code != 200 {
		return fmt.Errorf("wolf: leave group %s: code %d %s", groupID, reply.Code, reply.Message)
	}
	return nil
}

// SendGroupMessage sends a text message into a group.
func (c *Client) SendGroupMessage(ctx context.Context, groupID, text string) error {
	return c.sendMessage(ctx, groupID, text, true)
}

// SendPrivateMessage sends a text message to a subscriber.
func (c *Client) SendPrivateMessage(ctx context.Context, userID, text string) error {
	return c.sendMessage(ctx, userID, text, false)
}

func (c *Client) sendMessage(ctx context.Context, recipient, text string, isGroup bool) error {
	reply, err := c.request(ctx, cmdMessageSend, map[string]any{
		"recipient": recipient,
		"isGroup":   isGroup,
		"mimeType":  "text/plain",
		"data":      text,
	})
	if err != nil {
		return err
	}
	if reply.Code != 200 {
		return fmt.Errorf("wolf: send to %s: code %d %s", recipient, reply.Code, reply.Message)
	}
	return nil
}

// DeleteMessage marks a previously delivered message deleted.
func (c *Client) DeleteMessage(ctx context.Context, ref MessageRef) error {
	reply, err := c.request(ctx, cmdMessageUpdate, map[string]any{
		"recipientId": ref.GroupID,
		"timestamp":   ref.Timestamp,
		"isGroup":     ref.IsGroup,
		"metadata":    map[string]any{"isDeleted": true},
	})
	if err != nil {
		return err
	}
	if reply.Code != 200 {
		return fmt.Errorf("wolf: delete message: code %d %s", reply.Code, reply.Message)
	}
	return nil
}

// ListJoinedGroups returns the groups the logged-in subscriber belongs to.
func (c *Client) ListJoinedGroups(ctx context.Context) ([]Group, error) {
	reply, err := c.request(ctx, cmdGroupList, map[string]any{"subscribe": false})
	if err != nil {
		return nil, err
	}
	if reply.Code != 200 {
		return nil, fmt.Errorf("wolf: group list: code %d %s", reply.Code, reply.Message)
	}

	var groups []Group
	if len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, &groups); err != nil {
			return nil, fmt.Errorf("wolf: decode group list: %w", err)
		}
	}
	return groups, nil
}

// GroupMember fetches a subscriber's membership record for a group.
func (c *Client) GroupMember(ctx context.Context, groupID, userID string) (*GroupMember, error) {
	reply, err := c.request(ctx, cmdGroupMember, map[string]any{
		"groupId":      groupID,
		"subscriberId": userID,
	})
	if err != nil {
		return nil, err
	}
	if reply.Code != 200 {
		return nil, fmt.Errorf("wolf: group member %s/%s: code %d %s", groupID, userID, reply.Code, reply.Message)
	}

	member := &GroupMember{}
	if len(reply.Data) > 0 {
		if err := json.Unmarshal(reply.Data, member); err != nil {
			return nil, fmt.Errorf("wolf: decode group member: %w", err)
		}
	}
	return member, nil
}
