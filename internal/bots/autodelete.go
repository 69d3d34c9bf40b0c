package bots

import (
	"context"
	"fmt"
	"time"

	"github.com/msaud/wolfherd/internal/wolf"
)

// autoDeleteFilter watches one group and deletes messages from its
// target users after a fixed delay. All of its work is fire-and-forget;
// failures are swallowed.
type autoDeleteFilter struct {
	in      *Instance
	groupID string
	targets map[string]struct{}
	delay   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// StartAutoDelete installs a message filter on groupID covering
// targetUserIDs, replacing any previous filter. It also starts the
// repeated announcement and the bounded promotion poll.
func (in *Instance) StartAutoDelete(ctx context.Context, groupID string, targetUserIDs []string, delay time.Duration) error {
	if !in.running.Load() {
		return fmt.Errorf("instance %s is not running", in.id)
	}
	if err := in.tr.JoinGroup(ctx, groupID); err != nil {
		return fmt.Errorf("%w: group %s: %v", ErrGroupJoin, groupID, err)
	}

	targets := make(map[string]struct{}, len(targetUserIDs))
	for _, id := range targetUserIDs {
		targets[id] = struct{}{}
	}

	fctx, cancel := context.WithCancel(context.Background())
	f := &autoDeleteFilter{
		in:      in,
		groupID: groupID,
		targets: targets,
		delay:   delay,
		ctx:     fctx,
		cancel:  cancel,
	}

	if old := in.autodel.Swap(f); old != nil {
		old.cancel()
	}

	go f.announceLoop()
	go f.promotionPoll()

	in.logger.Info("auto-delete filter installed",
		"group_id", groupID, "targets", len(targets), "delay", delay)
	return nil
}

// StopAutoDelete removes the filter if one is installed.
func (in *Instance) StopAutoDelete() bool {
	f := in.autodel.Swap(nil)
	if f == nil {
		return false
	}
	f.cancel()
	in.logger.Info("auto-delete filter removed", "group_id", f.groupID)
	return true
}

// AutoDeleteActive reports whether a filter is installed.
func (in *Instance) AutoDeleteActive() bool {
	return in.autodel.Load() != nil
}

// observe is called from the group-message handler path.
func (f *autoDeleteFilter) observe(msg wolf.Message) {
	if msg.GroupID != f.groupID {
		return
	}
	if _, hit := f.targets[msg.UserID]; !hit {
		return
	}
	go f.deleteLater(msg.Ref)
}

func (f *autoDeleteFilter) deleteLater(ref wolf.MessageRef) {
	select {
	case <-f.ctx.Done():
		return
	case <-time.After(f.delay):
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.in.tr.DeleteMessage(ctx, ref); err != nil {
		f.in.logger.Debug("scheduled delete failed", "error", err)
	}
}

// announceLoop repeats the configured announcement in the group until
// the filter is removed.
func (f *autoDeleteFilter) announceLoop() {
	text := f.in.adCfg.Announcement
	if text == "" {
		return
	}
	ticker := time.NewTicker(f.in.adCfg.AnnounceInterval)
	defer ticker.Stop()
	for {
		if err := f.in.tr.SendGroupMessage(f.ctx, f.groupID, text); err != nil {
			f.in.logger.Debug("announcement send failed", "error", err)
		}
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// promotionPoll watches for the bot's own promotion to elevated group
// permissions within a bounded budget, thanks the promoter once, and
// stops.
func (f *autoDeleteFilter) promotionPoll() {
	deadline := time.Now().Add(f.in.adCfg.PromotionBudget)
	ticker := time.NewTicker(f.in.adCfg.PromotionInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
		}

		member, err := f.in.tr.GroupMember(f.ctx, f.groupID, f.in.tr.CurrentUserID())
		if err != nil {
			continue
		}
		if member.Elevated() {
			if f.in.adCfg.ThankYouMessage != "" {
				if err := f.in.tr.SendGroupMessage(f.ctx, f.groupID, f.in.adCfg.ThankYouMessage); err != nil {
					f.in.logger.Debug("thank-you send failed", "error", err)
				}
			}
			return
		}
	}
}
