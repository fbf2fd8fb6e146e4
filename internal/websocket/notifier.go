package websocket

import (
	"github.com/frostdev-ops/home-panel-go/internal/core/home"
)

var removedTopics = map[home.Kind]string{
	home.KindDevice:     TopicDevices,
	home.KindRoom:       TopicRooms,
	home.KindScene:      TopicScenes,
	home.KindAutomation: TopicAutomations,
	home.KindUser:       TopicUsers,
}

// Notify publishes every entity in a committed change set to subscribed
// clients. It satisfies home.Notifier and never blocks.
func (h *Hub) Notify(change home.ChangeSet) {
	for _, d := range change.Devices {
		h.BroadcastToAll(EntityMessage(MessageTypeDeviceUpdated, TopicDevices, d))
	}
	for _, r := range change.Rooms {
		h.BroadcastToAll(EntityMessage(MessageTypeRoomUpdated, TopicRooms, r))
	}
	for _, s := range change.Scenes {
		h.BroadcastToAll(EntityMessage(MessageTypeSceneUpdated, TopicScenes, s))
	}
	for _, a := range change.Automations {
		h.BroadcastToAll(EntityMessage(MessageTypeAutomationUpdated, TopicAutomations, a))
	}
	for _, u := range change.Users {
		h.BroadcastToAll(EntityMessage(MessageTypeUserUpdated, TopicUsers, u))
	}
	for _, ref := range change.Removed {
		h.BroadcastToAll(EntityRemovedMessage(removedTopics[ref.Kind], string(ref.Kind), ref.ID))
	}
	if change.Scene != "" {
		h.BroadcastToAll(SceneActivatedMessage(change.Scene, change.Actor, len(change.Devices)))
	}
}
