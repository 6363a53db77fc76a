package relay

import "github.com/example/rtc-relay-demo/domain/chat"

// Server-to-client push shapes. Each shape gets its own struct so empty
// lists marshal as [] rather than disappearing behind omitempty.

type roomListPush struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms"`
}

type userListPush struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

type notificationPush struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type chatPush struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

type historyPush struct {
	Type     string         `json:"type"`
	Messages []chat.Message `json:"messages"`
}

func newRoomListPush(rooms []string) roomListPush {
	if rooms == nil {
		rooms = []string{}
	}
	return roomListPush{Type: "roomList", Rooms: rooms}
}

func newUserListPush(users []string) userListPush {
	if users == nil {
		users = []string{}
	}
	return userListPush{Type: "updateUserList", Users: users}
}

func newNotificationPush(message string) notificationPush {
	return notificationPush{Type: "notification", Message: message}
}

func newChatPush(username, message string) chatPush {
	return chatPush{Type: "chat", Username: username, Message: message}
}

func newHistoryPush(messages []chat.Message) historyPush {
	if messages == nil {
		messages = []chat.Message{}
	}
	// History entries are scoped to the receiving room already.
	for i := range messages {
		messages[i].Room = ""
	}
	return historyPush{Type: "chatHistory", Messages: messages}
}
