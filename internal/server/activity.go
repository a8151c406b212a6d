package server

import "github.com/devmemory/memento/internal/notify"

// WatchActivity starts an EventWatcher over dataPath's events directory and
// forwards every event to the Hub, giving the live activity feed visibility
// into captures made by any process sharing the same data directory (the
// CLI, the MCP tool server, or session-capture hooks), not just requests
// that came in over this server's own HTTP API.
func WatchActivity(dataPath string, hub *Hub) (*notify.EventWatcher, error) {
	watcher := notify.NewEventWatcher(dataPath, func(eventType, memoryID string) {
		hub.Broadcast(eventType, memoryID)
	})
	if err := watcher.Start(); err != nil {
		return nil, err
	}
	return watcher, nil
}
