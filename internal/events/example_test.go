package events_test

import (
	"fmt"

	"github.com/nexusmap/nexus/internal/events"
)

// ExampleEvent_SetReloadData demonstrates type-safe data handling.
func ExampleEvent_SetReloadData() {
	event := events.NewEvent(
		events.EventTypeReloadCompleted,
		"project-1",
		"sync",
		events.SeverityInfo,
		"graph reloaded",
		nil,
	)

	if err := event.SetReloadData(events.ReloadData{Reason: "force", Nodes: 3}); err != nil {
		fmt.Println("error:", err)
		return
	}

	data, _ := event.GetReloadData()
	fmt.Println(data.Reason, data.Nodes)
	// Output: force 3
}
