package natsbus

import "fmt"

// Subject patterns for the vehicle link. prefix namespaces a deployment and
// swarmID a single run.

func TopicWaypoints(prefix, swarmID string) string {
	return fmt.Sprintf("%s.%s.waypoints", prefix, swarmID)
}

func TopicTelemetry(prefix, swarmID string) string {
	return fmt.Sprintf("%s.%s.telemetry", prefix, swarmID)
}

func TopicCommand(prefix, swarmID string) string {
	return fmt.Sprintf("%s.%s.command", prefix, swarmID)
}

func TopicMetrics(prefix, swarmID string) string {
	return fmt.Sprintf("%s.%s.metrics", prefix, swarmID)
}

// TopicAll matches every subject of one run
func TopicAll(prefix, swarmID string) string {
	return fmt.Sprintf("%s.%s.>", prefix, swarmID)
}
