package transport

import (
	"fmt"
	"time"
)

// CommandAction is a vehicle command verb
type CommandAction string

const (
	CommandArm    CommandAction = "arm"
	CommandDisarm CommandAction = "disarm"
)

// Command is addressed to a set of drones
type Command struct {
	SwarmID   string        `json:"swarm_id"`
	Action    CommandAction `json:"action"`
	DroneIDs  []int         `json:"drone_ids"`
	Timestamp time.Time     `json:"timestamp"`
}

// CommandSender publishes arm/disarm commands
type CommandSender struct {
	publisher Publisher
	topic     string
	swarmID   string
}

func NewCommandSender(publisher Publisher, topic, swarmID string) *CommandSender {
	return &CommandSender{
		publisher: publisher,
		topic:     topic,
		swarmID:   swarmID,
	}
}

func (cs *CommandSender) Arm(droneIDs []int) error {
	return cs.send(CommandArm, droneIDs)
}

func (cs *CommandSender) Disarm(droneIDs []int) error {
	return cs.send(CommandDisarm, droneIDs)
}

func (cs *CommandSender) send(action CommandAction, droneIDs []int) error {
	if len(droneIDs) == 0 {
		return nil
	}
	cmd := Command{
		SwarmID:   cs.swarmID,
		Action:    action,
		DroneIDs:  append([]int(nil), droneIDs...),
		Timestamp: time.Now(),
	}
	if err := cs.publisher.PublishJSON(cs.topic, cmd); err != nil {
		return fmt.Errorf("send %s command: %w", action, err)
	}
	return nil
}
