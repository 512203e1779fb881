package mqtt

import "fmt"

// Topic prefixes for the pet door bridge.
//
// Door topics use the flat scheme: petdoor/{category}/{door_id}[/{leaf}]
const (
	// TopicPrefix is the base for all door topics.
	TopicPrefix = "petdoor"

	// TopicPrefixSystem is the base for bridge process topics.
	TopicPrefixSystem = "petdoor/system"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers keeps topic naming consistent between the bridge,
// its tests and anything subscribing to it:
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("garden", "door_status")
//	// Returns: "petdoor/state/garden/door_status"
type Topics struct{}

// =============================================================================
// Door Topics
// =============================================================================

// State returns the retained state topic for one reply category.
//
// Example: petdoor/state/garden/battery
func (Topics) State(doorID, category string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, doorID, category)
}

// Command returns the topic an action is requested on.
//
// Example: petdoor/command/garden/open
func (Topics) Command(doorID, action string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, doorID, action)
}

// Ack returns the topic command acknowledgements are published on.
//
// Example: petdoor/ack/garden
func (Topics) Ack(doorID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, doorID)
}

// Health returns the retained health topic for a door.
//
// Example: petdoor/health/garden
func (Topics) Health(doorID string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, doorID)
}

// Event returns the topic unsolicited door events are published on.
//
// Example: petdoor/event/garden
func (Topics) Event(doorID string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefix, doorID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the bridge's online/offline topic. It carries the
// Last Will and Testament.
//
// Example: petdoor/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// =============================================================================
// Wildcard Subscriptions
// =============================================================================

// AllCommands returns a pattern matching every action for one door.
//
// Example: petdoor/command/garden/+
func (Topics) AllCommands(doorID string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, doorID)
}

// AllStates returns a pattern matching every state topic of every door.
//
// Example: petdoor/state/+/+
func (Topics) AllStates() string {
	return TopicPrefix + "/state/+/+"
}

// AllTopics returns a pattern matching everything the bridge publishes.
//
// Example: petdoor/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ActionFromTopic extracts the trailing action from a command topic, or
// "" if topic is not a command topic for doorID.
func (t Topics) ActionFromTopic(doorID, topic string) string {
	prefix := t.Command(doorID, "")
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	action := topic[len(prefix):]
	for i := 0; i < len(action); i++ {
		if action[i] == '/' {
			return ""
		}
	}
	return action
}
