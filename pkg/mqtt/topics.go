package mqtt

import "fmt"

const (
	baseTopicTemplate      = "channels/%s/messages"
	taskTopicTemplate      = baseTopicTemplate + "/control/coordinator/tasks/%d"
	resultsTopicTemplate   = baseTopicTemplate + "/control/node/results"
	discoveryTopicTemplate = baseTopicTemplate + "/control/node/create"
	aliveTopicTemplate     = baseTopicTemplate + "/control/node/alive"
)

func BaseTopic(channelID string) string {
	return fmt.Sprintf(baseTopicTemplate, channelID)
}

// TaskTopic is where the coordinator publishes the tasks of one node.
func TaskTopic(channelID string, nodeID int) string {
	return fmt.Sprintf(taskTopicTemplate, channelID, nodeID)
}

func ResultsTopic(channelID string) string {
	return fmt.Sprintf(resultsTopicTemplate, channelID)
}

func DiscoveryTopic(channelID string) string {
	return fmt.Sprintf(discoveryTopicTemplate, channelID)
}

// AliveTopic carries liveness announcements and the last will of nodes.
func AliveTopic(channelID string) string {
	return fmt.Sprintf(aliveTopicTemplate, channelID)
}
