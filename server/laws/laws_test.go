package laws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRespondMatchesTopic(t *testing.T) {
	answer := Respond("I need information about domestic violence protection")

	assert.Equal(t, "domestic violence", answer.Topic)
	assert.Contains(t, answer.Reply, "Domestic Violence Protection")
	assert.Contains(t, answer.Reply, "National Domestic Violence Hotline")
}

func TestRespondIsCaseInsensitive(t *testing.T) {
	answer := Respond("What are my EQUAL PAY rights?")

	assert.Equal(t, "equal pay", answer.Topic)
	assert.Contains(t, answer.Reply, "Equal Pay Act")
}

func TestRespondMatchesCollapsedKeyword(t *testing.T) {
	// topic keys match with their internal spaces removed too
	answer := Respond("tell me about equalpay")
	assert.Equal(t, "equal pay", answer.Topic)
}

func TestRespondEmergencyFallback(t *testing.T) {
	answer := Respond("I need help right now")

	assert.Empty(t, answer.Topic)
	assert.Contains(t, answer.Reply, "call emergency services (911)")
}

func TestRespondRightsFallback(t *testing.T) {
	answer := Respond("what are my rights?")

	assert.Empty(t, answer.Topic)
	assert.Contains(t, answer.Reply, "fundamental rights protected by law")
}

func TestRespondLawyerFallback(t *testing.T) {
	answer := Respond("how do I find a lawyer")

	assert.Empty(t, answer.Topic)
	assert.Contains(t, answer.Reply, "bar association")
}

func TestRespondDefault(t *testing.T) {
	answer := Respond("what's the weather like")

	assert.Empty(t, answer.Topic)
	assert.Contains(t, answer.Reply, "Please tell me more about your specific situation")
}

func TestTopicsTableIsComplete(t *testing.T) {
	topics := Topics()
	assert.Len(t, topics, 6)

	for _, topic := range topics {
		assert.NotEmpty(t, topic.Key)
		assert.NotEmpty(t, topic.Title)
		assert.NotEmpty(t, topic.Content)
		assert.NotEmpty(t, topic.Resources)
	}
}
