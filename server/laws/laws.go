package laws

import (
	"fmt"
	"strings"
)

// Topic is one scripted entry in the legal knowledge table.
type Topic struct {
	Key       string   `json:"key"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Resources []string `json:"resources"`
}

// Answer is the assistant's reply to one query.
type Answer struct {
	Reply string `json:"reply"`
	Topic string `json:"topic,omitempty"`
}

var topics = []Topic{
	{
		Key:     "domestic violence",
		Title:   "Domestic Violence Protection",
		Content: "You have the right to protection from domestic violence. Laws include restraining orders, emergency protective orders, and safe housing assistance. Contact local authorities immediately if you're in danger.",
		Resources: []string{
			"National Domestic Violence Hotline: 1-800-799-7233",
			"Local women's shelters",
			"Legal aid services",
		},
	},
	{
		Key:     "workplace harassment",
		Title:   "Workplace Sexual Harassment",
		Content: "Sexual harassment in the workplace is illegal. You have rights to a safe work environment, to report harassment without retaliation, and to seek legal remedies including compensation.",
		Resources: []string{
			"EEOC complaint filing",
			"HR department reporting",
			"Employment attorneys",
		},
	},
	{
		Key:     "reproductive rights",
		Title:   "Reproductive Rights",
		Content: "You have fundamental rights regarding reproductive choices, including access to contraception, pregnancy-related medical care, and protection from pregnancy discrimination.",
		Resources: []string{
			"Planned Parenthood",
			"ACLU Reproductive Freedom Project",
			"Local health clinics",
		},
	},
	{
		Key:     "equal pay",
		Title:   "Equal Pay Rights",
		Content: "Women have the right to equal pay for equal work. The Equal Pay Act and Title VII protect against wage discrimination based on gender.",
		Resources: []string{
			"Department of Labor",
			"AAUW salary negotiation resources",
			"Employment law attorneys",
		},
	},
	{
		Key:     "education",
		Title:   "Education Rights (Title IX)",
		Content: "Title IX protects against sex discrimination in education, including sexual harassment and assault on campus. Schools must provide safe learning environments.",
		Resources: []string{
			"Title IX coordinators",
			"Campus advocacy centers",
			"Legal aid for students",
		},
	},
	{
		Key:     "property rights",
		Title:   "Property and Financial Rights",
		Content: "Women have equal rights to own property, enter contracts, access credit, and make financial decisions. Marital property laws vary by state.",
		Resources: []string{
			"Legal aid societies",
			"Financial planning services",
			"Real estate attorneys",
		},
	},
}

const defaultReply = "I understand you're looking for legal information. I can help you with topics like:\n\n" +
	"• Domestic violence protection\n" +
	"• Workplace harassment and discrimination\n" +
	"• Reproductive rights\n" +
	"• Equal pay issues\n" +
	"• Education rights (Title IX)\n" +
	"• Property and financial rights\n\n" +
	"Please tell me more about your specific situation or question."

// Topics returns the scripted knowledge table, for the quick-topics UI.
func Topics() []Topic {
	return topics
}

// Respond matches the query against the knowledge table and general
// fallbacks. Matching is keyword based and case insensitive; a topic key
// matches with or without its internal spaces ("equal pay" / "equalpay").
func Respond(query string) Answer {
	lowerQuery := strings.ToLower(query)

	for _, topic := range topics {
		if strings.Contains(lowerQuery, topic.Key) || strings.Contains(lowerQuery, strings.ReplaceAll(topic.Key, " ", "")) {
			return Answer{Reply: renderTopic(topic), Topic: topic.Key}
		}
	}

	if strings.Contains(lowerQuery, "help") || strings.Contains(lowerQuery, "emergency") {
		return Answer{Reply: "If you're in immediate danger, please call emergency services (911) right away. For non-emergency legal help, I can assist with information about domestic violence protection, workplace rights, reproductive rights, and more. What specific area would you like to learn about?"}
	}

	if strings.Contains(lowerQuery, "rights") {
		return Answer{Reply: "Women have many fundamental rights protected by law, including:\n\n" +
			"• Protection from violence and harassment\n" +
			"• Equal treatment in workplace and education\n" +
			"• Reproductive autonomy\n" +
			"• Equal pay for equal work\n" +
			"• Property and financial rights\n\n" +
			"Which area would you like to explore?"}
	}

	if strings.Contains(lowerQuery, "lawyer") || strings.Contains(lowerQuery, "attorney") {
		return Answer{Reply: "To find legal representation:\n\n" +
			"• Contact your local bar association for referrals\n" +
			"• Look for legal aid societies in your area\n" +
			"• Many organizations offer free or low-cost legal services for women\n" +
			"• Consider contacting specialized women's rights organizations\n\n" +
			"Would you like information about a specific legal issue?"}
	}

	return Answer{Reply: defaultReply}
}

func renderTopic(topic Topic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%v**\n\n%v\n\n**Resources:**\n", topic.Title, topic.Content)
	for _, resource := range topic.Resources {
		fmt.Fprintf(&b, "• %v\n", resource)
	}
	b.WriteString("\nIs there anything specific about this topic you'd like to know more about?")
	return b.String()
}
