package fallback

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTopic(t *testing.T) {
	tests := []struct {
		query string
		want  Topic
	}{
		{"How can I save more money?", TopicSavings},
		{"Help me build an emergency fund", TopicSavings},
		{"I want a budget for 40k per month", TopicBudgeting},
		{"Where should I invest 10 lakh?", TopicInvestment},
		{"Are mutual funds safe?", TopicInvestment},
		{"Should I prepay my home loan?", TopicDebt},
		{"How do I claim 80C deductions?", TopicTax},
		{"Hello there", TopicOther},
		{"", TopicOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyTopic(tt.query), tt.query)
	}
}

func TestExtractIncome(t *testing.T) {
	tests := []struct {
		message string
		want    float64
	}{
		{"I earn Rs 30k", 30000},
		{"My salary is ₹45K", 45000},
		{"around 50 thousand", 50000},
		{"I make 30k per month", 30000},
		{"take home is Rs. 1,20,000", 120000},
		{"no numbers here", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractIncome(tt.message), tt.message)
	}
}

func TestAdvisor_NeverEmpty(t *testing.T) {
	advisor := NewAdvisor()
	inputs := []string{"", " ", "?", "How can I save more money?", "budget", "stocks", "emi", "tax", "🙂", strings.Repeat("x", 5000)}

	for _, input := range inputs {
		answer := advisor.Advise(input)
		assert.NotEmpty(t, strings.TrimSpace(answer.Text), input)
		assert.NotEmpty(t, answer.Suggestions, input)
		assert.NotEmpty(t, answer.Topic, input)
	}
}

func TestAdvisor_SavingsQuery(t *testing.T) {
	answer := NewAdvisor().Advise("How can I save more money?")

	assert.Equal(t, string(TopicSavings), answer.Topic)
	assert.Contains(t, strings.ToLower(answer.Text), "saving")
	require.NotEmpty(t, answer.Suggestions)
}

func TestAdvisor_Deterministic(t *testing.T) {
	advisor := NewAdvisor()
	first := advisor.Advise("What should I invest in?")
	second := advisor.Advise("What should I invest in?")
	assert.Equal(t, first, second)
}

func TestAdvisor_PersonalizedBudget(t *testing.T) {
	answer := NewAdvisor().Advise("Make me a budget, I earn 30k per month")

	assert.Equal(t, string(TopicBudgeting), answer.Topic)
	assert.Contains(t, answer.Text, "₹30,000/month")
	assert.Contains(t, answer.Text, "₹15,000")
	assert.Contains(t, answer.Text, "₹9,000")
	assert.Contains(t, answer.Text, "₹6,000")
}

func TestAdvisor_SuggestionsAreCopies(t *testing.T) {
	advisor := NewAdvisor()
	s := advisor.Suggestions("tax help")
	s[0] = "mutated"
	assert.NotEqual(t, "mutated", advisor.Suggestions("tax help")[0])
}
