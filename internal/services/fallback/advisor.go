package fallback

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/ternarybob/advisor/internal/interfaces"
	"github.com/ternarybob/advisor/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var tips = map[Topic][]string{
	TopicSavings: {
		"Start with the 50/30/20 rule: 50% for needs, 30% for wants, 20% for savings.",
		"Set up automatic transfers to a separate savings account on payday.",
		"Track your expenses for a month to find spending you can redirect to savings.",
		"Aim to save 3-6 months of expenses as an emergency fund.",
		"Keep your emergency savings in a high-yield savings account or liquid fund.",
	},
	TopicBudgeting: {
		"Write down a monthly budget and compare it with actual spending every month.",
		"Use the envelope method for discretionary spending.",
		"Review and adjust your budget monthly.",
		"Include savings as a fixed expense in your budget.",
		"Set specific financial goals to stay motivated.",
	},
	TopicInvestment: {
		"Start with index funds for broad market exposure.",
		"Consider a SIP (Systematic Investment Plan) for regular investing.",
		"Diversify across asset classes such as stocks, bonds and gold.",
		"Use tax-saving instruments like ELSS under Section 80C.",
		"Match each investment to a goal and its time horizon.",
	},
	TopicDebt: {
		"Pay off high-interest debt first, such as credit cards and personal loans.",
		"Consider consolidating multiple loans into one at a lower rate.",
		"Avoid taking on new debt while paying off existing loans.",
		"Use the snowball or avalanche method for debt repayment.",
		"Build an emergency fund so surprises do not turn into new debt.",
	},
	TopicTax: {
		"Maximize Section 80C deductions through ELSS, PPF and EPF.",
		"Claim health insurance premiums under Section 80D.",
		"Use HRA and LTA benefits effectively.",
		"File returns on time to avoid penalties.",
		"Keep proper documentation for every deduction you claim.",
	},
}

var headings = map[Topic]string{
	TopicSavings:    "Savings Tip",
	TopicBudgeting:  "Budgeting Tip",
	TopicInvestment: "Investment Tip",
	TopicDebt:       "Debt Management Tip",
	TopicTax:        "Tax Planning Tip",
}

var nextSteps = map[Topic][]string{
	TopicSavings: {
		"Pick a fixed amount to move to savings on the day your salary arrives",
		"Upload a bank statement to find recurring expenses you can cut",
	},
	TopicBudgeting: {
		"Tell me your monthly income for a personalized 50/30/20 breakdown",
		"Upload a bank statement for an expense analysis",
	},
	TopicInvestment: {
		"Decide how long you can leave the money invested before choosing a product",
		"Upload a portfolio statement to review your asset allocation",
	},
	TopicDebt: {
		"List every loan with its interest rate and EMI",
		"Keep total EMIs below 40% of take-home pay",
	},
	TopicTax: {
		"Collect investment proofs before the financial year ends",
		"Upload Form 16 or investment statements for a review",
	},
}

const generalAdvice = `**Financial Wellness Tips**:

1. **Emergency Fund**: Save 3-6 months of expenses
2. **Budget**: Use the 50/30/20 rule
3. **Invest**: Start with index funds and SIP
4. **Insurance**: Get adequate health and life coverage
5. **Tax Planning**: Maximize deductions under 80C and 80D

Upload your financial documents and ask about them for more specific guidance.`

const disclaimer = "_This is general guidance; consult a qualified financial advisor for decisions specific to you._"

var suggestions = map[Topic][]string{
	TopicSavings: {
		"How much should I save for an emergency fund?",
		"What are the best savings account options?",
		"How do I create a monthly budget?",
	},
	TopicBudgeting: {
		"How does the 50/30/20 rule work?",
		"Which expenses should I cut first?",
		"How much of my income should go to savings?",
	},
	TopicInvestment: {
		"What are good mutual funds for beginners?",
		"Should I invest in stocks or mutual funds?",
		"How do I start a SIP investment?",
	},
	TopicTax: {
		"What are the best tax-saving investments?",
		"How do I maximize Section 80C deductions?",
		"What documents do I need for tax filing?",
	},
	TopicDebt: {
		"How do I calculate EMI for different loan amounts?",
		"Should I prepay my loan or invest?",
		"How can I improve my credit score?",
	},
	TopicOther: {
		"Tell me about personal finance basics",
		"How should I plan for retirement?",
		"How much insurance cover do I need?",
	},
}

// Advisor implements interfaces.FallbackAdvisor with canned topic guidance
type Advisor struct {
	printer *message.Printer
}

// Compile-time assertion
var _ interfaces.FallbackAdvisor = (*Advisor)(nil)

// NewAdvisor creates a fallback advisor
func NewAdvisor() *Advisor {
	return &Advisor{printer: message.NewPrinter(language.English)}
}

// Advise returns a topic-specific answer for query. It is deterministic and never empty.
func (a *Advisor) Advise(query string) models.FallbackAnswer {
	topic := ClassifyTopic(query)

	var text string
	switch {
	case topic == TopicOther:
		text = generalAdvice
	case topic == TopicBudgeting && ExtractIncome(query) > 0:
		text = a.personalBudget(ExtractIncome(query))
	default:
		text = a.tip(topic, query)
	}

	return models.FallbackAnswer{
		Topic:       string(topic),
		Text:        text + "\n\n" + disclaimer,
		Suggestions: a.Suggestions(query),
	}
}

// Suggestions returns follow-up questions for the query's topic
func (a *Advisor) Suggestions(query string) []string {
	list := suggestions[ClassifyTopic(query)]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// tip picks one tip for the topic, stable for the same query
func (a *Advisor) tip(topic Topic, query string) string {
	options := tips[topic]
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	choice := options[xxhash.Sum64String(key)%uint64(len(options))]

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s**: %s", headings[topic], choice)
	if steps := nextSteps[topic]; len(steps) > 0 {
		sb.WriteString("\n\n**Next steps**:")
		for _, step := range steps {
			sb.WriteString("\n- ")
			sb.WriteString(step)
		}
	}
	return sb.String()
}

// personalBudget splits a monthly income with the 50/30/20 rule
func (a *Advisor) personalBudget(income float64) string {
	needs, wants, savings := income*0.5, income*0.3, income*0.2
	rs := func(v float64) string { return a.printer.Sprintf("₹%.0f", v) }

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Personalized Budget for %s/month**\n\n", rs(income))
	sb.WriteString("**50/30/20 Rule Breakdown**:\n")
	fmt.Fprintf(&sb, "- **Needs (50%%)**: %s - rent, utilities, groceries, transport\n", rs(needs))
	fmt.Fprintf(&sb, "- **Wants (30%%)**: %s - entertainment, dining, shopping\n", rs(wants))
	fmt.Fprintf(&sb, "- **Savings (20%%)**: %s - emergency fund, investments\n\n", rs(savings))
	sb.WriteString("**Suggested allocation of needs**:\n")
	fmt.Fprintf(&sb, "- Rent/EMI: %s\n", rs(needs*0.4))
	fmt.Fprintf(&sb, "- Utilities and groceries: %s\n", rs(needs*0.3))
	fmt.Fprintf(&sb, "- Transport: %s\n", rs(needs*0.2))
	fmt.Fprintf(&sb, "- Insurance: %s\n\n", rs(needs*0.1))
	sb.WriteString("**Putting the savings to work**:\n")
	fmt.Fprintf(&sb, "- Emergency fund: %s\n", rs(savings*0.5))
	fmt.Fprintf(&sb, "- SIP/mutual funds: %s\n", rs(savings*0.3))
	fmt.Fprintf(&sb, "- Short-term goals: %s", rs(savings*0.2))
	return sb.String()
}
