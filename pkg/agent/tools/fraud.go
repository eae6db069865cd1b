package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Risk thresholds and levels for the statistical fraud analyzer.
const (
	riskThresholdLow    = 30
	riskThresholdMedium = 60
	riskThresholdHigh   = 85
)

// UserBaseline captures one user's typical spending patterns, used to score
// transactions for anomalies. The demo baseline is synthetic.
type UserBaseline struct {
	UserID            string
	TypicalAmounts    []float64
	TypicalHours      map[int]bool
	TypicalRecipients []string

	AmountMean       float64
	AmountStd        float64
	MaxTypicalAmount float64
}

// NewUserBaseline builds the synthetic baseline for a user.
func NewUserBaseline(userID string) *UserBaseline {
	amounts := []float64{
		25, 45, 12, 89, 156, 67, 34, 78, 23, 190,
		45, 67, 123, 89, 34, 56, 78, 45, 123, 67,
		234, 89, 45, 156, 78, 23, 345, 67, 89, 123,
	}
	hours := map[int]bool{}
	for h := 9; h <= 22; h++ {
		hours[h] = true
	}

	b := &UserBaseline{
		UserID:         userID,
		TypicalAmounts: amounts,
		TypicalHours:   hours,
		TypicalRecipients: []string{
			"walmart", "target", "amazon", "grocery_store", "gas_station",
			"restaurant", "coffee_shop", "pharmacy", "bank_transfer",
			"utility_company", "netflix", "spotify",
		},
	}

	var sum float64
	for _, a := range amounts {
		sum += a
		if a > b.MaxTypicalAmount {
			b.MaxTypicalAmount = a
		}
	}
	b.AmountMean = sum / float64(len(amounts))

	var variance float64
	for _, a := range amounts {
		variance += (a - b.AmountMean) * (a - b.AmountMean)
	}
	b.AmountStd = math.Sqrt(variance / float64(len(amounts)-1))

	return b
}

// IsTypicalHour reports whether the hour falls inside the user's usual
// transaction window.
func (b *UserBaseline) IsTypicalHour(hour int) bool {
	return b.TypicalHours[hour]
}

// IsTypicalRecipient reports whether the recipient matches the user's usual
// merchants.
func (b *UserBaseline) IsTypicalRecipient(recipient string) bool {
	lower := strings.ToLower(recipient)
	for _, typical := range b.TypicalRecipients {
		if strings.Contains(lower, typical) {
			return true
		}
	}
	return false
}

// AmountZScore returns how many standard deviations the amount sits from the
// user's mean spend.
func (b *UserBaseline) AmountZScore(amount float64) float64 {
	if b.AmountStd == 0 {
		return 0
	}
	return math.Abs(amount-b.AmountMean) / b.AmountStd
}

// ParsedTransaction is the structured form of a natural-language transaction
// description.
type ParsedTransaction struct {
	Amount          float64 `json:"amount"`
	Hour            int     `json:"hour"`
	TimeDescription string  `json:"time_description"`
	Recipient       string  `json:"recipient"`
	RecipientType   string  `json:"recipient_type"`
	TransactionType string  `json:"transaction_type"`
	Original        string  `json:"original_description"`
}

// RiskAssessment is the analyzer's verdict for one transaction.
type RiskAssessment struct {
	RiskScore      int                `json:"risk_score"`
	RiskLevel      string             `json:"risk_level"`
	AnomalyFlags   []string           `json:"anomaly_flags"`
	Measures       map[string]float64 `json:"statistical_measures"`
	Recommendation string             `json:"recommendation"`
}

// FraudAnalyzer scores transactions for statistical anomalies against a
// user baseline.
type FraudAnalyzer struct{}

// NewFraudAnalyzer creates an analyzer.
func NewFraudAnalyzer() *FraudAnalyzer {
	return &FraudAnalyzer{}
}

var (
	amountPattern      = regexp.MustCompile(`\$?([\d,]+(?:\.\d{2})?)`)
	clockTimePattern   = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm)`)
	toRecipientPattern = regexp.MustCompile(`to\s+([^\s]+(?:\s+[^\s]+)?)`)
)

var namedHours = []struct {
	keyword string
	hour    int
}{
	{"midnight", 0}, {"noon", 12}, {"morning", 9}, {"afternoon", 15},
	{"evening", 19}, {"night", 22}, {"late", 23}, {"early", 6},
}

var suspiciousRecipients = []string{"unknown", "offshore", "foreign", "suspicious", "anonymous"}

var knownMerchants = []string{"starbucks", "walmart", "amazon", "target", "bank", "atm"}

var transactionTypes = []struct {
	name     string
	keywords []string
}{
	{"transfer", []string{"transfer", "wire", "send"}},
	{"payment", []string{"payment", "pay", "purchase"}},
	{"withdrawal", []string{"withdrawal", "withdraw", "atm"}},
	{"deposit", []string{"deposit"}},
}

// Parse extracts structured transaction details from a natural-language
// description like "Transfer of $5,000 to unknown account at midnight".
func (a *FraudAnalyzer) Parse(description string) ParsedTransaction {
	parsed := ParsedTransaction{Original: description}
	lower := strings.ToLower(description)

	if m := amountPattern.FindStringSubmatch(description); m != nil {
		parsed.Amount, _ = strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	}

	parsed.Hour, parsed.TimeDescription = extractHour(lower)
	parsed.Recipient, parsed.RecipientType = extractRecipient(lower)

	parsed.TransactionType = "unknown"
	for _, tt := range transactionTypes {
		for _, keyword := range tt.keywords {
			if strings.Contains(lower, keyword) {
				parsed.TransactionType = tt.name
				break
			}
		}
		if parsed.TransactionType != "unknown" {
			break
		}
	}

	return parsed
}

func extractHour(lower string) (int, string) {
	if m := clockTimePattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if m[3] == "pm" && hour != 12 {
			hour += 12
		}
		if m[3] == "am" && hour == 12 {
			hour = 0
		}
		return hour, m[0]
	}

	for _, named := range namedHours {
		if strings.Contains(lower, named.keyword) {
			return named.hour, named.keyword
		}
	}

	// Default to noon when no time is mentioned.
	return 12, "unknown"
}

func extractRecipient(lower string) (string, string) {
	name, kind := "unknown", "unknown"

	for _, keyword := range suspiciousRecipients {
		if strings.Contains(lower, keyword) {
			name, kind = keyword, "suspicious"
			break
		}
	}

	for _, merchant := range knownMerchants {
		if strings.Contains(lower, merchant) {
			name, kind = merchant, "known_merchant"
			break
		}
	}

	if m := toRecipientPattern.FindStringSubmatch(lower); m != nil {
		name = strings.TrimSpace(m[1])
	}

	return name, kind
}

// Analyze scores a parsed transaction against the user baseline.
func (a *FraudAnalyzer) Analyze(parsed ParsedTransaction, baseline *UserBaseline) RiskAssessment {
	assessment := RiskAssessment{
		AnomalyFlags: []string{},
		Measures:     map[string]float64{},
	}

	zscore := baseline.AmountZScore(parsed.Amount)
	assessment.Measures["amount_zscore"] = math.Round(zscore*100) / 100

	if zscore > 3 {
		assessment.RiskScore += 40
		assessment.AnomalyFlags = append(assessment.AnomalyFlags,
			fmt.Sprintf("Amount $%.0f is %.1f std devs above normal", parsed.Amount, zscore))
	} else if zscore > 2 {
		assessment.RiskScore += 25
		assessment.AnomalyFlags = append(assessment.AnomalyFlags,
			fmt.Sprintf("Amount $%.0f is unusually high (%.1f std devs)", parsed.Amount, zscore))
	}

	if !baseline.IsTypicalHour(parsed.Hour) {
		assessment.RiskScore += 30
		assessment.AnomalyFlags = append(assessment.AnomalyFlags,
			fmt.Sprintf("Transaction time (%d:00) is outside normal hours", parsed.Hour))
	}

	if !baseline.IsTypicalRecipient(parsed.Recipient) {
		assessment.RiskScore += 25
		assessment.AnomalyFlags = append(assessment.AnomalyFlags,
			fmt.Sprintf("Recipient %q is not in typical merchant list", parsed.Recipient))
	}

	if parsed.RecipientType == "suspicious" {
		assessment.RiskScore += 35
		assessment.AnomalyFlags = append(assessment.AnomalyFlags, "Recipient type flagged as suspicious")
	}

	if parsed.TransactionType == "transfer" {
		assessment.RiskScore += 15
		assessment.AnomalyFlags = append(assessment.AnomalyFlags, "Wire transfers have elevated risk")
	}

	switch {
	case assessment.RiskScore >= riskThresholdHigh:
		assessment.RiskLevel = "HIGH"
		assessment.Recommendation = "BLOCK - High risk transaction, requires immediate investigation"
	case assessment.RiskScore >= riskThresholdMedium:
		assessment.RiskLevel = "MEDIUM"
		assessment.Recommendation = "REVIEW - Multiple anomalies detected, manual review recommended"
	case assessment.RiskScore >= riskThresholdLow:
		assessment.RiskLevel = "LOW"
		assessment.Recommendation = "APPROVE - Minor anomalies detected, monitor account"
	default:
		assessment.RiskLevel = "MINIMAL"
		assessment.Recommendation = "APPROVE - Transaction appears normal"
	}

	return assessment
}

// FraudDetectionTool scores a described transaction against the user's
// spending baseline and returns a JSON risk report.
type FraudDetectionTool struct {
	BaseTool
	analyzer *FraudAnalyzer
	// baselines are constructed per user id on demand; the demo baseline
	// is deterministic so no caching is needed.
	baselineFor func(userID string) *UserBaseline
}

// NewFraudDetectionTool creates the detect_fraud_statistical tool. A nil
// baseline factory selects the synthetic default.
func NewFraudDetectionTool(baselineFor func(userID string) *UserBaseline) *FraudDetectionTool {
	if baselineFor == nil {
		baselineFor = NewUserBaseline
	}
	return &FraudDetectionTool{
		BaseTool: NewBaseTool("detect_fraud_statistical",
			"Analyze a transaction description for fraud using statistical anomaly detection against the user's spending baseline."),
		analyzer:    NewFraudAnalyzer(),
		baselineFor: baselineFor,
	}
}

// Schema returns the JSON Schema for the tool's arguments.
func (t *FraudDetectionTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"transaction_description": map[string]interface{}{
				"type":        "string",
				"description": "Natural language description of the transaction (e.g. 'Transfer of $5,000 to unknown account at midnight')",
			},
			"user_id": map[string]interface{}{
				"type":        "string",
				"description": "User identifier for the personalized baseline",
			},
		},
		"required": []string{"transaction_description"},
	}
}

// Call executes the tool.
func (t *FraudDetectionTool) Call(ctx context.Context, args map[string]interface{}) (string, error) {
	description, err := requiredStringArg(args, "transaction_description")
	if err != nil {
		return "", err
	}
	userID := optionalStringArg(args, "user_id", "default")

	baseline := t.baselineFor(userID)
	parsed := t.analyzer.Parse(description)
	assessment := t.analyzer.Analyze(parsed, baseline)

	report := map[string]interface{}{
		"transaction": description,
		"risk_assessment": map[string]interface{}{
			"risk_score":     assessment.RiskScore,
			"risk_level":     assessment.RiskLevel,
			"recommendation": assessment.Recommendation,
		},
		"anomaly_detection": map[string]interface{}{
			"flags":                assessment.AnomalyFlags,
			"statistical_measures": assessment.Measures,
		},
		"parsed_details": map[string]interface{}{
			"amount":           parsed.Amount,
			"time":             fmt.Sprintf("%d:00 (%s)", parsed.Hour, parsed.TimeDescription),
			"recipient":        parsed.Recipient,
			"transaction_type": parsed.TransactionType,
		},
		"user_baseline_summary": map[string]interface{}{
			"typical_amount_range": fmt.Sprintf("$%.0f ± $%.0f", baseline.AmountMean, baseline.AmountStd),
			"max_typical_amount":   fmt.Sprintf("$%.0f", baseline.MaxTypicalAmount),
		},
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode risk report: %w", err)
	}
	return string(out), nil
}
