package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/scanpaie/internal/ai"
	"github.com/garyjia/scanpaie/internal/application/port"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	"go.uber.org/zap"
)

// DefaultAlertItems is the number of anomalies listed on an alert card
const DefaultAlertItems = 5

type alertText struct {
	title      string
	company    string
	risk       string
	critical   string
	narrative  string
	more       string
	noCritical string
}

var alertTexts = map[string]alertText{
	ai.LocaleFR: {
		title:      "Alerte paie : %d anomalie(s) critique(s)",
		company:    "**Entreprise :** %s  **Période :** %s",
		risk:       "**Score de risque :** %d/100",
		critical:   "**Anomalies critiques :** %d sur %d",
		narrative:  "**Synthèse :** %s",
		more:       "… et %d autre(s)",
		noCritical: "Aucune anomalie critique",
	},
	ai.LocaleEN: {
		title:      "Payroll alert: %d critical anomaly(ies)",
		company:    "**Company:** %s  **Period:** %s",
		risk:       "**Risk score:** %d/100",
		critical:   "**Critical anomalies:** %d of %d",
		narrative:  "**Summary:** %s",
		more:       "… and %d more",
		noCritical: "No critical anomaly",
	},
}

// Card is a Lark interactive message card
type Card struct {
	Config   CardConfig    `json:"config"`
	Header   CardHeader    `json:"header"`
	Elements []CardElement `json:"elements"`
}

// CardConfig holds card display options
type CardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

// CardHeader is the colored card title
type CardHeader struct {
	Template string   `json:"template"`
	Title    CardText `json:"title"`
}

// CardText is a text node
type CardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// CardElement is a div or hr element
type CardElement struct {
	Tag  string    `json:"tag"`
	Text *CardText `json:"text,omitempty"`
}

func markdown(content string) CardElement {
	return CardElement{Tag: "div", Text: &CardText{Tag: "lark_md", Content: content}}
}

// BuildAlertCard renders the critical anomalies of a record as a card.
// At most maxItems anomalies are listed.
func BuildAlertCard(record *entity.AnalysisRecord, locale string, maxItems int) Card {
	texts, ok := alertTexts[locale]
	if !ok {
		texts = alertTexts[ai.LocaleFR]
		locale = ai.LocaleFR
	}
	if maxItems <= 0 {
		maxItems = DefaultAlertItems
	}

	report := record.Analysis
	card := Card{
		Config: CardConfig{WideScreenMode: true},
		Header: CardHeader{
			Template: "red",
			Title:    CardText{Tag: "plain_text", Content: fmt.Sprintf(texts.title, report.CriticalAnomalies)},
		},
	}

	card.Elements = append(card.Elements,
		markdown(fmt.Sprintf(texts.company, record.CompanyID, record.Period)),
		markdown(fmt.Sprintf(texts.risk, report.OverallRiskScore)),
		markdown(fmt.Sprintf(texts.critical, report.CriticalAnomalies, report.TotalAnomalies)),
		CardElement{Tag: "hr"},
	)

	var lines []string
	for i := range report.Anomalies {
		a := &report.Anomalies[i]
		if !a.IsCritical() {
			continue
		}
		if len(lines) == maxItems {
			lines = append(lines, fmt.Sprintf(texts.more, report.CriticalAnomalies-maxItems))
			break
		}
		lines = append(lines, fmt.Sprintf("• **%s** (%s): %s", a.EmployeeName, ai.TypeLabel(locale, a.Type), a.Description))
	}
	if len(lines) == 0 {
		lines = append(lines, texts.noCritical)
	}
	card.Elements = append(card.Elements, markdown(strings.Join(lines, "\n")))

	if record.Narrative != "" {
		card.Elements = append(card.Elements, CardElement{Tag: "hr"}, markdown(fmt.Sprintf(texts.narrative, record.Narrative)))
	}

	return card
}

// AlertNotifier posts critical anomaly alerts to a Lark chat
type AlertNotifier struct {
	sender   MessageSender
	chatID   string
	locale   string
	maxItems int
	logger   *zap.Logger
}

// NewAlertNotifier creates a notifier that posts to chatID
func NewAlertNotifier(sender MessageSender, chatID, locale string, maxItems int, logger *zap.Logger) *AlertNotifier {
	return &AlertNotifier{
		sender:   sender,
		chatID:   chatID,
		locale:   locale,
		maxItems: maxItems,
		logger:   logger,
	}
}

// NotifyCritical sends an alert card when the record has critical anomalies
func (n *AlertNotifier) NotifyCritical(ctx context.Context, record *entity.AnalysisRecord) error {
	if record == nil || record.Analysis == nil || record.Analysis.CriticalAnomalies == 0 {
		return nil
	}

	card, err := json.Marshal(BuildAlertCard(record, n.locale, n.maxItems))
	if err != nil {
		return fmt.Errorf("failed to marshal alert card: %w", err)
	}

	messageID, err := n.sender.SendMessage(ctx, ReceiveIDTypeChatID, n.chatID, MsgTypeInteractive, string(card))
	if err != nil {
		return fmt.Errorf("failed to send critical alert: %w", err)
	}

	n.logger.Info("Critical anomaly alert sent",
		zap.String("analysis_id", record.ID),
		zap.String("message_id", messageID),
		zap.Int("critical_anomalies", record.Analysis.CriticalAnomalies))

	return nil
}

var _ port.AlertNotifier = (*AlertNotifier)(nil)
