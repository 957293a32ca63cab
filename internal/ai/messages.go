package ai

import (
	"fmt"
	"strconv"

	"github.com/garyjia/scanpaie/internal/domain/entity"
)

// Supported report locales
const (
	LocaleFR = "fr"
	LocaleEN = "en"
)

// SupportedLocales lists the locales a detector can render
var SupportedLocales = []string{LocaleFR, LocaleEN}

// IsSupportedLocale reports whether locale has a message catalogue
func IsSupportedLocale(locale string) bool {
	_, ok := catalogues[locale]
	return ok
}

type suggestionSet struct {
	salarySpikePosition   []string
	salarySpikeHistorical []string
	overtimeExcessive     []string
	deductionUnusual      []string
	taxInconsistent       []string
	bonusIrregular        []string
}

type recommendationSet struct {
	salarySpike string
	overtime    string
	critical    string
	training    string
}

// catalogue holds every user-facing string of a report in one locale
type catalogue struct {
	salarySpikePositionFmt   string
	salarySpikeHistoricalFmt string
	overtimeExcessiveFmt     string
	deductionUnusualFmt      string
	taxInconsistentFmt       string
	bonusIrregularFmt        string

	suggestions     suggestionSet
	recommendations recommendationSet
	typeLabels      map[entity.AnomalyType]string
}

var catalogues = map[string]*catalogue{
	LocaleFR: {
		salarySpikePositionFmt:   "Salaire brut (€%s) significativement supérieur à la fourchette attendue pour le poste %s",
		salarySpikeHistoricalFmt: "Augmentation salariale de %.1f%% par rapport à la moyenne historique",
		overtimeExcessiveFmt:     "Heures supplémentaires excessives: %sh (limite recommandée: %sh)",
		deductionUnusualFmt:      "Déductions inhabituelles: €%s (%.1f%% du salaire brut)",
		taxInconsistentFmt:       "Taux d'imposition incohérent: %.1f%% (attendu: ~%.1f%%)",
		bonusIrregularFmt:        "Prime exceptionnellement élevée: €%s (%.1f%% du salaire)",
		suggestions: suggestionSet{
			salarySpikePosition: []string{
				"Vérifier si une promotion ou augmentation a été accordée",
				"Confirmer les heures supplémentaires et primes incluses",
				"Valider avec le service RH",
			},
			salarySpikeHistorical: []string{
				"Vérifier la justification de l'augmentation",
				"Confirmer l'approbation hiérarchique",
				"Documenter les raisons de l'ajustement",
			},
			overtimeExcessive: []string{
				"Vérifier la conformité avec le code du travail",
				"Évaluer la charge de travail de l'employé",
				"Considérer un recrutement supplémentaire",
				"Valider les heures avec le manager direct",
			},
			deductionUnusual: []string{
				"Vérifier la nature des déductions",
				"Confirmer l'autorisation de l'employé",
				"Valider les calculs de déduction",
				"Documenter les raisons des déductions",
			},
			taxInconsistent: []string{
				"Vérifier le taux d'imposition appliqué",
				"Confirmer la situation fiscale de l'employé",
				"Valider les paramètres de calcul fiscal",
				"Consulter un expert comptable si nécessaire",
			},
			bonusIrregular: []string{
				"Vérifier la justification de la prime",
				"Confirmer l'approbation de la direction",
				"Documenter la nature de la prime",
				"Vérifier l'impact fiscal",
			},
		},
		recommendations: recommendationSet{
			salarySpike: "Mettre en place un processus de validation pour les augmentations salariales importantes",
			overtime:    "Réviser la gestion des heures supplémentaires et la charge de travail",
			critical:    "Effectuer un audit complet des données de paie critiques",
			training:    "Considérer une formation sur les bonnes pratiques de gestion de paie",
		},
		typeLabels: map[entity.AnomalyType]string{
			entity.AnomalySalarySpike:       "Pic salarial",
			entity.AnomalyOvertimeExcessive: "Heures sup. excessives",
			entity.AnomalyDeductionUnusual:  "Déductions inhabituelles",
			entity.AnomalyTaxInconsistent:   "Fiscalité incohérente",
			entity.AnomalyBonusIrregular:    "Prime irrégulière",
		},
	},
	LocaleEN: {
		salarySpikePositionFmt:   "Gross salary (€%s) significantly above the expected range for position %s",
		salarySpikeHistoricalFmt: "Salary increase of %.1f%% over the historical average",
		overtimeExcessiveFmt:     "Excessive overtime: %sh (recommended limit: %sh)",
		deductionUnusualFmt:      "Unusual deductions: €%s (%.1f%% of gross salary)",
		taxInconsistentFmt:       "Inconsistent tax rate: %.1f%% (expected: ~%.1f%%)",
		bonusIrregularFmt:        "Exceptionally high bonus: €%s (%.1f%% of salary)",
		suggestions: suggestionSet{
			salarySpikePosition: []string{
				"Check whether a promotion or raise was granted",
				"Confirm the overtime and bonuses included",
				"Validate with the HR department",
			},
			salarySpikeHistorical: []string{
				"Check the justification for the increase",
				"Confirm management approval",
				"Document the reasons for the adjustment",
			},
			overtimeExcessive: []string{
				"Check compliance with labour law",
				"Assess the employee's workload",
				"Consider additional hiring",
				"Validate the hours with the direct manager",
			},
			deductionUnusual: []string{
				"Check the nature of the deductions",
				"Confirm the employee's authorisation",
				"Validate the deduction calculations",
				"Document the reasons for the deductions",
			},
			taxInconsistent: []string{
				"Check the tax rate applied",
				"Confirm the employee's tax situation",
				"Validate the tax calculation settings",
				"Consult an accountant if needed",
			},
			bonusIrregular: []string{
				"Check the justification for the bonus",
				"Confirm management approval",
				"Document the nature of the bonus",
				"Check the tax impact",
			},
		},
		recommendations: recommendationSet{
			salarySpike: "Set up a validation process for significant salary increases",
			overtime:    "Review overtime management and workload",
			critical:    "Run a full audit of critical payroll data",
			training:    "Consider training on payroll management best practices",
		},
		typeLabels: map[entity.AnomalyType]string{
			entity.AnomalySalarySpike:       "Salary spike",
			entity.AnomalyOvertimeExcessive: "Excessive overtime",
			entity.AnomalyDeductionUnusual:  "Unusual deductions",
			entity.AnomalyTaxInconsistent:   "Inconsistent tax",
			entity.AnomalyBonusIrregular:    "Irregular bonus",
		},
	},
}

func catalogueFor(locale string) *catalogue {
	if c, ok := catalogues[locale]; ok {
		return c
	}
	return catalogues[LocaleFR]
}

// TypeLabel returns the display label of t in locale, or the raw type
func TypeLabel(locale string, t entity.AnomalyType) string {
	if label, ok := catalogueFor(locale).typeLabels[t]; ok {
		return label
	}
	return string(t)
}

// formatAmount prints v without trailing zeros (12000, 80.5)
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (c *catalogue) salarySpikePosition(salary float64, position string) string {
	return fmt.Sprintf(c.salarySpikePositionFmt, formatAmount(salary), position)
}

func (c *catalogue) salarySpikeHistorical(increasePct float64) string {
	return fmt.Sprintf(c.salarySpikeHistoricalFmt, increasePct)
}

func (c *catalogue) overtimeExcessive(hours, limit float64) string {
	return fmt.Sprintf(c.overtimeExcessiveFmt, formatAmount(hours), formatAmount(limit))
}

func (c *catalogue) deductionUnusual(amount, pct float64) string {
	return fmt.Sprintf(c.deductionUnusualFmt, formatAmount(amount), pct)
}

func (c *catalogue) taxInconsistent(actual, expected float64) string {
	return fmt.Sprintf(c.taxInconsistentFmt, actual, expected)
}

func (c *catalogue) bonusIrregular(amount, pct float64) string {
	return fmt.Sprintf(c.bonusIrregularFmt, formatAmount(amount), pct)
}
