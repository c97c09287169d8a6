package service

import "VariantMap/internal/domain/models"

// OutcomeLabeler fills a day's outcome from its target window bars.
type OutcomeLabeler interface {
	LabelDay(day *models.TradingDay)
}

// MapAggregator turns labeled days into probability map rows.
type MapAggregator interface {
	Build(days []models.TradingDay) []models.ProbabilityMapEntry
}
