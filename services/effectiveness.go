package services

import (
	"habit-battle-system/models"
)

const (
	ActorTypeSloth   = "sloth"
	ActorTypeChaos   = "chaos"
	ActorTypeDoubt   = "doubt"
	ActorTypeGloom   = "gloom"
	ActorTypeSlacker = "slacker"
)

// ActorTypes lists every valid actor type: monster archetypes and PVP avatar
// personas share the same table.
var ActorTypes = []string{
	ActorTypeSloth,
	ActorTypeChaos,
	ActorTypeDoubt,
	ActorTypeGloom,
	ActorTypeSlacker,
}

func ValidActorType(t string) bool {
	for _, known := range ActorTypes {
		if t == known {
			return true
		}
	}
	return false
}

// effectivenessTable maps (actor type, task category) to a damage multiplier.
// Every multiplier is one of 0.5, 1.0, 1.5; pairs not listed are neutral.
var effectivenessTable = map[string]map[string]float64{
	ActorTypeSloth: {
		models.TaskCategoryFitness:     1.5,
		models.TaskCategoryChores:      1.5,
		models.TaskCategoryMindfulness: 0.5,
	},
	ActorTypeChaos: {
		models.TaskCategoryChores:   1.5,
		models.TaskCategoryWork:     1.5,
		models.TaskCategoryLearning: 0.5,
	},
	ActorTypeDoubt: {
		models.TaskCategoryLearning:    1.5,
		models.TaskCategoryMindfulness: 1.5,
		models.TaskCategoryFitness:     0.5,
	},
	ActorTypeGloom: {
		models.TaskCategoryMindfulness: 1.5,
		models.TaskCategoryFitness:     1.5,
		models.TaskCategoryWork:        0.5,
	},
	ActorTypeSlacker: {
		models.TaskCategoryWork:     1.5,
		models.TaskCategoryLearning: 1.5,
		models.TaskCategoryChores:   0.5,
	},
}

// EffectivenessMultiplier returns the multiplier for a task category against
// an actor type. Unknown pairs are neutral.
func EffectivenessMultiplier(actorType, category string) float64 {
	row, ok := effectivenessTable[actorType]
	if !ok {
		return 1.0
	}
	mult, ok := row[category]
	if !ok {
		return 1.0
	}
	return mult
}

// EffectivenessTier buckets a multiplier into the three player-facing tiers.
func EffectivenessTier(multiplier float64) string {
	switch {
	case multiplier < 1.0:
		return models.EffectivenessTierResisted
	case multiplier > 1.0:
		return models.EffectivenessTierSuperEffective
	default:
		return models.EffectivenessTierNeutral
	}
}
