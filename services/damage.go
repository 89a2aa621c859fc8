package services

import (
	"math"

	"habit-battle-system/models"
)

const (
	// DailyBase is the total damage a fully completed mandatory plan is worth
	// before multipliers.
	DailyBase = 100.0
	// OptionalBase is the flat per-task value of a completed optional task.
	OptionalBase = 10.0
	// MaxOptionalTasks caps how many optional completions count per day.
	MaxOptionalTasks = 2
	// DamageCap bounds a single round's damage no matter how favorable the
	// multipliers are.
	DamageCap = 180
)

// Discovery is a first-time effectiveness reveal produced while scoring a
// round. Persisting it (insert-or-ignore) is the round advancer's job.
type Discovery struct {
	Category   string
	Tier       string
	Multiplier float64
}

// ComputeRoundDamage scores one actor's day against an actor type.
//
// Each completed mandatory task is worth (DailyBase / plan size) times the
// category multiplier; each completed optional task is worth OptionalBase
// times the multiplier, with at most MaxOptionalTasks counted. Contributions
// are summed in floating point and floored once at the end, then clamped to
// [0, DamageCap]. An empty day scores 0.
func ComputeRoundDamage(actorType string, mandatory, optional []models.Task) (int, []Discovery) {
	total := 0.0

	quota := len(mandatory)
	for _, t := range mandatory {
		if !t.Completed {
			continue
		}
		total += (DailyBase / float64(quota)) * EffectivenessMultiplier(actorType, t.Category)
	}

	counted := 0
	for _, t := range optional {
		if !t.Completed {
			continue
		}
		if counted >= MaxOptionalTasks {
			break
		}
		total += OptionalBase * EffectivenessMultiplier(actorType, t.Category)
		counted++
	}

	damage := int(math.Floor(total))
	if damage < 0 {
		damage = 0
	}
	if damage > DamageCap {
		damage = DamageCap
	}

	return damage, discoverCategories(actorType, mandatory, optional)
}

// discoverCategories collects one Discovery per distinct category among the
// day's completed tasks, in task order.
func discoverCategories(actorType string, mandatory, optional []models.Task) []Discovery {
	var out []Discovery
	seen := map[string]bool{}
	for _, t := range append(append([]models.Task{}, mandatory...), optional...) {
		if !t.Completed || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		mult := EffectivenessMultiplier(actorType, t.Category)
		out = append(out, Discovery{
			Category:   t.Category,
			Tier:       EffectivenessTier(mult),
			Multiplier: mult,
		})
	}
	return out
}
