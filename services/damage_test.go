package services

import (
	"testing"

	"habit-battle-system/models"
)

func dmgTask(category string, completed bool) models.Task {
	return models.Task{Category: category, Completed: completed}
}

func TestComputeRoundDamage(t *testing.T) {
	tests := []struct {
		name      string
		actorType string
		mandatory []models.Task
		optional  []models.Task
		want      int
	}{
		{
			name:      "empty day scores zero",
			actorType: ActorTypeSloth,
			want:      0,
		},
		{
			name:      "nothing completed scores zero",
			actorType: ActorTypeSloth,
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryWork, false),
				dmgTask(models.TaskCategoryLearning, false),
				dmgTask(models.TaskCategoryFitness, false),
			},
			want: 0,
		},
		{
			name:      "full neutral plan is worth the daily base",
			actorType: ActorTypeSloth,
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryWork, true),
				dmgTask(models.TaskCategoryLearning, true),
				dmgTask(models.TaskCategoryWork, true),
			},
			want: 100,
		},
		{
			name:      "partial neutral plan floors the fraction",
			actorType: ActorTypeSloth,
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryWork, true),
				dmgTask(models.TaskCategoryLearning, true),
				dmgTask(models.TaskCategoryWork, false),
			},
			want: 66,
		},
		{
			name:      "super effective categories multiply",
			actorType: ActorTypeSloth,
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
			},
			want: 150,
		},
		{
			name:      "sum floors once at the end",
			actorType: ActorTypeSloth,
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, false),
			},
			// 3 x 37.5, floored after summing.
			want: 112,
		},
		{
			name:      "resisted categories halve",
			actorType: ActorTypeSloth,
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryMindfulness, true),
				dmgTask(models.TaskCategoryMindfulness, true),
				dmgTask(models.TaskCategoryMindfulness, true),
				dmgTask(models.TaskCategoryMindfulness, true),
			},
			want: 50,
		},
		{
			name:      "optional tasks add a flat bonus",
			actorType: ActorTypeChaos,
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryWork, true),
				dmgTask(models.TaskCategoryChores, true),
				dmgTask(models.TaskCategoryMindfulness, true),
				dmgTask(models.TaskCategoryFitness, true),
			},
			optional: []models.Task{
				dmgTask(models.TaskCategoryWork, true),
				dmgTask(models.TaskCategoryLearning, true),
			},
			// 37.5 + 37.5 + 25 + 25 mandatory, 15 + 5 optional.
			want: 145,
		},
		{
			name:      "only two optional completions count",
			actorType: "unknown-type",
			optional: []models.Task{
				dmgTask(models.TaskCategoryWork, true),
				dmgTask(models.TaskCategoryWork, false),
				dmgTask(models.TaskCategoryWork, true),
				dmgTask(models.TaskCategoryWork, true),
			},
			want: 20,
		},
		{
			name:      "best possible day hits the cap exactly",
			actorType: ActorTypeSloth,
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryChores, true),
				dmgTask(models.TaskCategoryChores, true),
				dmgTask(models.TaskCategoryFitness, true),
			},
			optional: []models.Task{
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryChores, true),
			},
			want: DamageCap,
		},
		{
			name:      "unknown actor type is neutral across the board",
			actorType: "goblin",
			mandatory: []models.Task{
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
				dmgTask(models.TaskCategoryFitness, true),
			},
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ComputeRoundDamage(tt.actorType, tt.mandatory, tt.optional)
			if got != tt.want {
				t.Fatalf("ComputeRoundDamage() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeRoundDamageDiscoveries(t *testing.T) {
	mandatory := []models.Task{
		dmgTask(models.TaskCategoryFitness, true),
		dmgTask(models.TaskCategoryFitness, true),
		dmgTask(models.TaskCategoryWork, true),
		dmgTask(models.TaskCategoryChores, false),
	}
	optional := []models.Task{
		dmgTask(models.TaskCategoryChores, true),
		dmgTask(models.TaskCategoryFitness, true),
	}

	_, discoveries := ComputeRoundDamage(ActorTypeSloth, mandatory, optional)

	want := []Discovery{
		{Category: models.TaskCategoryFitness, Tier: models.EffectivenessTierSuperEffective, Multiplier: 1.5},
		{Category: models.TaskCategoryWork, Tier: models.EffectivenessTierNeutral, Multiplier: 1.0},
		{Category: models.TaskCategoryChores, Tier: models.EffectivenessTierSuperEffective, Multiplier: 1.5},
	}
	if len(discoveries) != len(want) {
		t.Fatalf("got %d discoveries, want %d: %+v", len(discoveries), len(want), discoveries)
	}
	for i, d := range discoveries {
		if d != want[i] {
			t.Fatalf("discovery[%d] = %+v, want %+v", i, d, want[i])
		}
	}
}

func TestComputeRoundDamageIncompleteTasksRevealNothing(t *testing.T) {
	mandatory := []models.Task{
		dmgTask(models.TaskCategoryFitness, false),
		dmgTask(models.TaskCategoryWork, false),
	}

	damage, discoveries := ComputeRoundDamage(ActorTypeSloth, mandatory, nil)
	if damage != 0 {
		t.Fatalf("damage = %d, want 0", damage)
	}
	if len(discoveries) != 0 {
		t.Fatalf("got %d discoveries from incomplete tasks, want 0", len(discoveries))
	}
}
