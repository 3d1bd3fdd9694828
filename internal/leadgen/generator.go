package leadgen

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"

	"github.com/unflakeops/leadrelay/internal/domain/calc"
	"github.com/unflakeops/leadrelay/internal/domain/lead"
	"github.com/unflakeops/leadrelay/pkg/logger"
)

const randomFloatDivisor = 1000000

var (
	companies = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark Industries"}
	ciSystems = []string{"GitHub Actions", "GitLab CI", "CircleCI", "Jenkins", "Other"}
	teamSizes = []string{"1-10", "11-25", "26-100", "100+"}
	curs      = []calc.Currency{calc.GBP, calc.EUR, calc.USD}
)

// Team size profiles used to vary the calculator inputs.
const (
	caseSmallTeam = 0
	caseMidTeam   = 1
	caseLargeTeam = 2
)

// randomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	i, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(i.Int64())
}

func pick[T any](items []T) T {
	return items[randomIndex(len(items))]
}

// generateLeads creates synthetic submissions with unique email addresses.
func generateLeads(ctx context.Context, config *Config, stats *Stats) []lead.Submission {
	logger.Get().Info(ctx, "generating leads", logger.Int("numLeads", config.NumLeads))

	leads := make([]lead.Submission, config.NumLeads)
	for i := range leads {
		leads[i] = generateSingleLead()
	}

	stats.LeadsGenerated = len(leads)
	return leads
}

// generateSingleLead builds one submission with a team-size profile driving
// the calculator inputs. Results are left nil so the service derives them.
func generateSingleLead() lead.Submission {
	var inputs calc.Inputs
	switch randomIndex(3) {
	case caseSmallTeam:
		inputs = calc.Inputs{
			PipelinesPerWeek:  50 + randomFloat()*150,
			FailureRatePct:    5 + randomFloat()*15,
			PctFlaky:          20 + randomFloat()*30,
			TriageMinutes:     10 + randomFloat()*10,
			RerunMinutes:      10 + randomFloat()*15,
			EngineersAffected: 1,
			LoadedHourly:      40 + randomFloat()*30,
		}
	case caseMidTeam:
		inputs = calc.Inputs{
			PipelinesPerWeek:  300 + randomFloat()*400,
			FailureRatePct:    10 + randomFloat()*20,
			PctFlaky:          25 + randomFloat()*35,
			TriageMinutes:     10 + randomFloat()*20,
			RerunMinutes:      15 + randomFloat()*15,
			EngineersAffected: 1 + randomFloat()*2,
			LoadedHourly:      50 + randomFloat()*40,
		}
	case caseLargeTeam:
		inputs = calc.Inputs{
			PipelinesPerWeek:  1000 + randomFloat()*4000,
			FailureRatePct:    15 + randomFloat()*20,
			PctFlaky:          30 + randomFloat()*40,
			TriageMinutes:     15 + randomFloat()*30,
			RerunMinutes:      20 + randomFloat()*25,
			EngineersAffected: 2 + randomFloat()*4,
			LoadedHourly:      60 + randomFloat()*60,
		}
	}
	inputs.Currency = pick(curs)
	inputs.SprintPrice = 7500
	inputs.CoreMonthly = 2500

	sub := lead.Submission{
		Email:    "lead-" + uuid.NewString() + "@example.com",
		Company:  pick(companies),
		CI:       pick(ciSystems),
		TeamSize: pick(teamSizes),
		Source:   "leadgen",
		Inputs:   inputs,
	}

	// Half the leads carry client-computed results, half leave them for the
	// service to derive, exercising both submission paths.
	if randomIndex(2) == 0 {
		out := calculator.Compute(inputs)
		sub.Results = &out
	}
	return sub
}

var calculator = calc.New()
