package facts

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed countries.yaml
var countriesYAML []byte

// MinFacts is the minimum number of facts a country needs to be playable:
// one revealed at round start plus at least one requestable hint.
const MinFacts = 2

// ErrNoPlayableCountry is returned when the dataset holds no country with
// enough facts to run a round.
var ErrNoPlayableCountry = errors.New("facts: no playable country available")

// Country is a playable target: a name plus the ordered fact list revealed
// as hints during a round.
type Country struct {
	Name  string
	Facts []string
}

type record struct {
	Name        string   `yaml:"name"`
	Capital     string   `yaml:"capital"`
	Continent   string   `yaml:"continent"`
	Languages   []string `yaml:"languages"`
	Population  int64    `yaml:"population"`
	SurfaceArea float64  `yaml:"surface_area"`
}

type dataset struct {
	Countries []record `yaml:"countries"`
}

// Provider serves random countries from the embedded dataset.
type Provider struct {
	mu       sync.Mutex
	rng      *rand.Rand
	playable []Country
}

// NewProvider loads the embedded dataset. The seed drives country selection
// so tests can pin the sequence.
func NewProvider(seed int64) (*Provider, error) {
	return newProviderFromYAML(countriesYAML, seed)
}

func newProviderFromYAML(data []byte, seed int64) (*Provider, error) {
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse country dataset: %w", err)
	}

	var playable []Country
	for _, rec := range ds.Countries {
		facts := generateFacts(rec)
		if len(facts) < MinFacts {
			log.Warn().Str("country", rec.Name).Int("facts", len(facts)).Msg("skipping country with too few facts")
			continue
		}
		playable = append(playable, Country{Name: rec.Name, Facts: facts})
	}

	log.Info().Int("playable", len(playable)).Int("total", len(ds.Countries)).Msg("country dataset loaded")

	return &Provider{
		rng:      rand.New(rand.NewSource(seed)),
		playable: playable,
	}, nil
}

// RandomCountry picks a random playable country. Every returned country has
// at least MinFacts facts.
func (p *Provider) RandomCountry() (Country, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.playable) == 0 {
		return Country{}, ErrNoPlayableCountry
	}
	return p.playable[p.rng.Intn(len(p.playable))], nil
}

// generateFacts builds the ordered hint list for a country. The order is
// deterministic: capital, continent, language, population, surface area.
// Missing fields are skipped.
func generateFacts(rec record) []string {
	var facts []string

	if rec.Capital != "" {
		facts = append(facts, fmt.Sprintf("Its capital city is %s.", rec.Capital))
	}
	if rec.Continent != "" && rec.Continent != "N/A" {
		facts = append(facts, fmt.Sprintf("It is located in the continent of %s.", rec.Continent))
	}
	if len(rec.Languages) > 0 && rec.Languages[0] != "" {
		facts = append(facts, fmt.Sprintf("One of its official languages is %s.", rec.Languages[0]))
	}
	if rec.Population > 0 {
		facts = append(facts, fmt.Sprintf("It has a population of approximately %.1f million people.", float64(rec.Population)/1e6))
	}
	if rec.SurfaceArea > 0 {
		facts = append(facts, fmt.Sprintf("Its total surface area is about %.1f million square kilometers.", rec.SurfaceArea/1e6))
	}

	return facts
}
