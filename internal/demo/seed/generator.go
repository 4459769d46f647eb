package seed

import (
	"math/rand"
	"strings"
	"unicode"

	"github.com/Pallinder/go-randomdata"
)

type AuthorPlan struct {
	Name  string
	Books []string
}

// Classic is a fixed library the translation prompt examples refer to.
var Classic = []AuthorPlan{
	{Name: "Brent Weeks", Books: []string{"The Way of Shadows", "Shadow's Edge", "Beyond the Shadows"}},
	{Name: "J. K. Rowling", Books: []string{"Harry Potter and the Philosopher's Stone", "Harry Potter and the Chamber of Secrets"}},
	{Name: "J. R. R. Tolkien", Books: []string{"The Hobbit", "The Fellowship of the Ring", "The Two Towers"}},
}

type Generator struct {
	seed int64
}

func NewGenerator(seed int64) *Generator {
	return &Generator{seed: seed}
}

// Plan returns authors random authors with between minBooks and maxBooks
// titles each. The same seed always yields the same plan.
func (g *Generator) Plan(authors, minBooks, maxBooks int) []AuthorPlan {
	rnd := rand.New(rand.NewSource(g.seed))
	randomdata.CustomRand(rnd)

	plans := make([]AuthorPlan, 0, authors)
	seen := map[string]struct{}{}
	for len(plans) < authors {
		name := randomdata.FullName(randomdata.RandomGender)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		count := minBooks
		if maxBooks > minBooks {
			count += rnd.Intn(maxBooks - minBooks + 1)
		}
		titles := make([]string, 0, count)
		for i := 0; i < count; i++ {
			titles = append(titles, bookTitle(rnd))
		}
		plans = append(plans, AuthorPlan{Name: name, Books: titles})
	}
	return plans
}

func bookTitle(rnd *rand.Rand) string {
	switch rnd.Intn(3) {
	case 0:
		return "The " + titleCase(randomdata.Adjective()) + " " + titleCase(randomdata.Noun())
	case 1:
		return titleCase(randomdata.Noun()) + " of " + randomdata.City()
	default:
		return "A " + titleCase(randomdata.Noun()) + " in " + randomdata.State(randomdata.Large)
	}
}

func titleCase(word string) string {
	if word == "" {
		return word
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
