package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/gosimple/slug"
)

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var difficultyOrder = []Difficulty{Easy, Medium, Hard}

var (
	ErrMissingTitle      = errors.New("problem-missing-title")
	ErrInvalidId         = errors.New("problem-invalid-id")
	ErrDuplicateId       = errors.New("problem-duplicate-id")
	ErrInvalidDifficulty = errors.New("problem-invalid-difficulty")
	ErrNoTests           = errors.New("problem-without-tests")
)

// TestCase input is passed verbatim to solve(input); expected is compared structurally.
type TestCase struct {
	Input    json.RawMessage `json:"input"`
	Expected json.RawMessage `json:"expected"`
}

type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

type Problem struct {
	Id           string            `json:"id"`
	Title        string            `json:"title"`
	Difficulty   Difficulty        `json:"difficulty"`
	Topics       []string          `json:"topics"`
	Tags         []string          `json:"tags"`
	Statement    string            `json:"statement"`
	Constraints  []string          `json:"constraints"`
	Examples     []Example         `json:"examples"`
	StarterCode  map[string]string `json:"starterCode"`
	VisibleTests []TestCase        `json:"visibleTests"`
	HiddenTests  []TestCase        `json:"hiddenTests"`
}

// SampleTests returns at most limit visible tests.
func (p Problem) SampleTests(limit int) []TestCase {
	if limit <= 0 || limit >= len(p.VisibleTests) {
		return slices.Clone(p.VisibleTests)
	}
	return slices.Clone(p.VisibleTests[:limit])
}

// AllTests returns visible tests followed by hidden ones.
func (p Problem) AllTests() []TestCase {
	out := make([]TestCase, 0, len(p.VisibleTests)+len(p.HiddenTests))
	out = append(out, p.VisibleTests...)
	return append(out, p.HiddenTests...)
}

func (p Problem) Summary() Summary {
	return Summary{
		Id:         p.Id,
		Title:      p.Title,
		Difficulty: p.Difficulty,
		Topics:     p.Topics,
		Tags:       p.Tags,
	}
}

type Summary struct {
	Id         string     `json:"id"`
	Title      string     `json:"title"`
	Difficulty Difficulty `json:"difficulty"`
	Topics     []string   `json:"topics"`
	Tags       []string   `json:"tags"`
}

// Filter fields are ANDed together; values inside one field are ORed.
type Filter struct {
	Topics       []string `json:"topics"`
	Tags         []string `json:"tags"`
	Difficulties []string `json:"difficulties"`
	Search       string   `json:"search"`
}

type Facets struct {
	Topics       []string `json:"topics"`
	Tags         []string `json:"tags"`
	Difficulties []string `json:"difficulties"`
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	problems []Problem
	byId     map[string]int
	facets   Facets
}

func New(problems []Problem) (*Catalog, error) {
	c := &Catalog{
		problems: make([]Problem, 0, len(problems)),
		byId:     make(map[string]int, len(problems)),
	}

	topics := map[string]struct{}{}
	tags := map[string]struct{}{}
	difficulties := map[Difficulty]struct{}{}

	for i, p := range problems {
		p.Title = strings.TrimSpace(p.Title)
		if p.Title == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrMissingTitle, i)
		}
		if p.Id == "" {
			p.Id = slug.Make(p.Title)
		}
		if !slug.IsSlug(p.Id) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidId, p.Id)
		}
		if _, dup := c.byId[p.Id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateId, p.Id)
		}
		p.Difficulty = Difficulty(strings.ToLower(string(p.Difficulty)))
		if !slices.Contains(difficultyOrder, p.Difficulty) {
			return nil, fmt.Errorf("%w: %q on %q", ErrInvalidDifficulty, p.Difficulty, p.Id)
		}
		if len(p.VisibleTests)+len(p.HiddenTests) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoTests, p.Id)
		}

		for _, t := range p.Topics {
			topics[t] = struct{}{}
		}
		for _, t := range p.Tags {
			tags[t] = struct{}{}
		}
		difficulties[p.Difficulty] = struct{}{}

		c.byId[p.Id] = len(c.problems)
		c.problems = append(c.problems, p)
	}

	c.facets = Facets{
		Topics:       sortedKeys(topics),
		Tags:         sortedKeys(tags),
		Difficulties: []string{},
	}
	for _, d := range difficultyOrder {
		if _, ok := difficulties[d]; ok {
			c.facets.Difficulties = append(c.facets.Difficulties, string(d))
		}
	}

	return c, nil
}

func Load(r io.Reader) (*Catalog, error) {
	var problems []Problem
	if err := json.NewDecoder(r).Decode(&problems); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(problems)
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (c *Catalog) Get(id string) (Problem, bool) {
	i, ok := c.byId[id]
	if !ok {
		return Problem{}, false
	}
	return c.problems[i], true
}

func (c *Catalog) Len() int {
	return len(c.problems)
}

// List keeps catalog order.
func (c *Catalog) List(f Filter) []Summary {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []Summary{}
	for _, p := range c.problems {
		if len(f.Difficulties) > 0 && !containsFold(f.Difficulties, string(p.Difficulty)) {
			continue
		}
		if len(f.Topics) > 0 && !overlaps(f.Topics, p.Topics) {
			continue
		}
		if len(f.Tags) > 0 && !overlaps(f.Tags, p.Tags) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) && !strings.Contains(p.Id, search) {
			continue
		}
		out = append(out, p.Summary())
	}
	return out
}

func (c *Catalog) Facets() Facets {
	return Facets{
		Topics:       slices.Clone(c.facets.Topics),
		Tags:         slices.Clone(c.facets.Tags),
		Difficulties: slices.Clone(c.facets.Difficulties),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}

func overlaps(wanted, have []string) bool {
	for _, w := range wanted {
		if containsFold(have, w) {
			return true
		}
	}
	return false
}
