package health

import (
	"strings"
	"testing"

	"artfolio/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project(id string, images int, bodyLen int) model.Project {
	p := model.NewProject(id, 0)
	for i := 0; i < images; i++ {
		p.ImagesURLs = append(p.ImagesURLs, "img.jpg")
	}
	p.Body = strings.Repeat("x", bodyLen)
	return p
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		images  int
		bodyLen int
		want    Tier
	}{
		{"empty", 0, 0, TierRed},
		{"short text no images", 0, 29, TierRed},
		{"text threshold", 0, 30, TierAmber},
		{"one image", 1, 0, TierAmber},
		{"many images little text", 5, 99, TierAmber},
		{"long text few images", 2, 500, TierAmber},
		{"green threshold", 3, 100, TierGreen},
		{"well documented", 10, 1000, TierGreen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := project("p", tt.images, tt.bodyLen)
			got := Classify(p)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Classify(p), "classification must be deterministic")
		})
	}
}

func TestClassify_TierImplications(t *testing.T) {
	for images := 0; images <= 4; images++ {
		for _, bodyLen := range []int{0, 29, 30, 99, 100, 150} {
			p := project("p", images, bodyLen)
			switch Classify(p) {
			case TierGreen:
				assert.True(t, images >= 3 && bodyLen >= 100)
			case TierRed:
				assert.True(t, images == 0 && bodyLen < 30)
			case TierAmber:
				assert.False(t, images >= 3 && bodyLen >= 100)
				assert.False(t, images == 0 && bodyLen < 30)
			default:
				t.Fatalf("unexpected tier for images=%d body=%d", images, bodyLen)
			}
		}
	}
}

func TestClassify_CountsCharactersNotBytes(t *testing.T) {
	p := project("p", 0, 0)
	p.Body = strings.Repeat("ó", 30)
	assert.Equal(t, TierAmber, Classify(p))
}

func TestClassify_AstralCharactersCountTwice(t *testing.T) {
	p := project("p", 0, 0)
	p.Body = strings.Repeat("🎨", 15)
	assert.Equal(t, 30, textLength(p.Body))
	assert.Equal(t, TierAmber, Classify(p))

	p.Body = strings.Repeat("🎨", 14) + "x"
	assert.Equal(t, TierRed, Classify(p))
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Project.ID)
	}
	return out
}

func TestFilterBoard_AllReturnsEverythingInOrder(t *testing.T) {
	projects := []model.Project{
		project("c", 0, 0),
		project("a", 3, 120),
		project("b", 1, 0),
	}

	got := FilterBoard(projects, Filters{Tier: TierAll})
	assert.Equal(t, []string{"c", "a", "b"}, ids(got))
	assert.Equal(t, []Tier{TierRed, TierGreen, TierAmber}, []Tier{got[0].Tier, got[1].Tier, got[2].Tier})

	assert.Equal(t, ids(got), ids(FilterBoard(projects, Filters{})))
}

func TestFilterBoard_ComposesFilters(t *testing.T) {
	mk := func(id string, date int64, title, body string, images int) model.Project {
		p := model.NewProject(id, date)
		p.Title = title
		p.Body = body
		for i := 0; i < images; i++ {
			p.ImagesURLs = append(p.ImagesURLs, "x.jpg")
		}
		return p
	}
	projects := []model.Project{
		mk("1", 100, "Colonial oil", "", 1),
		mk("2", 200, "Modern sculpture", "", 1),
		mk("3", 300, "Fresco", "restoration of a COLONIAL chapel", 1),
		mk("4", 400, "Colonial frame", "", 0),
	}

	from, to := int64(100), int64(300)

	tests := []struct {
		name    string
		filters Filters
		want    []string
	}{
		{"tier only", Filters{Tier: TierRed}, []string{"4"}},
		{"from inclusive", Filters{Tier: TierAll, FromDate: &to}, []string{"3", "4"}},
		{"to inclusive", Filters{Tier: TierAll, ToDate: &from}, []string{"1"}},
		{"search title or body case-insensitive", Filters{SearchTerm: "COLONIAL"}, []string{"1", "3", "4"}},
		{"search term kept untrimmed", Filters{SearchTerm: "oil "}, []string{}},
		{"search spaces are part of the term", Filters{SearchTerm: " frame"}, []string{"4"}},
		{"blank search ignored", Filters{SearchTerm: "   "}, []string{"1", "2", "3", "4"}},
		{"all together", Filters{Tier: TierAmber, FromDate: &from, ToDate: &to, SearchTerm: "colonial"}, []string{"1", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(FilterBoard(projects, tt.filters)))
		})
	}
}

func TestAggregateCounts_IgnoresFilters(t *testing.T) {
	projects := []model.Project{
		project("g", 3, 100),
		project("a", 1, 0),
		project("r", 0, 0),
	}

	assert.Equal(t, Counts{Green: 1, Amber: 1, Red: 1}, AggregateCounts(projects))

	board := BuildBoard(projects, Filters{Tier: TierGreen, SearchTerm: "nothing matches"})
	assert.Empty(t, board.Entries)
	assert.Equal(t, Counts{Green: 1, Amber: 1, Red: 1}, board.Counts)
	assert.Equal(t, 3, board.Counts.Total())
}

func TestParseTier(t *testing.T) {
	for in, want := range map[string]Tier{"": TierAll, "all": TierAll, "GREEN": TierGreen, " amber ": TierAmber, "red": TierRed} {
		got, err := ParseTier(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseTier("purple")
	assert.Error(t, err)

	assert.Equal(t, "Critical", TierRed.Label())
}
