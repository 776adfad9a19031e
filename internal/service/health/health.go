// Package health derives the portfolio dashboard from committed projects.
// It only reads projects and never mutates them.
package health

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"artfolio/internal/model"
)

// Tier 三级健康度
type Tier string

const (
	TierGreen Tier = "green"
	TierAmber Tier = "amber"
	TierRed   Tier = "red"

	// TierAll 只用于过滤条件，表示不过滤
	TierAll Tier = "all"
)

const (
	greenMinImages = 3
	greenMinText   = 100
	amberMinImages = 1
	amberMinText   = 30
)

// Label 看板展示用文案
func (t Tier) Label() string {
	switch t {
	case TierGreen:
		return "Healthy"
	case TierAmber:
		return "Needs attention"
	case TierRed:
		return "Critical"
	default:
		return "All"
	}
}

// ParseTier 解析查询参数，空字符串视为 all
func ParseTier(s string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(s))) {
	case "", TierAll:
		return TierAll, nil
	case TierGreen:
		return TierGreen, nil
	case TierAmber:
		return TierAmber, nil
	case TierRed:
		return TierRed, nil
	}
	return "", fmt.Errorf("unknown health tier %q", s)
}

// Classify 按顺序匹配：先 green，再 amber，其余为 red
func Classify(p model.Project) Tier {
	images := len(p.ImagesURLs)
	textLen := textLength(p.Body)

	if images >= greenMinImages && textLen >= greenMinText {
		return TierGreen
	}
	if images >= amberMinImages || textLen >= amberMinText {
		return TierAmber
	}
	return TierRed
}

// textLength 按 UTF-16 码元计数，辅助平面字符计 2
func textLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// Entry 是看板上的一张卡片
type Entry struct {
	Project model.Project `json:"project"`
	Tier    Tier          `json:"tier"`
}

// Filters 看板过滤条件，FromDate/ToDate 为 epoch 毫秒闭区间
type Filters struct {
	Tier       Tier   `json:"tier"`
	FromDate   *int64 `json:"fromDate,omitempty"`
	ToDate     *int64 `json:"toDate,omitempty"`
	SearchTerm string `json:"searchTerm,omitempty"`
}

// FilterBoard 分级后依次应用 tier、fromDate、toDate、搜索词过滤，保持输入顺序
func FilterBoard(projects []model.Project, filters Filters) []Entry {
	search := strings.TrimSpace(filters.SearchTerm) != ""
	term := strings.ToLower(filters.SearchTerm)

	out := make([]Entry, 0, len(projects))
	for _, p := range projects {
		tier := Classify(p)

		if filters.Tier != "" && filters.Tier != TierAll && tier != filters.Tier {
			continue
		}
		if filters.FromDate != nil && p.Date < *filters.FromDate {
			continue
		}
		if filters.ToDate != nil && p.Date > *filters.ToDate {
			continue
		}
		if search &&
			!strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Body), term) {
			continue
		}

		out = append(out, Entry{Project: p, Tier: tier})
	}
	return out
}

// Counts 各健康度的项目数量
type Counts struct {
	Green int `json:"green"`
	Amber int `json:"amber"`
	Red   int `json:"red"`
}

// Total 项目总数
func (c Counts) Total() int {
	return c.Green + c.Amber + c.Red
}

// AggregateCounts 统计未过滤集合的分级数量
func AggregateCounts(projects []model.Project) Counts {
	var c Counts
	for _, p := range projects {
		switch Classify(p) {
		case TierGreen:
			c.Green++
		case TierAmber:
			c.Amber++
		default:
			c.Red++
		}
	}
	return c
}

// Board 是看板的完整视图：过滤后的卡片加上全量统计
type Board struct {
	Entries []Entry `json:"entries"`
	Counts  Counts  `json:"counts"`
}

// BuildBoard 组合 FilterBoard 与 AggregateCounts
func BuildBoard(projects []model.Project, filters Filters) Board {
	return Board{
		Entries: FilterBoard(projects, filters),
		Counts:  AggregateCounts(projects),
	}
}
