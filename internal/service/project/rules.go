package project

import (
	"sort"
	"strings"

	"artfolio/internal/model"

	"github.com/google/uuid"
)

const minCriterionLength = 3

// NewID 生成客户端侧的唯一 id，测试中可替换
var NewID = func() string {
	return uuid.NewString()
}

// AddCriterion 追加一条验收标准；withAcceptanceCriteria 留到保存时再计算
func AddCriterion(p model.Project, text string) (model.Project, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return p, reject(CodeEmpty, "acceptance criterion cannot be empty")
	}
	if len([]rune(trimmed)) < minCriterionLength {
		return p, reject(CodeTooShort, "acceptance criterion must be at least %d characters", minCriterionLength)
	}
	for _, c := range p.AcceptanceCriteria {
		if strings.EqualFold(c.Text, trimmed) {
			return p, reject(CodeDuplicate, "acceptance criterion %q already exists", trimmed)
		}
	}

	next := p.Clone()
	next.AcceptanceCriteria = append(next.AcceptanceCriteria, model.AcceptanceCriterion{
		ID:   NewID(),
		Text: trimmed,
	})
	return next, nil
}

// RemoveCriterion 删除指定 id 的验收标准，不存在时原样返回
func RemoveCriterion(p model.Project, criterionID string) model.Project {
	next := p.Clone()
	kept := next.AcceptanceCriteria[:0]
	for _, c := range next.AcceptanceCriteria {
		if c.ID != criterionID {
			kept = append(kept, c)
		}
	}
	next.AcceptanceCriteria = kept
	return next
}

// AddMilestone 追加里程碑；日期必须落在 [start, end] 闭区间内
func AddMilestone(p model.Project, name, dateString, description string) (model.Project, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return p, reject(CodeEmptyName, "milestone name cannot be empty")
	}

	ts, ok := ParseDate(dateString)
	if !ok {
		return p, reject(CodeInvalidDate, "milestone date %q is not a valid date", dateString)
	}

	start, end := p.Start(), p.End()
	if ts < start || ts > end {
		return p, reject(CodeOutOfRange, "milestone date must be between %s and %s",
			FormatDate(start), FormatDate(end))
	}

	next := p.Clone()
	next.Milestones = append(next.Milestones, model.Milestone{
		ID:          NewID(),
		Name:        trimmed,
		Date:        ts,
		Description: strings.TrimSpace(description),
	})
	return next, nil
}

// ValidateDateRange 两端都设置时要求 start <= end
func ValidateDateRange(startDate, endDate *int64) error {
	if startDate == nil || endDate == nil {
		return nil
	}
	if *startDate > *endDate {
		return reject(CodeRangeInvalid, "start date %s is after end date %s",
			FormatDate(*startDate), FormatDate(*endDate))
	}
	return nil
}

// SaveForm 是编辑表单提交的字段
type SaveForm struct {
	Title              string                      `json:"title"`
	Body               string                      `json:"body"`
	AcceptanceCriteria []model.AcceptanceCriterion `json:"acceptanceCriteria"`
	StartDate          *int64                      `json:"startDate"`
	EndDate            *int64                      `json:"endDate"`
	Milestones         []model.Milestone           `json:"milestones"`
}

// FormFrom 以项目当前内容构造表单，调用方只需改动关心的字段
func FormFrom(p model.Project) SaveForm {
	c := p.Clone()
	return SaveForm{
		Title:              c.Title,
		Body:               c.Body,
		AcceptanceCriteria: c.AcceptanceCriteria,
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		Milestones:         c.Milestones,
	}
}

// PrepareSave 校验并合并表单；日期区间非法时整体放弃，不做部分合并
func PrepareSave(p model.Project, form SaveForm) (model.Project, []Advisory, error) {
	if err := ValidateDateRange(form.StartDate, form.EndDate); err != nil {
		return p, nil, err
	}

	next := p.Clone()
	next.Title = form.Title
	next.Body = form.Body
	next.AcceptanceCriteria = append([]model.AcceptanceCriterion{}, form.AcceptanceCriteria...)
	next.StartDate = copyInt64(form.StartDate)
	next.EndDate = copyInt64(form.EndDate)
	next.Milestones = append([]model.Milestone{}, form.Milestones...)
	next.WithAcceptanceCriteria = len(next.AcceptanceCriteria) > 0

	var advisories []Advisory
	if !next.WithAcceptanceCriteria {
		advisories = append(advisories, AdvisoryNoCriteria)
	}
	return next, advisories, nil
}

// SortedMilestones 按日期升序返回里程碑，同日期保持插入顺序
func SortedMilestones(p model.Project) []model.Milestone {
	out := append([]model.Milestone{}, p.Milestones...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
