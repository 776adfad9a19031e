package model

// Project 是一个作品/修复项目条目，时间字段均为 epoch 毫秒
type Project struct {
	ID                     string                `json:"id"`
	Title                  string                `json:"title"`
	Body                   string                `json:"body"`
	Date                   int64                 `json:"date"`
	StartDate              *int64                `json:"startDate,omitempty"`
	EndDate                *int64                `json:"endDate,omitempty"`
	ImagesURLs             []string              `json:"imagesUrls"`
	AcceptanceCriteria     []AcceptanceCriterion `json:"acceptanceCriteria"`
	WithAcceptanceCriteria bool                  `json:"withAcceptanceCriteria"`
	Milestones             []Milestone           `json:"milestones"`
}

// AcceptanceCriterion 交付验收标准
type AcceptanceCriterion struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Milestone 时间线上的里程碑
type Milestone struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        int64  `json:"date"`
	Description string `json:"description,omitempty"`
}

// ProjectDocument 是写入文档存储的内容，不含 id
type ProjectDocument struct {
	Title                  string                `json:"title"`
	Body                   string                `json:"body"`
	Date                   int64                 `json:"date"`
	StartDate              *int64                `json:"startDate,omitempty"`
	EndDate                *int64                `json:"endDate,omitempty"`
	ImagesURLs             []string              `json:"imagesUrls"`
	AcceptanceCriteria     []AcceptanceCriterion `json:"acceptanceCriteria"`
	WithAcceptanceCriteria bool                  `json:"withAcceptanceCriteria"`
	Milestones             []Milestone           `json:"milestones"`
}

// NewProject 创建新项目：date、startDate、endDate 都等于 now，其余为空
func NewProject(id string, nowMillis int64) Project {
	start, end := nowMillis, nowMillis
	return Project{
		ID:                 id,
		Date:               nowMillis,
		StartDate:          &start,
		EndDate:            &end,
		ImagesURLs:         []string{},
		AcceptanceCriteria: []AcceptanceCriterion{},
		Milestones:         []Milestone{},
	}
}

// Start 返回时间线起点，未设置时为创建时间
func (p Project) Start() int64 {
	if p.StartDate != nil {
		return *p.StartDate
	}
	return p.Date
}

// End 返回时间线终点，未设置时为创建时间
func (p Project) End() int64 {
	if p.EndDate != nil {
		return *p.EndDate
	}
	return p.Date
}

// Clone 深拷贝，active 项目必须是独立的值
func (p Project) Clone() Project {
	c := p
	c.StartDate = cloneInt64(p.StartDate)
	c.EndDate = cloneInt64(p.EndDate)
	c.ImagesURLs = append([]string{}, p.ImagesURLs...)
	c.AcceptanceCriteria = append([]AcceptanceCriterion{}, p.AcceptanceCriteria...)
	c.Milestones = append([]Milestone{}, p.Milestones...)
	return c
}

// Document 返回去掉 id 的持久化内容
func (p Project) Document() ProjectDocument {
	c := p.Clone()
	return ProjectDocument{
		Title:                  c.Title,
		Body:                   c.Body,
		Date:                   c.Date,
		StartDate:              c.StartDate,
		EndDate:                c.EndDate,
		ImagesURLs:             c.ImagesURLs,
		AcceptanceCriteria:     c.AcceptanceCriteria,
		WithAcceptanceCriteria: c.WithAcceptanceCriteria,
		Milestones:             c.Milestones,
	}
}

// FromDocument 用 id 和文档内容组装项目
func FromDocument(id string, doc ProjectDocument) Project {
	p := Project{
		ID:                     id,
		Title:                  doc.Title,
		Body:                   doc.Body,
		Date:                   doc.Date,
		StartDate:              doc.StartDate,
		EndDate:                doc.EndDate,
		ImagesURLs:             doc.ImagesURLs,
		AcceptanceCriteria:     doc.AcceptanceCriteria,
		WithAcceptanceCriteria: doc.WithAcceptanceCriteria,
		Milestones:             doc.Milestones,
	}
	if p.ImagesURLs == nil {
		p.ImagesURLs = []string{}
	}
	if p.AcceptanceCriteria == nil {
		p.AcceptanceCriteria = []AcceptanceCriterion{}
	}
	if p.Milestones == nil {
		p.Milestones = []Milestone{}
	}
	return p.Clone()
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Int64Ptr 辅助构造可选时间字段
func Int64Ptr(v int64) *int64 {
	return &v
}
