package auth

// Status 身份状态
type Status string

const (
	StatusChecking         Status = "checking"
	StatusAuthenticated    Status = "authenticated"
	StatusNotAuthenticated Status = "not-authenticated"
)

// Session 是身份提供方给出的当前用户信息，核心只读取 UID
type Session struct {
	UID      string `json:"uid"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Status   Status `json:"status"`
}

// Authenticated 是否已登录
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.UID != ""
}
