package rbac

// 权限常量
const (
	PermissionReadProject   = "project:read"
	PermissionWriteProject  = "project:write"
	PermissionDeleteProject = "project:delete"
	PermissionUploadImage   = "image:upload"
)

// 角色常量
const (
	RoleViewer = "viewer"
	RoleOwner  = "owner"
)

var rolePermissions = map[string][]string{
	RoleViewer: {
		PermissionReadProject,
	},
	RoleOwner: {
		PermissionReadProject,
		PermissionWriteProject,
		PermissionDeleteProject,
		PermissionUploadImage,
	},
}

// ParseRole 校验 token 中的角色，未知或缺失时降为只读的 viewer
func ParseRole(role string) string {
	if _, ok := rolePermissions[role]; ok {
		return role
	}
	return RoleViewer
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查权限，返回错误而不是布尔值
func CheckPermission(uid, role, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			UserID:     uid,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	UserID     string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions: " + e.Permission
}
