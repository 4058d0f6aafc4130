package models

import (
	"database/sql/driver"
	"fmt"
)

// Role 账本内的成员角色，按权限从低到高排序
type Role uint8

const (
	RoleUnknown Role = iota
	RoleViewer
	RoleMember
	RoleAdmin
	RoleOwner
)

var roleNames = map[Role]string{
	RoleViewer: "viewer",
	RoleMember: "member",
	RoleAdmin:  "admin",
	RoleOwner:  "owner",
}

// ParseRole 解析角色字符串
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if name == s {
			return r, nil
		}
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", s)
}

// Valid 是否为已定义角色
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Compare 比较两个角色的权限高低：r 更高返回 1，相同返回 0，更低返回 -1
func (r Role) Compare(other Role) int {
	switch {
	case r > other:
		return 1
	case r < other:
		return -1
	}
	return 0
}

// AtLeast 权限是否不低于 min
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

// MarshalText 以字符串形式序列化
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText 从字符串反序列化
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value 入库为字符串
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return r.String(), nil
}

// Scan 从数据库读取
func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case nil:
		*r = RoleUnknown
		return nil
	}
	return fmt.Errorf("cannot scan %T into Role", src)
}
