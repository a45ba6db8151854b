package types

import (
	"fmt"
	"time"
)

// Visibility 是访问控制边界暴露的可见性枚举
type Visibility string

const (
	VisibilityRestricted    Visibility = "restricted"
	VisibilityAuthenticated Visibility = "authenticated"
	VisibilityPublic        Visibility = "open"
)

// DefaultVisibility 是最严格的取值，没有父 Work 时使用
const DefaultVisibility = VisibilityRestricted

func (v Visibility) String() string { return string(v) }

func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityRestricted, VisibilityAuthenticated, VisibilityPublic:
		return true
	}
	return false
}

// ParseVisibility 接受枚举值，空串视为默认值
// "public" 作为 "open" 的别名
func ParseVisibility(s string) (Visibility, error) {
	if s == "" {
		return DefaultVisibility, nil
	}
	if s == "public" {
		return VisibilityPublic, nil
	}
	v := Visibility(s)
	if !v.IsValid() {
		return "", fmt.Errorf("%w: unknown visibility %q", ErrValidation, s)
	}
	return v, nil
}

// AccessWindow 是可选的限时可见性覆盖 (embargo / lease)
// 两个字段默认都为空
type AccessWindow struct {
	EmbargoReleaseDate  *time.Time
	LeaseExpirationDate *time.Time
}

// UnderEmbargo 报告在 now 时刻 embargo 是否仍然生效
func (w AccessWindow) UnderEmbargo(now time.Time) bool {
	return w.EmbargoReleaseDate != nil && now.Before(*w.EmbargoReleaseDate)
}

// ActiveLease 报告在 now 时刻 lease 是否仍然生效
func (w AccessWindow) ActiveLease(now time.Time) bool {
	return w.LeaseExpirationDate != nil && now.Before(*w.LeaseExpirationDate)
}
