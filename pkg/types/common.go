// pkg/types/common.go
package types

import (
	"strings"

	"github.com/google/uuid"
)

// Hash 代表内容块的唯一标识符 (SHA256 Hex String)
// 这是一个“值对象”，应当是不可变的。
type Hash string

func (h Hash) String() string { return string(h) }

func (h Hash) IsZero() bool  { return h == "" }
func (h Hash) IsValid() bool { return len(h) == 64 } // 简单的长度检查

// ID 是仓库对象 (FileObject / Work / UploadSet) 的标识符
// 创建时分配，之后不可变
type ID string

// NewID 铸造一个新的对象标识符
func NewID() ID { return ID(uuid.NewString()) }

func (id ID) String() string { return string(id) }
func (id ID) IsZero() bool   { return strings.TrimSpace(string(id)) == "" }

// UserKey 是身份边界提供的稳定用户标识
// 原样写入 depositor 和 committer 字段，不做校验
type UserKey string

func (k UserKey) String() string { return string(k) }
func (k UserKey) IsZero() bool   { return strings.TrimSpace(string(k)) == "" }
