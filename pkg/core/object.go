package core

import "curationvault/pkg/types"

// ObjectType 定义了内容存储中的对象类型
type ObjectType string

const (
	TypeBlob ObjectType = "blob" // 某个版本的原始字节
)

// Object 是所有可写入 storage.Store 的对象的通用接口
type Object interface {
	// Type 返回对象类型
	Type() ObjectType

	// ID 返回对象的哈希值 (内容寻址)
	ID() types.Hash

	// Bytes 返回对象的原始数据 (用于存储)
	Bytes() []byte
}
