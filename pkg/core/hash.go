package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"curationvault/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// 规范化 CBOR 编码选项
// 队列消息和 RPC 载荷都走这一套，保证同一个值编码结果唯一
var encOptions = cbor.EncOptions{
	// Map Key 排序 (Canonical)
	Sort: cbor.SortCanonical,

	ShortestFloat: cbor.ShortestFloatNone,
	// 时间格式化为 Unix 整数，不生成 Tag 0/1
	Time:    cbor.TimeUnix,
	TimeTag: cbor.EncTagNone,

	// 禁止不定长编码
	IndefLength: cbor.IndefLengthForbidden,

	BigIntConvert: cbor.BigIntConvertShortest,
}

var em, _ = encOptions.EncMode()

var decOptions = cbor.DecOptions{
	// --- 安全性配置 (防 DoS 攻击) ---
	MaxArrayElements: 10000,
	MaxMapPairs:      10000,
	MaxNestedLevels:  100,

	IndefLength: cbor.IndefLengthForbidden,
	DupMapKey:   cbor.DupMapKeyEnforcedAPF,
	BignumTag:   cbor.BignumTagForbidden,

	// 忽略时间 Tag，由 Struct 类型决定解析方式
	TimeTag: cbor.DecTagIgnored,
}

var dm, _ = decOptions.DecMode()

// CalculateBlobHash 计算原始数据的 Hash
func CalculateBlobHash(data []byte) types.Hash {
	hashBytes := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(hashBytes[:]))
}

// EncodeObject 使用规范化模式编码任意值
func EncodeObject(v any) ([]byte, error) {
	data, err := em.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal object: %w", err)
	}
	return data, nil
}

// DecodeObject 通用的解码函数 (供外部使用)
func DecodeObject(data []byte, v any) error {
	return dm.Unmarshal(data, v)
}
