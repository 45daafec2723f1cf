/*
 * @Description: 对象存储类型
 * @Author: photox
 * @Date: 2025-10-03 14:20:06
 * @LastEditTime: 2025-10-18 09:41:52
 * @LastEditors: photox
 */
package constant

// StorageType 定义了对象存储后端的类型
type StorageType string

const (
	StorageTypeQiniu      StorageType = "qiniu"
	StorageTypeAliOSS     StorageType = "aliyun_oss"
	StorageTypeTencentCOS StorageType = "tencent_cos"
	StorageTypeS3         StorageType = "s3"
	StorageTypeLocal      StorageType = "local"
)

// 对象键的命名空间
const (
	ObjectPrefixImages    = "images/"
	ObjectPrefixProcessed = "processed/"
)

// IsValid 检查给定的类型是否受支持
func (t StorageType) IsValid() bool {
	switch t {
	case StorageTypeQiniu, StorageTypeAliOSS, StorageTypeTencentCOS, StorageTypeS3, StorageTypeLocal:
		return true
	default:
		return false
	}
}
