package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 证明材料上传相关常量
const (
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeWord        = "application/msword"
	MimeWordX       = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeOctetStream = "application/octet-stream"
)

var (
	// AllowedEvidenceMimeTypes 证明材料允许的 MIME 类型（PDF/扫描件/办公文档）
	AllowedEvidenceMimeTypes = []string{MimePDF, MimeImage, MimeWord, MimeWordX, MimeOctetStream}
)
