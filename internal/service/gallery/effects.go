package gallery

import "artfolio/internal/model"

// EffectKind 副作用类型，由调用方交给外部协作方执行
type EffectKind string

const (
	EffectLoad    EffectKind = "load"
	EffectCreate  EffectKind = "create"
	EffectPersist EffectKind = "persist"
	EffectUpload  EffectKind = "upload"
	EffectDelete  EffectKind = "delete"
)

// File 是一次上传中的单个文件
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Effect 是状态迁移产生的副作用请求
type Effect struct {
	Kind      EffectKind
	UID       string
	ProjectID string
	// Project 用于 create/persist，persist 时按 Document() 写入，不带 id
	Project model.Project
	Files   []File
}
