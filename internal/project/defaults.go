package project

import (
	"fmt"

	"github.com/dshills/crossbuild/internal/toolchain"
)

// DefaultOutDir is the root-relative build output directory.
const DefaultOutDir = "build"

// NewDocument returns a fresh project document of kind, using d for the
// active target. Paths are root-relative and the reserved dependence
// groups are absent; Configuration adds them when it adopts the document.
func NewDocument(name string, kind toolchain.Kind, d toolchain.Descriptor) (ProjectConfigData, error) {
	if !toolchain.ValidKind(kind) {
		return ProjectConfigData{}, fmt.Errorf("%w: %q", toolchain.ErrUnknownProjectKind, kind)
	}
	uploader := defaultUploader(kind)
	upload, _ := DefaultUploadConfig(uploader)

	return ProjectConfigData{
		Name:            name,
		Type:            kind,
		Mode:            DefaultTargetName,
		ExcludeList:     []string{},
		Toolchain:       d.Name(),
		CompileConfig:   CompileConfig{Options: d.FactoryDefaults()},
		Uploader:        uploader,
		UploadConfig:    upload,
		UploadConfigMap: map[string]UploadConfig{},
		Targets:         map[string]ProjectTargetInfo{},
		DependenceList:  []DependenceGroup{},
		SrcDirs:         []string{},
		VirtualFolder:   VirtualFolder{Name: "<virtual_root>", Files: []VirtualFile{}, Folders: []VirtualFolder{}},
		OutDir:          DefaultOutDir,
		Version:         SchemaVersion,
	}, nil
}

// backfill copies root keys absent from the file from def. Keys that
// belong to the active target are never backfilled.
var backfill = map[string]func(dst, def *ProjectConfigData){
	"name":           func(dst, def *ProjectConfigData) { dst.Name = def.Name },
	"type":           func(dst, def *ProjectConfigData) { dst.Type = def.Type },
	"targets":        func(dst, def *ProjectConfigData) { dst.Targets = def.Targets },
	"dependenceList": func(dst, def *ProjectConfigData) { dst.DependenceList = def.DependenceList },
	"srcDirs":        func(dst, def *ProjectConfigData) { dst.SrcDirs = def.SrcDirs },
	"virtualFolder":  func(dst, def *ProjectConfigData) { dst.VirtualFolder = def.VirtualFolder },
	"outDir":         func(dst, def *ProjectConfigData) { dst.OutDir = def.OutDir },
}
