package project

import (
	"sort"

	"github.com/dshills/crossbuild/internal/toolchain"
)

// Uploader names.
const (
	UploaderJLink   = "JLink"
	UploaderSTLink  = "STLink"
	UploaderOpenOCD = "OpenOCD"
	UploaderPyOCD   = "pyOCD"
	UploaderStcgal  = "stcgal"
	UploaderCustom  = "Custom"
)

var uploaderDefaults = map[string]func() UploadConfig{
	UploaderJLink: func() UploadConfig {
		return UploadConfig{
			"bin":       "",
			"baseAddr":  "0x08000000",
			"cpuInfo":   map[string]any{"vendor": "ST", "cpuName": "STM32F103C8"},
			"proType":   1,
			"speed":     8000,
			"otherCmds": "",
		}
	},
	UploaderSTLink: func() UploadConfig {
		return UploadConfig{
			"bin":             "",
			"proType":         "SWD",
			"resetMode":       "default",
			"runAfterProgram": true,
			"speed":           4000,
			"address":         "0x08000000",
			"elFile":          "None",
			"optionBytes":     "./stm32xxxx.st.option.bytes.ini",
			"otherCmds":       "",
		}
	},
	UploaderOpenOCD: func() UploadConfig {
		return UploadConfig{
			"bin":       "",
			"target":    "stm32f1x",
			"interface": "stlink",
			"baseAddr":  "0x08000000",
		}
	},
	UploaderPyOCD: func() UploadConfig {
		return UploadConfig{
			"bin":        "",
			"targetName": "cortex_m",
			"baseAddr":   "0x08000000",
			"speed":      "4M",
			"config":     "",
		}
	},
	UploaderStcgal: func() UploadConfig {
		return UploadConfig{
			"bin":           "",
			"eepromImgPath": "null",
			"extraOptions":  "",
			"options":       "./stc.flash.json",
		}
	},
	UploaderCustom: func() UploadConfig {
		return UploadConfig{
			"bin":              "",
			"commandLine":      "",
			"eraseChipCommand": "",
		}
	},
}

// Uploaders returns every known uploader, sorted.
func Uploaders() []string {
	names := make([]string, 0, len(uploaderDefaults))
	for n := range uploaderDefaults {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultUploadConfig returns the seed configuration of an uploader.
func DefaultUploadConfig(name string) (UploadConfig, bool) {
	f, ok := uploaderDefaults[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// defaultUploader is the uploader a new project of kind starts with.
func defaultUploader(kind toolchain.Kind) string {
	switch kind {
	case toolchain.KindC51:
		return UploaderStcgal
	case toolchain.KindAnyGCC:
		return UploaderCustom
	case toolchain.KindRISCV, toolchain.KindMIPS:
		return UploaderOpenOCD
	default:
		return UploaderJLink
	}
}
