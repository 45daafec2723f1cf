package version

import (
	"runtime"
	"runtime/debug"
)

const ModulePath = "github.com/photox-team/photox-app"

// 构建时通过 -ldflags "-X" 注入
var (
	Version   = ""
	Commit    = ""
	BuildTime = ""
)

// BuildInfo 版本接口返回的构建信息
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// GetVersion 优先使用注入的版本号，其次读取模块构建信息
func GetVersion() string {
	if Version != "" {
		return Version
	}
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown (no build info)"
	}
	if buildInfo.Main.Path == ModulePath && buildInfo.Main.Version != "" {
		return buildInfo.Main.Version
	}
	return "dev"
}

func GetVersionString() string {
	v := GetVersion()
	if c := commit(); c != "" {
		return v + " (" + c + ")"
	}
	return v
}

func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   GetVersion(),
		Commit:    commit(),
		BuildTime: buildTime(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func commit() string {
	if Commit != "" {
		return Commit
	}
	return setting("vcs.revision")
}

func buildTime() string {
	if BuildTime != "" {
		return BuildTime
	}
	return setting("vcs.time")
}

func setting(key string) string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range buildInfo.Settings {
		if s.Key == key {
			return s.Value
		}
	}
	return ""
}
