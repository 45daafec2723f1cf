/*
 * @Description: 统一配置管理，ini 文件作为默认值，环境变量覆盖
 * @Author: photox
 * @Date: 2025-10-02 10:12:40
 * @LastEditTime: 2025-10-19 21:03:11
 * @LastEditors: photox
 */
package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-ini/ini"
	"github.com/spf13/viper"
)

const (
	KeyServerPort       = "System.Port"
	KeyServerDebug      = "System.Debug"
	KeyScratchDir       = "System.ScratchDir"
	KeyJWTSecret        = "System.JWTSecret"
	KeyCorsOrigins      = "System.CorsAllowedOrigins"
	KeyDBType           = "Database.Type"
	KeyDBHost           = "Database.Host"
	KeyDBPort           = "Database.Port"
	KeyDBUser           = "Database.User"
	KeyDBPassword       = "Database.Password"
	KeyDBName           = "Database.Name"
	KeyDBDebug          = "Database.Debug"
	KeyRedisAddr        = "Redis.Addr"
	KeyRedisPassword    = "Redis.Password"
	KeyRedisDB          = "Redis.DB"
	KeyStorageType      = "Storage.Type"
	KeyStorageAccessKey = "Storage.AccessKey"
	KeyStorageSecretKey = "Storage.SecretKey"
	KeyStorageBucket    = "Storage.Bucket"
	KeyStorageEndpoint  = "Storage.Endpoint"
	KeyStorageRegion    = "Storage.Region"
	KeyStorageDomain    = "Storage.Domain"
	KeyVisionEndpoint   = "Vision.Endpoint"
	KeyVisionAPIKey     = "Vision.APIKey"
	KeyVisionModel      = "Vision.Model"
	KeyVisionTimeout    = "Vision.TimeoutSeconds"
	KeyVisionMaxDim     = "Vision.MaxDimension"
	KeyVisionRate       = "Vision.RatePerSecond"
)

// 定义所有已知的配置键
var allKeys = []string{
	KeyServerPort, KeyServerDebug, KeyScratchDir, KeyJWTSecret, KeyCorsOrigins,
	KeyDBType, KeyDBHost, KeyDBPort, KeyDBUser, KeyDBPassword, KeyDBName, KeyDBDebug,
	KeyRedisAddr, KeyRedisPassword, KeyRedisDB,
	KeyStorageType, KeyStorageAccessKey, KeyStorageSecretKey, KeyStorageBucket,
	KeyStorageEndpoint, KeyStorageRegion, KeyStorageDomain,
	KeyVisionEndpoint, KeyVisionAPIKey, KeyVisionModel, KeyVisionTimeout, KeyVisionMaxDim, KeyVisionRate,
}

// 内置默认值，ini 文件和环境变量都可以覆盖
var defaults = map[string]any{
	KeyServerPort:     "8091",
	KeyScratchDir:     "data/scratch",
	KeyCorsOrigins:    "http://localhost:3000",
	KeyDBType:         "sqlite",
	KeyStorageType:    "qiniu",
	KeyVisionEndpoint: "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
	KeyVisionModel:    "qwen-vl-max-latest",
	KeyVisionTimeout:  30,
	KeyVisionMaxDim:   1024,
	KeyVisionRate:     2,
}

const envPrefix = "PHOTOX"

type Config struct {
	vp *viper.Viper
}

// NewConfig 从 data/conf.ini 加载配置
func NewConfig() (*Config, error) {
	return NewConfigFromFile("data/conf.ini")
}

// NewConfigFromFile 手动加载指定的 ini 文件，再用环境变量覆盖
func NewConfigFromFile(filePath string) (*Config, error) {
	vp := viper.New()
	for k, v := range defaults {
		vp.SetDefault(k, v)
	}

	// --- 步骤 1: 使用 go-ini 从文件加载配置 ---
	iniCfg, err := ini.Load(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("提示: 未找到 %s，将仅依赖环境变量或内部默认值。", filePath)
		} else {
			return nil, fmt.Errorf("错误: 解析配置文件 '%s' 失败: %w", filePath, err)
		}
	}

	if iniCfg != nil {
		for _, section := range iniCfg.Sections() {
			for _, key := range section.Keys() {
				viperKey := fmt.Sprintf("%s.%s", section.Name(), key.Name())
				if section.Name() == ini.DefaultSection {
					viperKey = key.Name()
				}
				vp.Set(viperKey, key.Value())
			}
		}
		log.Printf("从 %s 文件加载了默认配置。", filePath)
	}

	// --- 步骤 2: 手动检查并覆盖环境变量 ---
	envReplacer := strings.NewReplacer(".", "_")
	for _, key := range allKeys {
		// 例如 PHOTOX_DATABASE_HOST
		envVarName := fmt.Sprintf("%s_%s", envPrefix, envReplacer.Replace(strings.ToUpper(key)))
		if value, found := os.LookupEnv(envVarName); found {
			vp.Set(key, value)
			log.Printf("发现环境变量: %s, 已覆盖配置 '%s'。", envVarName, key)
		}
	}

	log.Println("✅ 配置加载器初始化完成。")
	return &Config{vp: vp}, nil
}

func (c *Config) GetString(key string) string {
	return c.vp.GetString(key)
}

func (c *Config) GetInt(key string) int {
	return c.vp.GetInt(key)
}

func (c *Config) GetBool(key string) bool {
	return c.vp.GetBool(key)
}

func (c *Config) GetFloat64(key string) float64 {
	return c.vp.GetFloat64(key)
}

// GetList 读取逗号分隔的配置项，忽略空白项
func (c *Config) GetList(key string) []string {
	var out []string
	for _, item := range strings.Split(c.vp.GetString(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Set 仅用于测试和启动期的覆盖
func (c *Config) Set(key string, value any) {
	c.vp.Set(key, value)
}
