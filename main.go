/*
 * @Description: 程序入口
 * @Author: photox
 * @Date: 2025-10-02 09:21:55
 * @LastEditTime: 2025-10-21 18:39:14
 * @LastEditors: photox
 */
package main

import (
	"log"

	"github.com/photox-team/photox-app/cmd/server"
)

// @title           PhotoX App API
// @version         1.0
// @description     PhotoX 图片分享服务接口文档
// @termsOfService  http://swagger.io/terms/

// @contact.name   photox
// @contact.url    https://github.com/photox-team/photox-app

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8091
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description 在请求头中添加 Bearer Token，格式为: Bearer {token}
func main() {
	// 调用位于 cmd/server 包中的 NewApp 函数来构建整个应用
	app, cleanup, err := server.NewApp()
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		log.Fatalf("应用初始化失败: %v", err)
	}

	// 使用 defer 来确保 cleanup 函数在 main 退出时被调用
	defer cleanup()

	// 确保后台任务在程序退出时被停止
	defer app.Stop()

	app.PrintBanner()

	// 启动应用
	if err := app.Run(); err != nil {
		log.Fatalf("应用运行失败: %v", err)
	}
}
